package main

import "github.com/adanyl0v/go-todo-web/internal/app"

func main() {
	app.InitDefaultLogger("web")
	app.MustReadEnv()
	app.MustInitApplicationLogger()

	app.MustOpenSessionStore()
	defer app.CloseSessionStore()

	app.MustListenAndServeWeb()
}
