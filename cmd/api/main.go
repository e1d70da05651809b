package main

import "github.com/adanyl0v/go-todo-web/internal/app"

func main() {
	app.InitDefaultLogger("api")
	app.MustReadEnv()
	app.MustInitApplicationLogger()

	app.MustOpenStorage()
	defer app.CloseStorage()

	app.MustListenAndServeAPI()
}
