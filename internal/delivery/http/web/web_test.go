package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/adanyl0v/go-todo-web/internal/delivery/http/v1"
	"github.com/adanyl0v/go-todo-web/internal/gateway"
	"github.com/adanyl0v/go-todo-web/internal/services"
	"github.com/adanyl0v/go-todo-web/internal/session"
	"github.com/adanyl0v/go-todo-web/internal/storage/sqlite"
)

const cookieName = "todo_session"

type testSite struct {
	router http.Handler
	store  *session.MemoryStore
	auth   services.AuthService
}

// setupSite runs the front end against a real task API on sqlite.
func setupSite(t *testing.T) *testSite {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })

	auth := services.NewAuthService(
		logger,
		sqlite.NewUserRepository(db),
		sqlite.NewRefreshSessionRepository(db),
		"test-issuer",
		[]byte("test-signing-key"),
		5*time.Minute,
		time.Hour,
	)
	tasks := services.NewTaskService(logger, sqlite.NewTaskRepository(db))

	apiRouter := gin.New()
	v1.RegisterRoutes(apiRouter, v1.New(logger, auth, tasks))
	apiServer := httptest.NewServer(apiRouter)
	t.Cleanup(apiServer.Close)

	site := newSite(t, apiServer.URL+"/api")
	site.auth = auth
	return site
}

func newSite(t *testing.T, apiURL string) *testSite {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()

	store := session.NewMemoryStore(time.Hour)
	manager := session.NewManager(logger, store, cookieName, time.Hour, false)
	client := gateway.NewClient(logger, apiURL, "/auth/token/refresh/", 2*time.Second)

	router := gin.New()
	require.NoError(t, RegisterRoutes(router, New(logger, client, manager)))
	return &testSite{router: router, store: store}
}

// browser keeps the session cookie between requests.
type browser struct {
	t      *testing.T
	site   *testSite
	cookie *http.Cookie
}

func (s *testSite) browser(t *testing.T) *browser {
	return &browser{t: t, site: s}
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.site.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			b.cookie = c
		}
	}
	return w
}

// follow performs a GET on the redirect target of w.
func (b *browser) follow(w *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	b.t.Helper()
	require.Equal(b.t, http.StatusFound, w.Code, w.Body.String())
	return b.get(w.Header().Get("Location"))
}

func (b *browser) sessionData() *session.Data {
	b.t.Helper()
	require.NotNil(b.t, b.cookie)
	data, err := b.site.store.Get(context.Background(), b.cookie.Value)
	require.NoError(b.t, err)
	return data
}

func (b *browser) setSessionData(data *session.Data) {
	b.t.Helper()
	if b.cookie == nil {
		b.get("/login/")
	}
	require.NoError(b.t, b.site.store.Save(context.Background(), b.cookie.Value, data))
}

func (b *browser) signUp(username string) {
	b.t.Helper()
	creds := url.Values{"username": {username}, "password": {"password1"}}

	w := b.post("/register/", creds)
	require.Equal(b.t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(b.t, "/login/", w.Header().Get("Location"))

	w = b.post("/login/", creds)
	require.Equal(b.t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(b.t, "/tasks/", w.Header().Get("Location"))
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, location, w.Header().Get("Location"))
}

func TestIndex(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)

	assertRedirect(t, b.get("/"), "/login/")

	b.signUp("alice")
	assertRedirect(t, b.get("/"), "/tasks/")
	assertRedirect(t, b.get("/login/"), "/tasks/")
}

func TestGuard_RedirectsAnonymous(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)

	for _, path := range []string{"/tasks/", "/tasks/1/", "/tasks/1/edit/", "/logout/"} {
		w := b.get(path)
		assertRedirect(t, w, "/login/")
	}

	w := b.post("/tasks/", url.Values{"title": {"sneaky"}})
	assertRedirect(t, w, "/login/")

	page := b.follow(w)
	assert.Contains(t, page.Body.String(), "You must log in to continue.")
}

func TestRegister(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)

	w := b.get("/register/")
	assert.Equal(t, http.StatusOK, w.Code)

	w = b.post("/register/", url.Values{"username": {"alice"}, "password": {"123"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ensure this value has at least 6 characters.")

	w = b.post("/register/", url.Values{"username": {"alice"}, "password": {"password1"}})
	assertRedirect(t, w, "/login/")
	assert.Contains(t, b.follow(w).Body.String(), "Account created. You can log in now.")

	w = b.post("/register/", url.Values{"username": {"alice"}, "password": {"password1"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a user with that username already exists")
}

func TestLogin(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)

	w := b.post("/login/", url.Values{"username": {"ghost"}, "password": {"password1"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password.")
	assert.NotContains(t, w.Body.String(), "password1")

	w = b.post("/login/", url.Values{"username": {""}, "password": {""}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")

	b.signUp("alice")
	data := b.sessionData()
	assert.NotEmpty(t, data.AccessToken)
	assert.NotEmpty(t, data.RefreshToken)

	page := b.get("/tasks/")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Logged in successfully.")
}

func TestLogin_IssuesNewSessionID(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)

	planted := &http.Cookie{Name: cookieName, Value: "0190a5d2-1111-7000-8000-000000000001"}
	b.cookie = planted
	b.get("/login/")
	require.NotEqual(t, planted.Value, b.cookie.Value)

	b.setSessionData(&session.Data{Flashes: []session.Flash{{Level: "info", Message: "hello"}}})
	anonymousID := b.cookie.Value

	b.signUp("alice")
	assert.NotEqual(t, anonymousID, b.cookie.Value)
	assert.NotEmpty(t, b.sessionData().AccessToken)

	for _, id := range []string{planted.Value, anonymousID} {
		_, err := site.store.Get(context.Background(), id)
		assert.ErrorIs(t, err, session.ErrNotFound, id)
	}
}

func TestLogout(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)
	b.signUp("alice")
	refresh := b.sessionData().RefreshToken

	w := b.post("/logout/", nil)
	assertRedirect(t, w, "/login/")
	assert.Contains(t, b.follow(w).Body.String(), "You have been logged out.")

	assertRedirect(t, b.get("/tasks/"), "/login/")

	_, err := site.auth.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}

func TestTaskLifecycle(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)
	b.signUp("alice")

	w := b.post("/tasks/", url.Values{"title": {"  Buy milk  "}, "description": {"2 litres"}})
	assertRedirect(t, w, "/tasks/")
	page := b.follow(w).Body.String()
	assert.Contains(t, page, "Task created.")
	assert.Contains(t, page, `<a href="/tasks/1/">Buy milk</a>`)

	w = b.post("/tasks/", url.Values{"title": {"   "}})
	assertRedirect(t, w, "/tasks/")
	assert.Contains(t, b.follow(w).Body.String(), "Title: This field is required.")

	detail := b.get("/tasks/1/")
	assert.Equal(t, http.StatusOK, detail.Code)
	assert.Contains(t, detail.Body.String(), "2 litres")

	w = b.post("/tasks/1/toggle/", url.Values{"next": {"/tasks/1/"}})
	assertRedirect(t, w, "/tasks/1/")
	assert.Contains(t, b.follow(w).Body.String(), "Task marked as completed.")

	w = b.post("/tasks/1/toggle/", url.Values{"next": {"https://evil.example/"}})
	assertRedirect(t, w, "/tasks/")
	assert.Contains(t, b.follow(w).Body.String(), "Task reopened.")

	edit := b.get("/tasks/1/edit/")
	assert.Equal(t, http.StatusOK, edit.Code)
	assert.Contains(t, edit.Body.String(), `value="Buy milk"`)

	w = b.post("/tasks/1/edit/", url.Values{"title": {" "}, "description": {"x"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")

	w = b.post("/tasks/1/edit/", url.Values{
		"title":       {"Buy oat milk"},
		"description": {"1 litre"},
		"completed":   {"true"},
	})
	assertRedirect(t, w, "/tasks/1/")
	page = b.follow(w).Body.String()
	assert.Contains(t, page, "Task updated.")
	assert.Contains(t, page, "Buy oat milk")
	assert.Contains(t, page, "✅")

	w = b.post("/tasks/1/delete/", nil)
	assertRedirect(t, w, "/tasks/")
	page = b.follow(w).Body.String()
	assert.Contains(t, page, "Task deleted.")
	assert.Contains(t, page, "No tasks found.")
}

func TestTaskDetail_NotFound(t *testing.T) {
	site := setupSite(t)

	owner := site.browser(t)
	owner.signUp("alice")
	assertRedirect(t, owner.post("/tasks/", url.Values{"title": {"private"}}), "/tasks/")

	other := site.browser(t)
	other.signUp("bob")

	for _, path := range []string{"/tasks/1/", "/tasks/1/edit/", "/tasks/999/", "/tasks/abc/"} {
		w := other.get(path)
		assertRedirect(t, w, "/tasks/")
		assert.Contains(t, other.follow(w).Body.String(), "Task not found.")
	}

	w := other.post("/tasks/1/delete/", nil)
	assertRedirect(t, w, "/tasks/")
	assert.Contains(t, other.follow(w).Body.String(), "Could not delete the task.")
}

func TestTaskList_FiltersAndPager(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)
	b.signUp("alice")

	for i := 1; i <= 12; i++ {
		w := b.post("/tasks/", url.Values{"title": {fmt.Sprintf("Chore %02d", i)}})
		require.Equal(t, http.StatusFound, w.Code)
	}

	page := b.get("/tasks/").Body.String()
	assert.Contains(t, page, "Chore 12")
	assert.NotContains(t, page, "Chore 02")
	assert.Contains(t, page, `href="/tasks/?page=2"`)
	assert.Contains(t, page, "12 tasks")

	page = b.get("/tasks/?page=2").Body.String()
	assert.Contains(t, page, "Chore 02")
	assert.Contains(t, page, `href="/tasks/"`)
	assert.NotContains(t, page, "page=3")

	page = b.get("/tasks/?search=chore+11").Body.String()
	assert.Contains(t, page, "Chore 11")
	assert.NotContains(t, page, "Chore 10")

	page = b.get("/tasks/?ordering=title").Body.String()
	assert.Less(t, strings.Index(page, "Chore 01"), strings.Index(page, "Chore 05"))

	w := b.post("/tasks/3/toggle/", nil)
	assertRedirect(t, w, "/tasks/")
	page = b.get("/tasks/?completed=true").Body.String()
	assert.Contains(t, page, "Chore 03")
	assert.NotContains(t, page, "Chore 04")

	today := time.Now().UTC().Format(time.DateOnly)
	page = b.get("/tasks/?created_from=" + today + "&created_until=" + today).Body.String()
	assert.Contains(t, page, "Chore 12")

	page = b.get("/tasks/?created_from=yesterday").Body.String()
	assert.Contains(t, page, "Enter a valid date.")
	assert.Contains(t, page, "Chore 12")
}

func TestTaskList_PageOutOfRange(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)
	b.signUp("alice")

	w := b.get("/tasks/?page=5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Could not load your tasks.")
}

func TestExpiredAccessToken_IsRefreshed(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)
	b.signUp("alice")
	assertRedirect(t, b.post("/tasks/", url.Values{"title": {"still here"}}), "/tasks/")

	data := b.sessionData()
	b.setSessionData(&session.Data{AccessToken: "stale", RefreshToken: data.RefreshToken})

	page := b.get("/tasks/")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "still here")

	renewed := b.sessionData()
	assert.NotEqual(t, "stale", renewed.AccessToken)
	assert.NotEqual(t, data.RefreshToken, renewed.RefreshToken)
}

func TestRejectedRefresh_LogsOut(t *testing.T) {
	site := setupSite(t)
	b := site.browser(t)
	b.setSessionData(&session.Data{AccessToken: "stale", RefreshToken: "revoked"})

	w := b.get("/tasks/")
	assertRedirect(t, w, "/login/")
	assert.Contains(t, b.follow(w).Body.String(), "Your session has expired. Please log in again.")

	assertRedirect(t, b.get("/tasks/"), "/login/")
}

func TestAPIUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	site := newSite(t, deadURL)
	b := site.browser(t)

	w := b.post("/login/", url.Values{"username": {"alice"}, "password": {"password1"}})
	assertRedirect(t, w, "/login/")
	assert.Contains(t, b.follow(w).Body.String(), "Could not connect to the task service.")

	b.setSessionData(&session.Data{AccessToken: "A", RefreshToken: "R"})
	page := b.get("/tasks/")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Could not connect to the task service.")
	assert.Equal(t, "A", b.sessionData().AccessToken)
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/tasks/"},
		{"/tasks/4/", "/tasks/4/"},
		{"/tasks/?page=2", "/tasks/?page=2"},
		{"//evil.example/", "/tasks/"},
		{"/\\evil.example/", "/tasks/"},
		{"https://evil.example/", "/tasks/"},
		{"tasks/", "/tasks/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.next), tt.next)
	}
}

func TestTaskFilterForm_Query(t *testing.T) {
	f := taskFilterForm{
		Completed:    "false",
		CreatedFrom:  "2024-01-01",
		UpdatedUntil: "2024-02-01",
		Search:       "  milk ",
		Ordering:     "-title",
	}

	q := f.pageQuery(3)
	assert.Equal(t, "false", q.Get("completed"))
	assert.Equal(t, "2024-01-01", q.Get("created_at_after"))
	assert.Equal(t, "2024-02-01", q.Get("updated_at_before"))
	assert.Equal(t, "milk", q.Get("search"))
	assert.Equal(t, "-title", q.Get("ordering"))
	assert.Equal(t, "3", q.Get("page"))
	assert.False(t, f.pageQuery(1).Has("page"))
	assert.False(t, q.Has("created_at_before"))
}
