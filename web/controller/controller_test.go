package controller

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authpanel/authpanel/caching"
	"github.com/authpanel/authpanel/web/console"
	"github.com/authpanel/authpanel/web/entity"
	"github.com/authpanel/authpanel/web/locale"
	"github.com/authpanel/authpanel/web/session"
)

type fakeAdminAPI struct {
	mu sync.Mutex

	password string
	users    []console.UserRecord
	listErr  error
	setErr   error
}

func (f *fakeAdminAPI) Login(_ context.Context, creds console.Credentials) (string, error) {
	if creds.Password != f.password {
		return "", errors.New("unexpected status 401")
	}
	return "tok-" + creds.Email, nil
}

func (f *fakeAdminAPI) ListUsers(context.Context, string) ([]console.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]console.UserRecord, len(f.users))
	copy(out, f.users)
	return out, nil
}

func (f *fakeAdminAPI) SetAuthorization(_ context.Context, _ string, id console.UserID, authorized bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	for i := range f.users {
		if f.users[i].ID == id {
			f.users[i].IsAuthorized = authorized
		}
	}
	return nil
}

// browser replays the cookies the engine sets, last one per name wins.
type browser struct {
	t           *testing.T
	engine      *gin.Engine
	directories *caching.Cache
	cookies     map[string]*http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	b.engine.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return b.do(req)
}

func (b *browser) doc(w *httptest.ResponseRecorder) *goquery.Document {
	b.t.Helper()
	require.Equal(b.t, http.StatusOK, w.Code)
	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(b.t, err)
	return doc
}

func newBrowser(t *testing.T, api console.AdminAPI) *browser {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, locale.InitLocalizer(os.DirFS("..")))

	directories := caching.NewCache(time.Minute)
	require.NoError(t, directories.Init())
	t.Cleanup(func() { _ = directories.Flush() })

	engine := gin.New()
	engine.SetHTMLTemplate(template.Must(template.ParseGlob("../html/*.html")))
	engine.Use(sessions.Sessions(session.CookieName, cookie.NewStore([]byte("0123456789abcdef0123456789abcdef"))))
	engine.Use(func(c *gin.Context) {
		c.Set("base_path", "/")
		c.Next()
	})
	engine.Use(locale.LocalizerMiddleware())

	base := NewBaseController(api, directories, "/home")
	g := engine.Group("/")
	NewIndexController(g, base)
	NewAPIController(g, base)

	return &browser{t: t, engine: engine, directories: directories, cookies: map[string]*http.Cookie{}}
}

func sampleUsers() []console.UserRecord {
	return []console.UserRecord{
		{ID: "1", Name: "Ada", Email: "ada@example.com", IsAuthorized: true},
		{ID: "2", Name: "Linus", Email: "linus@example.com", IsAuthorized: false},
	}
}

func login(t *testing.T, b *browser) *goquery.Document {
	t.Helper()
	w := b.postForm("/login", url.Values{"email": {"root@example.com"}, "password": {"pw"}})
	return b.doc(w)
}

func TestIndexWithoutSessionShowsLoginForm(t *testing.T) {
	b := newBrowser(t, &fakeAdminAPI{password: "pw"})

	doc := b.doc(b.get("/"))

	assert.Equal(t, 1, doc.Find("form[action='/login']").Length())
	assert.Equal(t, 0, doc.Find(".error").Length())
	assert.Equal(t, 0, doc.Find("table").Length())
}

func TestLoginShowsUserTable(t *testing.T) {
	b := newBrowser(t, &fakeAdminAPI{password: "pw", users: sampleUsers()})

	doc := login(t, b)

	rows := doc.Find("tbody tr[data-id]")
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, "Ada", strings.TrimSpace(rows.Eq(0).Find("td").Eq(1).Text()))
	assert.Equal(t, "1", rows.Eq(0).AttrOr("data-id", ""))
	_, checked := rows.Eq(0).Find("input[type=checkbox]").Attr("checked")
	assert.True(t, checked)
	assert.Equal(t, "true", rows.Eq(1).Find("input[name=is_authorized]").AttrOr("value", ""))

	doc = b.doc(b.get("/"))
	assert.Equal(t, 2, doc.Find("tbody tr[data-id]").Length(), "session survives the next request")
}

func TestLoginFailureShowsInvalidCredentials(t *testing.T) {
	b := newBrowser(t, &fakeAdminAPI{password: "pw"})

	w := b.postForm("/login", url.Values{"email": {"root@example.com"}, "password": {"wrong"}})
	doc := b.doc(w)

	assert.Equal(t, "Invalid credentials", strings.TrimSpace(doc.Find(".error").Text()))
	assert.Equal(t, "root@example.com", doc.Find("input[name=email]").AttrOr("value", ""))
	assert.Empty(t, doc.Find("input[name=password]").AttrOr("value", ""))

	doc = b.doc(b.get("/"))
	assert.Equal(t, 1, doc.Find("form[action='/login']").Length())
}

func TestLoginAjax(t *testing.T) {
	b := newBrowser(t, &fakeAdminAPI{password: "pw", users: sampleUsers()})

	w := b.postJSON("/login", `{"email":"root@example.com","password":"nope"}`)
	var msg entity.Msg
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.False(t, msg.Success)
	assert.Equal(t, "Invalid credentials", msg.Msg)

	w = b.postJSON("/login", `{"email":"root@example.com","password":"pw"}`)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.True(t, msg.Success)
}

func TestLoginFailureInGerman(t *testing.T) {
	b := newBrowser(t, &fakeAdminAPI{password: "pw", users: sampleUsers()})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"root@example.com","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept-Language", "de-DE")
	var msg entity.Msg
	require.NoError(t, json.Unmarshal(b.do(req).Body.Bytes(), &msg))
	assert.Equal(t, "Invalid credentials", msg.Msg, "JSON callers get the fixed message")

	form := url.Values{"email": {"root@example.com"}, "password": {"nope"}}
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept-Language", "de-DE")
	doc := b.doc(b.do(req))
	assert.Equal(t, "Ungültige Anmeldedaten", strings.TrimSpace(doc.Find(".error").Text()))
}

func TestIndexWithRejectedTokenShowsLoginForm(t *testing.T) {
	api := &fakeAdminAPI{password: "pw", users: sampleUsers()}
	b := newBrowser(t, api)
	login(t, b)

	api.listErr = errors.New("unexpected status 401")
	doc := b.doc(b.get("/"))
	assert.Equal(t, 1, doc.Find("form[action='/login']").Length())
	assert.Equal(t, 0, doc.Find(".error").Length())

	api.listErr = nil
	doc = b.doc(b.get("/"))
	assert.Equal(t, 1, doc.Find("form[action='/login']").Length(), "the token was removed")
}

func TestLogoutRedirectsHome(t *testing.T) {
	b := newBrowser(t, &fakeAdminAPI{password: "pw", users: sampleUsers()})
	login(t, b)

	require.Equal(t, 1, b.directories.Len())

	w := b.get("/logout")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
	assert.Zero(t, b.directories.Len(), "the directory is dropped on logout")
	doc := b.doc(b.get("/"))
	assert.Equal(t, 1, doc.Find("form[action='/login']").Length())
}

func TestSetAuthorizationAPI(t *testing.T) {
	api := &fakeAdminAPI{password: "pw", users: sampleUsers()}
	b := newBrowser(t, api)
	login(t, b)

	w := b.postJSON("/panel/api/users/2/authorization", `{"is_authorized":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	var msg struct {
		Success bool                 `json:"success"`
		Obj     []console.UserRecord `json:"obj"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.True(t, msg.Success)
	require.Len(t, msg.Obj, 2)
	assert.True(t, msg.Obj[1].IsAuthorized)
	assert.True(t, msg.Obj[0].IsAuthorized)

	api.setErr = errors.New("boom")
	w = b.postJSON("/panel/api/users/2/authorization", `{"is_authorized":false}`)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.False(t, msg.Success)

	w = b.postJSON("/panel/api/users/2/authorization", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetAuthorizationFormRedirects(t *testing.T) {
	api := &fakeAdminAPI{password: "pw", users: sampleUsers()}
	b := newBrowser(t, api)
	login(t, b)

	w := b.postForm("/panel/api/users/1/authorization", url.Values{"is_authorized": {"false"}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.False(t, api.users[0].IsAuthorized)
}

func TestAPIRequiresSession(t *testing.T) {
	b := newBrowser(t, &fakeAdminAPI{password: "pw", users: sampleUsers()})

	w := b.postJSON("/panel/api/users/1/authorization", `{"is_authorized":true}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/panel/api/users", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	w = b.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUsersAPI(t *testing.T) {
	api := &fakeAdminAPI{password: "pw", users: sampleUsers()}
	b := newBrowser(t, api)
	login(t, b)

	w := b.get("/panel/api/users")
	require.Equal(t, http.StatusOK, w.Code)
	var msg struct {
		Success bool                 `json:"success"`
		Obj     []console.UserRecord `json:"obj"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, sampleUsers(), msg.Obj)

	api.listErr = errors.New("unexpected status 401")
	w = b.get("/panel/api/users")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
