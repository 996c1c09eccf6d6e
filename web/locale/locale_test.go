package locale

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFS = fstest.MapFS{
	"translation/translate.en_US.toml": {Data: []byte(`
[pages.login]
"title" = "Sign in"

[pages.users]
"toggleFailed" = "Updating user {{ .ID }} failed"
`)},
	"translation/translate.de_DE.toml": {Data: []byte(`
[pages.login]
"title" = "Anmelden"
`)},
}

func TestLocalize(t *testing.T) {
	require.NoError(t, InitLocalizer(testFS))

	en := NewLocalizer("en-US")
	assert.Equal(t, "Sign in", Localize(en, "pages.login.title"))
	assert.Equal(t, "Updating user 7 failed", Localize(en, "pages.users.toggleFailed", "ID==7"))
	assert.Equal(t, "pages.missing", Localize(en, "pages.missing"))
	assert.Equal(t, "pages.login.title", Localize(nil, "pages.login.title"))

	de := NewLocalizer("de-DE,de;q=0.9")
	assert.Equal(t, "Anmelden", Localize(de, "pages.login.title"))
}

func TestLocalizerMiddleware(t *testing.T) {
	require.NoError(t, InitLocalizer(testFS))
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(LocalizerMiddleware())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, I18n(c, "pages.login.title"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "lang", Value: "de-DE"})
	req.Header.Set("Accept-Language", "en-US")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "Anmelden", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "Sign in", w.Body.String())
}
