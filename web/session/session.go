// Package session provides the session stores the console persists its token in:
// a cookie store for browsers, a file store for the CLI and a memory store for tests.
package session

import (
	"github.com/authpanel/authpanel/logger"
	"github.com/authpanel/authpanel/web/console"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CookieName is the name of the browser session cookie.
	CookieName = "authpanel"

	adminToken = "ADMIN_TOKEN"
	consoleID  = "CONSOLE_ID"
)

// CookieStore keeps the admin token in the gin session of one request.
type CookieStore struct {
	c *gin.Context
}

func NewCookieStore(c *gin.Context) *CookieStore {
	return &CookieStore{c: c}
}

func (s *CookieStore) Restore() console.Session {
	obj := sessions.Default(s.c).Get(adminToken)
	if obj == nil {
		return console.Session{}
	}
	token, ok := obj.(string)
	if !ok {
		logger.Warning("session holds a malformed admin token, ignoring it")
		return console.Session{}
	}
	return console.Session{Token: token}
}

func (s *CookieStore) Save(token string) error {
	sess := sessions.Default(s.c)
	sess.Set(adminToken, token)
	return sess.Save()
}

func (s *CookieStore) Clear() error {
	sess := sessions.Default(s.c)
	sess.Delete(adminToken)
	return sess.Save()
}

// IsLogin reports whether the request carries an admin token.
func IsLogin(c *gin.Context) bool {
	return !NewCookieStore(c).Restore().IsEmpty()
}

// ConsoleID returns the id of the browser's console, creating one on first use.
// The id keys the per-browser directory cache.
func ConsoleID(c *gin.Context) string {
	s := sessions.Default(c)
	if obj := s.Get(consoleID); obj != nil {
		if id, ok := obj.(string); ok && id != "" {
			return id
		}
	}
	id := uuid.NewString()
	s.Set(consoleID, id)
	if err := s.Save(); err != nil {
		logger.Warning("Unable to save console id:", err)
	}
	return id
}
