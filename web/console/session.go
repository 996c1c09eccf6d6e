package console

// Session is the authentication state carried between page loads.
type Session struct {
	Token string
}

func (s Session) IsEmpty() bool {
	return s.Token == ""
}

// SessionStore persists the session token.
//
// Restore must not fail: an unreadable store is reported as an empty session,
// which leaves the console logged out.
type SessionStore interface {
	Restore() Session
	Save(token string) error
	Clear() error
}
