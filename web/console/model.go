// Package console holds the admin console state machine: the session it runs on,
// the user directory it shows and the transitions between the login form and the
// authorized user table.
package console

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

var (
	ErrAuthenticationFailure = errors.New("authentication failure")
	ErrSessionExpired        = errors.New("session expired")
	ErrAuthorizationUpdate   = errors.New("authorization update failure")
	ErrNotLoggedIn           = errors.New("not logged in")
	// ErrStaleLoad reports a directory load overtaken by a newer one; its result was dropped.
	ErrStaleLoad = errors.New("stale directory load")
)

// InvalidCredentialsMessage is shown for every failed login, whatever the cause.
const InvalidCredentialsMessage = "Invalid credentials"

// Credentials is the login form draft. It is never persisted.
type Credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// UserID identifies a user record. The remote API sends it as a number or a string.
type UserID string

func (id UserID) String() string {
	return string(id)
}

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

// ParseUserID turns a path or form value into a UserID.
func ParseUserID(raw string) (UserID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty user id")
	}
	return UserID(raw), nil
}

// UserRecord is one row of the directory.
type UserRecord struct {
	ID           UserID `json:"admin_id"`
	Name         string `json:"admin_name"`
	Email        string `json:"email"`
	IsAuthorized bool   `json:"is_authorized"`
}

// AdminAPI is the remote admin service the console drives.
type AdminAPI interface {
	Login(ctx context.Context, creds Credentials) (string, error)
	ListUsers(ctx context.Context, token string) ([]UserRecord, error)
	SetAuthorization(ctx context.Context, token string, id UserID, authorized bool) error
}

// Navigator moves the user agent to another location.
type Navigator interface {
	Navigate(location string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(location string)

func (f NavigatorFunc) Navigate(location string) {
	f(location)
}

type Action string

const (
	ActionLogin            Action = "login"
	ActionLogout           Action = "logout"
	ActionSessionExpired   Action = "session_expired"
	ActionSetAuthorization Action = "set_authorization"
)

// AuditEvent describes one console action for the audit trail.
type AuditEvent struct {
	Action     Action
	ResourceID UserID
	Success    bool
	Detail     string
}

// Recorder receives audit events. Recording never changes console state.
type Recorder interface {
	Record(ctx context.Context, event AuditEvent)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, AuditEvent) {}
