package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/authpanel/authpanel/logger"
)

// State is the position of the controller in the login state machine.
type State int

const (
	StateLoggedOut State = iota
	// StateAuthenticating lasts while a login request is in flight.
	StateAuthenticating
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged_in"
	}
	return "unknown"
}

type ViewKind int

const (
	ViewLoginForm ViewKind = iota
	ViewAuthorizedTable
)

// View is what the console renders. Exactly one kind is active: Error and Draft
// belong to the login form, Users to the authorized table.
type View struct {
	Kind  ViewKind
	Error string
	Draft Credentials
	Users []UserRecord
}

func (v View) IsLoginForm() bool {
	return v.Kind == ViewLoginForm
}

func (v View) IsAuthorizedTable() bool {
	return v.Kind == ViewAuthorizedTable
}

type Option func(*Controller)

// WithHome sets the location Logout navigates to. Defaults to "/".
func WithHome(location string) Option {
	return func(c *Controller) {
		c.home = location
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// Controller decides between the login form and the user table and drives the
// remote calls behind each transition. A Controller belongs to one user agent and
// is not safe for concurrent use; its Directory may be shared.
type Controller struct {
	store    SessionStore
	api      AdminAPI
	dir      *Directory
	nav      Navigator
	recorder Recorder
	home     string

	state    State
	token    string
	draft    Credentials
	loginErr string
	lastErr  error
}

func NewController(store SessionStore, api AdminAPI, dir *Directory, nav Navigator, opts ...Option) *Controller {
	if dir == nil {
		dir = NewDirectory()
	}
	c := &Controller{
		store:    store,
		api:      api,
		dir:      dir,
		nav:      nav,
		recorder: nopRecorder{},
		home:     "/",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start derives the initial view from the session store. A stored token is
// trusted until the directory fetch fails, which expires the session.
func (c *Controller) Start(ctx context.Context) View {
	c.lastErr = nil
	sess := c.store.Restore()
	if sess.IsEmpty() {
		c.state = StateLoggedOut
		c.token = ""
		return c.View()
	}

	c.token = sess.Token
	c.state = StateLoggedIn
	c.refresh(ctx)
	return c.View()
}

// Resume adopts a stored token without reloading the directory. It reports
// whether a session was found.
func (c *Controller) Resume() bool {
	sess := c.store.Restore()
	if sess.IsEmpty() {
		c.state = StateLoggedOut
		c.token = ""
		return false
	}
	c.token = sess.Token
	c.state = StateLoggedIn
	return true
}

// Login submits the credentials. On success the token is persisted and the
// directory loaded; on any failure the form shows InvalidCredentialsMessage and
// the session store is left alone.
func (c *Controller) Login(ctx context.Context, creds Credentials) View {
	c.draft = creds
	c.state = StateAuthenticating
	c.lastErr = nil

	token, err := c.api.Login(ctx, creds)
	if err == nil && token == "" {
		err = errors.New("empty token")
	}
	if err != nil {
		c.lastErr = fmt.Errorf("%w: %w", ErrAuthenticationFailure, err)
		logger.Debugf("admin login failed for %q: %v", creds.Email, c.lastErr)
		c.state = StateLoggedOut
		c.loginErr = InvalidCredentialsMessage
		c.draft.Password = ""
		c.recorder.Record(ctx, AuditEvent{Action: ActionLogin, Success: false, Detail: creds.Email})
		return c.View()
	}

	if err := c.store.Save(token); err != nil {
		logger.Warning("unable to persist admin session:", err)
	}
	c.token = token
	c.loginErr = ""
	c.draft = Credentials{}
	c.state = StateLoggedIn
	c.recorder.Record(ctx, AuditEvent{Action: ActionLogin, Success: true, Detail: creds.Email})

	c.refresh(ctx)
	return c.View()
}

// Logout clears the session and the directory and navigates home once.
func (c *Controller) Logout(ctx context.Context) View {
	if err := c.store.Clear(); err != nil {
		logger.Warning("unable to clear admin session:", err)
	}
	c.token = ""
	c.dir.Clear()
	c.state = StateLoggedOut
	c.loginErr = ""
	c.draft = Credentials{}
	c.lastErr = nil
	c.recorder.Record(ctx, AuditEvent{Action: ActionLogout, Success: true})

	if c.nav != nil {
		c.nav.Navigate(c.home)
	}
	return c.View()
}

// SetAuthorization changes one user's flag. The directory only changes after the
// remote call succeeds; a failure is logged and leaves the view as it was.
func (c *Controller) SetAuthorization(ctx context.Context, id UserID, authorized bool) error {
	if c.state != StateLoggedIn || c.token == "" {
		return ErrNotLoggedIn
	}

	err := c.dir.SetAuthorization(ctx, c.api, c.token, id, authorized)
	c.lastErr = err
	event := AuditEvent{Action: ActionSetAuthorization, ResourceID: id, Success: err == nil}
	if err != nil {
		// TODO: surface update failures in the table once the product decides how.
		logger.Warning("error updating authorization:", err)
		event.Detail = err.Error()
	}
	c.recorder.Record(ctx, event)
	return err
}

// Refresh reloads the directory for a logged in console.
func (c *Controller) Refresh(ctx context.Context) View {
	if c.state == StateLoggedIn {
		c.refresh(ctx)
	}
	return c.View()
}

func (c *Controller) refresh(ctx context.Context) {
	_, err := c.dir.Load(ctx, c.api, c.token)
	if err == nil || errors.Is(err, ErrStaleLoad) {
		return
	}
	c.lastErr = fmt.Errorf("%w: %w", ErrSessionExpired, err)
	logger.Warning("error fetching users, expiring session:", err)
	c.expire(ctx, err)
}

// expire is the only path that invalidates a trusted session. It shows no message.
func (c *Controller) expire(ctx context.Context, cause error) {
	if err := c.store.Clear(); err != nil {
		logger.Warning("unable to clear expired admin session:", err)
	}
	c.token = ""
	c.dir.Clear()
	c.state = StateLoggedOut
	c.recorder.Record(ctx, AuditEvent{Action: ActionSessionExpired, Success: false, Detail: cause.Error()})
}

// Err returns the error behind the last transition, nil when it succeeded.
func (c *Controller) Err() error {
	return c.lastErr
}

func (c *Controller) State() State {
	return c.state
}

// Token is the bearer token of the current session, empty when logged out.
func (c *Controller) Token() string {
	return c.token
}

func (c *Controller) View() View {
	if c.state == StateLoggedIn {
		return View{Kind: ViewAuthorizedTable, Users: c.dir.Users()}
	}
	return View{Kind: ViewLoginForm, Error: c.loginErr, Draft: c.draft}
}
