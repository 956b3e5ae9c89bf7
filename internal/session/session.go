// Package session owns who is signed in and whether the backend has ever
// been set up.
//
// An Authority is the only writer of that state. Every other component reads
// snapshots through Session and SetupState and never keeps a pointer into
// the Authority's fields.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"techwiki/internal/access"
	"techwiki/internal/kbapi"
	"techwiki/internal/logging"
)

// API is the subset of the backend the Authority talks to.
type API interface {
	Health(ctx context.Context) error
	Me(ctx context.Context) (kbapi.User, error)
	Login(ctx context.Context, username, password string) (kbapi.User, error)
	Logout(ctx context.Context) error
	Setup(ctx context.Context, username, password string) error
	ListUsers(ctx context.Context) ([]kbapi.User, error)
}

type Identity struct {
	ID       int64
	Username string
	Role     access.Role
}

func identityFrom(u kbapi.User) *Identity {
	return &Identity{ID: u.ID, Username: u.Username, Role: access.ParseRole(u.Role)}
}

// Session is an immutable snapshot of the signed-in state.
type Session struct {
	Identity *Identity
	// Resolved is false until the first identity probe has settled.
	Resolved bool
}

func (s Session) Authenticated() bool { return s.Identity != nil }

// CanAccess reports whether the session may open route. Anonymous sessions
// reach nothing.
func (s Session) CanAccess(route access.Route) bool {
	if s.Identity == nil {
		return false
	}
	return access.Grant(route, s.Identity.Role)
}

type SetupState int

const (
	SetupUnknown SetupState = iota
	NeedsSetup
	Configured
)

func (s SetupState) String() string {
	switch s {
	case NeedsSetup:
		return "needs-setup"
	case Configured:
		return "configured"
	default:
		return "unknown"
	}
}

// Mode selects what SubmitCredentials does with the credentials.
type Mode int

const (
	ModeLogin Mode = iota
	ModeSetup
)

func (m Mode) String() string {
	switch m {
	case ModeLogin:
		return "login"
	case ModeSetup:
		return "setup"
	default:
		return "unknown"
	}
}

// SetupConfirmation is shown after the first administrator was created.
const SetupConfirmation = "administrator created, sign in to continue"

// Outcome is the result of a successful SubmitCredentials call.
type Outcome struct {
	// NextMode is the mode the login form should switch to.
	NextMode Mode
	Message  string
	Session  Session
}

type Authority struct {
	api API
	log *slog.Logger

	mu      sync.Mutex
	sess    Session
	setup   SetupState
	settled bool
}

func New(api API, log *slog.Logger) *Authority {
	if log == nil {
		log = logging.Discard()
	}
	return &Authority{api: api, log: log}
}

// Session returns the current snapshot.
func (a *Authority) Session() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.sess
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

func (a *Authority) SetupState() SetupState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setup
}

// SetupOffered reports whether the setup flow may be shown: the probe
// sequence has settled and concluded NeedsSetup.
func (a *Authority) SetupOffered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settled && a.setup == NeedsSetup
}

// ResolveSession probes the identity endpoint once. Any failure leaves the
// session anonymous.
func (a *Authority) ResolveSession(ctx context.Context) Session {
	u, err := a.api.Me(ctx)

	a.mu.Lock()
	if err != nil {
		a.log.Debug("identity probe failed", "err", err)
		a.sess.Identity = nil
	} else {
		a.sess.Identity = identityFrom(u)
	}
	a.sess.Resolved = true
	a.mu.Unlock()

	return a.Session()
}

// ResolveSetupState reconciles liveness and the user listing into a
// SetupState. The returned error is non-nil only when the backend is down
// and is meant for display; the state is NeedsSetup in that case.
func (a *Authority) ResolveSetupState(ctx context.Context) (SetupState, error) {
	a.mu.Lock()
	a.settled = false
	a.mu.Unlock()

	st, err := a.probeSetup(ctx)

	a.mu.Lock()
	a.setup = st
	a.settled = true
	a.mu.Unlock()
	a.log.Debug("setup state resolved", "state", st.String())
	return st, err
}

func (a *Authority) probeSetup(ctx context.Context) (SetupState, error) {
	if err := a.api.Health(ctx); err != nil {
		a.log.Warn("liveness probe failed", "err", err)
		return NeedsSetup, ErrServerUnreachable
	}
	users, err := a.api.ListUsers(ctx)
	switch {
	case err == nil && len(users) > 0:
		return Configured, nil
	case err == nil:
		return NeedsSetup, nil
	case kbapi.IsAuthDenied(err):
		return Configured, nil
	default:
		a.log.Debug("user listing failed", "err", err)
		return NeedsSetup, nil
	}
}

// SubmitCredentials signs in or creates the first administrator. A failed
// attempt returns exactly one of ErrServerUnreachable, *RejectedError or
// ErrRequestMalformed and leaves state untouched.
func (a *Authority) SubmitCredentials(ctx context.Context, mode Mode, username, password string) (Outcome, error) {
	if mode != ModeLogin && mode != ModeSetup {
		return Outcome{}, ErrRequestMalformed
	}
	if err := a.api.Health(ctx); err != nil {
		return Outcome{}, ErrServerUnreachable
	}
	username = strings.TrimSpace(username)

	if mode == ModeSetup {
		if err := a.api.Setup(ctx, username, password); err != nil {
			return Outcome{}, Classify(err)
		}
		a.mu.Lock()
		a.setup = Configured
		a.settled = true
		a.mu.Unlock()
		a.log.Info("initial administrator created", "username", username)
		return Outcome{NextMode: ModeLogin, Message: SetupConfirmation, Session: a.Session()}, nil
	}

	u, err := a.api.Login(ctx, username, password)
	if err != nil {
		return Outcome{}, Classify(err)
	}
	a.mu.Lock()
	a.sess.Identity = identityFrom(u)
	a.sess.Resolved = true
	a.mu.Unlock()
	a.log.Info("signed in", "username", u.Username, "role", u.Role)
	return Outcome{NextMode: ModeLogin, Session: a.Session()}, nil
}

// Logout calls the logout endpoint and clears the identity whatever it
// answered. The endpoint error is returned for logging only.
func (a *Authority) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.mu.Lock()
	a.sess.Identity = nil
	a.mu.Unlock()
	if err != nil {
		a.log.Warn("logout endpoint failed", "err", err)
	}
	return err
}
