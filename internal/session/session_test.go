package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"techwiki/internal/access"
	"techwiki/internal/kbapi"
)

// fakeAPI records calls and returns canned answers.
type fakeAPI struct {
	healthErr error
	me        kbapi.User
	meErr     error
	login     kbapi.User
	loginErr  error
	logoutErr error
	setupErr  error
	users     []kbapi.User
	usersErr  error

	calls []string
}

func (f *fakeAPI) Health(context.Context) error {
	f.calls = append(f.calls, "health")
	return f.healthErr
}

func (f *fakeAPI) Me(context.Context) (kbapi.User, error) {
	f.calls = append(f.calls, "me")
	return f.me, f.meErr
}

func (f *fakeAPI) Login(_ context.Context, _, _ string) (kbapi.User, error) {
	f.calls = append(f.calls, "login")
	return f.login, f.loginErr
}

func (f *fakeAPI) Logout(context.Context) error {
	f.calls = append(f.calls, "logout")
	return f.logoutErr
}

func (f *fakeAPI) Setup(_ context.Context, _, _ string) error {
	f.calls = append(f.calls, "setup")
	return f.setupErr
}

func (f *fakeAPI) ListUsers(context.Context) ([]kbapi.User, error) {
	f.calls = append(f.calls, "users")
	return f.users, f.usersErr
}

func (f *fakeAPI) called(name string) bool {
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

var errDown = fmt.Errorf("%w: dial tcp: connection refused", kbapi.ErrNoResponse)

func TestResolveSession(t *testing.T) {
	f := &fakeAPI{me: kbapi.User{ID: 7, Username: "ana", Role: "tecnico"}}
	a := New(f, nil)
	if a.Session().Resolved {
		t.Fatalf("fresh authority should not be resolved")
	}
	s := a.ResolveSession(context.Background())
	if !s.Resolved || !s.Authenticated() {
		t.Fatalf("session=%+v", s)
	}
	if s.Identity.Role != access.RoleTecnico {
		t.Fatalf("role=%v", s.Identity.Role)
	}
}

func TestResolveSession_FailureIsAnonymous(t *testing.T) {
	for _, err := range []error{errDown, &kbapi.StatusError{Code: 401}, errors.New("decode")} {
		a := New(&fakeAPI{meErr: err}, nil)
		s := a.ResolveSession(context.Background())
		if !s.Resolved || s.Authenticated() {
			t.Fatalf("err=%v session=%+v", err, s)
		}
		if s.CanAccess(access.RouteHome) {
			t.Fatalf("anonymous session reached home")
		}
	}
}

// TestResolveSetupState covers every branch of the reconciliation.
func TestResolveSetupState(t *testing.T) {
	cases := []struct {
		name      string
		api       fakeAPI
		want      SetupState
		wantErr   bool
		wantUsers bool
	}{
		{"liveness fails", fakeAPI{healthErr: errDown}, NeedsSetup, true, false},
		{"non-empty list", fakeAPI{users: []kbapi.User{{ID: 1}}}, Configured, false, true},
		{"empty list", fakeAPI{users: []kbapi.User{}}, NeedsSetup, false, true},
		{"nil list", fakeAPI{}, NeedsSetup, false, true},
		{"401", fakeAPI{usersErr: &kbapi.StatusError{Code: 401}}, Configured, false, true},
		{"403", fakeAPI{usersErr: &kbapi.StatusError{Code: 403}}, Configured, false, true},
		{"500", fakeAPI{usersErr: &kbapi.StatusError{Code: 500}}, NeedsSetup, false, true},
		{"404", fakeAPI{usersErr: &kbapi.StatusError{Code: 404}}, NeedsSetup, false, true},
		{"list transport error", fakeAPI{usersErr: errDown}, NeedsSetup, false, true},
		{"list decode error", fakeAPI{usersErr: errors.New("bad json")}, NeedsSetup, false, true},
	}
	for _, tc := range cases {
		f := tc.api
		a := New(&f, nil)
		if a.SetupOffered() {
			t.Fatalf("%s: setup offered before probing", tc.name)
		}
		got, err := a.ResolveSetupState(context.Background())
		if got != tc.want {
			t.Fatalf("%s: state=%v want %v", tc.name, got, tc.want)
		}
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
		if tc.wantErr && !errors.Is(err, ErrServerUnreachable) {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
		if f.called("users") != tc.wantUsers {
			t.Fatalf("%s: calls=%v", tc.name, f.calls)
		}
		if a.SetupState() != tc.want {
			t.Fatalf("%s: stored state=%v", tc.name, a.SetupState())
		}
		if a.SetupOffered() != (tc.want == NeedsSetup) {
			t.Fatalf("%s: SetupOffered=%v", tc.name, a.SetupOffered())
		}
	}
}

func TestSubmitCredentials_Unreachable(t *testing.T) {
	f := &fakeAPI{healthErr: errDown}
	a := New(f, nil)
	for _, m := range []Mode{ModeLogin, ModeSetup} {
		_, err := a.SubmitCredentials(context.Background(), m, "admin", "pw")
		if !errors.Is(err, ErrServerUnreachable) {
			t.Fatalf("mode %v err=%v", m, err)
		}
	}
	if f.called("login") || f.called("setup") {
		t.Fatalf("credential call issued while down: %v", f.calls)
	}
}

func TestSubmitCredentials_Setup(t *testing.T) {
	f := &fakeAPI{users: []kbapi.User{}}
	a := New(f, nil)
	if _, err := a.ResolveSetupState(context.Background()); err != nil {
		t.Fatalf("ResolveSetupState: %v", err)
	}
	out, err := a.SubmitCredentials(context.Background(), ModeSetup, "admin", "pw")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if out.NextMode != ModeLogin || out.Message != SetupConfirmation {
		t.Fatalf("outcome=%+v", out)
	}
	if out.Session.Authenticated() {
		t.Fatalf("setup must not sign in")
	}
	if a.SetupState() != Configured || a.SetupOffered() {
		t.Fatalf("state=%v offered=%v", a.SetupState(), a.SetupOffered())
	}
}

func TestSubmitCredentials_Login(t *testing.T) {
	f := &fakeAPI{login: kbapi.User{ID: 1, Username: "admin", Role: "admin"}}
	a := New(f, nil)
	out, err := a.SubmitCredentials(context.Background(), ModeLogin, " admin ", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !out.Session.Authenticated() || out.Session.Identity.Role != access.RoleAdmin {
		t.Fatalf("session=%+v", out.Session)
	}
	if !a.Session().CanAccess(access.RouteUsers) {
		t.Fatalf("admin should reach users")
	}
}

func TestSubmitCredentials_Rejected(t *testing.T) {
	f := &fakeAPI{loginErr: &kbapi.StatusError{Code: 401, Message: "Invalid credentials"}}
	a := New(f, nil)
	_, err := a.SubmitCredentials(context.Background(), ModeLogin, "admin", "bad")
	var re *RejectedError
	if !errors.As(err, &re) {
		t.Fatalf("err=%v", err)
	}
	if re.Message != "Invalid credentials" || re.Status != 401 {
		t.Fatalf("re=%+v", re)
	}
	if a.Session().Authenticated() {
		t.Fatalf("rejected login authenticated")
	}

	f.loginErr = &kbapi.StatusError{Code: 500}
	_, err = a.SubmitCredentials(context.Background(), ModeLogin, "admin", "bad")
	if !errors.As(err, &re) || re.Message != genericRejection {
		t.Fatalf("err=%v", err)
	}
}

func TestSubmitCredentials_Malformed(t *testing.T) {
	f := &fakeAPI{}
	a := New(f, nil)
	if _, err := a.SubmitCredentials(context.Background(), Mode(9), "a", "b"); !errors.Is(err, ErrRequestMalformed) {
		t.Fatalf("err=%v", err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("calls=%v", f.calls)
	}

	f.setupErr = fmt.Errorf("%w: bad url", kbapi.ErrMalformedRequest)
	if _, err := a.SubmitCredentials(context.Background(), ModeSetup, "a", "b"); !errors.Is(err, ErrRequestMalformed) {
		t.Fatalf("err=%v", err)
	}
}

func TestSubmitCredentials_TransportDuringCall(t *testing.T) {
	a := New(&fakeAPI{loginErr: errDown}, nil)
	if _, err := a.SubmitCredentials(context.Background(), ModeLogin, "a", "b"); !errors.Is(err, ErrServerUnreachable) {
		t.Fatalf("err=%v", err)
	}
}

func TestLogout_ClearsOnError(t *testing.T) {
	f := &fakeAPI{
		login:     kbapi.User{ID: 1, Username: "admin", Role: "admin"},
		logoutErr: errDown,
	}
	a := New(f, nil)
	if _, err := a.SubmitCredentials(context.Background(), ModeLogin, "admin", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := a.Logout(context.Background()); err == nil {
		t.Fatalf("expected endpoint error to be returned")
	}
	if a.Session().Authenticated() {
		t.Fatalf("logout left identity behind")
	}
}

func TestSessionSnapshotIsCopy(t *testing.T) {
	a := New(&fakeAPI{me: kbapi.User{ID: 1, Username: "u", Role: "user"}}, nil)
	s := a.ResolveSession(context.Background())
	s.Identity.Role = access.RoleAdmin
	if a.Session().Identity.Role != access.RoleViewer {
		t.Fatalf("snapshot mutation leaked into authority")
	}
}
