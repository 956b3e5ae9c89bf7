package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"techwiki/internal/access"
	"techwiki/internal/db"
	"techwiki/internal/devserver"
	"techwiki/internal/kbapi"
	"techwiki/internal/session"
)

func startBackend(t *testing.T) *kbapi.Client {
	t.Helper()
	d, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer((&devserver.Server{DB: d, Logger: log, FastHashing: true}).Handler())
	t.Cleanup(srv.Close)

	c, err := kbapi.NewClient(kbapi.ClientOptions{Addr: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

// TestFirstRunToAdmin walks a fresh install from anonymous start to an
// admin who can open the article editor.
func TestFirstRunToAdmin(t *testing.T) {
	ctx := context.Background()
	a := session.New(startBackend(t), nil)

	if s := a.ResolveSession(ctx); s.Authenticated() || !s.Resolved {
		t.Fatalf("fresh session=%+v", s)
	}
	st, err := a.ResolveSetupState(ctx)
	if err != nil || st != session.NeedsSetup || !a.SetupOffered() {
		t.Fatalf("setup state=%v err=%v offered=%v", st, err, a.SetupOffered())
	}

	out, err := a.SubmitCredentials(ctx, session.ModeSetup, "admin", "pw")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if out.NextMode != session.ModeLogin || out.Message == "" || a.SetupOffered() {
		t.Fatalf("outcome=%+v offered=%v", out, a.SetupOffered())
	}

	out, err = a.SubmitCredentials(ctx, session.ModeLogin, "admin", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	s := out.Session
	if s.Identity == nil || s.Identity.Role != access.RoleAdmin {
		t.Fatalf("session=%+v", s)
	}
	if !s.CanAccess(access.RouteHome) || !s.CanAccess(access.RouteCreateProblem) {
		t.Fatalf("admin denied a route")
	}

	// A reload resolves the same identity from the cookie.
	if s := a.ResolveSession(ctx); !s.Authenticated() {
		t.Fatalf("reload lost the session")
	}
	if err := a.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if a.Session().Authenticated() {
		t.Fatalf("still authenticated after logout")
	}
}

// TestConfiguredBackend: once an admin exists, the anonymous probe is
// denied and that denial means configured.
func TestConfiguredBackend(t *testing.T) {
	ctx := context.Background()
	c := startBackend(t)
	if err := c.Setup(ctx, "admin", "pw"); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	a := session.New(c, nil)
	st, err := a.ResolveSetupState(ctx)
	if err != nil || st != session.Configured || a.SetupOffered() {
		t.Fatalf("state=%v err=%v", st, err)
	}
	_, err = a.SubmitCredentials(ctx, session.ModeSetup, "other", "pw")
	var re *session.RejectedError
	if !errors.As(err, &re) || re.Status != 400 {
		t.Fatalf("second setup err=%v", err)
	}
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()
	c, err := kbapi.NewClient(kbapi.ClientOptions{Addr: addr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	a := session.New(c, nil)
	st, err := a.ResolveSetupState(context.Background())
	if st != session.NeedsSetup || !errors.Is(err, session.ErrServerUnreachable) {
		t.Fatalf("state=%v err=%v", st, err)
	}
}
