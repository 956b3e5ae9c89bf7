// Package devserver is a small reference backend speaking the same REST API
// as the production knowledge-base server. It backs local development and
// the end-to-end tests of the client.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"techwiki/internal/db"
	"techwiki/internal/logging"
)

const (
	sessionCookie     = "tw_session"
	defaultSessionTTL = 12 * time.Hour
	defaultMaxUpload  = 16 << 20
)

type Server struct {
	DB     *db.DB
	Logger *slog.Logger

	BindAddr string
	Port     int

	// MaxUploadBytes caps a multipart article body.
	MaxUploadBytes int64
	SessionTTL     time.Duration
	// LoginLimit is the number of login attempts per IP per minute. Zero
	// disables the limit.
	LoginLimit int
	// SecureCookie marks the session cookie Secure (behind TLS).
	SecureCookie bool
	// FastHashing uses cheap argon2 settings. Tests only.
	FastHashing bool

	metrics *metrics
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return logging.Discard()
	}
	return s.Logger
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	if s.metrics == nil {
		s.metrics = newMetrics()
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = defaultMaxUpload
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = defaultSessionTTL
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)

	login := http.Handler(http.HandlerFunc(s.handleLogin))
	if s.LoginLimit > 0 {
		login = httprate.Limit(s.LoginLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))(login)
	}
	mux.Handle("POST /api/auth/login", login)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.withUser(s.handleMe))
	mux.HandleFunc("POST /api/auth/register", s.withUser(s.handleRegister))
	mux.HandleFunc("POST /api/setup", s.handleSetup)

	mux.HandleFunc("GET /api/users/{$}", s.handleListUsers)

	// Reading the knowledge base needs no account.
	mux.HandleFunc("GET /api/problems/", s.handleListProblems)
	mux.HandleFunc("GET /api/problems/categories", s.handleCategories)
	mux.HandleFunc("GET /api/problems/tags", s.handleTags)
	mux.HandleFunc("GET /api/problems/{id}", s.handleGetProblem)
	mux.HandleFunc("POST /api/problems", s.withUser(s.handleCreateProblem))

	mux.Handle("GET /metrics", s.metrics.handler())

	var h http.Handler = mux
	h = withSecurityHeaders(h)
	h = s.withRecover(h)
	h = s.withRequestLog(h)
	return h
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// Expired sessions are swept every few minutes while running.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("db is required")
	}
	addr := net.JoinHostPort(s.BindAddr, strconv.Itoa(s.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go s.sweepSessions(ctx, 5*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger().Info("devserver listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

func (s *Server) sweepSessions(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.DB.DeleteExpiredSessions(ctx, time.Now().Unix())
			if err != nil {
				s.logger().Warn("session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				s.logger().Debug("expired sessions removed", "count", n)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
