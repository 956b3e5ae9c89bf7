package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"techwiki/internal/auth"
	"techwiki/internal/db"
	"techwiki/internal/validate"
)

const ctxUser ctxKey = "user"

type userJSON struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toUserJSON(u *db.User) userJSON {
	return userJSON{ID: u.ID, Username: u.Username, Role: u.Role}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&c); err != nil {
		return c, err
	}
	c.Username = strings.TrimSpace(c.Username)
	return c, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if c.Username == "" || c.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	ctx := r.Context()
	u, ok, err := s.DB.GetUserByUsername(ctx, c.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if !ok {
		s.metrics.logins.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if match, err := auth.Verify(c.Password, u.PassHash); err != nil || !match {
		s.metrics.logins.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	tok, err := auth.NewSessionToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if err := s.DB.CreateSession(ctx, tok, u.ID, s.SessionTTL); err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	s.metrics.logins.WithLabelValues("ok").Inc()
	s.setSessionCookie(w, tok)
	writeJSON(w, http.StatusOK, toUserJSON(u))
}

// handleLogout always succeeds; a missing or stale cookie is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if tok, ok := readSessionCookie(r); ok {
		if err := s.DB.DeleteSession(r.Context(), tok); err != nil {
			s.logger().Warn("delete session", "err", err)
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserJSON(currentUser(r)))
}

// handleSetup creates the first administrator. Once any admin exists it
// answers 400.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Username(c.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Password(c.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.Hash(c.Password, s.hashParams())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	_, created, err := s.DB.CreateFirstAdmin(r.Context(), c.Username, hash)
	if errors.Is(err, db.ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "username already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if !created {
		writeError(w, http.StatusBadRequest, "an administrator is already configured")
		return
	}
	s.logger().Info("initial administrator created", "username", c.Username)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "administrator configured"})
}

// handleRegister lets an admin create accounts of any role.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if currentUser(r).Role != "admin" {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	c, err := decodeCredentials(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	for _, err := range []error{validate.Username(c.Username), validate.Password(c.Password), validate.Role(c.Role)} {
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	hash, err := auth.Hash(c.Password, s.hashParams())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	id, err := s.DB.CreateUser(r.Context(), c.Username, hash, c.Role)
	if errors.Is(err, db.ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "username already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusCreated, userJSON{ID: id, Username: c.Username, Role: c.Role})
}

// handleListUsers is admin-only. While no account exists there is nothing
// to protect and an anonymous caller gets the empty list, which is what a
// first-run client probes for.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := s.sessionUser(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if u == nil {
		n, err := s.DB.CountUsers(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		if n == 0 {
			writeJSON(w, http.StatusOK, []userJSON{})
			return
		}
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if u.Role != "admin" {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	users, err := s.DB.ListUsers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	out := make([]userJSON, 0, len(users))
	for i := range users {
		out = append(out, toUserJSON(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// sessionUser resolves the cookie to a user, or nil when anonymous.
func (s *Server) sessionUser(r *http.Request) (*db.User, error) {
	tok, ok := readSessionCookie(r)
	if !ok {
		return nil, nil
	}
	ctx := r.Context()
	sess, ok, err := s.DB.GetSession(ctx, tok)
	if err != nil {
		return nil, err
	}
	if !ok || sess.ExpiresAt <= time.Now().Unix() {
		return nil, nil
	}
	u, ok, err := s.DB.GetUserByID(ctx, sess.UserID)
	if err != nil || !ok {
		return nil, err
	}
	return u, nil
}

func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.sessionUser(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		if u == nil {
			s.clearSessionCookie(w)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxUser, u)))
	}
}

func currentUser(r *http.Request) *db.User {
	u, _ := r.Context().Value(ctxUser).(*db.User)
	return u
}

func (s *Server) hashParams() auth.Params {
	if s.FastHashing {
		return auth.TestParams()
	}
	return auth.DefaultParams()
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.SessionTTL.Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func readSessionCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
