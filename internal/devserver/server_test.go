package devserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"techwiki/internal/db"
	"techwiki/internal/kbapi"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// newTestServer starts a devserver on a fresh database.
func newTestServer(t *testing.T) (*httptest.Server, *db.DB) {
	t.Helper()
	d, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	s := &Server{DB: d, Logger: testLogger(), FastHashing: true}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, d
}

func newClient(t *testing.T, srv *httptest.Server) *kbapi.Client {
	t.Helper()
	c, err := kbapi.NewClient(kbapi.ClientOptions{Addr: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func statusOf(err error) int {
	var se *kbapi.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	if err := newClient(t, srv).Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestUsersListing_FirstRunThenProtected(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	anon := newClient(t, srv)

	users, err := anon.ListUsers(ctx)
	if err != nil || len(users) != 0 {
		t.Fatalf("first run: users=%v err=%v", users, err)
	}
	if err := anon.Setup(ctx, "admin", "pw"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if _, err := anon.ListUsers(ctx); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("anonymous after setup: err=%v", err)
	}
	if err := anon.Setup(ctx, "admin2", "pw"); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("second setup: err=%v", err)
	}

	admin := newClient(t, srv)
	if _, err := admin.Login(ctx, "admin", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := admin.Register(ctx, "leitor", "pw", "user"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	users, err = admin.ListUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("admin list: %v %v", users, err)
	}

	viewer := newClient(t, srv)
	if _, err := viewer.Login(ctx, "leitor", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := viewer.ListUsers(ctx); statusOf(err) != http.StatusForbidden {
		t.Fatalf("viewer list: err=%v", err)
	}
}

func TestUsersListing_ExactPath(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/users/42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	c := newClient(t, srv)
	if err := c.Setup(ctx, "admin", "pw"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	_, err := c.Login(ctx, "admin", "nope")
	var se *kbapi.StatusError
	if !errors.As(err, &se) || se.Code != 401 || se.Message == "" {
		t.Fatalf("err=%v", err)
	}
	if _, err := c.Me(ctx); statusOf(err) != 401 {
		t.Fatalf("Me: %v", err)
	}
}

func TestLogout_EndsSession(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	c := newClient(t, srv)
	_ = c.Setup(ctx, "admin", "pw")
	if _, err := c.Login(ctx, "admin", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := c.Me(ctx); statusOf(err) != 401 {
		t.Fatalf("Me after logout: %v", err)
	}
}

func TestCreateProblem_Roles(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	admin := newClient(t, srv)
	_ = admin.Setup(ctx, "admin", "pw")
	if _, err := admin.Login(ctx, "admin", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, _ = admin.Register(ctx, "leitor", "pw", "user")

	body, ct := multipartBody(t, map[string]string{
		"title": "No video", "description": "d", "category": "Placas", "tags": "video, hdmi", "youtubeLink": "",
	}, map[string]string{"a.png": "x", "notes.exe": "y"})
	p, err := admin.CreateProblem(ctx, body, ct)
	if err != nil {
		t.Fatalf("CreateProblem: %v", err)
	}
	if p.Author != "admin" || len(p.Tags) != 2 || len(p.Files) != 1 || !strings.HasSuffix(p.Files[0], "_a.png") {
		t.Fatalf("problem=%+v", p)
	}

	viewer := newClient(t, srv)
	_, _ = viewer.Login(ctx, "leitor", "pw")
	body, ct = multipartBody(t, map[string]string{"title": "t", "description": "d", "category": "c", "tags": "x"}, nil)
	if _, err := viewer.CreateProblem(ctx, body, ct); statusOf(err) != http.StatusForbidden {
		t.Fatalf("viewer create: %v", err)
	}

	body, ct = multipartBody(t, map[string]string{"title": "t", "description": " ", "category": "c", "tags": "x"}, nil)
	if _, err := admin.CreateProblem(ctx, body, ct); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("missing description: %v", err)
	}

	cats, err := viewer.ListCategories(ctx)
	if err != nil || len(cats) != 1 || cats[0] != "Placas" {
		t.Fatalf("categories=%v err=%v", cats, err)
	}
	got, err := viewer.GetProblem(ctx, p.ID)
	if err != nil || got.Title != "No video" {
		t.Fatalf("GetProblem: %+v %v", got, err)
	}
}

func TestMetricsAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(kbapi.RequestIDHeader) == "" {
		t.Fatalf("missing request id")
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), `techwiki_http_requests_total{method="GET",route="GET /api/health",status="200"} 1`) {
		t.Fatalf("metrics body:\n%s", b)
	}
}

func TestRecover(t *testing.T) {
	s := &Server{Logger: testLogger()}
	h := s.withRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != 500 {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	d, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	defer d.Close()
	s := &Server{DB: d, Logger: testLogger(), LoginLimit: 2, FastHashing: true}
	h := s.Handler()

	var last int
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"username":"a","password":"b"}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third attempt status=%d", last)
	}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = io.WriteString(fw, content)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}
