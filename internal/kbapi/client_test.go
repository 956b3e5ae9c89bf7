package kbapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientOptions{Addr: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_AddsScheme(t *testing.T) {
	c, err := NewClient(ClientOptions{Addr: "127.0.0.1:5000"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := c.BaseURL(); got != "http://127.0.0.1:5000" {
		t.Fatalf("BaseURL=%q", got)
	}
	if _, err := NewClient(ClientOptions{Addr: "  "}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

// TestLogin_CookieCarriesToMe checks that the session cookie set by login
// authenticates the next request.
func TestLogin_CookieCarriesToMe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(RequestIDHeader) == "" {
			t.Errorf("missing request id")
		}
		http.SetCookie(w, &http.Cookie{Name: "tw_session", Value: "tok", Path: "/"})
		_, _ = io.WriteString(w, `{"id":1,"username":"ana","role":"tecnico"}`)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("tw_session")
		if err != nil || ck.Value != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"id":1,"username":"ana","role":"tecnico"}`)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	if _, err := c.Me(ctx); !IsAuthDenied(err) {
		t.Fatalf("Me before login err=%v", err)
	}
	u, err := c.Login(ctx, "ana", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.Username != "ana" || u.Role != "tecnico" {
		t.Fatalf("user=%+v", u)
	}
	me, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.ID != 1 {
		t.Fatalf("me=%+v", me)
	}
}

func TestStatusError_Message(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Admin already exists"}`)
	}))
	err := c.Setup(context.Background(), "root", "pw")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err=%v", err)
	}
	if se.Code != 400 || se.Message != "Admin already exists" {
		t.Fatalf("se=%+v", se)
	}
	if IsAuthDenied(err) {
		t.Fatalf("400 is not an auth denial")
	}
}

func TestStatusError_NoBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	_, err := c.ListUsers(context.Background())
	if !IsAuthDenied(err) {
		t.Fatalf("err=%v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("Error()=%q", err.Error())
	}
}

func TestNoResponse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewClient(ClientOptions{Addr: addr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.Health(context.Background()); !errors.Is(err, ErrNoResponse) {
		t.Fatalf("err=%v", err)
	}
}

func TestListProblems_Filters(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tag") != "rede" || r.URL.Query().Get("category") != "" {
			t.Errorf("query=%q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[{"id":3,"title":"DNS","tags":["rede"],"youtubeLink":"x","author_id":2}]`)
	}))
	ps, err := c.ListProblems(context.Background(), ProblemFilter{Tag: "rede"})
	if err != nil {
		t.Fatalf("ListProblems: %v", err)
	}
	if len(ps) != 1 || ps[0].YoutubeLink != "x" || ps[0].AuthorID != 2 {
		t.Fatalf("ps=%+v", ps)
	}
}

func TestCreateProblem_RequiresBody(t *testing.T) {
	c, err := NewClient(ClientOptions{Addr: "127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.CreateProblem(context.Background(), nil, ""); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("err=%v", err)
	}
}
