// Package kbapi is the HTTP client for the knowledge-base REST API.
//
// Credentials are ambient: the server sets a session cookie on login and the
// client's cookie jar attaches it to every later request.
package kbapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request id that the server echoes in its logs.
const RequestIDHeader = "X-Request-ID"

var (
	// ErrNoResponse wraps transport failures where no HTTP response arrived.
	ErrNoResponse = errors.New("no response from server")
	// ErrMalformedRequest wraps failures building a request on the client.
	ErrMalformedRequest = errors.New("malformed request")
)

// StatusError is a non-2xx response. Message is the server's "error" field
// and may be empty.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}

// IsAuthDenied reports whether err is a 401 or 403 response.
func IsAuthDenied(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
}

type Client struct {
	baseURL   *url.URL
	hc        *http.Client
	userAgent string
}

type ClientOptions struct {
	Addr      string
	Insecure  bool
	Timeout   time.Duration
	UserAgent string
	// Transport overrides the default transport (tests).
	Transport http.RoundTripper
}

func NewClient(opt ClientOptions) (*Client, error) {
	addr := strings.TrimSpace(opt.Addr)
	if addr == "" {
		return nil, errors.New("addr is required")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, errors.New("invalid addr")
	}

	jar, _ := cookiejar.New(nil)
	rt := opt.Transport
	if rt == nil {
		t := &http.Transport{Proxy: http.ProxyFromEnvironment}
		if strings.EqualFold(u.Scheme, "https") {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: opt.Insecure} //nolint:gosec
		}
		rt = t
	}

	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	ua := opt.UserAgent
	if ua == "" {
		ua = "techwiki"
	}

	hc := &http.Client{Transport: rt, Jar: jar, Timeout: timeout}
	return &Client{baseURL: u, hc: hc, userAgent: ua}, nil
}

// BaseURL returns the API origin without credentials or path.
func (c *Client) BaseURL() string {
	return c.baseURL.Scheme + "://" + c.baseURL.Host
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Health probes backend liveness.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil, nil)
}

// Me returns the identity bound to the current session cookie.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, nil, &u)
	return u, err
}

func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	var u User
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", nil, credentials{Username: username, Password: password}, &u)
	return u, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, map[string]string{}, nil)
}

// Setup creates the initial administrator on an unconfigured backend.
func (c *Client) Setup(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/setup", nil, credentials{Username: username, Password: password}, nil)
}

// Register creates an account. The endpoint is admin-only.
func (c *Client) Register(ctx context.Context, username, password, role string) (User, error) {
	var u User
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", nil, credentials{username, password, role}, &u)
	return u, err
}

// ListUsers lists accounts. The endpoint is admin-only.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var buf io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedRequest, err)
		}
		buf = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, query, contentType, buf, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, out any) error {
	ref := &url.URL{Path: path}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	u := c.baseURL.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", c.userAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&er)
		return &StatusError{Code: resp.StatusCode, Message: er.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
