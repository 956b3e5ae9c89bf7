package kbapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Problem is an article as returned by the backend.
type Problem struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Files       []string `json:"files"`
	YoutubeLink string   `json:"youtubeLink"`
	Author      string   `json:"author"`
	AuthorID    int64    `json:"author_id"`
	CreatedAt   string   `json:"created_at"`
}

// ProblemFilter narrows ListProblems. Empty fields are ignored.
type ProblemFilter struct {
	Tag      string
	Category string
}

func (c *Client) ListProblems(ctx context.Context, f ProblemFilter) ([]Problem, error) {
	q := url.Values{}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	var out []Problem
	if err := c.doJSON(ctx, http.MethodGet, "/api/problems/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProblem(ctx context.Context, id int64) (Problem, error) {
	var p Problem
	err := c.doJSON(ctx, http.MethodGet, "/api/problems/"+strconv.FormatInt(id, 10), nil, nil, &p)
	return p, err
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.doJSON(ctx, http.MethodGet, "/api/problems/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.doJSON(ctx, http.MethodGet, "/api/problems/tags", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProblem posts an already-encoded multipart body.
func (c *Client) CreateProblem(ctx context.Context, body io.Reader, contentType string) (Problem, error) {
	var p Problem
	if body == nil || contentType == "" {
		return p, errors.Join(ErrMalformedRequest, errors.New("multipart body is required"))
	}
	err := c.do(ctx, http.MethodPost, "/api/problems", nil, contentType, body, &p)
	return p, err
}
