// Package db is the sqlite store behind the reference backend.
package db

type User struct {
	ID        int64
	Username  string
	PassHash  string
	Role      string
	CreatedAt int64
}

type Session struct {
	Token     string
	UserID    int64
	CreatedAt int64
	ExpiresAt int64
}

// Problem is a stored article. Tags is the comma separated string as
// submitted; Files holds attachment names.
type Problem struct {
	ID          int64
	Title       string
	Description string
	Category    string
	Tags        string
	YoutubeLink string
	Files       []string
	AuthorID    int64
	Author      string
	CreatedAt   int64
}
