package db

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"
)

func nowUnix() int64 { return time.Now().Unix() }

// ErrDuplicate is returned when a unique column already holds the value.
var ErrDuplicate = errors.New("already exists")

// isUniqueViolation matches modernc sqlite's constraint error text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique constraint") || strings.Contains(s, "constraint failed: unique")
}

// IsBusy reports a transient lock error worth retrying by the caller.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "database is locked") || strings.Contains(s, "sqlite_busy")
}

const userCols = `id, username, password_hash, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PassHash, &u.Role, &u.CreatedAt)
	return u, err
}

// CreateUser inserts a user and returns its id.
func (d *DB) CreateUser(ctx context.Context, username, passHash, role string) (int64, error) {
	if username == "" || passHash == "" || role == "" {
		return 0, errors.New("username, password hash, and role are required")
	}
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO users(username, password_hash, role, created_at) VALUES(?, ?, ?, ?)`,
		username, passHash, role, nowUnix())
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateFirstAdmin inserts an admin only if no admin exists yet. The bool is
// false when one already does.
func (d *DB) CreateFirstAdmin(ctx context.Context, username, passHash string) (int64, bool, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role='admin'`).Scan(&n); err != nil {
		return 0, false, err
	}
	if n > 0 {
		return 0, false, nil
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users(username, password_hash, role, created_at) VALUES(?, ?, 'admin', ?)`,
		username, passHash, nowUnix())
	if isUniqueViolation(err) {
		return 0, false, ErrDuplicate
	}
	if err != nil {
		return 0, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, tx.Commit()
}

func (d *DB) GetUserByUsername(ctx context.Context, username string) (*User, bool, error) {
	u, err := scanUser(d.sql.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username=?`, username))
	if err == nil {
		return &u, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

func (d *DB) GetUserByID(ctx context.Context, id int64) (*User, bool, error) {
	u, err := scanUser(d.sql.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=?`, id))
	if err == nil {
		return &u, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// ListUsers returns all users ordered by id.
func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (d *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// ResetPassword replaces a user's hash and ends every session they hold.
// The bool is false when no such user exists.
func (d *DB) ResetPassword(ctx context.Context, username, passHash string) (bool, error) {
	if passHash == "" {
		return false, errors.New("password hash is required")
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username=?`, username).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, passHash, id); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id=?`, id); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// CreateSession stores a session token for userID valid for ttl.
func (d *DB) CreateSession(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	if token == "" || userID <= 0 {
		return errors.New("invalid session")
	}
	now := nowUnix()
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO sessions(token, user_id, created_at, expires_at) VALUES(?, ?, ?, ?)`,
		token, userID, now, now+int64(ttl.Seconds()))
	return err
}

func (d *DB) GetSession(ctx context.Context, token string) (*Session, bool, error) {
	var s Session
	err := d.sql.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token=?`, token).
		Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err == nil {
		return &s, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

func (d *DB) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE token=?`, token)
	return err
}

// DeleteExpiredSessions removes sessions expired at now and returns how many.
func (d *DB) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateProblem stores p and returns its id. Author and ID are ignored.
func (d *DB) CreateProblem(ctx context.Context, p Problem) (int64, error) {
	if p.Title == "" || p.Description == "" || p.Category == "" || p.AuthorID <= 0 {
		return 0, errors.New("title, description, category, and author are required")
	}
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO problems(title, description, category, tags, youtube_link, files, author_id, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
`, p.Title, p.Description, p.Category, p.Tags, p.YoutubeLink, strings.Join(p.Files, "\n"), p.AuthorID, nowUnix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ProblemFilter narrows ListProblems. Empty fields match everything.
type ProblemFilter struct {
	Category string
	Tag      string
}

const problemSelect = `
SELECT p.id, p.title, p.description, p.category, p.tags, p.youtube_link, p.files, p.author_id, COALESCE(u.username, ''), p.created_at
FROM problems p LEFT JOIN users u ON u.id = p.author_id`

func scanProblem(row interface{ Scan(...any) error }) (Problem, error) {
	var p Problem
	var files string
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.Tags, &p.YoutubeLink, &files, &p.AuthorID, &p.Author, &p.CreatedAt)
	if files != "" {
		p.Files = strings.Split(files, "\n")
	}
	return p, err
}

func (d *DB) GetProblem(ctx context.Context, id int64) (*Problem, bool, error) {
	p, err := scanProblem(d.sql.QueryRowContext(ctx, problemSelect+` WHERE p.id=?`, id))
	if err == nil {
		return &p, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// ListProblems returns problems newest first. The tag filter matches a whole
// tag after trimming, not a substring.
func (d *DB) ListProblems(ctx context.Context, f ProblemFilter) ([]Problem, error) {
	q := problemSelect
	var args []any
	if f.Category != "" {
		q += ` WHERE p.category = ?`
		args = append(args, f.Category)
	}
	q += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		if f.Tag != "" && !hasTag(p.Tags, f.Tag) {
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListCategories returns the distinct categories in use, sorted.
func (d *DB) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT DISTINCT category FROM problems ORDER BY category ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListTags returns every distinct tag across all problems, sorted.
func (d *DB) ListTags(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT tags FROM problems`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		for _, t := range splitTags(raw) {
			seen[t] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// splitTags splits a stored tag string into trimmed, non-empty tags.
func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func hasTag(raw, tag string) bool {
	for _, t := range splitTags(raw) {
		if t == tag {
			return true
		}
	}
	return false
}
