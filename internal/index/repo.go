package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/justmytwospence/blog/internal/apperr"
)

// PostRow represents a row in the posts table.
type PostRow struct {
	Path        string
	Slug        string
	Kind        string
	Title       string
	Description string
	Date        string
	Categories  []string
	Featured    bool
	Checksum    string
	UpdatedAt   time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Slug    string
	Title   string
	Snippet string
}

// UpsertPost inserts or replaces a post and its FTS entry within a transaction.
// body is the searchable plain text of the post, not its rendered form.
func (db *DB) UpsertPost(p PostRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	categoriesJSON, _ := json.Marshal(p.Categories)

	// A renamed file re-uses the slug under a new path; drop the old row so
	// the slug UNIQUE constraint cannot reject the upsert.
	_, _ = tx.Exec(`DELETE FROM posts WHERE slug = ? AND path != ?`, p.Slug, p.Path)

	_, err = tx.Exec(`
		INSERT INTO posts (path, slug, kind, title, description, date, categories, featured, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			slug        = excluded.slug,
			kind        = excluded.kind,
			title       = excluded.title,
			description = excluded.description,
			date        = excluded.date,
			categories  = excluded.categories,
			featured    = excluded.featured,
			checksum    = excluded.checksum,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, p.Path, p.Slug, p.Kind, p.Title, p.Description, p.Date, string(categoriesJSON), p.Featured, p.Checksum, body, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, p.Path, p.Slug, p.Title, body, p.Categories); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePost removes a post and its FTS entry.
func (db *DB) DeletePost(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM posts WHERE path = ?`, path)

	return tx.Commit()
}

const postColumns = `path, slug, kind, title, description, date, categories, featured, checksum, updated_at`

func scanPost(scan func(...any) error) (*PostRow, error) {
	var p PostRow
	var categoriesJSON string
	err := scan(&p.Path, &p.Slug, &p.Kind, &p.Title, &p.Description, &p.Date,
		&categoriesJSON, &p.Featured, &p.Checksum, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(categoriesJSON), &p.Categories)
	return &p, nil
}

// GetBySlug returns the post with the given URL slug.
func (db *DB) GetBySlug(slug string) (*PostRow, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	p, err := scanPost(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get by slug: %w", err)
	}
	return p, nil
}

// GetByPath returns the post stored at the given content-relative path.
func (db *DB) GetByPath(path string) (*PostRow, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE path = ?`, path)
	p, err := scanPost(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get by path: %w", err)
	}
	return p, nil
}

// ListPosts returns a page of posts plus the total count. category filters
// (empty means all); sort is "date" (newest first, the default) or "title".
func (db *DB) ListPosts(limit, offset int, category, sort string) ([]PostRow, int, error) {
	if limit <= 0 {
		limit = 20
	}
	where := ""
	args := []any{}
	if category != "" {
		catJSON, _ := json.Marshal(category)
		where = `WHERE categories LIKE ?`
		args = append(args, "%"+string(catJSON)+"%")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM posts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count posts: %w", err)
	}

	order := `ORDER BY date DESC, title ASC`
	if sort == "title" {
		order = `ORDER BY title ASC`
	}
	args = append(args, limit, offset)
	rows, err := db.conn.Query(`SELECT `+postColumns+` FROM posts `+where+` `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list posts: %w", err)
	}
	defer rows.Close()

	var out []PostRow
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// Featured returns the newest featured posts.
func (db *DB) Featured(limit int) ([]PostRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := db.conn.Query(`SELECT `+postColumns+` FROM posts WHERE featured = 1 ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: featured: %w", err)
	}
	defer rows.Close()

	var out []PostRow
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Categories returns every distinct category across all posts, sorted.
func (db *DB) Categories() ([]string, error) {
	rows, err := db.conn.Query(`SELECT categories FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: categories: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var cats []string
		_ = json.Unmarshal([]byte(raw), &cats)
		for _, c := range cats {
			seen[c] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// AllChecksums returns path → checksum for every indexed post.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
