package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/and161185/maru-site/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// PostRepo implements PostRepository using PostgreSQL. View logs live in a
// JSONB column so a post stays a single document.
type PostRepo struct{ db *DB }

// NewPostRepo constructs a post repository.
func NewPostRepo(db *DB) *PostRepo { return &PostRepo{db: db} }

const postColumns = `id, number, title, content, file_urls, views, view_logs, created_at, updated_at`

func scanPost(row pgx.Row) (*model.Post, error) {
	var (
		p    model.Post
		logs []byte
	)
	if err := row.Scan(&p.ID, &p.Number, &p.Title, &p.Content, &p.FileURLs, &p.Views, &logs, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &p.ViewLogs); err != nil {
			return nil, fmt.Errorf("decode view_logs of %s: %w", p.ID, err)
		}
	}
	if p.FileURLs == nil {
		p.FileURLs = []string{}
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// List returns all posts ordered by creation time, newest first.
func (r *PostRepo) List(ctx context.Context) ([]model.Post, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Create inserts a post. The number is drawn from post_number_seq, so
// concurrent inserts never share a number and deleted numbers are not reused.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	const q = `
INSERT INTO posts (id, title, content, file_urls)
VALUES ($1, $2, $3, $4)
RETURNING number, views, created_at, updated_at`
	p.FileURLs = nonNil(p.FileURLs)
	return r.db.Pool.QueryRow(ctx, q, p.ID, p.Title, p.Content, p.FileURLs).
		Scan(&p.Number, &p.Views, &p.CreatedAt, &p.UpdatedAt)
}

// Get returns a single post by id.
func (r *PostRepo) Get(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	p, err := scanPost(r.db.Pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err, "post")
	}
	return p, nil
}

// Update overwrites the author fields and returns the stored post.
func (r *PostRepo) Update(ctx context.Context, id uuid.UUID, in model.PostInput, at time.Time) (*model.Post, error) {
	const q = `
UPDATE posts SET title=$2, content=$3, file_urls=$4, updated_at=$5
WHERE id=$1
RETURNING ` + postColumns
	p, err := scanPost(r.db.Pool.QueryRow(ctx, q, id, in.Title, in.Content, nonNil(in.FileURLs), at))
	if err != nil {
		return nil, notFound(err, "post")
	}
	return p, nil
}

// RecordView bumps views and appends entry to view_logs in one statement.
// Entries at or before keepAfter are pruned in the same write.
func (r *PostRepo) RecordView(ctx context.Context, id uuid.UUID, entry model.ViewLog, keepAfter time.Time) error {
	b, err := json.Marshal([]model.ViewLog{entry})
	if err != nil {
		return err
	}
	const q = `
UPDATE posts SET views = views + 1,
    view_logs = COALESCE((
        SELECT jsonb_agg(e) FROM jsonb_array_elements(view_logs) AS e
        WHERE (e->>'timestamp')::timestamptz > $3
    ), '[]'::jsonb) || $2::jsonb
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, string(b), keepAfter)
	if err != nil {
		return err
	}
	return requireRow(tag, "post")
}

// Delete removes a post row.
func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(tag, "post")
}
