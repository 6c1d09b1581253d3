package repository

import (
	"context"
	"time"

	"github.com/and161185/maru-site/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PostRepository stores board posts.
type PostRepository interface {
	// List returns all posts, newest first.
	List(ctx context.Context) ([]model.Post, error)
	// Create inserts p, assigning ID, Number and timestamps. Number comes from
	// an atomic store-level counter and is never reused.
	Create(ctx context.Context, p *model.Post) error
	// Get returns a single post by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Post, error)
	// Update overwrites title, content and attachments and stamps updatedAt.
	Update(ctx context.Context, id uuid.UUID, in model.PostInput, at time.Time) (*model.Post, error)
	// RecordView increments the view counter and appends entry in one write,
	// dropping log entries not newer than keepAfter.
	RecordView(ctx context.Context, id uuid.UUID, entry model.ViewLog, keepAfter time.Time) error
	// Delete removes a post.
	Delete(ctx context.Context, id uuid.UUID) error
}
