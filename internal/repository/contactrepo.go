package repository

import (
	"context"

	"github.com/and161185/maru-site/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ContactRepository stores contact form submissions.
type ContactRepository interface {
	List(ctx context.Context) ([]model.Contact, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Contact, error)
	Create(ctx context.Context, c *model.Contact) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ContactStatus) (*model.Contact, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}
