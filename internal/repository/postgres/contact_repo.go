package postgres

import (
	"context"

	"github.com/and161185/maru-site/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ContactRepo implements ContactRepository using PostgreSQL.
type ContactRepo struct{ db *DB }

// NewContactRepo constructs a contact repository.
func NewContactRepo(db *DB) *ContactRepo { return &ContactRepo{db: db} }

const contactColumns = `id, name, email, phone, message, status, created_at, updated_at`

func scanContact(row pgx.Row) (*model.Contact, error) {
	var c model.Contact
	var status string
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Message, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = model.ContactStatus(status)
	return &c, nil
}

// List returns all contacts, newest first.
func (r *ContactRepo) List(ctx context.Context) ([]model.Contact, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Get returns one contact.
func (r *ContactRepo) Get(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	c, err := scanContact(r.db.Pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err, "contact")
	}
	return c, nil
}

// Create inserts a contact.
func (r *ContactRepo) Create(ctx context.Context, c *model.Contact) error {
	const q = `
INSERT INTO contacts (id, name, email, phone, message, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`
	return r.db.Pool.QueryRow(ctx, q, c.ID, c.Name, c.Email, c.Phone, c.Message, string(c.Status)).
		Scan(&c.CreatedAt, &c.UpdatedAt)
}

// UpdateStatus changes the status and returns the stored contact.
func (r *ContactRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ContactStatus) (*model.Contact, error) {
	const q = `UPDATE contacts SET status=$2, updated_at=now() WHERE id=$1 RETURNING ` + contactColumns
	c, err := scanContact(r.db.Pool.QueryRow(ctx, q, id, string(status)))
	if err != nil {
		return nil, notFound(err, "contact")
	}
	return c, nil
}

// Delete removes a contact.
func (r *ContactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM contacts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(tag, "contact")
}
