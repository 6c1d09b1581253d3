package service

import (
	"context"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/model"
	"github.com/and161185/maru-site/internal/repository"
)

// ContactService handles contact form submissions.
type ContactService interface {
	List(ctx context.Context) ([]model.Contact, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Contact, error)
	Create(ctx context.Context, c model.Contact) (*model.Contact, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ContactStatus) (*model.Contact, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ContactServiceImpl struct {
	contacts repository.ContactRepository
}

// NewContactService constructs ContactService.
func NewContactService(contacts repository.ContactRepository) *ContactServiceImpl {
	return &ContactServiceImpl{contacts: contacts}
}

func (s *ContactServiceImpl) List(ctx context.Context) ([]model.Contact, error) {
	return s.contacts.List(ctx)
}

func (s *ContactServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	return s.contacts.Get(ctx, id)
}

// Create validates and stores a submission. Status defaults to "in progress".
func (s *ContactServiceImpl) Create(ctx context.Context, c model.Contact) (*model.Contact, error) {
	for _, f := range []string{c.Name, c.Email, c.Phone, c.Message} {
		if strings.TrimSpace(f) == "" {
			return nil, errs.New(errs.KindValidation, "name, email, phone and message are required")
		}
	}
	if c.Status == "" {
		c.Status = model.ContactInProgress
	}
	if !c.Status.Valid() {
		return nil, errs.New(errs.KindValidation, "invalid status")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.contacts.Create(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatus changes only the status of a submission.
func (s *ContactServiceImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ContactStatus) (*model.Contact, error) {
	if !status.Valid() {
		return nil, errs.New(errs.KindValidation, "invalid status")
	}
	return s.contacts.UpdateStatus(ctx, id, status)
}

func (s *ContactServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return s.contacts.Delete(ctx, id)
}
