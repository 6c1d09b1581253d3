package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/model"
	"github.com/and161185/maru-site/internal/repository/memory"
)

func TestContacts_CreateDefaultsAndValidation(t *testing.T) {
	t.Parallel()

	s := NewContactService(memory.New().Contacts())
	ctx := context.Background()

	c, err := s.Create(ctx, model.Contact{Name: "Kim", Email: "k@x.io", Phone: "010", Message: "hello"})
	require.NoError(t, err)
	require.Equal(t, model.ContactInProgress, c.Status)

	_, err = s.Create(ctx, model.Contact{Name: "Kim", Email: "k@x.io", Phone: "010"})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.Create(ctx, model.Contact{Name: "Kim", Email: "k@x.io", Phone: "010", Message: "m", Status: "archived"})
	require.ErrorIs(t, err, errs.ErrValidation)

	upd, err := s.UpdateStatus(ctx, c.ID, model.ContactCompleted)
	require.NoError(t, err)
	require.Equal(t, model.ContactCompleted, upd.Status)
	require.Equal(t, "hello", upd.Message)

	_, err = s.UpdateStatus(ctx, c.ID, "bogus")
	require.ErrorIs(t, err, errs.ErrValidation)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, c.ID))
	_, err = s.Get(ctx, c.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
