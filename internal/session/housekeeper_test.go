package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/memory-match/internal/serviceerr"
	sessionmock "github.com/openkcm/memory-match/internal/session/mock"
)

func TestCleanupStaleSaves(t *testing.T) {
	// Arrange
	ctx := t.Context()
	repo := sessionmock.NewInMemRepository(
		sessionmock.WithRecordAt("old", freshRecord(), time.Now().Add(-48*time.Hour)),
		sessionmock.WithRecordAt("fresh", freshRecord(), time.Now()),
	)
	manager, _ := newManager(t, repo)

	// Nothing is older than a week
	deleted, err := manager.CleanupStaleSaves(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// Only the old slot is past a day
	deleted, err = manager.CleanupStaleSaves(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = repo.LoadRecord(ctx, "old")
	require.ErrorIs(t, err, serviceerr.ErrNotFound)
	_, err = repo.LoadRecord(ctx, "fresh")
	require.NoError(t, err)
}

func TestCleanupStaleSaves_Errors(t *testing.T) {
	ctx := t.Context()

	t.Run("List failure", func(t *testing.T) {
		listErr := errors.New("storage down")
		manager, _ := newManager(t, sessionmock.NewInMemRepository(sessionmock.WithListSlotsError(listErr)))

		_, err := manager.CleanupStaleSaves(ctx, time.Hour)
		assert.ErrorIs(t, err, listErr)
	})

	t.Run("Delete failure is skipped", func(t *testing.T) {
		repo := sessionmock.NewInMemRepository(
			sessionmock.WithRecordAt("old", freshRecord(), time.Now().Add(-48*time.Hour)),
			sessionmock.WithDeleteRecordError(errors.New("storage down")),
		)
		manager, _ := newManager(t, repo)

		deleted, err := manager.CleanupStaleSaves(ctx, time.Hour)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})
}
