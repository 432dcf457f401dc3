package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopaml/internal/screening/models"
	"coopaml/internal/screening/store"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/sentinel"
)

func newFlag(coopID id.CooperativeID, memberID id.MemberID, sanctionID id.SanctionID) *models.Flag {
	return &models.Flag{
		ID:            id.FlagID(uuid.New()),
		CooperativeID: coopID,
		MemberID:      memberID,
		Type:          models.FlagTypeHighRisk,
		Details: models.MatchDetails{
			ListType:   id.ListTypeUN,
			SanctionID: sanctionID,
			Score:      100,
		},
		Status:    models.FlagStatusPending,
		CreatedAt: time.Now(),
	}
}

func TestCreateIfAbsent(t *testing.T) {
	coopID := id.CooperativeID(uuid.New())
	memberID := id.MemberID(uuid.New())
	sanctionID := id.SanctionID(uuid.New())

	t.Run("second pending flag for the same pairing is rejected", func(t *testing.T) {
		s := store.NewInMemory()
		require.NoError(t, s.CreateIfAbsent(context.Background(), newFlag(coopID, memberID, sanctionID)))

		err := s.CreateIfAbsent(context.Background(), newFlag(coopID, memberID, sanctionID))
		assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	})

	t.Run("resolved flag does not block a fresh one", func(t *testing.T) {
		s := store.NewInMemory()
		flag := newFlag(coopID, memberID, sanctionID)
		require.NoError(t, s.CreateIfAbsent(context.Background(), flag))

		flag.ApplyResolve("reviewed", time.Now())
		require.NoError(t, s.ResolveIfPending(context.Background(), coopID, flag))

		require.NoError(t, s.CreateIfAbsent(context.Background(), newFlag(coopID, memberID, sanctionID)))
	})

	t.Run("same pairing in another tenant is independent", func(t *testing.T) {
		s := store.NewInMemory()
		require.NoError(t, s.CreateIfAbsent(context.Background(), newFlag(coopID, memberID, sanctionID)))
		require.NoError(t, s.CreateIfAbsent(context.Background(), newFlag(id.CooperativeID(uuid.New()), memberID, sanctionID)))
	})
}

func TestResolveIfPending(t *testing.T) {
	coopID := id.CooperativeID(uuid.New())

	t.Run("resolving twice returns invalid state", func(t *testing.T) {
		s := store.NewInMemory()
		flag := newFlag(coopID, id.MemberID(uuid.New()), id.SanctionID(uuid.New()))
		require.NoError(t, s.CreateIfAbsent(context.Background(), flag))

		flag.ApplyResolve("done", time.Now())
		require.NoError(t, s.ResolveIfPending(context.Background(), coopID, flag))

		err := s.ResolveIfPending(context.Background(), coopID, flag)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("cross-tenant resolve is not found", func(t *testing.T) {
		s := store.NewInMemory()
		flag := newFlag(coopID, id.MemberID(uuid.New()), id.SanctionID(uuid.New()))
		require.NoError(t, s.CreateIfAbsent(context.Background(), flag))

		err := s.ResolveIfPending(context.Background(), id.CooperativeID(uuid.New()), flag)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
