package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopaml/internal/whitelist/models"
	"coopaml/internal/whitelist/service"
	whiteliststore "coopaml/internal/whitelist/store"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/hooks"
	"coopaml/pkg/requestcontext"
)

func newService() *service.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.New(whiteliststore.NewInMemory(), hooks.NewDispatcher(), logger)
}

func TestAdd(t *testing.T) {
	coopID := id.CooperativeID(uuid.New())
	triple := models.Triple{
		MemberID:   id.MemberID(uuid.New()),
		SanctionID: id.SanctionID(uuid.New()),
		ListType:   id.ListTypeUN,
	}

	t.Run("creates an entry with the acting officer", func(t *testing.T) {
		svc := newService()
		ctx := requestcontext.WithActorID(context.Background(), "officer-7")

		entry, err := svc.Add(ctx, coopID, triple, "false positive, different DOB")
		require.NoError(t, err)
		assert.Equal(t, "officer-7", entry.AddedBy)
		assert.Equal(t, "false positive, different DOB", entry.Reason)

		ok, err := svc.IsWhitelisted(ctx, coopID, triple)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("re-adding the same pairing is idempotent", func(t *testing.T) {
		svc := newService()
		ctx := context.Background()

		_, err := svc.Add(ctx, coopID, triple, "first reason")
		require.NoError(t, err)
		_, err = svc.Add(ctx, coopID, triple, "second reason")
		require.NoError(t, err)

		entries, err := svc.ListByMember(ctx, coopID, triple.MemberID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "first reason", entries[0].Reason)
	})

	t.Run("suppression is scoped to one pairing", func(t *testing.T) {
		svc := newService()
		ctx := context.Background()

		_, err := svc.Add(ctx, coopID, triple, "reviewed")
		require.NoError(t, err)

		otherList := triple
		otherList.ListType = id.ListTypeHomeMinistry
		ok, err := svc.IsWhitelisted(ctx, coopID, otherList)
		require.NoError(t, err)
		assert.False(t, ok)

		otherSanction := triple
		otherSanction.SanctionID = id.SanctionID(uuid.New())
		ok, err = svc.IsWhitelisted(ctx, coopID, otherSanction)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("entries do not cross tenants", func(t *testing.T) {
		svc := newService()
		ctx := context.Background()

		_, err := svc.Add(ctx, coopID, triple, "reviewed")
		require.NoError(t, err)

		ok, err := svc.IsWhitelisted(ctx, id.CooperativeID(uuid.New()), triple)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("validates the triple", func(t *testing.T) {
		svc := newService()
		ctx := context.Background()

		_, err := svc.Add(ctx, coopID, models.Triple{SanctionID: triple.SanctionID, ListType: id.ListTypeUN}, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = svc.Add(ctx, coopID, models.Triple{MemberID: triple.MemberID, ListType: id.ListTypeUN}, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		bad := triple
		bad.ListType = id.ListType("OFAC")
		_, err = svc.Add(ctx, coopID, bad, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = svc.Add(ctx, id.CooperativeID{}, triple, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
