package matcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	membermodels "coopaml/internal/member/models"
	sanctionmodels "coopaml/internal/sanction/models"
	"coopaml/internal/screening/matcher"
	whitelistmodels "coopaml/internal/whitelist/models"
	whiteliststore "coopaml/internal/whitelist/store"
	id "coopaml/pkg/domain"
)

var (
	coopID   = id.CooperativeID(uuid.New())
	memberID = id.MemberID(uuid.New())
)

func newMember(first, last string, family ...string) *membermodels.Member {
	return &membermodels.Member{
		ID:            memberID,
		CooperativeID: coopID,
		FirstName:     first,
		LastName:      last,
		Active:        true,
		FamilyMembers: family,
	}
}

func newSanction(listType id.ListType, fullName string, aliases ...string) *sanctionmodels.SanctionRecord {
	return &sanctionmodels.SanctionRecord{
		ID:            id.SanctionID(uuid.New()),
		CooperativeID: coopID,
		ListType:      listType,
		FullName:      fullName,
		Aliases:       aliases,
		LastUpdated:   time.Now(),
	}
}

func match(t *testing.T, member *membermodels.Member, kyc *membermodels.KYCRecord, sanctions ...*sanctionmodels.SanctionRecord) []matcher.Result {
	t.Helper()
	results, err := matcher.Match(context.Background(), member, kyc, sanctions, whiteliststore.NewInMemory())
	require.NoError(t, err)
	return results
}

func TestMatchScoring(t *testing.T) {
	t.Run("exact name match scores 100", func(t *testing.T) {
		rec := newSanction(id.ListTypeUN, "Jane Doe")
		results := match(t, newMember("Jane", "Doe"), nil, rec)
		require.Len(t, results, 1)
		assert.Equal(t, matcher.ScoreExactName, results[0].Score)
		assert.Equal(t, rec.ID, results[0].SanctionID)
		assert.Equal(t, id.ListTypeUN, results[0].ListType)
	})

	t.Run("name comparison is case and whitespace insensitive", func(t *testing.T) {
		rec := newSanction(id.ListTypeUN, "  JANE   DOE ")
		results := match(t, newMember("jane", "doe"), nil, rec)
		require.Len(t, results, 1)
		assert.Equal(t, matcher.ScoreExactName, results[0].Score)
	})

	t.Run("national id match scores 100 on the home ministry list", func(t *testing.T) {
		rec := newSanction(id.ListTypeHomeMinistry, "Someone Else")
		rec.NationalID = "hm-42"
		kyc := &membermodels.KYCRecord{MemberID: memberID, CooperativeID: coopID, NationalID: "HM-42"}
		results := match(t, newMember("Jane", "Doe"), kyc, rec)
		require.Len(t, results, 1)
		assert.Equal(t, matcher.ScoreNationalID, results[0].Score)
	})

	t.Run("national id is ignored on the UN list", func(t *testing.T) {
		rec := newSanction(id.ListTypeUN, "Someone Else")
		rec.NationalID = "HM-42" // would never appear on a real UN record
		kyc := &membermodels.KYCRecord{MemberID: memberID, CooperativeID: coopID, NationalID: "HM-42"}
		assert.Empty(t, match(t, newMember("Jane", "Doe"), kyc, rec))
	})

	t.Run("missing kyc skips the national id check", func(t *testing.T) {
		rec := newSanction(id.ListTypeHomeMinistry, "Someone Else")
		rec.NationalID = "HM-42"
		assert.Empty(t, match(t, newMember("Jane", "Doe"), nil, rec))
	})

	t.Run("empty national ids never match each other", func(t *testing.T) {
		rec := newSanction(id.ListTypeHomeMinistry, "Someone Else")
		kyc := &membermodels.KYCRecord{MemberID: memberID, CooperativeID: coopID}
		assert.Empty(t, match(t, newMember("Jane", "Doe"), kyc, rec))
	})

	t.Run("alias match scores 90", func(t *testing.T) {
		rec := newSanction(id.ListTypeUN, "Someone Else", "J. Smith", "Jane Doe")
		results := match(t, newMember("Jane", "Doe"), nil, rec)
		require.Len(t, results, 1)
		assert.Equal(t, matcher.ScoreAlias, results[0].Score)
	})

	t.Run("household name match scores 85", func(t *testing.T) {
		rec := newSanction(id.ListTypeUN, "Richard Roe")
		results := match(t, newMember("Jane", "Doe", "Richard Roe"), nil, rec)
		require.Len(t, results, 1)
		assert.Equal(t, matcher.ScoreFamilyAlias, results[0].Score)
	})

	t.Run("at most one result per sanction record", func(t *testing.T) {
		// Exact name, alias, and household checks would all hit; only the
		// strongest is reported.
		rec := newSanction(id.ListTypeUN, "Jane Doe", "Jane Doe")
		results := match(t, newMember("Jane", "Doe", "Jane Doe"), nil, rec)
		require.Len(t, results, 1)
		assert.Equal(t, matcher.ScoreExactName, results[0].Score)
	})

	t.Run("independent sanctions each produce a result", func(t *testing.T) {
		un := newSanction(id.ListTypeUN, "Jane Doe")
		hm := newSanction(id.ListTypeHomeMinistry, "Jane Doe")
		results := match(t, newMember("Jane", "Doe"), nil, un, hm)
		require.Len(t, results, 2)
		assert.Equal(t, id.ListTypeUN, results[0].ListType)
		assert.Equal(t, id.ListTypeHomeMinistry, results[1].ListType)
	})

	t.Run("no sanctions means no matches", func(t *testing.T) {
		assert.Empty(t, match(t, newMember("Jane", "Doe"), nil))
	})

	t.Run("member with empty name never matches by name", func(t *testing.T) {
		rec := newSanction(id.ListTypeUN, "")
		assert.Empty(t, match(t, newMember("", ""), nil, rec))
	})
}

func whitelistEntry(memberID id.MemberID, sanctionID id.SanctionID, listType id.ListType) *whitelistmodels.Entry {
	return &whitelistmodels.Entry{
		CooperativeID: coopID,
		MemberID:      memberID,
		SanctionID:    sanctionID,
		ListType:      listType,
		CreatedAt:     time.Now(),
	}
}

func TestMatchWhitelist(t *testing.T) {
	t.Run("whitelisted pairing is suppressed before scoring", func(t *testing.T) {
		member := newMember("Jane", "Doe")
		rec := newSanction(id.ListTypeUN, "Jane Doe")
		other := newSanction(id.ListTypeUN, "Jane Doe")

		wl := whiteliststore.NewInMemory()
		_, err := wl.Add(context.Background(), whitelistEntry(member.ID, rec.ID, id.ListTypeUN))
		require.NoError(t, err)

		results, err := matcher.Match(context.Background(), member, nil, []*sanctionmodels.SanctionRecord{rec, other}, wl)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, other.ID, results[0].SanctionID)
	})

	t.Run("suppression is per list type", func(t *testing.T) {
		member := newMember("Jane", "Doe")
		rec := newSanction(id.ListTypeHomeMinistry, "Jane Doe")

		wl := whiteliststore.NewInMemory()
		_, err := wl.Add(context.Background(), whitelistEntry(member.ID, rec.ID, id.ListTypeUN))
		require.NoError(t, err)

		results, err := matcher.Match(context.Background(), member, nil, []*sanctionmodels.SanctionRecord{rec}, wl)
		require.NoError(t, err)
		require.Len(t, results, 1)
	})
}
