package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"coopaml/internal/member"
	membermodels "coopaml/internal/member/models"
	memberstore "coopaml/internal/member/store"
	sanctionmodels "coopaml/internal/sanction/models"
	sanctionstore "coopaml/internal/sanction/store"
	"coopaml/internal/screening/matcher"
	"coopaml/internal/screening/metrics"
	"coopaml/internal/screening/models"
	"coopaml/internal/screening/service"
	screeningstore "coopaml/internal/screening/store"
	whitelistmodels "coopaml/internal/whitelist/models"
	whiteliststore "coopaml/internal/whitelist/store"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/hooks"
)

// flakyMembers wraps a member store and fails KYC lookups for chosen members,
// simulating a mid-batch store error.
type flakyMembers struct {
	member.Store
	mu      sync.Mutex
	failKYC map[id.MemberID]error
}

func (f *flakyMembers) FindKYC(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) (*membermodels.KYCRecord, error) {
	f.mu.Lock()
	err := f.failKYC[memberID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.FindKYC(ctx, coopID, memberID)
}

var metricsOnce = sync.OnceValue(metrics.New)

type ScreeningSuite struct {
	suite.Suite

	coopID    id.CooperativeID
	members   *flakyMembers
	seed      *memberstore.InMemory
	sanctions *sanctionstore.InMemory
	whitelist *whiteliststore.InMemory
	flags     *screeningstore.InMemory
	svc       *service.Service
}

func (s *ScreeningSuite) SetupTest() {
	s.coopID = id.CooperativeID(uuid.New())
	s.seed = memberstore.NewInMemory()
	s.members = &flakyMembers{Store: s.seed, failKYC: make(map[id.MemberID]error)}
	s.sanctions = sanctionstore.NewInMemory()
	s.whitelist = whiteliststore.NewInMemory()
	s.flags = screeningstore.NewInMemory()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = service.New(s.members, s.sanctions, s.whitelist, s.flags, hooks.NewDispatcher(), metricsOnce(), logger)
}

func (s *ScreeningSuite) seedMember(first, last string, nationalID string) *membermodels.Member {
	m := &membermodels.Member{
		ID:            id.MemberID(uuid.New()),
		CooperativeID: s.coopID,
		FirstName:     first,
		LastName:      last,
		Active:        true,
	}
	var kyc *membermodels.KYCRecord
	if nationalID != "" {
		kyc = &membermodels.KYCRecord{MemberID: m.ID, CooperativeID: s.coopID, NationalID: nationalID}
	}
	s.seed.Seed(m, kyc)
	return m
}

func (s *ScreeningSuite) seedSanction(listType id.ListType, fullName string) *sanctionmodels.SanctionRecord {
	rec := &sanctionmodels.SanctionRecord{
		ID:            id.SanctionID(uuid.New()),
		CooperativeID: s.coopID,
		ListType:      listType,
		FullName:      fullName,
		Key:           sanctionmodels.SyntheticKey(listType, fullName, ""),
		LastUpdated:   time.Now(),
	}
	_, err := s.sanctions.Upsert(context.Background(), rec)
	s.Require().NoError(err)
	return rec
}

func (s *ScreeningSuite) TestScreenMemberNoMatches() {
	m := s.seedMember("Alice", "Walker", "")
	s.seedSanction(id.ListTypeUN, "Someone Else")

	results, err := s.svc.ScreenMember(context.Background(), s.coopID, m.ID)
	s.Require().NoError(err)
	s.Empty(results)
}

func (s *ScreeningSuite) TestScreenMemberMatchesBothLists() {
	m := s.seedMember("Jane", "Doe", "")
	s.seedSanction(id.ListTypeUN, "Jane Doe")
	s.seedSanction(id.ListTypeHomeMinistry, "Jane Doe")

	results, err := s.svc.ScreenMember(context.Background(), s.coopID, m.ID)
	s.Require().NoError(err)
	s.Len(results, 2)

	// Side-effect free: no flags were persisted.
	flags, err := s.flags.ListByCooperative(context.Background(), s.coopID, "")
	s.Require().NoError(err)
	s.Empty(flags)
}

func (s *ScreeningSuite) TestScreenMemberNotFound() {
	_, err := s.svc.ScreenMember(context.Background(), s.coopID, id.MemberID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ScreeningSuite) TestScreenMemberCrossTenantIsNotFound() {
	m := s.seedMember("Jane", "Doe", "")
	_, err := s.svc.ScreenMember(context.Background(), id.CooperativeID(uuid.New()), m.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ScreeningSuite) TestRescreenCreatesFlagsForTriggeringListOnly() {
	m := s.seedMember("Jane", "Doe", "")
	s.seedSanction(id.ListTypeUN, "Jane Doe")
	s.seedSanction(id.ListTypeHomeMinistry, "Jane Doe")

	result, err := s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)
	s.Equal(1, result.Screened)
	s.Equal(1, result.FlagsCreated)
	s.Empty(result.Failures)

	flags, err := s.flags.ListByCooperative(context.Background(), s.coopID, "")
	s.Require().NoError(err)
	s.Require().Len(flags, 1)
	s.Equal(m.ID, flags[0].MemberID)
	s.Equal(id.ListTypeUN, flags[0].Details.ListType)
	s.Equal(matcher.ScoreExactName, flags[0].Details.Score)
	s.Equal(models.FlagStatusPending, flags[0].Status)
}

func (s *ScreeningSuite) TestRescreenDeduplicatesPendingFlags() {
	s.seedMember("Jane", "Doe", "")
	s.seedSanction(id.ListTypeUN, "Jane Doe")

	first, err := s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)
	s.Equal(1, first.FlagsCreated)

	second, err := s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)
	s.Equal(0, second.FlagsCreated)
	s.Equal(1, second.Deduplicated)

	flags, err := s.flags.ListByCooperative(context.Background(), s.coopID, "")
	s.Require().NoError(err)
	s.Len(flags, 1)
}

func (s *ScreeningSuite) TestRescreenFlagsAgainAfterResolution() {
	s.seedMember("Jane", "Doe", "")
	s.seedSanction(id.ListTypeUN, "Jane Doe")

	_, err := s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)

	flags, err := s.flags.ListByCooperative(context.Background(), s.coopID, "")
	s.Require().NoError(err)
	s.Require().Len(flags, 1)

	_, err = s.svc.ResolveFlag(context.Background(), s.coopID, flags[0].ID, "reviewed, still listed")
	s.Require().NoError(err)

	result, err := s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)
	s.Equal(1, result.FlagsCreated)
}

func (s *ScreeningSuite) TestRescreenPartialFailure() {
	good1 := s.seedMember("Jane", "Doe", "")
	bad := s.seedMember("John", "Smith", "")
	good2 := s.seedMember("Richard", "Roe", "")
	s.seedSanction(id.ListTypeUN, "Jane Doe")
	s.seedSanction(id.ListTypeUN, "Richard Roe")

	s.members.failKYC[bad.ID] = errors.New("kyc backend down")

	result, err := s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)
	s.Equal(2, result.Screened)
	s.Equal(2, result.FlagsCreated)
	s.Require().Len(result.Failures, 1)
	s.Equal(bad.ID, result.Failures[0].MemberID)

	flags, err := s.flags.ListByCooperative(context.Background(), s.coopID, "")
	s.Require().NoError(err)
	members := map[id.MemberID]bool{}
	for _, f := range flags {
		members[f.MemberID] = true
	}
	s.True(members[good1.ID])
	s.True(members[good2.ID])
}

func (s *ScreeningSuite) TestRescreenAfterWhitelistProducesNoFlags() {
	m := s.seedMember("Jane", "Doe", "")
	rec := s.seedSanction(id.ListTypeUN, "Jane Doe")

	result, err := s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)
	s.Equal(1, result.FlagsCreated)

	flags, err := s.flags.ListByCooperative(context.Background(), s.coopID, "")
	s.Require().NoError(err)
	s.Require().Len(flags, 1)
	_, err = s.svc.ResolveFlag(context.Background(), s.coopID, flags[0].ID, "false positive")
	s.Require().NoError(err)

	_, err = s.whitelist.Add(context.Background(), &whitelistmodels.Entry{
		CooperativeID: s.coopID,
		MemberID:      m.ID,
		SanctionID:    rec.ID,
		ListType:      id.ListTypeUN,
		CreatedAt:     time.Now(),
	})
	s.Require().NoError(err)

	result, err = s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)
	s.Equal(0, result.FlagsCreated)
	s.Equal(0, result.Deduplicated)
}

func (s *ScreeningSuite) TestRescreenRejectsUnknownListType() {
	_, err := s.svc.Rescreen(context.Background(), s.coopID, id.ListType("OFAC"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ScreeningSuite) TestResolveFlagTwiceFails() {
	s.seedMember("Jane", "Doe", "")
	s.seedSanction(id.ListTypeUN, "Jane Doe")
	_, err := s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)

	flags, err := s.flags.ListByCooperative(context.Background(), s.coopID, "")
	s.Require().NoError(err)
	s.Require().Len(flags, 1)

	resolved, err := s.svc.ResolveFlag(context.Background(), s.coopID, flags[0].ID, "reviewed")
	s.Require().NoError(err)
	s.Equal(models.FlagStatusResolved, resolved.Status)
	s.NotNil(resolved.ResolvedAt)

	_, err = s.svc.ResolveFlag(context.Background(), s.coopID, flags[0].ID, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ScreeningSuite) TestResolveFlagNotFound() {
	_, err := s.svc.ResolveFlag(context.Background(), s.coopID, id.FlagID(uuid.New()), "x")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ScreeningSuite) TestListFlagsFiltersByStatus() {
	s.seedMember("Jane", "Doe", "")
	s.seedSanction(id.ListTypeUN, "Jane Doe")
	// Same name, different DOB: a distinct identity that also matches.
	_, err := s.sanctions.Upsert(context.Background(), &sanctionmodels.SanctionRecord{
		ID:            id.SanctionID(uuid.New()),
		CooperativeID: s.coopID,
		ListType:      id.ListTypeUN,
		FullName:      "Jane Doe",
		DateOfBirth:   "1980-01-01",
		Key:           sanctionmodels.SyntheticKey(id.ListTypeUN, "Jane Doe", "1980-01-01"),
		LastUpdated:   time.Now(),
	})
	s.Require().NoError(err)

	_, err = s.svc.Rescreen(context.Background(), s.coopID, id.ListTypeUN)
	s.Require().NoError(err)

	flags, err := s.svc.ListFlags(context.Background(), s.coopID, models.FlagStatusPending)
	s.Require().NoError(err)
	s.Require().Len(flags, 2)

	_, err = s.svc.ResolveFlag(context.Background(), s.coopID, flags[0].ID, "reviewed")
	s.Require().NoError(err)

	pending, err := s.svc.ListFlags(context.Background(), s.coopID, models.FlagStatusPending)
	s.Require().NoError(err)
	s.Len(pending, 1)

	resolved, err := s.svc.ListFlags(context.Background(), s.coopID, models.FlagStatusResolved)
	s.Require().NoError(err)
	s.Len(resolved, 1)

	_, err = s.svc.ListFlags(context.Background(), s.coopID, models.FlagStatus("weird"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestScreeningSuite(t *testing.T) {
	suite.Run(t, new(ScreeningSuite))
}

func TestRescreenTenantIsolation(t *testing.T) {
	seed := memberstore.NewInMemory()
	members := &flakyMembers{Store: seed, failKYC: make(map[id.MemberID]error)}
	sanctions := sanctionstore.NewInMemory()
	flags := screeningstore.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(members, sanctions, whiteliststore.NewInMemory(), flags, hooks.NewDispatcher(), metricsOnce(), logger)

	coopA := id.CooperativeID(uuid.New())
	coopB := id.CooperativeID(uuid.New())
	seed.Seed(&membermodels.Member{ID: id.MemberID(uuid.New()), CooperativeID: coopA, FirstName: "Jane", LastName: "Doe", Active: true}, nil)

	// The sanction lives in tenant B; tenant A's member must not match it.
	_, err := sanctions.Upsert(context.Background(), &sanctionmodels.SanctionRecord{
		ID:            id.SanctionID(uuid.New()),
		CooperativeID: coopB,
		ListType:      id.ListTypeUN,
		FullName:      "Jane Doe",
		Key:           sanctionmodels.SyntheticKey(id.ListTypeUN, "Jane Doe", ""),
		LastUpdated:   time.Now(),
	})
	require.NoError(t, err)

	result, err := svc.Rescreen(context.Background(), coopA, id.ListTypeUN)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FlagsCreated)
}
