package service_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"coopaml/internal/amlcase/export"
	"coopaml/internal/amlcase/metrics"
	"coopaml/internal/amlcase/models"
	"coopaml/internal/amlcase/service"
	casestore "coopaml/internal/amlcase/store"
	membermodels "coopaml/internal/member/models"
	memberstore "coopaml/internal/member/store"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/hooks"
	"coopaml/pkg/requestcontext"
)

var metricsOnce = sync.OnceValue(metrics.New)

type CaseSuite struct {
	suite.Suite

	coopID  id.CooperativeID
	member  *membermodels.Member
	members *memberstore.InMemory
	store   *casestore.InMemory
	svc     *service.Service
	dir     string
}

func (s *CaseSuite) SetupTest() {
	s.coopID = id.CooperativeID(uuid.New())
	s.members = memberstore.NewInMemory()
	s.member = &membermodels.Member{
		ID:            id.MemberID(uuid.New()),
		CooperativeID: s.coopID,
		FirstName:     "Jane",
		LastName:      "Doe",
		Active:        true,
	}
	s.members.Seed(s.member, nil)
	s.store = casestore.NewInMemory()
	s.dir = s.T().TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = service.New(s.store, s.members, export.NewFileFormatter(s.dir), hooks.NewDispatcher(), metricsOnce(), logger)
}

func (s *CaseSuite) TestOpenCase() {
	c, err := s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseTypeSTR, "unusual deposits")
	s.Require().NoError(err)
	s.Equal(models.CaseStatusOpen, c.Status)
	s.Equal("unusual deposits", c.Notes)
	s.Nil(c.ClosedAt)
}

func (s *CaseSuite) TestOpenAllowsConcurrentCases() {
	_, err := s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseTypeSTR, "")
	s.Require().NoError(err)
	_, err = s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseTypeHighRisk, "")
	s.Require().NoError(err)

	page, err := s.svc.List(context.Background(), s.coopID, models.ListFilter{Status: models.CaseStatusOpen})
	s.Require().NoError(err)
	s.Len(page.Cases, 2)
}

func (s *CaseSuite) TestOpenUnknownMemberFails() {
	_, err := s.svc.Open(context.Background(), s.coopID, id.MemberID(uuid.New()), models.CaseTypeSTR, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CaseSuite) TestOpenInvalidTypeFails() {
	_, err := s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseType("FRAUD"), "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *CaseSuite) TestCloseCase() {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)

	c, err := s.svc.Open(ctx, s.coopID, s.member.ID, models.CaseTypeHighRisk, "")
	s.Require().NoError(err)

	closed, err := s.svc.Close(ctx, s.coopID, c.ID)
	s.Require().NoError(err)
	s.Equal(models.CaseStatusClosed, closed.Status)
	s.Require().NotNil(closed.ClosedAt)
	s.Equal(at, *closed.ClosedAt)
}

func (s *CaseSuite) TestCloseTwiceFailsAndKeepsClosedAt() {
	first := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	c, err := s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseTypeHighRisk, "")
	s.Require().NoError(err)

	_, err = s.svc.Close(requestcontext.WithTime(context.Background(), first), s.coopID, c.ID)
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), first.Add(time.Hour))
	_, err = s.svc.Close(later, s.coopID, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	stored, err := s.store.FindByID(context.Background(), s.coopID, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.ClosedAt)
	s.Equal(first, *stored.ClosedAt)
}

func (s *CaseSuite) TestCloseCrossTenantIsNotFound() {
	c, err := s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseTypeHighRisk, "")
	s.Require().NoError(err)

	_, err = s.svc.Close(context.Background(), id.CooperativeID(uuid.New()), c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CaseSuite) TestGenerateSTR() {
	c, err := s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseTypeSTR, "structuring pattern")
	s.Require().NoError(err)

	path, err := s.svc.GenerateSTR(context.Background(), s.coopID, c.ID)
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.dir, "str_"+c.ID.String()+".json"), path)

	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Contains(string(data), "Jane Doe")

	// Generation records the path but leaves the case open.
	stored, err := s.store.FindByID(context.Background(), s.coopID, c.ID)
	s.Require().NoError(err)
	s.Equal(path, stored.ReportPath)
	s.Equal(models.CaseStatusOpen, stored.Status)

	// The officer still closes it separately.
	_, err = s.svc.Close(context.Background(), s.coopID, c.ID)
	s.Require().NoError(err)
}

func (s *CaseSuite) TestGenerateSTRRequiresSTRType() {
	c, err := s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseTypeSuspiciousAttempt, "")
	s.Require().NoError(err)

	_, err = s.svc.GenerateSTR(context.Background(), s.coopID, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *CaseSuite) TestGenerateSTRRequiresOpenCase() {
	c, err := s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseTypeSTR, "")
	s.Require().NoError(err)
	_, err = s.svc.Close(context.Background(), s.coopID, c.ID)
	s.Require().NoError(err)

	_, err = s.svc.GenerateSTR(context.Background(), s.coopID, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *CaseSuite) TestListFiltersAndPaginates() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ctx := requestcontext.WithTime(context.Background(), base.Add(time.Duration(i)*time.Hour))
		_, err := s.svc.Open(ctx, s.coopID, s.member.ID, models.CaseTypeSTR, "")
		s.Require().NoError(err)
	}
	c, err := s.svc.Open(context.Background(), s.coopID, s.member.ID, models.CaseTypeHighRisk, "")
	s.Require().NoError(err)
	_, err = s.svc.Close(context.Background(), s.coopID, c.ID)
	s.Require().NoError(err)

	byType, err := s.svc.List(context.Background(), s.coopID, models.ListFilter{Type: models.CaseTypeSTR})
	s.Require().NoError(err)
	s.Equal(3, byType.Total)

	byStatus, err := s.svc.List(context.Background(), s.coopID, models.ListFilter{Status: models.CaseStatusClosed})
	s.Require().NoError(err)
	s.Equal(1, byStatus.Total)

	page, err := s.svc.List(context.Background(), s.coopID, models.ListFilter{Type: models.CaseTypeSTR, Limit: 2})
	s.Require().NoError(err)
	s.Len(page.Cases, 2)
	s.Equal(3, page.Total)

	rest, err := s.svc.List(context.Background(), s.coopID, models.ListFilter{Type: models.CaseTypeSTR, Offset: 2, Limit: 2})
	s.Require().NoError(err)
	s.Len(rest.Cases, 1)

	_, err = s.svc.List(context.Background(), s.coopID, models.ListFilter{Status: models.CaseStatus("weird")})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCaseSuite(t *testing.T) {
	suite.Run(t, new(CaseSuite))
}
