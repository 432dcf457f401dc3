package models_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopaml/internal/amlcase/models"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
)

func openCase(caseType models.CaseType) *models.Case {
	return &models.Case{
		ID:            id.CaseID(uuid.New()),
		CooperativeID: id.CooperativeID(uuid.New()),
		MemberID:      id.MemberID(uuid.New()),
		Type:          caseType,
		Status:        models.CaseStatusOpen,
		CreatedAt:     time.Now(),
	}
}

func TestCanClose(t *testing.T) {
	c := openCase(models.CaseTypeHighRisk)
	require.NoError(t, c.CanClose())

	c.ApplyClose(time.Now())
	assert.Equal(t, models.CaseStatusClosed, c.Status)
	require.NotNil(t, c.ClosedAt)

	err := c.CanClose()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestCanGenerateSTR(t *testing.T) {
	t.Run("open STR case allows generation", func(t *testing.T) {
		assert.NoError(t, openCase(models.CaseTypeSTR).CanGenerateSTR())
	})

	t.Run("non-STR type is rejected", func(t *testing.T) {
		err := openCase(models.CaseTypeHighRisk).CanGenerateSTR()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("closed case is rejected", func(t *testing.T) {
		c := openCase(models.CaseTypeSTR)
		c.ApplyClose(time.Now())
		err := c.CanGenerateSTR()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestParseCaseType(t *testing.T) {
	for _, valid := range []string{"STR", "SUSPICIOUS_ATTEMPT", "HIGH_RISK"} {
		ct, err := models.ParseCaseType(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(ct))
	}

	_, err := models.ParseCaseType("str")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	_, err = models.ParseCaseType("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
