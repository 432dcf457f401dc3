// Package matcher scores one member against the tenant's sanction records.
//
// Matching is a pure pass over the supplied records: the only I/O is the
// whitelist lookup, which suppresses previously reviewed pairings before any
// scoring happens. Each sanction record yields at most one match; the checks
// run strongest first and stop on the first hit.
package matcher

import (
	"context"

	membermodels "coopaml/internal/member/models"
	sanctionmodels "coopaml/internal/sanction/models"
	whitelistmodels "coopaml/internal/whitelist/models"
	id "coopaml/pkg/domain"
	platformstrings "coopaml/pkg/platform/strings"
)

// Match scores.
const (
	ScoreExactName   = 100
	ScoreNationalID  = 100
	ScoreAlias       = 90
	ScoreFamilyAlias = 85
)

// Result is one scored hit against a sanction record.
type Result struct {
	ListType     id.ListType   `json:"list_type"`
	SanctionID   id.SanctionID `json:"sanction_id"`
	SanctionName string        `json:"sanction_name"`
	Score        int           `json:"score"`
}

// WhitelistChecker reports whether a (member, sanction, list) pairing has
// been reviewed and cleared. The whitelist store satisfies this.
type WhitelistChecker interface {
	Contains(ctx context.Context, coopID id.CooperativeID, triple whitelistmodels.Triple) (bool, error)
}

// Match evaluates the member against every supplied sanction record and
// returns the hits in record order. kyc may be nil when the member has no KYC
// profile; the national-ID check is then skipped.
//
// Per sanction record, in order, first hit wins:
//
//  1. exact normalized full-name match (score 100)
//  2. national-ID equality, Home Ministry records only (score 100)
//  3. member name against the sanction's aliases (score 90)
//  4. sanction name against the member's household names (score 85)
//
// Whitelisted pairings are skipped before any scoring.
func Match(
	ctx context.Context,
	member *membermodels.Member,
	kyc *membermodels.KYCRecord,
	sanctions []*sanctionmodels.SanctionRecord,
	whitelist WhitelistChecker,
) ([]Result, error) {
	memberName := platformstrings.NormalizeName(member.FullName())
	household := platformstrings.NormalizeNames(member.FamilyMembers)
	nationalID := ""
	if kyc != nil {
		nationalID = kyc.NationalID
	}

	var results []Result
	for _, rec := range sanctions {
		suppressed, err := whitelist.Contains(ctx, member.CooperativeID, whitelistmodels.Triple{
			MemberID:   member.ID,
			SanctionID: rec.ID,
			ListType:   rec.ListType,
		})
		if err != nil {
			return nil, err
		}
		if suppressed {
			continue
		}

		sanctionName := platformstrings.NormalizeName(rec.FullName)
		score := 0
		switch {
		case memberName != "" && memberName == sanctionName:
			score = ScoreExactName
		case rec.ListType == id.ListTypeHomeMinistry && platformstrings.EqualFoldTrim(nationalID, rec.NationalID):
			score = ScoreNationalID
		default:
			for _, alias := range rec.Aliases {
				if memberName != "" && memberName == platformstrings.NormalizeName(alias) {
					score = ScoreAlias
					break
				}
			}
			if score == 0 && sanctionName != "" {
				for _, name := range household {
					if name == sanctionName {
						score = ScoreFamilyAlias
						break
					}
				}
			}
		}

		if score > 0 {
			results = append(results, Result{
				ListType:     rec.ListType,
				SanctionID:   rec.ID,
				SanctionName: rec.FullName,
				Score:        score,
			})
		}
	}
	return results, nil
}
