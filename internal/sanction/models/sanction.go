// Package models defines sanction watchlist records. Records are immutable
// except on re-import, which upserts by a tenant-scoped synthetic key derived
// from the list type and the normalized full name and date of birth.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	platformstrings "coopaml/pkg/platform/strings"
)

// SanctionRecord is one watchlist entry. The two sources carry different
// identity attributes: UN entries have nationality, Home Ministry entries
// carry a national identity number.
type SanctionRecord struct {
	ID            id.SanctionID
	CooperativeID id.CooperativeID
	ListType      id.ListType
	FullName      string
	Aliases       []string
	DateOfBirth   string // as published by the source; formats vary, never parsed
	Nationality   string // UN list only
	NationalID    string // Home Ministry list only
	// Key is the tenant-scoped synthetic upsert key (see SyntheticKey).
	Key         string
	LastUpdated time.Time
}

// ImportRow is one row of a watchlist import as delivered by the import
// collaborator. Validation happens per row; bad rows are skipped, not fatal.
type ImportRow struct {
	FullName    string   `json:"full_name"`
	Aliases     []string `json:"aliases,omitempty"`
	DateOfBirth string   `json:"date_of_birth,omitempty"`
	Nationality string   `json:"nationality,omitempty"`
	NationalID  string   `json:"national_id,omitempty"`
}

// Validate checks the row against the invariants of its target list.
func (r ImportRow) Validate(listType id.ListType) error {
	if platformstrings.NormalizeName(r.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "full name is required")
	}
	if listType == id.ListTypeUN && r.NationalID != "" {
		return dErrors.New(dErrors.CodeValidation, "UN list rows do not carry a national id")
	}
	return nil
}

// SyntheticKey derives the upsert key for a sanction identity: a SHA-256 over
// the list type and the normalized name and date of birth. Re-imports of the
// same person map to the same key, so a refreshed list updates in place
// instead of duplicating. The list type is part of the identity: the sources
// are independent, and a person designated on both lists is two records.
func SyntheticKey(listType id.ListType, fullName, dateOfBirth string) string {
	h := sha256.New()
	h.Write([]byte(listType))
	h.Write([]byte{0})
	h.Write([]byte(platformstrings.NormalizeName(fullName)))
	h.Write([]byte{0})
	h.Write([]byte(platformstrings.NormalizeName(dateOfBirth)))
	return hex.EncodeToString(h.Sum(nil))
}

// NewFromRow builds a SanctionRecord from a validated import row.
func NewFromRow(sanctionID id.SanctionID, coopID id.CooperativeID, listType id.ListType, row ImportRow, now time.Time) *SanctionRecord {
	return &SanctionRecord{
		ID:            sanctionID,
		CooperativeID: coopID,
		ListType:      listType,
		FullName:      row.FullName,
		Aliases:       platformstrings.NormalizeNames(row.Aliases),
		DateOfBirth:   row.DateOfBirth,
		Nationality:   row.Nationality,
		NationalID:    row.NationalID,
		Key:           SyntheticKey(listType, row.FullName, row.DateOfBirth),
		LastUpdated:   now,
	}
}
