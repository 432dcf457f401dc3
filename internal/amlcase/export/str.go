// Package export renders STR artifacts. The engine owns the structured
// content; rendering to a regulator-specific layout is a downstream concern,
// so the artifact is the structured document itself.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coopaml/internal/amlcase/models"
	membermodels "coopaml/internal/member/models"
)

// STRDocument is the structured content of a Suspicious Transaction Report.
type STRDocument struct {
	CaseID        string `json:"case_id"`
	CooperativeID string `json:"cooperative_id"`
	MemberID      string `json:"member_id"`
	MemberName    string `json:"member_name"`
	CaseOpenedAt  string `json:"case_opened_at"`
	Notes         string `json:"notes,omitempty"`
	GeneratedAt   string `json:"generated_at"`
}

// FileFormatter writes STR documents as JSON files under a base directory.
type FileFormatter struct {
	dir string
}

func NewFileFormatter(dir string) *FileFormatter {
	return &FileFormatter{dir: dir}
}

// FormatSTR renders the case into an STR artifact and returns its path.
func (f *FileFormatter) FormatSTR(_ context.Context, c *models.Case, m *membermodels.Member, now time.Time) (string, error) {
	doc := STRDocument{
		CaseID:        c.ID.String(),
		CooperativeID: c.CooperativeID.String(),
		MemberID:      m.ID.String(),
		MemberName:    m.FullName(),
		CaseOpenedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
		Notes:         c.Notes,
		GeneratedAt:   now.UTC().Format(time.RFC3339),
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(f.dir, fmt.Sprintf("str_%s.json", c.ID))
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode str document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write str document: %w", err)
	}
	return path, nil
}
