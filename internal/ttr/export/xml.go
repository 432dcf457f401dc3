// Package export renders TTR XML artifacts in a goAML-style layout. The
// engine guarantees the structured content; schema validation against the
// regulator's XSD is a downstream concern.
package export

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	membermodels "coopaml/internal/member/models"
	"coopaml/internal/ttr/models"
)

type ttrDocument struct {
	XMLName       xml.Name `xml:"report"`
	ReportType    string   `xml:"report_type"`
	CooperativeID string   `xml:"reporting_entity>id"`
	GeneratedAt   string   `xml:"submission_date"`
	Transaction   ttrTransaction
}

type ttrTransaction struct {
	XMLName       xml.Name `xml:"transaction"`
	ReportID      string   `xml:"number"`
	ForDate       string   `xml:"date"`
	Amount        string   `xml:"amount_local"`
	MemberID      string   `xml:"from_person>id"`
	MemberName    string   `xml:"from_person>name"`
	SourceOfFunds string   `xml:"source_of_funds,omitempty"`
}

// XMLExporter writes TTR documents as XML files under a base directory.
type XMLExporter struct {
	dir string
}

func NewXMLExporter(dir string) *XMLExporter {
	return &XMLExporter{dir: dir}
}

// ExportTTR renders the report into an XML artifact and returns its path.
func (e *XMLExporter) ExportTTR(_ context.Context, r *models.Report, m *membermodels.Member, now time.Time) (string, error) {
	doc := ttrDocument{
		ReportType:    "TTR",
		CooperativeID: r.CooperativeID.String(),
		GeneratedAt:   now.UTC().Format(time.RFC3339),
		Transaction: ttrTransaction{
			ReportID:      r.ID.String(),
			ForDate:       r.ForDate.Format("2006-01-02"),
			Amount:        r.TotalAmount.String(),
			MemberID:      m.ID.String(),
			MemberName:    m.FullName(),
			SourceOfFunds: r.SourceOfFunds.Declaration,
		},
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode ttr document: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("ttr_%s.xml", r.ID))
	if err := os.WriteFile(path, append([]byte(xml.Header), data...), 0o644); err != nil {
		return "", fmt.Errorf("write ttr document: %w", err)
	}
	return path, nil
}
