// Package models defines threshold transaction reports (TTRs). A TTR is
// created by the upstream transaction-aggregation job when a member's daily
// total crosses the regulatory threshold; an officer then approves or rejects
// it. pending → approved | rejected, terminal either way.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
)

// ReportStatus is the TTR lifecycle state.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusApproved ReportStatus = "approved"
	ReportStatusRejected ReportStatus = "rejected"
)

// SourceOfFunds is the member's declaration of where the money came from,
// with an optional supporting document.
type SourceOfFunds struct {
	Declaration    string `json:"declaration,omitempty"`
	AttachmentPath string `json:"attachment_path,omitempty"`
}

// Report is one threshold transaction report awaiting review.
type Report struct {
	ID            id.ReportID
	CooperativeID id.CooperativeID
	MemberID      id.MemberID
	ForDate       time.Time
	TotalAmount   decimal.Decimal
	Status        ReportStatus
	// Deadline is the end of the regulatory filing window. Informational: the
	// engine never expires a report on its own.
	Deadline      time.Time
	Remarks       string
	XMLPath       string
	SourceOfFunds SourceOfFunds
	CreatedAt     time.Time
	DecidedAt     *time.Time
}

// NewFromThreshold builds a pending report with its filing deadline computed
// from the reported day.
func NewFromThreshold(reportID id.ReportID, coopID id.CooperativeID, memberID id.MemberID, forDate time.Time, total decimal.Decimal, sof SourceOfFunds, filingWindowDays int, now time.Time) *Report {
	return &Report{
		ID:            reportID,
		CooperativeID: coopID,
		MemberID:      memberID,
		ForDate:       forDate,
		TotalAmount:   total,
		Status:        ReportStatusPending,
		Deadline:      forDate.AddDate(0, 0, filingWindowDays),
		SourceOfFunds: sof,
		CreatedAt:     now,
	}
}

func (r *Report) requirePending(action string) error {
	if r.Status != ReportStatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "report is %s, %s requires a pending report", r.Status, action)
	}
	return nil
}

// CanApprove reports whether the report may transition to approved.
func (r *Report) CanApprove() error { return r.requirePending("approval") }

// CanReject reports whether the report may transition to rejected.
func (r *Report) CanReject() error { return r.requirePending("rejection") }

// CanGenerateXML reports whether an XML artifact may be produced. Generation
// never transitions status: the officer may still reject after generating.
func (r *Report) CanGenerateXML() error { return r.requirePending("XML generation") }

// ApplyApprove transitions the report to approved.
func (r *Report) ApplyApprove(now time.Time) {
	r.Status = ReportStatusApproved
	r.DecidedAt = &now
}

// ApplyReject transitions the report to rejected with the officer's remarks.
func (r *Report) ApplyReject(remarks string, now time.Time) {
	r.Status = ReportStatusRejected
	r.Remarks = remarks
	r.DecidedAt = &now
}

// ListFilter narrows report listings. Zero values mean "any"; From/To bound
// ForDate inclusively.
type ListFilter struct {
	Status ReportStatus
	From   time.Time
	To     time.Time
	Offset int
	Limit  int
}
