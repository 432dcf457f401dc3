package audit

import (
	"time"

	id "coopaml/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: flag creation, case closure, STR/TTR filings.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: whitelist additions (a reviewed match being suppressed).
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	// Examples: rescreen completion, sanction imports.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key compliance actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory
	Timestamp     time.Time
	CooperativeID id.CooperativeID
	MemberID      id.MemberID
	// Subject is the string ID of the affected aggregate (flag, case, report
	// or sanction), when the action targets one.
	Subject string
	Action  string
	// Detail is a short qualifier: list type and score for flags, remarks for
	// rejections, artifact paths for exports.
	Detail string
	// RequestID correlates the event with the triggering HTTP request.
	RequestID string
	// ActorID identifies the compliance officer who performed the action,
	// when the action was user-initiated rather than batch-initiated.
	ActorID string
}

type AuditEvent string

const (
	// Screening events
	EventFlagCreated  AuditEvent = "flag_created"
	EventFlagResolved AuditEvent = "flag_resolved"

	// Case events
	EventCaseOpened   AuditEvent = "case_opened"
	EventCaseClosed   AuditEvent = "case_closed"
	EventSTRGenerated AuditEvent = "str_generated"

	// TTR events
	EventTTRCreated      AuditEvent = "ttr_created"
	EventTTRApproved     AuditEvent = "ttr_approved"
	EventTTRRejected     AuditEvent = "ttr_rejected"
	EventTTRXMLGenerated AuditEvent = "ttr_xml_generated"

	// Watchlist events
	EventSanctionsImported AuditEvent = "sanctions_imported"
	EventWhitelistAdded    AuditEvent = "whitelist_added"
	EventRescreenCompleted AuditEvent = "rescreen_completed"
)

// eventCategories maps each audit event to its category.
// Compliance: regulatory significance, long retention required.
// Security: feeds monitoring, a suppression decision is a security fact.
// Operations: routine activity, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventFlagCreated:     CategoryCompliance,
	EventFlagResolved:    CategoryCompliance,
	EventCaseOpened:      CategoryCompliance,
	EventCaseClosed:      CategoryCompliance,
	EventSTRGenerated:    CategoryCompliance,
	EventTTRCreated:      CategoryCompliance,
	EventTTRApproved:     CategoryCompliance,
	EventTTRRejected:     CategoryCompliance,
	EventTTRXMLGenerated: CategoryCompliance,

	EventWhitelistAdded: CategorySecurity,

	EventSanctionsImported: CategoryOperations,
	EventRescreenCompleted: CategoryOperations,
}

// Category returns the event's category, defaulting to operations for
// unmapped actions so unknown events are never silently promoted to
// compliance retention.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
