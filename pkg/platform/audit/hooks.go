package audit

import (
	"context"

	"coopaml/pkg/platform/hooks"
)

// Emitter delivers one audit event. The publisher satisfies it; tests can
// substitute a recorder.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// hookActions maps each lifecycle transition to its audit action. A pair
// absent here is a lifecycle moment we deliberately do not audit.
var hookActions = map[hooks.EntityKind]map[hooks.Phase]AuditEvent{
	hooks.KindFlag: {
		hooks.PhaseCreated:  EventFlagCreated,
		hooks.PhaseResolved: EventFlagResolved,
	},
	hooks.KindCase: {
		hooks.PhaseCreated:  EventCaseOpened,
		hooks.PhaseClosed:   EventCaseClosed,
		hooks.PhaseExported: EventSTRGenerated,
	},
	hooks.KindTTR: {
		hooks.PhaseCreated:  EventTTRCreated,
		hooks.PhaseApproved: EventTTRApproved,
		hooks.PhaseRejected: EventTTRRejected,
		hooks.PhaseExported: EventTTRXMLGenerated,
	},
	hooks.KindSanction: {
		hooks.PhaseImported: EventSanctionsImported,
	},
	hooks.KindWhitelist: {
		hooks.PhaseCreated: EventWhitelistAdded,
	},
	hooks.KindRescreen: {
		hooks.PhaseCompleted: EventRescreenCompleted,
	},
}

// RegisterHooks subscribes the emitter to every audited lifecycle transition.
// Audit runs at priority 0 so the trail records the transition before any
// other side-effect observes it.
func RegisterHooks(dispatcher *hooks.Dispatcher, emitter Emitter) {
	for kind, phases := range hookActions {
		for phase, action := range phases {
			dispatcher.Register(kind, phase, 0, translate(action, emitter))
		}
	}
}

func translate(action AuditEvent, emitter Emitter) hooks.Handler {
	return func(ctx context.Context, ev hooks.Event) error {
		return emitter.Emit(ctx, Event{
			Category:      action.Category(),
			Timestamp:     ev.At,
			CooperativeID: ev.CooperativeID,
			MemberID:      ev.MemberID,
			Subject:       ev.EntityID,
			Action:        string(action),
			Detail:        ev.Detail,
			RequestID:     ev.RequestID,
			ActorID:       ev.ActorID,
		})
	}
}
