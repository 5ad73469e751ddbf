package moderation

import "swapshelf/pkg/domain"

// Event is a requested lifecycle transition.
type Event string

const (
	EventApprove   Event = "approve"
	EventReject    Event = "reject"
	EventUnpublish Event = "unpublish"
	EventWithdraw  Event = "withdraw"
	EventDelete    Event = "delete"
)

// ParseEvent normalizes a raw event name.
func ParseEvent(raw string) (Event, bool) {
	switch Event(raw) {
	case EventApprove, EventReject, EventUnpublish, EventWithdraw, EventDelete:
		return Event(raw), true
	default:
		return "", false
	}
}

// Outcome is the result of applying an event to a status.
type Outcome struct {
	Next    domain.ListingStatus
	Deleted bool
}

// transitions is the canonical table. delete is handled separately because it
// is legal from any status.
var transitions = map[domain.ListingStatus]map[Event]Outcome{
	domain.StatusPendingReview: {
		EventApprove: {Next: domain.StatusPublished},
		EventReject:  {Deleted: true},
	},
	domain.StatusPublished: {
		EventUnpublish: {Next: domain.StatusPendingReview},
		EventWithdraw:  {Next: domain.StatusWithdrawn},
	},
}

// Resolve validates an event against the current status and returns the
// outcome. An event absent from the table fails with InvalidTransitionError
// and leaves the record untouched.
func Resolve(current domain.ListingStatus, event Event) (Outcome, error) {
	if event == EventDelete {
		return Outcome{Deleted: true}, nil
	}
	if byEvent, ok := transitions[current]; ok {
		if outcome, ok := byEvent[event]; ok {
			return outcome, nil
		}
	}
	return Outcome{}, &domain.InvalidTransitionError{From: current, Event: string(event)}
}

// InitialStatus maps a screening verdict to the status a new submission
// starts in: benign titles go straight to PUBLISHED, flagged ones wait in
// PENDING_REVIEW for a human.
func InitialStatus(v domain.Verdict) domain.ListingStatus {
	if v.Status == domain.VerdictFlagged {
		return domain.StatusPendingReview
	}
	return domain.StatusPublished
}
