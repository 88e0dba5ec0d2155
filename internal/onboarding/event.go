package onboarding

import "arc-onboarding/internal/model"

// EventKind enumerates what can happen to an applicant.
type EventKind int

const (
	EventText EventKind = iota
	EventPhoto
	EventOther
	EventReminder
	EventExpiration
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventOther:
		return "other"
	case EventReminder:
		return "reminder"
	case EventExpiration:
		return "expiration"
	default:
		return "unknown"
	}
}

// Event is one inbound message or fired timer for a single applicant.
type Event struct {
	Kind EventKind
	// Text holds the message text for EventText.
	Text string
	// MessageID references the inbound message, used to forward screenshots.
	MessageID int
	// Username is the sender's Telegram handle without "@", when known.
	Username string
}

// TimerEvent maps a fired timer to the event it produces.
func TimerEvent(kind model.TimerKind) Event {
	if kind == model.TimerReminder {
		return Event{Kind: EventReminder}
	}
	return Event{Kind: EventExpiration}
}
