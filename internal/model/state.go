package model

import (
	"errors"
	"fmt"
)

// State is the onboarding stage an applicant is in.
type State string

const (
	StateNew                  State = "new"
	StateAwaitingEmail        State = "awaiting_email"
	StateAwaitingScreenshot   State = "awaiting_screenshot"
	StateAwaitingUsername     State = "awaiting_username"
	StateAwaitingVerification State = "awaiting_verification"
	StateExpired              State = "expired"
)

var (
	ErrUnknownState        = errors.New("unknown applicant state")
	ErrIllegalTransition   = errors.New("illegal state transition")
	ErrLinkAlreadyAssigned = errors.New("test link already assigned")
)

var knownStates = map[State]struct{}{
	StateNew:                  {},
	StateAwaitingEmail:        {},
	StateAwaitingScreenshot:   {},
	StateAwaitingUsername:     {},
	StateAwaitingVerification: {},
	StateExpired:              {},
}

// transitions lists every edge the onboarding flow may take. Edges that only exist in
// one flow variant (no email gate, no username step) are included as well.
var transitions = map[State][]State{
	StateNew:                {StateAwaitingEmail, StateAwaitingScreenshot},
	StateAwaitingEmail:      {StateAwaitingScreenshot},
	StateAwaitingScreenshot: {StateAwaitingUsername, StateAwaitingVerification, StateExpired},
	StateAwaitingUsername:   {StateAwaitingVerification},
}

// ParseState converts a stored value into a State.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if _, ok := knownStates[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, raw)
	}
	return s, nil
}

func (s State) Valid() bool {
	_, ok := knownStates[s]
	return ok
}

// Terminal reports whether the machine waits for an out-of-band operator action.
func (s State) Terminal() bool {
	return s == StateAwaitingVerification || s == StateExpired
}

// CanTransition reports whether from -> to is an edge of the onboarding flow.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}
