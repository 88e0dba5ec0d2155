package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Applicant stores one person going through the onboarding flow.
type Applicant struct {
	ID                  uint  `gorm:"primaryKey"`
	TelegramID          int64 `gorm:"uniqueIndex"`
	ChatID              int64
	State               State `gorm:"type:varchar(32);not null;default:new"`
	FirstName           string
	AssignedLink        string
	Email               string
	TelegramUsername    string
	SheetRow            *int
	ScreenshotMessageID *int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AfterFind rejects records whose state is not part of the flow.
func (a *Applicant) AfterFind(*gorm.DB) error {
	if !a.State.Valid() {
		return fmt.Errorf("applicant %d: %w: %q", a.TelegramID, ErrUnknownState, a.State)
	}
	return nil
}

// Transition moves the applicant to next if the edge exists.
func (a *Applicant) Transition(next State) error {
	if !CanTransition(a.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.State, next)
	}
	a.State = next
	return nil
}

// AssignLink stores the test link. A link is never reassigned.
func (a *Applicant) AssignLink(link string) error {
	if a.AssignedLink != "" {
		return ErrLinkAlreadyAssigned
	}
	a.AssignedLink = link
	return nil
}

// DisplayName falls back to a neutral greeting when Telegram has no first name.
func (a *Applicant) DisplayName() string {
	if a.FirstName == "" {
		return "there"
	}
	return a.FirstName
}
