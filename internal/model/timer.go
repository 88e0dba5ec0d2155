package model

import "time"

type TimerKind string

const (
	TimerReminder   TimerKind = "reminder"
	TimerExpiration TimerKind = "expiration"
)

type TimerStatus string

const (
	TimerPending   TimerStatus = "pending"
	TimerFired     TimerStatus = "fired"
	TimerCancelled TimerStatus = "cancelled"
)

// Timer is a one-shot deadline armed for an applicant.
type Timer struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)"`
	ApplicantID int64       `gorm:"index"`
	ChatID      int64
	Kind        TimerKind   `gorm:"type:varchar(16)"`
	DueAt       time.Time   `gorm:"index"`
	Status      TimerStatus `gorm:"type:varchar(16);index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
