package onboarding

import (
	"context"
	"time"

	"arc-onboarding/internal/model"
)

// Messenger delivers outbound chat actions.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	// SendDocument uploads a local file. A missing file is reported as fs.ErrNotExist.
	SendDocument(ctx context.Context, chatID int64, path string) error
	Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) error
	Typing(ctx context.Context, chatID int64) error
}

type LinkAllocator interface {
	Next(ctx context.Context) (string, error)
}

// Ledger is the external applicant spreadsheet.
type Ledger interface {
	FindByEmail(ctx context.Context, email string) (row int, found bool, err error)
	CreateRow(ctx context.Context, email, username string, userID int64) (row int, err error)
	UpdateStatus(ctx context.Context, row int, status string) error
}

// Prompt is everything the responder may know about the applicant for one turn.
type Prompt struct {
	State        model.State
	FirstName    string
	AssignedLink string
	Message      string
}

// Reply is the responder's answer. AttachGuide asks the caller to send the program guide.
type Reply struct {
	Text        string
	AttachGuide bool
}

// Responder answers free-text questions. It never fails: upstream errors become a fallback reply.
type Responder interface {
	Respond(ctx context.Context, p Prompt) Reply
}

type Timers interface {
	Arm(ctx context.Context, applicant *model.Applicant, kind model.TimerKind, at time.Time) error
	// CancelAll cancels every pending timer of the applicant; it is a no-op when none are left.
	CancelAll(ctx context.Context, applicantID int64) error
}
