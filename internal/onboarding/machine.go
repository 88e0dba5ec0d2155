package onboarding

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	"arc-onboarding/internal/logger"
	"arc-onboarding/internal/metrics"
	"arc-onboarding/internal/model"
)

// Ledger status values written to the status column.
const (
	LedgerStatusLinkSent             = "Link sent"
	LedgerStatusScreenshotReceived   = "Screenshot received"
	LedgerStatusAwaitingVerification = "Awaiting verification"
	LedgerStatusExpired              = "Expired"
)

// Flow selects the optional onboarding stages and the test deadlines.
type Flow struct {
	EmailGate     bool
	UsernameStep  bool
	ReminderAfter time.Duration
	ExpireAfter   time.Duration
	GuidePath     string
}

// Deps are the collaborators the machine acts through.
type Deps struct {
	Messenger Messenger
	Links     LinkAllocator
	Ledger    Ledger
	Responder Responder
	Timers    Timers
}

// Machine advances one applicant record per event. Callers serialize events per applicant.
type Machine struct {
	flow       Flow
	operatorID int64
	deps       Deps
	now        func() time.Time
}

func NewMachine(flow Flow, operatorChatID int64, deps Deps) *Machine {
	if flow.ReminderAfter <= 0 {
		flow.ReminderAfter = 23 * time.Hour
	}
	if flow.ExpireAfter <= 0 {
		flow.ExpireAfter = 24 * time.Hour
	}
	return &Machine{
		flow:       flow,
		operatorID: operatorChatID,
		deps:       deps,
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// Handle applies ev to the applicant. Collaborator failures are absorbed and answered
// with a user-visible message; the returned error only reports broken invariants.
func (m *Machine) Handle(ctx context.Context, a *model.Applicant, ev Event) error {
	metrics.ObserveEvent(ev.Kind.String(), a.State.String())

	if ev.Kind == EventReminder || ev.Kind == EventExpiration {
		return m.handleTimer(ctx, a, ev)
	}

	switch a.State {
	case model.StateNew:
		return m.handleNew(ctx, a)
	case model.StateAwaitingEmail:
		return m.handleAwaitingEmail(ctx, a, ev)
	case model.StateAwaitingScreenshot:
		return m.handleAwaitingScreenshot(ctx, a, ev)
	case model.StateAwaitingUsername:
		return m.handleAwaitingUsername(ctx, a, ev)
	case model.StateAwaitingVerification, model.StateExpired:
		return m.handleClosed(ctx, a, ev)
	default:
		return fmt.Errorf("applicant %d: %w: %q", a.TelegramID, model.ErrUnknownState, a.State)
	}
}

func (m *Machine) handleNew(ctx context.Context, a *model.Applicant) error {
	logger.Info().Int64("applicant", a.TelegramID).Str("name", a.FirstName).Msg("new applicant contact")

	if m.flow.EmailGate {
		if err := m.moveTo(a, model.StateAwaitingEmail); err != nil {
			return err
		}
		m.send(ctx, a.ChatID, welcomeAskEmail(a.DisplayName()))
		return nil
	}
	return m.startTest(ctx, a)
}

func (m *Machine) handleAwaitingEmail(ctx context.Context, a *model.Applicant, ev Event) error {
	if ev.Kind != EventText {
		m.send(ctx, a.ChatID, msgAskEmailRetry)
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(ev.Text))
	if !ValidEmail(email) {
		m.send(ctx, a.ChatID, msgAskEmailRetry)
		return nil
	}

	// Applicants stored before the gate was switched off finish without a ledger row.
	if !m.flow.EmailGate || m.deps.Ledger == nil {
		a.Email = email
		return m.startTest(ctx, a)
	}

	row, err := m.ledgerRow(ctx, email, ev.Username, a.TelegramID)
	if err != nil {
		logger.Error().Err(err).Int64("applicant", a.TelegramID).Msg("ledger lookup failed")
		m.send(ctx, a.ChatID, msgLedgerTrouble)
		return nil
	}
	a.Email = email
	a.SheetRow = &row

	return m.startTest(ctx, a)
}

// ledgerRow finds the applicant's row by email or appends a new one.
func (m *Machine) ledgerRow(ctx context.Context, email, username string, userID int64) (int, error) {
	row, found, err := m.deps.Ledger.FindByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("find by email: %w", err)
	}
	if found {
		return row, nil
	}
	handle := ""
	if username != "" {
		handle = "@" + username
	}
	row, err = m.deps.Ledger.CreateRow(ctx, email, handle, userID)
	if err != nil {
		return 0, fmt.Errorf("create row: %w", err)
	}
	return row, nil
}

// startTest assigns the test link, arms both timers and sends the instructions. On any
// failure the applicant stays where it is so the next message retries.
func (m *Machine) startTest(ctx context.Context, a *model.Applicant) error {
	if a.AssignedLink == "" {
		link, err := m.deps.Links.Next(ctx)
		if err != nil {
			logger.Error().Err(err).Int64("applicant", a.TelegramID).Msg("allocate test link")
			m.send(ctx, a.ChatID, msgStartTrouble)
			return nil
		}
		if err := a.AssignLink(link); err != nil {
			return err
		}
	}

	now := m.now()
	if err := m.armTimers(ctx, a, now); err != nil {
		logger.Error().Err(err).Int64("applicant", a.TelegramID).Msg("arm test timers")
		m.cancelTimers(ctx, a)
		m.send(ctx, a.ChatID, msgStartTrouble)
		return nil
	}

	if err := m.moveTo(a, model.StateAwaitingScreenshot); err != nil {
		m.cancelTimers(ctx, a)
		return err
	}
	m.send(ctx, a.ChatID, testInstructions(a.DisplayName(), a.AssignedLink, humanDuration(wholeHours(m.flow.ExpireAfter))))
	m.updateLedger(ctx, a, LedgerStatusLinkSent)
	return nil
}

func (m *Machine) armTimers(ctx context.Context, a *model.Applicant, now time.Time) error {
	if err := m.deps.Timers.Arm(ctx, a, model.TimerReminder, now.Add(m.flow.ReminderAfter)); err != nil {
		return fmt.Errorf("arm reminder: %w", err)
	}
	if err := m.deps.Timers.Arm(ctx, a, model.TimerExpiration, now.Add(m.flow.ExpireAfter)); err != nil {
		return fmt.Errorf("arm expiration: %w", err)
	}
	return nil
}

func (m *Machine) handleAwaitingScreenshot(ctx context.Context, a *model.Applicant, ev Event) error {
	switch ev.Kind {
	case EventPhoto:
		return m.acceptScreenshot(ctx, a, ev)
	case EventText:
		m.answer(ctx, a, ev.Text)
		return nil
	default:
		m.send(ctx, a.ChatID, msgAskScreenshot)
		return nil
	}
}

func (m *Machine) acceptScreenshot(ctx context.Context, a *model.Applicant, ev Event) error {
	logger.Info().Int64("applicant", a.TelegramID).Int("message_id", ev.MessageID).Msg("screenshot received")

	msgID := ev.MessageID
	a.ScreenshotMessageID = &msgID
	m.cancelTimers(ctx, a)

	handle := ""
	if ev.Username != "" {
		handle = "@" + ev.Username
	}

	if m.flow.UsernameStep {
		if err := m.moveTo(a, model.StateAwaitingUsername); err != nil {
			return err
		}
		m.send(ctx, a.ChatID, msgAskUsername)
		m.send(ctx, m.operatorID, operatorScreenshotNotice(a, handle))
		m.updateLedger(ctx, a, LedgerStatusScreenshotReceived)
		return nil
	}

	a.TelegramUsername = handle
	if err := m.moveTo(a, model.StateAwaitingVerification); err != nil {
		return err
	}
	m.send(ctx, a.ChatID, msgScreenshotThanks)
	m.notifyOperator(ctx, a)
	m.updateLedger(ctx, a, LedgerStatusAwaitingVerification)
	return nil
}

func (m *Machine) handleAwaitingUsername(ctx context.Context, a *model.Applicant, ev Event) error {
	if ev.Kind != EventText {
		m.send(ctx, a.ChatID, msgUsernamePlainText)
		return nil
	}
	username := strings.TrimSpace(ev.Text)
	if !ValidUsername(username) {
		m.send(ctx, a.ChatID, msgUsernameInvalid)
		return nil
	}

	a.TelegramUsername = username
	if err := m.moveTo(a, model.StateAwaitingVerification); err != nil {
		return err
	}
	m.send(ctx, a.ChatID, verificationThanks(username))
	m.notifyOperator(ctx, a)
	m.updateLedger(ctx, a, LedgerStatusAwaitingVerification)
	return nil
}

func (m *Machine) handleClosed(ctx context.Context, a *model.Applicant, ev Event) error {
	if ev.Kind == EventText {
		m.answer(ctx, a, ev.Text)
		return nil
	}
	if a.State == model.StateExpired {
		m.send(ctx, a.ChatID, expiredText(a.DisplayName()))
		return nil
	}
	m.send(ctx, a.ChatID, msgVerificationQueued)
	return nil
}

// handleTimer applies a fired timer. Timers that outlived the screenshot stage are stale.
func (m *Machine) handleTimer(ctx context.Context, a *model.Applicant, ev Event) error {
	if a.State != model.StateAwaitingScreenshot {
		logger.Debug().Int64("applicant", a.TelegramID).Str("timer", ev.Kind.String()).Str("state", a.State.String()).Msg("stale timer ignored")
		return nil
	}

	if ev.Kind == EventReminder {
		left := wholeHours(m.flow.ExpireAfter - m.flow.ReminderAfter)
		m.send(ctx, a.ChatID, reminderText(a.DisplayName(), humanDuration(left)))
		return nil
	}

	if err := m.moveTo(a, model.StateExpired); err != nil {
		return err
	}
	m.cancelTimers(ctx, a)
	logger.Info().Int64("applicant", a.TelegramID).Msg("applicant expired")
	m.updateLedger(ctx, a, LedgerStatusExpired)
	return nil
}

// answer delegates free text to the responder and delivers the guide when asked to.
func (m *Machine) answer(ctx context.Context, a *model.Applicant, text string) {
	if err := m.deps.Messenger.Typing(ctx, a.ChatID); err != nil {
		logger.Debug().Err(err).Int64("chat", a.ChatID).Msg("typing indicator")
	}

	reply := m.deps.Responder.Respond(ctx, Prompt{
		State:        a.State,
		FirstName:    a.DisplayName(),
		AssignedLink: a.AssignedLink,
		Message:      text,
	})
	if reply.Text != "" {
		m.send(ctx, a.ChatID, reply.Text)
	}
	if !reply.AttachGuide {
		return
	}

	if err := m.deps.Messenger.SendDocument(ctx, a.ChatID, m.flow.GuidePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Error().Str("path", m.flow.GuidePath).Msg("guide document not found")
		} else {
			logger.Error().Err(err).Int64("chat", a.ChatID).Msg("send guide document")
		}
		m.send(ctx, a.ChatID, msgGuideMissing)
	}
}

func (m *Machine) notifyOperator(ctx context.Context, a *model.Applicant) {
	m.send(ctx, m.operatorID, operatorVerificationNotice(a))
	if a.ScreenshotMessageID == nil {
		logger.Error().Int64("applicant", a.TelegramID).Msg("no screenshot to forward to operator")
		return
	}
	if err := m.deps.Messenger.Forward(ctx, m.operatorID, a.ChatID, *a.ScreenshotMessageID); err != nil {
		logger.Error().Err(err).Int64("applicant", a.TelegramID).Msg("forward screenshot to operator")
	}
}

func (m *Machine) moveTo(a *model.Applicant, next model.State) error {
	from := a.State
	if err := a.Transition(next); err != nil {
		return fmt.Errorf("applicant %d: %w", a.TelegramID, err)
	}
	metrics.ObserveTransition(from.String(), next.String())
	logger.Info().Int64("applicant", a.TelegramID).Str("from", from.String()).Str("to", next.String()).Msg("state changed")
	return nil
}

func (m *Machine) cancelTimers(ctx context.Context, a *model.Applicant) {
	if err := m.deps.Timers.CancelAll(ctx, a.TelegramID); err != nil {
		logger.Warn().Err(err).Int64("applicant", a.TelegramID).Msg("cancel timers")
	}
}

func (m *Machine) updateLedger(ctx context.Context, a *model.Applicant, status string) {
	if a.SheetRow == nil {
		return
	}
	if err := m.deps.Ledger.UpdateStatus(ctx, *a.SheetRow, status); err != nil {
		logger.Warn().Err(err).Int64("applicant", a.TelegramID).Int("row", *a.SheetRow).Msg("update ledger status")
	}
}

func (m *Machine) send(ctx context.Context, chatID int64, text string) {
	if err := m.deps.Messenger.SendText(ctx, chatID, text); err != nil {
		logger.Error().Err(err).Int64("chat", chatID).Msg("send message")
	}
}

func wholeHours(d time.Duration) int {
	return int(math.Round(d.Hours()))
}
