package bot

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"arc-onboarding/internal/logger"
	"arc-onboarding/internal/model"
	"arc-onboarding/internal/onboarding"
	"arc-onboarding/internal/repository"
)

const eventTimeout = 2 * time.Minute

// Bot feeds Telegram updates and fired timers into the onboarding machine, one
// applicant at a time.
type Bot struct {
	applicants *repository.ApplicantRepository
	machine    *onboarding.Machine
	dispatcher *Dispatcher
}

func New(applicants *repository.ApplicantRepository, machine *onboarding.Machine) *Bot {
	return &Bot{applicants: applicants, machine: machine}
}

// Start begins accepting events. Handlers inherit ctx.
func (b *Bot) Start(ctx context.Context) {
	b.dispatcher = NewDispatcher(ctx, func(ctx context.Context, in Inbound) {
		if err := b.Process(ctx, in); err != nil {
			logger.Error().Err(err).Int64("applicant", in.UserID).Str("event", in.Event.Kind.String()).Msg("failed to process event")
		}
	})
}

// Close waits for queued events to finish.
func (b *Bot) Close() {
	if b.dispatcher != nil {
		b.dispatcher.Close()
	}
}

// HandleUpdate queues a webhook update. Updates that are not private messages are dropped.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	in, ok := inboundFromUpdate(update)
	if !ok {
		logger.Debug().Int("update_id", update.UpdateID).Msg("ignoring update")
		return
	}
	b.submit(in)
}

// DeliverTimer queues a fired timer behind the applicant's pending messages.
func (b *Bot) DeliverTimer(timer model.Timer) {
	b.submit(Inbound{
		UserID: timer.ApplicantID,
		ChatID: timer.ChatID,
		Event:  onboarding.TimerEvent(timer.Kind),
	})
}

func (b *Bot) submit(in Inbound) {
	if b.dispatcher == nil || !b.dispatcher.Submit(in) {
		logger.Warn().Int64("applicant", in.UserID).Str("event", in.Event.Kind.String()).Msg("bot is not accepting events")
	}
}

// Process loads the applicant, applies the event and persists the result.
func (b *Bot) Process(ctx context.Context, in Inbound) error {
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	applicant, err := b.load(ctx, in)
	if err != nil {
		return err
	}
	if applicant == nil {
		return nil
	}

	handleErr := b.machine.Handle(ctx, applicant, in.Event)
	if err := b.applicants.Save(ctx, applicant); err != nil {
		return errors.Join(handleErr, err)
	}
	return handleErr
}

func (b *Bot) load(ctx context.Context, in Inbound) (*model.Applicant, error) {
	switch in.Event.Kind {
	case onboarding.EventReminder, onboarding.EventExpiration:
		applicant, err := b.applicants.FindByTelegramID(ctx, in.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Int64("applicant", in.UserID).Msg("timer fired for unknown applicant")
			return nil, nil
		}
		return applicant, err
	default:
		return b.applicants.GetOrCreate(ctx, in.UserID, in.ChatID, in.FirstName)
	}
}
