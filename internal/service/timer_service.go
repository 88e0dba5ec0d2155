package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arc-onboarding/internal/logger"
	"arc-onboarding/internal/metrics"
	"arc-onboarding/internal/model"
	"arc-onboarding/internal/repository"
)

// TimerService arms, cancels and delivers persisted one-shot applicant timers.
type TimerService struct {
	repo *repository.TimerRepository
}

func NewTimerService(repo *repository.TimerRepository) *TimerService {
	return &TimerService{repo: repo}
}

func (s *TimerService) Arm(ctx context.Context, applicant *model.Applicant, kind model.TimerKind, at time.Time) error {
	timer := &model.Timer{
		ID:          uuid.NewString(),
		ApplicantID: applicant.TelegramID,
		ChatID:      applicant.ChatID,
		Kind:        kind,
		DueAt:       at.UTC(),
		Status:      model.TimerPending,
	}
	if err := s.repo.Create(ctx, timer); err != nil {
		return err
	}
	logger.Debug().Int64("applicant", applicant.TelegramID).Str("kind", string(kind)).Time("due_at", timer.DueAt).Msg("timer armed")
	return nil
}

func (s *TimerService) CancelAll(ctx context.Context, applicantID int64) error {
	n, err := s.repo.CancelPending(ctx, applicantID)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Debug().Int64("applicant", applicantID).Int64("count", n).Msg("timers cancelled")
	}
	return nil
}

// Sweep claims every timer due at now and hands it to deliver. A claimed timer is never
// delivered twice; whether it still applies is decided by the state machine. A reminder
// claimed together with the same applicant's expiration is dropped, since the window
// already closed.
func (s *TimerService) Sweep(ctx context.Context, now time.Time, deliver func(model.Timer)) (int, error) {
	due, err := s.repo.ClaimDue(ctx, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("claim due timers: %w", err)
	}

	expiring := make(map[int64]bool)
	for _, timer := range due {
		if timer.Kind == model.TimerExpiration {
			expiring[timer.ApplicantID] = true
		}
	}

	delivered := 0
	for _, timer := range due {
		if timer.Kind == model.TimerReminder && expiring[timer.ApplicantID] {
			logger.Info().Int64("applicant", timer.ApplicantID).Msg("reminder overtaken by expiration, dropped")
			continue
		}
		metrics.ObserveTimerFired(string(timer.Kind))
		logger.Info().Int64("applicant", timer.ApplicantID).Str("kind", string(timer.Kind)).Msg("timer fired")
		deliver(timer)
		delivered++
	}
	return delivered, nil
}
