package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"arc-onboarding/internal/model"
)

// TimerRepository stores one-shot applicant timers.
type TimerRepository struct {
	db *gorm.DB
}

func NewTimerRepository(db *gorm.DB) *TimerRepository {
	return &TimerRepository{db: db}
}

func (r *TimerRepository) Create(ctx context.Context, timer *model.Timer) error {
	if err := r.db.WithContext(ctx).Create(timer).Error; err != nil {
		return fmt.Errorf("create timer: %w", err)
	}
	return nil
}

// CancelPending cancels every pending timer of the applicant. Already fired or cancelled
// timers are left untouched, so repeated calls are harmless.
func (r *TimerRepository) CancelPending(ctx context.Context, applicantID int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Timer{}).
		Where("applicant_id = ? AND status = ?", applicantID, model.TimerPending).
		Update("status", model.TimerCancelled)
	if res.Error != nil {
		return 0, fmt.Errorf("cancel timers: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ClaimDue marks pending timers due at or before now as fired and returns them.
func (r *TimerRepository) ClaimDue(ctx context.Context, now time.Time) ([]model.Timer, error) {
	var claimed []model.Timer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []model.Timer
		if err := tx.Where("status = ? AND due_at <= ?", model.TimerPending, now).
			Order("due_at ASC").
			Find(&due).Error; err != nil {
			return fmt.Errorf("list due timers: %w", err)
		}
		for _, timer := range due {
			res := tx.Model(&model.Timer{}).
				Where("id = ? AND status = ?", timer.ID, model.TimerPending).
				Update("status", model.TimerFired)
			if res.Error != nil {
				return fmt.Errorf("claim timer %s: %w", timer.ID, res.Error)
			}
			if res.RowsAffected == 1 {
				timer.Status = model.TimerFired
				claimed = append(claimed, timer)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *TimerRepository) ListPending(ctx context.Context, applicantID int64) ([]model.Timer, error) {
	var timers []model.Timer
	if err := r.db.WithContext(ctx).
		Where("applicant_id = ? AND status = ?", applicantID, model.TimerPending).
		Order("due_at ASC").
		Find(&timers).Error; err != nil {
		return nil, err
	}
	return timers, nil
}
