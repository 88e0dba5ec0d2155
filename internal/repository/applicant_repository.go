package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"arc-onboarding/internal/model"
)

// ApplicantRepository persists applicant records keyed by Telegram user id.
type ApplicantRepository struct {
	db *gorm.DB
}

func NewApplicantRepository(db *gorm.DB) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

// GetOrCreate returns the applicant for telegramID, creating it in the new state on first contact.
func (r *ApplicantRepository) GetOrCreate(ctx context.Context, telegramID, chatID int64, firstName string) (*model.Applicant, error) {
	var applicant model.Applicant
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&applicant).Error
	switch {
	case err == nil:
		return &applicant, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		applicant = model.Applicant{
			TelegramID: telegramID,
			ChatID:     chatID,
			FirstName:  firstName,
			State:      model.StateNew,
		}
		if err := db.Create(&applicant).Error; err != nil {
			return nil, fmt.Errorf("create applicant: %w", err)
		}
		return &applicant, nil
	default:
		return nil, fmt.Errorf("find applicant: %w", err)
	}
}

func (r *ApplicantRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.Applicant, error) {
	var applicant model.Applicant
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&applicant).Error; err != nil {
		return nil, err
	}
	return &applicant, nil
}

// Save writes every field of the applicant back to the store.
func (r *ApplicantRepository) Save(ctx context.Context, applicant *model.Applicant) error {
	if err := r.db.WithContext(ctx).Save(applicant).Error; err != nil {
		return fmt.Errorf("save applicant: %w", err)
	}
	return nil
}

func (r *ApplicantRepository) CountByState(ctx context.Context) (map[model.State]int64, error) {
	var rows []struct {
		State model.State
		Total int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Applicant{}).
		Select("state, COUNT(*) AS total").
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[model.State]int64, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Total
	}
	return counts, nil
}
