package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"arc-onboarding/internal/model"
)

// CounterRepository keeps named process-wide integers.
type CounterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Advance reads the counter and stores next(value) in one transaction, returning the old value.
func (r *CounterRepository) Advance(ctx context.Context, name string, next func(int) int) (int, error) {
	var current int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter model.Counter
		err := tx.Where("name = ?", name).First(&counter).Error
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			counter = model.Counter{Name: name}
		default:
			return fmt.Errorf("find counter: %w", err)
		}
		current = counter.Value
		counter.Value = next(current)
		if err := tx.Save(&counter).Error; err != nil {
			return fmt.Errorf("save counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return current, nil
}

func (r *CounterRepository) Get(ctx context.Context, name string) (int, error) {
	var counter model.Counter
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}
