package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arc-onboarding/internal/model"
	"arc-onboarding/internal/repository"
)

// DigestService summarizes the applicant pipeline for the operator.
type DigestService struct {
	applicants *repository.ApplicantRepository
}

func NewDigestService(applicants *repository.ApplicantRepository) *DigestService {
	return &DigestService{applicants: applicants}
}

var digestOrder = []struct {
	state model.State
	label string
}{
	{model.StateNew, "New contacts"},
	{model.StateAwaitingEmail, "Waiting for email"},
	{model.StateAwaitingScreenshot, "Test in progress"},
	{model.StateAwaitingUsername, "Waiting for username"},
	{model.StateAwaitingVerification, "Ready for verification"},
	{model.StateExpired, "Expired"},
}

func (s *DigestService) Summary(ctx context.Context, now time.Time) (string, error) {
	counts, err := s.applicants.CountByState(ctx)
	if err != nil {
		return "", fmt.Errorf("count applicants: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 ARC onboarding digest, %s\n", now.Format("2006-01-02"))
	var total int64
	for _, row := range digestOrder {
		fmt.Fprintf(&b, "• %s: %d\n", row.label, counts[row.state])
		total += counts[row.state]
	}
	fmt.Fprintf(&b, "Total applicants: %d", total)
	return b.String(), nil
}
