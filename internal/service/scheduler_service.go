package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"arc-onboarding/internal/logger"
	"arc-onboarding/internal/model"
)

const jobTimeout = 30 * time.Second

// SchedulerService runs the bot's periodic jobs: the timer sweep and the operator digest.
// Jobs stop running once ctx is done.
type SchedulerService struct {
	ctx  context.Context
	cron *cron.Cron
}

func NewSchedulerService(ctx context.Context, loc *time.Location) *SchedulerService {
	return &SchedulerService{
		ctx:  ctx,
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// ScheduleTimerSweep delivers due timers every interval. One sweep runs right away to
// pick up timers that came due while the process was down.
func (s *SchedulerService) ScheduleTimerSweep(interval time.Duration, timers *TimerService, deliver func(model.Timer)) (cron.EntryID, error) {
	sweep := s.job("timer sweep", func(ctx context.Context) error {
		_, err := timers.Sweep(ctx, time.Now(), deliver)
		return err
	})
	id, err := s.ScheduleInterval(interval, sweep)
	if err != nil {
		return 0, err
	}
	sweep()
	return id, nil
}

// ScheduleDigest sends the pipeline summary through send every day at HH:MM.
func (s *SchedulerService) ScheduleDigest(at string, digest *DigestService, send func(ctx context.Context, text string) error) (cron.EntryID, error) {
	return s.ScheduleDaily(at, s.job("digest", func(ctx context.Context) error {
		text, err := digest.Summary(ctx, time.Now())
		if err != nil {
			return err
		}
		return send(ctx, text)
	}))
}

func (s *SchedulerService) job(name string, run func(ctx context.Context) error) func() {
	return func() {
		if s.ctx.Err() != nil {
			return
		}
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		}
	}
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, job)
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to return.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
