package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"arc-onboarding/internal/bot"
	"arc-onboarding/internal/config"
	"arc-onboarding/internal/ledger"
	"arc-onboarding/internal/llm"
	"arc-onboarding/internal/logger"
	"arc-onboarding/internal/model"
	"arc-onboarding/internal/onboarding"
	"arc-onboarding/internal/repository"
	"arc-onboarding/internal/server"
	"arc-onboarding/internal/service"
)

const (
	responderTimeout = 60 * time.Second
	shutdownTimeout  = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("arc-onboarding", false)
		logger.Fatal().Err(err).Msg("config")
	}
	logger.Init("arc-onboarding", cfg.Debug)

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("db handle")
	}
	defer sqlDB.Close()

	applicantRepo := repository.NewApplicantRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	timerRepo := repository.NewTimerRepository(db)

	links, err := service.NewLinkAllocator(cfg.Flow.TestLinks, counterRepo)
	if err != nil {
		logger.Fatal().Err(err).Msg("test links")
	}
	timers := service.NewTimerService(timerRepo)
	digest := service.NewDigestService(applicantRepo)

	completer := llm.NewAzureClient(cfg.OpenAI.Endpoint, cfg.OpenAI.APIVersion, cfg.OpenAI.Key, cfg.OpenAI.Deployment)
	responder := service.NewResponder(completer, responderTimeout)

	var sheet onboarding.Ledger
	if cfg.Flow.EmailGate {
		sheets, err := ledger.New(ctx, []byte(cfg.Ledger.CredentialsJSON), cfg.Ledger.SpreadsheetName, ledger.Columns{
			Email:  cfg.Ledger.EmailColumn,
			Status: cfg.Ledger.StatusColumn,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("ledger")
		}
		sheet = sheets
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}
	logger.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")
	messenger := bot.NewTelegram(api, cfg.Telegram.RateLimit)

	machine := onboarding.NewMachine(onboarding.Flow{
		EmailGate:     cfg.Flow.EmailGate,
		UsernameStep:  cfg.Flow.UsernameStep,
		ReminderAfter: cfg.Flow.ReminderAfter,
		ExpireAfter:   cfg.Flow.ExpireAfter,
		GuidePath:     cfg.Flow.GuidePDFPath,
	}, cfg.Telegram.AdminChatID, onboarding.Deps{
		Messenger: messenger,
		Links:     links,
		Ledger:    sheet,
		Responder: responder,
		Timers:    timers,
	})

	telegramBot := bot.New(applicantRepo, machine)
	telegramBot.Start(context.WithoutCancel(ctx))

	scheduler := service.NewSchedulerService(ctx, time.Local)
	if _, err := scheduler.ScheduleTimerSweep(cfg.Flow.SweepInterval, timers, telegramBot.DeliverTimer); err != nil {
		logger.Fatal().Err(err).Msg("schedule timer sweep")
	}
	if cfg.DigestAt != "" {
		sendDigest := func(ctx context.Context, text string) error {
			return messenger.SendText(ctx, cfg.Telegram.AdminChatID, text)
		}
		if _, err := scheduler.ScheduleDigest(cfg.DigestAt, digest, sendDigest); err != nil {
			logger.Fatal().Err(err).Msg("schedule digest")
		}
	}
	scheduler.Start()

	if err := bot.RegisterWebhook(api, cfg.WebhookEndpoint()); err != nil {
		logger.Fatal().Err(err).Msg("webhook")
	}

	router := server.NewRouter(telegramBot, server.Options{
		Secret: cfg.Telegram.Token,
		Ping:   sqlDB.PingContext,
		Debug:  cfg.Debug,
	})
	srv := server.New(cfg.HTTPAddr, router)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("onboarding bot started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	scheduler.Stop()
	telegramBot.Close()

	pending, err := applicantRepo.CountByState(shutdownCtx)
	if err == nil {
		logger.Info().Int64("awaiting_screenshot", pending[model.StateAwaitingScreenshot]).Msg("shutdown complete")
	}
}
