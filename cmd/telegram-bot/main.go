// Command telegram-bot serves the meal skill as a Telegram webhook bot.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"meal-skill/internal/config"
	"meal-skill/internal/database"
	"meal-skill/internal/dialog"
	"meal-skill/internal/fuzzy"
	"meal-skill/internal/intent"
	"meal-skill/internal/logger"
	"meal-skill/internal/meals"
	"meal-skill/internal/metrics"
	"meal-skill/internal/skill"
	"meal-skill/internal/storage"
	"meal-skill/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		logger.L.WithError(err).Fatal("telegram bot failed")
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.ValidateTelegram(); err != nil {
		return err
	}
	if err := logger.SetLogLevel(cfg.LogLevel); err != nil {
		return errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	logger.SetLogFormat(cfg.LogFormat)

	ctx := context.Background()

	// 2. Infrastructure
	vocab, err := dialog.Load(dialog.DefaultLang)
	if err != nil {
		return err
	}
	sandbox, err := storage.NewSandbox(cfg.DataDir)
	if err != nil {
		return err
	}
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}
	defer db.Close()
	metricsStore := metrics.NewStore(db.SQL)

	// 3. Bot and skill. The bot is the skill's host.
	matcher := fuzzy.NewMatcher()
	dispatcher := intent.NewDispatcher(vocab.Intents, matcher)

	bot, err := telegram.NewBot(cfg, dispatcher, metricsStore, vocab)
	if err != nil {
		return errors.Wrap(err, "failed to initialize telegram bot")
	}

	store := meals.NewStore(sandbox, matcher,
		meals.WithFile(cfg.MealsFile),
		meals.WithMinConfidence(cfg.MatchMinConfidence),
	)
	mealSkill := skill.New(bot, store, vocab,
		skill.WithRecorder(metricsStore),
		skill.WithListThreshold(cfg.ListConfirmThreshold),
	)
	if err := mealSkill.Initialize(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize meal list")
	}
	mealSkill.Register(dispatcher)

	// 4. Serve with graceful shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           bot.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.WithField("port", cfg.Port).Info("telegram bot server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.L.WithField("signal", sig.String()).Info("shutting down server")
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	bot.Shutdown()

	logger.L.Info("server exiting")
	return nil
}
