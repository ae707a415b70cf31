// Command meal-skill runs the meal skill in a terminal.
package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"meal-skill/internal/config"
	"meal-skill/internal/console"
	"meal-skill/internal/database"
	"meal-skill/internal/dialog"
	"meal-skill/internal/fuzzy"
	"meal-skill/internal/intent"
	"meal-skill/internal/logger"
	"meal-skill/internal/meals"
	"meal-skill/internal/metrics"
	"meal-skill/internal/skill"
	"meal-skill/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "meal-skill",
	Short: "Suggest, add, remove and list meals",
	Long: `meal-skill keeps a list of meals you like and suggests one when you
cannot decide what to eat. Run "meal-skill chat" to talk to it, or use the
subcommands directly.

Configuration is read from MEAL_SKILL_* environment variables.`,
	SilenceUsage: true,
}

// runtime is everything a command needs to run the skill in the terminal.
type runtime struct {
	cfg        *config.Config
	db         *database.DB
	metrics    *metrics.Store
	vocab      *dialog.Vocabulary
	dispatcher *intent.Dispatcher
	host       *console.Host
}

func setup(ctx context.Context, in io.Reader, out io.Writer) (*runtime, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := logger.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	logger.SetLogFormat(cfg.LogFormat)
	logger.SetLogOutput(os.Stderr)

	vocab, err := dialog.Load(dialog.DefaultLang)
	if err != nil {
		return nil, err
	}

	sandbox, err := storage.NewSandbox(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}
	metricsStore := metrics.NewStore(db.SQL)

	matcher := fuzzy.NewMatcher()
	store := meals.NewStore(sandbox, matcher,
		meals.WithFile(cfg.MealsFile),
		meals.WithMinConfidence(cfg.MatchMinConfidence),
	)

	host := console.NewHost(in, out, vocab)
	mealSkill := skill.New(host, store, vocab,
		skill.WithRecorder(metricsStore),
		skill.WithListThreshold(cfg.ListConfirmThreshold),
	)
	if err := mealSkill.Initialize(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize meal list")
	}

	dispatcher := intent.NewDispatcher(vocab.Intents, matcher)
	mealSkill.Register(dispatcher)
	logger.G(ctx).WithField("meals", cfg.MealsPath()).Debug("meal skill ready")

	return &runtime{
		cfg:        cfg,
		db:         db,
		metrics:    metricsStore,
		vocab:      vocab,
		dispatcher: dispatcher,
		host:       host,
	}, nil
}

func (r *runtime) Close() {
	if err := r.db.Close(); err != nil {
		logger.L.WithError(err).Warn("failed to close database")
	}
}

// runIntent runs one intent. Failures the skill does not handle itself are
// apologised for and returned so the process exits non-zero.
func (r *runtime) runIntent(ctx context.Context, name string) error {
	if err := r.dispatcher.Run(ctx, name); err != nil {
		r.host.Speak(ctx, r.vocab.Render("skill.failed", nil))
		return err
	}
	return nil
}

func withRuntime(fn func(cmd *cobra.Command, r *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		r, err := setup(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer r.Close()
		return fn(cmd, r, args)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.L.WithError(err).Error("meal-skill failed")
		os.Exit(1)
	}
}
