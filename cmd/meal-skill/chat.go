package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"meal-skill/internal/intent"
	"meal-skill/internal/logger"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the skill in plain language",
	Long: `Start an interactive session. Type what you would say to your assistant,
for example "what should I eat?" or "add a meal". Type "exit" or press
Ctrl-D to leave.`,
	Args: cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, r *runtime, _ []string) error {
		return chat(cmd.Context(), r)
	}),
}

func chat(ctx context.Context, r *runtime) error {
	r.host.Speak(ctx, r.vocab.Render("welcome", nil))
	for {
		line, ok, err := r.host.ReadLine(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit", "bye":
			return nil
		}

		err = r.dispatcher.Dispatch(ctx, line)
		switch {
		case err == nil:
		case errors.Is(err, intent.ErrUnknownIntent):
			r.host.Speak(ctx, r.vocab.Render("not.understood", nil))
		default:
			// one failed intent must not end the session
			logger.G(ctx).WithError(err).Error("intent failed")
			r.host.Speak(ctx, r.vocab.Render("skill.failed", nil))
		}
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
