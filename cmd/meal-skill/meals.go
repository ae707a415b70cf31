package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"meal-skill/internal/skill"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Suggest a random meal",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, r *runtime, _ []string) error {
		return r.runIntent(cmd.Context(), skill.IntentPlan)
	}),
}

var addCmd = &cobra.Command{
	Use:   "add [meal...]",
	Short: "Add a meal to the list",
	Long: `Add a meal to the list. Without arguments you are asked for the meal.

Examples:
  meal-skill add Fish tacos
  meal-skill add`,
	RunE: withRuntime(func(cmd *cobra.Command, r *runtime, args []string) error {
		if len(args) > 0 {
			r.host.Queue(strings.Join(args, " "))
		}
		return r.runIntent(cmd.Context(), skill.IntentAdd)
	}),
}

var removeCmd = &cobra.Command{
	Use:   "remove [meal...]",
	Short: "Remove the closest matching meal after confirmation",
	Long: `Remove a meal. The closest stored meal to what you type is chosen and
you are asked to confirm it, unless --yes is given.

Examples:
  meal-skill remove spaghetti
  meal-skill remove chicken soup --yes`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); yes && len(args) == 0 {
			return errors.New("--yes needs the meal to remove")
		}
		return nil
	},
	RunE: withRuntime(func(cmd *cobra.Command, r *runtime, args []string) error {
		if len(args) > 0 {
			r.host.Queue(strings.Join(args, " "))
			// the confirmation follows the query it confirms
			if yes, _ := cmd.Flags().GetBool("yes"); yes {
				r.host.Queue("yes")
			}
		}
		return r.runIntent(cmd.Context(), skill.IntentRemove)
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Read out every meal",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, r *runtime, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); yes {
			r.host.Queue("yes")
		}
		return r.runIntent(cmd.Context(), skill.IntentList)
	}),
}

func init() {
	removeCmd.Flags().BoolP("yes", "y", false, "Confirm the removal without asking")
	listCmd.Flags().BoolP("yes", "y", false, "List long meal lists without asking")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)
}
