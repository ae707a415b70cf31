package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-skill/internal/meals"
	"meal-skill/internal/metrics"
)

func newTestRuntime(t *testing.T, input string) (*runtime, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	t.Setenv("MEAL_SKILL_DATA_DIR", t.TempDir())

	var out bytes.Buffer
	r, err := setup(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, &out
}

func TestSetupSeedsDefaults(t *testing.T) {
	r, _ := newTestRuntime(t, "")

	data, err := os.ReadFile(filepath.Join(r.cfg.DataDir, meals.DefaultFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"meals": ["Spaghetti and meatballs", "Toasted sandwiches and tomato soup", "Chicken noodle soup"]}`, string(data))
	assert.FileExists(t, r.cfg.DatabasePath)
}

func TestChat(t *testing.T) {
	ctx := context.Background()
	r, out := newTestRuntime(t, strings.Join([]string{
		"add a meal",
		"Pad thai",
		"sing me a song",
		"remove a meal",
		"pad thai",
		"yes",
		"exit",
		"list my meals",
	}, "\n")+"\n")

	require.NoError(t, chat(ctx, r))

	text := out.String()
	assert.Contains(t, text, "Okay, I've added Pad thai to your list of meals. Yum!")
	assert.Contains(t, text, "Sorry, I didn't catch that.")
	assert.Contains(t, text, "Just to confirm, we're removing Pad thai, right?")
	assert.Contains(t, text, "Ok, I won't recommend that anymore.")
	assert.NotContains(t, text, "here are all your meal options")

	counts, err := r.metrics.IntentCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"add.meal": 1, "remove.meal": 1}, counts)
}

func TestRunIntentReportsFailure(t *testing.T) {
	ctx := context.Background()
	r, out := newTestRuntime(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(r.cfg.DataDir, meals.DefaultFile), []byte("{"), 0644))

	err := r.runIntent(ctx, "plan.meal")
	require.Error(t, err)
	assert.Contains(t, out.String(), "Sorry, something went wrong with your meal list.")
}

func TestPrintMetrics(t *testing.T) {
	var buf bytes.Buffer
	printMetrics(&buf,
		[]metrics.DailyUsage{{Date: "2026-10-14", Executions: 4, Failures: 1, AvgLatencyMS: 3}},
		map[string]int{"plan.meal": 3, "add.meal": 1},
		metrics.SysHealth{AllocMB: 1, SysMB: 8, Goroutines: 3, DataDiskSize: "1.0 KiB"},
	)

	out := buf.String()
	assert.Contains(t, out, "DATE")
	assert.Contains(t, out, "2026-10-14")
	assert.Less(t, strings.Index(out, "add.meal"), strings.Index(out, "plan.meal"))
	assert.Contains(t, out, "Disk Data: 1.0 KiB")
}

func executeRoot(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("MEAL_SKILL_DATA_DIR", t.TempDir())
	t.Cleanup(func() {
		removeCmd.Flags().Set("yes", "false")
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetOut(&out)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRemoveCommand(t *testing.T) {
	t.Run("YesWithMealSkipsConfirmation", func(t *testing.T) {
		out, err := executeRoot(t, "", "remove", "spaghetti", "--yes")
		require.NoError(t, err)
		assert.Contains(t, out, "> spaghetti\n")
		assert.Contains(t, out, "Just to confirm, we're removing Spaghetti and meatballs, right?\n> yes\n")
		assert.Contains(t, out, "Ok, I won't recommend that anymore.")

		data, err := os.ReadFile(filepath.Join(os.Getenv("MEAL_SKILL_DATA_DIR"), meals.DefaultFile))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "Spaghetti and meatballs")
	})

	t.Run("YesWithoutMealIsRejected", func(t *testing.T) {
		out, err := executeRoot(t, "no\n", "remove", "--yes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--yes needs the meal to remove")
		assert.NotContains(t, out, "Just to confirm")

		_, statErr := os.Stat(filepath.Join(os.Getenv("MEAL_SKILL_DATA_DIR"), meals.DefaultFile))
		assert.True(t, os.IsNotExist(statErr), "nothing runs before the arguments are accepted")
	})

	t.Run("PromptsForMealAndConfirmation", func(t *testing.T) {
		out, err := executeRoot(t, "chicken soup\nno\n", "remove")
		require.NoError(t, err)
		assert.Contains(t, out, "Just to confirm, we're removing Chicken noodle soup, right?")
		assert.NotContains(t, out, "Ok, I won't recommend that anymore.")
	})
}
