package intent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-skill/internal/dialog"
	"meal-skill/internal/fuzzy"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *[]string) {
	t.Helper()
	vocab, err := dialog.Load(dialog.DefaultLang)
	require.NoError(t, err)

	d := NewDispatcher(vocab.Intents, fuzzy.NewMatcher())
	var calls []string
	for _, name := range vocab.IntentNames() {
		name := name
		d.Register(name, func(ctx context.Context) error {
			calls = append(calls, name)
			assert.NotEmpty(t, RequestID(ctx))
			return nil
		})
	}
	return d, &calls
}

func TestMatch(t *testing.T) {
	d, _ := newTestDispatcher(t)

	cases := []struct {
		utterance string
		want      string
	}{
		{"What should I eat?", "plan.meal"},
		{"hey, what's for dinner tonight", "plan.meal"},
		{"Add a new meal", "add.meal"},
		{"please remove a meal", "remove.meal"},
		{"delete a meal", "remove.meal"},
		{"List my meals", "list.meal"},
		{"what meals do i have", "list.meal"},
		{"lst my meels", "list.meal"},
	}
	for _, tc := range cases {
		t.Run(tc.utterance, func(t *testing.T) {
			m, ok := d.Match(tc.utterance)
			require.True(t, ok)
			assert.Equal(t, tc.want, m.Intent)
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		_, ok := d.Match("turn on the kitchen lights")
		assert.False(t, ok)
	})

	t.Run("Empty", func(t *testing.T) {
		_, ok := d.Match("  ?! ")
		assert.False(t, ok)
	})
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("RunsHandler", func(t *testing.T) {
		d, calls := newTestDispatcher(t)
		require.NoError(t, d.Dispatch(ctx, "suggest a meal"))
		assert.Equal(t, []string{"plan.meal"}, *calls)
	})

	t.Run("UnknownIntent", func(t *testing.T) {
		d, calls := newTestDispatcher(t)
		assert.ErrorIs(t, d.Dispatch(ctx, "sing me a song"), ErrUnknownIntent)
		assert.Empty(t, *calls)
	})

	t.Run("NoHandler", func(t *testing.T) {
		d := NewDispatcher(map[string][]string{"plan.meal": {"plan a meal"}}, fuzzy.NewMatcher())
		assert.ErrorIs(t, d.Dispatch(ctx, "plan a meal"), ErrNoHandler)
	})

	t.Run("HandlerErrorIsWrapped", func(t *testing.T) {
		d := NewDispatcher(map[string][]string{"plan.meal": {"plan a meal"}}, fuzzy.NewMatcher())
		boom := fmt.Errorf("boom")
		d.Register("plan.meal", func(context.Context) error { return boom })

		err := d.Dispatch(ctx, "plan a meal")
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "intent plan.meal")
	})

	t.Run("RequestIDsDiffer", func(t *testing.T) {
		d := NewDispatcher(nil, fuzzy.NewMatcher())
		var ids []string
		d.Register("list.meal", func(ctx context.Context) error {
			ids = append(ids, RequestID(ctx))
			return nil
		})
		require.NoError(t, d.Run(ctx, "list.meal"))
		require.NoError(t, d.Run(ctx, "list.meal"))
		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1])
	})

	assert.Equal(t, "", RequestID(ctx))
}
