package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-skill/internal/dialog"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func newTestHost(input string) (*Host, *bytes.Buffer) {
	var out bytes.Buffer
	return NewHost(strings.NewReader(input), &out, dialog.MustLoad()), &out
}

func TestHost(t *testing.T) {
	ctx := context.Background()

	t.Run("Speak", func(t *testing.T) {
		h, out := newTestHost("")
		require.NoError(t, h.Speak(ctx, "How about Pho?"))
		assert.Equal(t, "How about Pho?\n", out.String())
	})

	t.Run("GetResponse", func(t *testing.T) {
		h, out := newTestHost("  Fish tacos  \n")
		resp, err := h.GetResponse(ctx, "What meal would you like to add?")
		require.NoError(t, err)
		assert.Equal(t, "Fish tacos", resp)
		assert.Equal(t, "What meal would you like to add?\n> ", out.String())
	})

	t.Run("GetResponse-EOF", func(t *testing.T) {
		h, _ := newTestHost("")
		resp, err := h.GetResponse(ctx, "What meal?")
		require.NoError(t, err)
		assert.Equal(t, "", resp)
	})

	t.Run("AskYesNo", func(t *testing.T) {
		h, _ := newTestHost("yeah\nnope\nmaybe\n")
		for _, want := range []dialog.Answer{dialog.Yes, dialog.No, dialog.Unknown} {
			got, err := h.AskYesNo(ctx, "Sure?")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("Queue", func(t *testing.T) {
		h, out := newTestHost("typed\n")
		h.Queue("Fish tacos", "yes")

		resp, err := h.GetResponse(ctx, "What meal?")
		require.NoError(t, err)
		assert.Equal(t, "Fish tacos", resp)

		answer, err := h.AskYesNo(ctx, "Sure?")
		require.NoError(t, err)
		assert.Equal(t, dialog.Yes, answer)

		resp, err = h.GetResponse(ctx, "Another?")
		require.NoError(t, err)
		assert.Equal(t, "typed", resp)
		assert.Equal(t, "What meal?\n> Fish tacos\nSure?\n> yes\nAnother?\n> ", out.String())
	})

	t.Run("CancelledContext", func(t *testing.T) {
		h, _ := newTestHost("yes\n")
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := h.ReadLine(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
