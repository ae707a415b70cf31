// Package console runs the skill in a terminal: speech is printed and
// responses are read line by line.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"meal-skill/internal/dialog"
)

// Host implements skill.Host over a reader and a writer.
type Host struct {
	in     *bufio.Scanner
	out    io.Writer
	vocab  *dialog.Vocabulary
	speech *color.Color
	prompt string
	queued []string
}

// NewHost creates a Host. Speech is coloured only when out is a terminal
// that fatih/color considers colour-capable.
func NewHost(in io.Reader, out io.Writer, vocab *dialog.Vocabulary) *Host {
	return &Host{
		in:     bufio.NewScanner(in),
		out:    out,
		vocab:  vocab,
		speech: color.New(color.FgCyan),
		prompt: "> ",
	}
}

// Queue supplies answers that are used, in order, before any input is read.
func (h *Host) Queue(answers ...string) {
	h.queued = append(h.queued, answers...)
}

// Speak prints utterance.
func (h *Host) Speak(_ context.Context, utterance string) error {
	_, err := h.speech.Fprintln(h.out, utterance)
	return err
}

// GetResponse prints prompt and reads one line. End of input is "".
func (h *Host) GetResponse(ctx context.Context, prompt string) (string, error) {
	if err := h.Speak(ctx, prompt); err != nil {
		return "", err
	}
	line, ok, err := h.ReadLine(ctx)
	if err != nil || !ok {
		return "", err
	}
	return line, nil
}

// AskYesNo asks question and classifies the reply.
func (h *Host) AskYesNo(ctx context.Context, question string) (dialog.Answer, error) {
	reply, err := h.GetResponse(ctx, question)
	if err != nil {
		return dialog.Unknown, err
	}
	return h.vocab.ParseYesNo(reply), nil
}

// ReadLine shows the prompt marker and reads a trimmed line. ok is false
// at end of input.
func (h *Host) ReadLine(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	fmt.Fprint(h.out, h.prompt)
	if len(h.queued) > 0 {
		line := h.queued[0]
		h.queued = h.queued[1:]
		fmt.Fprintln(h.out, line)
		return strings.TrimSpace(line), true, nil
	}
	if !h.in.Scan() {
		if err := h.in.Err(); err != nil {
			return "", false, errors.Wrap(err, "failed to read input")
		}
		return "", false, nil
	}
	return strings.TrimSpace(h.in.Text()), true, nil
}
