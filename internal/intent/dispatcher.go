// Package intent routes user utterances to the skill's handlers.
package intent

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"meal-skill/internal/logger"
)

// DefaultThreshold is the fuzzy score an utterance needs when no phrase
// appears in it verbatim.
const DefaultThreshold = 0.6

var (
	// ErrUnknownIntent is returned when nothing matches an utterance.
	ErrUnknownIntent = errors.New("no intent matches utterance")
	// ErrNoHandler is returned for an intent without a registered handler.
	ErrNoHandler = errors.New("no handler registered for intent")
)

// Handler runs one intent to completion.
type Handler func(ctx context.Context) error

// Matcher scores an utterance against candidate phrases.
type Matcher interface {
	Match(query string, choices []string) (string, float64)
}

// Match is the outcome of classifying an utterance.
type Match struct {
	Intent string
	Phrase string
	Score  float64
}

type requestIDKey struct{}

// RequestID returns the id Dispatch assigned to the running intent.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Dispatcher maps phrases to intents and intents to handlers.
type Dispatcher struct {
	phrases   map[string][]string
	handlers  map[string]Handler
	matcher   Matcher
	threshold float64
}

// NewDispatcher builds a Dispatcher over intent name → phrases.
func NewDispatcher(phrases map[string][]string, matcher Matcher) *Dispatcher {
	normalized := make(map[string][]string, len(phrases))
	for name, list := range phrases {
		for _, p := range list {
			if p = normalize(p); p != "" {
				normalized[name] = append(normalized[name], p)
			}
		}
	}
	return &Dispatcher{
		phrases:   normalized,
		handlers:  make(map[string]Handler),
		matcher:   matcher,
		threshold: DefaultThreshold,
	}
}

// SetThreshold changes the fuzzy acceptance score.
func (d *Dispatcher) SetThreshold(score float64) {
	d.threshold = score
}

// Register binds h to the named intent.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Intents lists the registered intent names in order.
func (d *Dispatcher) Intents() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match classifies utterance. The longest phrase contained in the
// utterance wins; otherwise the best fuzzy score at or above the threshold.
func (d *Dispatcher) Match(utterance string) (Match, bool) {
	u := normalize(utterance)
	if u == "" {
		return Match{}, false
	}
	padded := " " + u + " "

	names := make([]string, 0, len(d.phrases))
	for name := range d.phrases {
		names = append(names, name)
	}
	sort.Strings(names)

	var best Match
	for _, name := range names {
		for _, p := range d.phrases[name] {
			if strings.Contains(padded, " "+p+" ") && len(p) > len(best.Phrase) {
				best = Match{Intent: name, Phrase: p, Score: 1}
			}
		}
	}
	if best.Intent != "" {
		return best, true
	}

	for _, name := range names {
		phrase, score := d.matcher.Match(u, d.phrases[name])
		if score > best.Score {
			best = Match{Intent: name, Phrase: phrase, Score: score}
		}
	}
	if best.Intent == "" || best.Score < d.threshold {
		return Match{}, false
	}
	return best, true
}

// Dispatch classifies utterance and runs the matching handler.
func (d *Dispatcher) Dispatch(ctx context.Context, utterance string) error {
	m, ok := d.Match(utterance)
	if !ok {
		logger.G(ctx).WithField("utterance", utterance).Info("no intent matched")
		return ErrUnknownIntent
	}
	return d.Run(ctx, m.Intent)
}

// Run invokes the named intent's handler under a fresh request id.
func (d *Dispatcher) Run(ctx context.Context, name string) error {
	h, ok := d.handlers[name]
	if !ok {
		return errors.Wrap(ErrNoHandler, name)
	}

	id := uuid.NewString()
	ctx = context.WithValue(ctx, requestIDKey{}, id)
	ctx = logger.WithLogger(ctx, logger.G(ctx).WithField("intent", name).WithField("request_id", id))

	logger.G(ctx).Debug("dispatching intent")
	if err := h(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("intent handler failed")
		return errors.Wrapf(err, "intent %s", name)
	}
	return nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)), " ")
}
