// Package skill wires the meal store to a voice host: it turns the four
// meal intents into prompts, confirmations and spoken replies.
package skill

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"meal-skill/internal/dialog"
	"meal-skill/internal/intent"
	"meal-skill/internal/logger"
	"meal-skill/internal/meals"
	"meal-skill/internal/metrics"
)

// Intent names handled by the skill.
const (
	IntentPlan   = "plan.meal"
	IntentAdd    = "add.meal"
	IntentRemove = "remove.meal"
	IntentList   = "list.meal"
)

// Host is what the assistant runtime provides to the skill.
type Host interface {
	// Speak says utterance to the user.
	Speak(ctx context.Context, utterance string) error
	// GetResponse says prompt and waits for a reply. No reply is "".
	GetResponse(ctx context.Context, prompt string) (string, error)
	// AskYesNo says question and classifies the reply.
	AskYesNo(ctx context.Context, question string) (dialog.Answer, error)
}

// Recorder stores one row per handled intent.
type Recorder interface {
	Record(ctx context.Context, e metrics.IntentExecution) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, metrics.IntentExecution) error { return nil }

// MealSkill handles the meal intents.
type MealSkill struct {
	host          Host
	store         *meals.Store
	vocab         *dialog.Vocabulary
	recorder      Recorder
	listThreshold int
}

// Option configures a MealSkill.
type Option func(*MealSkill)

// WithRecorder records intent executions to r.
func WithRecorder(r Recorder) Option {
	return func(s *MealSkill) { s.recorder = r }
}

// WithListThreshold sets how many meals can be listed without asking.
func WithListThreshold(n int) Option {
	return func(s *MealSkill) { s.listThreshold = n }
}

// New creates a MealSkill.
func New(host Host, store *meals.Store, vocab *dialog.Vocabulary, opts ...Option) *MealSkill {
	s := &MealSkill{
		host:          host,
		store:         store,
		vocab:         vocab,
		recorder:      nopRecorder{},
		listThreshold: meals.DefaultListThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize prepares the meal document.
func (s *MealSkill) Initialize(ctx context.Context) error {
	return s.store.Initialize(ctx)
}

// Register binds the skill's handlers on d.
func (s *MealSkill) Register(d *intent.Dispatcher) {
	d.Register(IntentPlan, s.HandlePlanMeal)
	d.Register(IntentAdd, s.HandleAddMeal)
	d.Register(IntentRemove, s.HandleRemoveMeal)
	d.Register(IntentList, s.HandleListMeals)
}

// HandlePlanMeal suggests a random meal.
func (s *MealSkill) HandlePlanMeal(ctx context.Context) (err error) {
	outcome := metrics.OutcomeOK
	defer s.track(ctx, IntentPlan, time.Now(), &outcome, &err)

	meal, err := s.store.PickRandom(ctx)
	if errors.Is(err, meals.ErrEmptyList) {
		outcome = metrics.OutcomeEmpty
		return s.say(ctx, "no.meals", nil)
	}
	if err != nil {
		return err
	}
	return s.say(ctx, "plan.meal", map[string]any{"meal": meal})
}

// HandleAddMeal asks for a meal and appends it. Failures are apologised
// for rather than returned.
func (s *MealSkill) HandleAddMeal(ctx context.Context) (err error) {
	outcome := metrics.OutcomeOK
	defer s.track(ctx, IntentAdd, time.Now(), &outcome, &err)

	meal, err := s.host.GetResponse(ctx, s.vocab.Render("add.meal", nil))
	if err != nil {
		outcome = metrics.OutcomeFailed
		return s.apologize(ctx, "add.failed", err)
	}
	if meal == "" {
		outcome = metrics.OutcomeEmpty
		return nil
	}

	log := logger.G(ctx).WithField("meal", meal)
	log.Info("adding a new meal")
	if err := s.store.Add(ctx, meal); err != nil {
		outcome = metrics.OutcomeFailed
		return s.apologize(ctx, "add.failed", err)
	}
	return s.say(ctx, "added.meal", map[string]any{"meal": meal})
}

// HandleRemoveMeal asks which meal to drop, confirms the closest match
// and removes it. Failures are apologised for rather than returned.
func (s *MealSkill) HandleRemoveMeal(ctx context.Context) (err error) {
	outcome := metrics.OutcomeOK
	defer s.track(ctx, IntentRemove, time.Now(), &outcome, &err)

	query, err := s.host.GetResponse(ctx, s.vocab.Render("remove.meal", nil))
	if err != nil {
		outcome = metrics.OutcomeFailed
		return s.apologize(ctx, "remove.failed", err)
	}

	res, err := s.store.Remove(ctx, query, func(ctx context.Context, candidate string) (bool, error) {
		answer, err := s.host.AskYesNo(ctx, s.vocab.Render("remove.confirm", map[string]any{"meal": candidate}))
		return answer == dialog.Yes, err
	})
	if err != nil {
		outcome = metrics.OutcomeFailed
		return s.apologize(ctx, "remove.failed", err)
	}
	if !res.Removed {
		outcome = metrics.OutcomeDeclined
		return s.say(ctx, "acknowledge", nil)
	}
	return s.say(ctx, "removed.meal", map[string]any{"meal": res.Candidate})
}

// HandleListMeals reads out every meal, asking first when the list is long.
func (s *MealSkill) HandleListMeals(ctx context.Context) (err error) {
	outcome := metrics.OutcomeOK
	defer s.track(ctx, IntentList, time.Now(), &outcome, &err)

	list, ok, err := s.store.ListAll(ctx, s.listThreshold, func(ctx context.Context, count int) (bool, error) {
		answer, err := s.host.AskYesNo(ctx, s.vocab.Render("list.confirm", map[string]any{"count": count}))
		// only an explicit no stops the listing
		return answer != dialog.No, err
	})
	if err != nil {
		return err
	}
	if !ok {
		outcome = metrics.OutcomeDeclined
		return s.say(ctx, "list.declined", nil)
	}
	if len(list) == 0 {
		outcome = metrics.OutcomeEmpty
		return s.say(ctx, "no.meals", nil)
	}
	if err := s.say(ctx, "list.header", nil); err != nil {
		return err
	}
	return s.host.Speak(ctx, strings.Join(list, ", "))
}

func (s *MealSkill) say(ctx context.Context, name string, data map[string]any) error {
	return s.host.Speak(ctx, s.vocab.Render(name, data))
}

// apologize logs cause and speaks the named apology. Only a failure to
// speak escapes.
func (s *MealSkill) apologize(ctx context.Context, name string, cause error) error {
	logger.G(ctx).WithError(cause).Error("meal update failed")
	return s.say(ctx, name, nil)
}

func (s *MealSkill) track(ctx context.Context, name string, start time.Time, outcome *metrics.Outcome, err *error) {
	if *err != nil {
		*outcome = metrics.OutcomeFailed
	}
	rec := metrics.IntentExecution{
		RequestID: intent.RequestID(ctx),
		Intent:    name,
		Outcome:   *outcome,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if rerr := s.recorder.Record(ctx, rec); rerr != nil {
		logger.G(ctx).WithError(rerr).Warn("failed to record intent metric")
	}
}
