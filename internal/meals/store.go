// Package meals owns the user's meal list and its JSON document.
package meals

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"slices"

	"github.com/pkg/errors"

	"meal-skill/internal/logger"
)

// DefaultFile is the document name used when none is configured.
const DefaultFile = "meals.json"

// DefaultListThreshold is the list length above which listing asks first.
const DefaultListThreshold = 15

// DefaultMeals seeds a fresh document.
var DefaultMeals = []string{
	"Spaghetti and meatballs",
	"Toasted sandwiches and tomato soup",
	"Chicken noodle soup",
}

// Sandbox is the file area the document lives in.
type Sandbox interface {
	Exists(name string) bool
	Open(name string) (io.ReadCloser, error)
	WriteFile(name string, fn func(w io.Writer) error) error
}

// Matcher picks the closest choice for a query and scores it in [0, 1].
type Matcher interface {
	Match(query string, choices []string) (string, float64)
}

// ConfirmRemoval is asked before the candidate is removed.
type ConfirmRemoval func(ctx context.Context, candidate string) (bool, error)

// ConfirmListing is asked before reading out a long list of count meals.
type ConfirmListing func(ctx context.Context, count int) (bool, error)

// Plan is the persisted document.
type Plan struct {
	Meals []string `json:"meals"`
}

// RemoveResult describes the outcome of a removal request.
type RemoveResult struct {
	Candidate string
	Score     float64
	Removed   bool
}

// Store holds the meal list in memory and mirrors it to a single document.
type Store struct {
	sandbox       Sandbox
	name          string
	matcher       Matcher
	minConfidence float64
	pick          func(n int) int

	meals []string
}

// Option configures a Store.
type Option func(*Store)

// WithFile overrides the document name.
func WithFile(name string) Option {
	return func(s *Store) { s.name = name }
}

// WithMinConfidence sets the score below which Remove reports ErrNoMatch.
func WithMinConfidence(score float64) Option {
	return func(s *Store) { s.minConfidence = score }
}

// WithPicker replaces the random index source used by PickRandom.
func WithPicker(pick func(n int) int) Option {
	return func(s *Store) { s.pick = pick }
}

// NewStore creates a Store. Call Initialize before use.
func NewStore(sandbox Sandbox, matcher Matcher, opts ...Option) *Store {
	s := &Store{
		sandbox: sandbox,
		name:    DefaultFile,
		matcher: matcher,
		pick:    rand.Intn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize writes the default document if none exists and loads the list.
func (s *Store) Initialize(ctx context.Context) error {
	if !s.sandbox.Exists(s.name) {
		logger.G(ctx).WithField("file", s.name).Info("creating meal list with defaults")
		if err := s.write(slices.Clone(DefaultMeals)); err != nil {
			return err
		}
	}
	_, err := s.Load(ctx)
	return err
}

// Load replaces the in-memory list with the document's content.
func (s *Store) Load(ctx context.Context) ([]string, error) {
	rc, err := s.sandbox.Open(s.name)
	if err != nil {
		return nil, &StorageError{Op: "open", Path: s.name, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &StorageError{Op: "read", Path: s.name, Err: err}
	}

	var doc struct {
		Meals *[]string `json:"meals"`
	}
	// the whole document must be one JSON object, trailing bytes included
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &StorageError{Op: "decode", Path: s.name, Err: err}
	}
	if doc.Meals == nil {
		return nil, &StorageError{Op: "decode", Path: s.name, Err: errors.New(`missing "meals" list`)}
	}

	s.meals = *doc.Meals
	if s.meals == nil {
		s.meals = []string{}
	}
	logger.G(ctx).WithField("count", len(s.meals)).Debug("loaded meals")
	return slices.Clone(s.meals), nil
}

// Save writes the whole in-memory list back to the document.
func (s *Store) Save(ctx context.Context) error {
	if err := s.write(s.meals); err != nil {
		return err
	}
	logger.G(ctx).WithField("file", s.name).Info("saved meals")
	return nil
}

func (s *Store) write(meals []string) error {
	if meals == nil {
		meals = []string{}
	}
	err := s.sandbox.WriteFile(s.name, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(Plan{Meals: meals})
	})
	if err != nil {
		return &StorageError{Op: "write", Path: s.name, Err: err}
	}
	s.meals = meals
	return nil
}

// Meals returns a copy of the in-memory list.
func (s *Store) Meals() []string {
	return slices.Clone(s.meals)
}

// PickRandom reloads the list and returns one meal chosen uniformly.
func (s *Store) PickRandom(ctx context.Context) (string, error) {
	meals, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	if len(meals) == 0 {
		return "", ErrEmptyList
	}
	return meals[s.pick(len(meals))], nil
}

// Add reloads the list, appends meal as given and saves.
func (s *Store) Add(ctx context.Context, meal string) error {
	if _, err := s.Load(ctx); err != nil {
		return err
	}
	s.meals = append(s.meals, meal)
	if err := s.Save(ctx); err != nil {
		return err
	}
	logger.G(ctx).WithField("meal", meal).Info("added meal")
	return nil
}

// Remove reloads the list, finds the closest meal to query and, once
// confirm agrees, removes its first occurrence and saves.
func (s *Store) Remove(ctx context.Context, query string, confirm ConfirmRemoval) (RemoveResult, error) {
	meals, err := s.Load(ctx)
	if err != nil {
		return RemoveResult{}, err
	}
	if len(meals) == 0 || query == "" {
		return RemoveResult{}, ErrNoMatch
	}

	candidate, score := s.matcher.Match(query, meals)
	idx := slices.Index(meals, candidate)
	if idx < 0 || score < s.minConfidence {
		return RemoveResult{}, ErrNoMatch
	}

	res := RemoveResult{Candidate: candidate, Score: score}
	logger.G(ctx).WithField("candidate", candidate).WithField("score", score).Info("confirming removal")

	ok, err := confirm(ctx, candidate)
	if err != nil {
		return res, errors.Wrap(err, "failed to confirm removal")
	}
	if !ok {
		return res, nil
	}

	s.meals = slices.Delete(s.meals, idx, idx+1)
	if err := s.Save(ctx); err != nil {
		return res, err
	}
	res.Removed = true
	return res, nil
}

// ListAll reloads the list and returns it. When it holds more than
// threshold meals, confirm decides whether it is returned at all; a nil
// confirm lists without asking.
func (s *Store) ListAll(ctx context.Context, threshold int, confirm ConfirmListing) ([]string, bool, error) {
	meals, err := s.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(meals) > threshold && confirm != nil {
		ok, err := confirm(ctx, len(meals))
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to confirm listing")
		}
		if !ok {
			return nil, false, nil
		}
	}
	return meals, true, nil
}
