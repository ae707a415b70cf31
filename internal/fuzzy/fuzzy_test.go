package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var meals = []string{
	"Spaghetti and meatballs",
	"Toasted sandwiches and tomato soup",
	"Chicken noodle soup",
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("Chicken Noodle  Soup", "chicken noodle soup"))
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.Equal(t, 0.0, Ratio("abc", ""))
	assert.InDelta(t, 0.75, Ratio("soup", "soap"), 1e-9)
}

func TestMatch(t *testing.T) {
	m := NewMatcher()

	cases := []struct {
		query string
		want  string
	}{
		{"chicken noodle soup", "Chicken noodle soup"},
		{"spaghetti", "Spaghetti and meatballs"},
		{"toasted sandwich", "Toasted sandwiches and tomato soup"},
		{"chiken nodle soop", "Chicken noodle soup"},
		{"meatballs", "Spaghetti and meatballs"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			got, score := m.Match(tc.query, meals)
			assert.Equal(t, tc.want, got)
			assert.Greater(t, score, 0.5)
			assert.LessOrEqual(t, score, 1.0)
		})
	}

	t.Run("ExactScoresOne", func(t *testing.T) {
		_, score := m.Match("Chicken noodle soup", meals)
		assert.Equal(t, 1.0, score)
	})

	t.Run("NoChoices", func(t *testing.T) {
		got, score := m.Match("soup", nil)
		assert.Equal(t, "", got)
		assert.Equal(t, 0.0, score)
	})

	t.Run("AlwaysReturnsClosest", func(t *testing.T) {
		got, _ := m.Match("xyz", []string{"Pho"})
		assert.Equal(t, "Pho", got)
	})

	t.Run("TiesKeepFirst", func(t *testing.T) {
		got, _ := m.Match("pho", []string{"Pho", "pho"})
		assert.Equal(t, "Pho", got)
	})
}
