// Package dialog holds the skill's spoken vocabulary: intent phrases,
// response templates and yes/no words.
package dialog

import (
	"embed"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed locale/*.yaml
var localeFS embed.FS

// DefaultLang is the language bundled with the skill.
const DefaultLang = "en-us"

// Answer is the interpretation of a yes/no reply.
type Answer int

const (
	Unknown Answer = iota
	Yes
	No
)

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// Vocabulary is one language's phrases and templates.
type Vocabulary struct {
	Intents map[string][]string `yaml:"intents"`
	Dialogs map[string][]string `yaml:"dialogs"`
	Yes     []string            `yaml:"yes"`
	No      []string            `yaml:"no"`

	pick func(n int) int
}

// Load reads the bundled vocabulary for lang.
func Load(lang string) (*Vocabulary, error) {
	data, err := localeFS.ReadFile("locale/" + lang + ".yaml")
	if err != nil {
		return nil, errors.Wrapf(err, "no vocabulary for %q", lang)
	}
	return Parse(data)
}

// MustLoad is Load for the bundled default language.
func MustLoad() *Vocabulary {
	v, err := Load(DefaultLang)
	if err != nil {
		panic(err)
	}
	return v
}

// Parse decodes a vocabulary document.
func Parse(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "failed to parse vocabulary")
	}
	for name, lines := range v.Dialogs {
		if len(lines) == 0 {
			return nil, errors.Errorf("dialog %q has no lines", name)
		}
	}
	v.pick = rand.Intn
	return &v, nil
}

// WithPicker returns a copy that chooses template lines with pick.
func (v *Vocabulary) WithPicker(pick func(n int) int) *Vocabulary {
	c := *v
	c.pick = pick
	return &c
}

// IntentNames lists the intents in a stable order.
func (v *Vocabulary) IntentNames() []string {
	names := make([]string, 0, len(v.Intents))
	for name := range v.Intents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render picks a line of the named dialog and fills its {key} placeholders.
// Unknown dialogs render as their name so a missing line is audible rather
// than silent.
func (v *Vocabulary) Render(name string, data map[string]any) string {
	lines := v.Dialogs[name]
	if len(lines) == 0 {
		return strings.ReplaceAll(name, ".", " ")
	}
	line := lines[v.pick(len(lines))]
	for k, val := range data {
		line = strings.ReplaceAll(line, "{"+k+"}", fmt.Sprint(val))
	}
	return line
}

// ParseYesNo classifies an utterance. A reply containing a no-word wins
// over one containing a yes-word ("yes, no wait" is treated as no).
func (v *Vocabulary) ParseYesNo(utterance string) Answer {
	words := strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			return unicode.ToLower(r)
		}
		return ' '
	}, utterance))
	if len(words) == 0 {
		return Unknown
	}
	u := " " + strings.Join(words, " ") + " "
	for _, w := range v.No {
		if strings.Contains(u, " "+w+" ") {
			return No
		}
	}
	for _, w := range v.Yes {
		if strings.Contains(u, " "+w+" ") {
			return Yes
		}
	}
	return Unknown
}
