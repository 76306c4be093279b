package classify

import (
	"math"
	"strings"
	"unicode"
)

// Result carries the four classification outputs. They are always computed
// together from the same input.
type Result struct {
	Category string
	Level    string
	ILRScore float64
	Speech   bool
}

// Classifier derives topic category, ILR-style difficulty and a
// speech-vs-music decision from item text. It is stateless: the same input
// always produces the same Result.
type Classifier struct {
	rules  Rules
	common map[string]struct{}
	excl   map[string]struct{}
}

// New builds a classifier from the embedded rules file.
func New() (*Classifier, error) {
	rules, err := LoadRules()
	if err != nil {
		return nil, err
	}
	return NewWithRules(rules), nil
}

// NewWithRules builds a classifier from explicit rules (tests use this).
func NewWithRules(rules Rules) *Classifier {
	c := &Classifier{
		rules:  rules,
		common: make(map[string]struct{}, len(rules.CommonWords)),
		excl:   make(map[string]struct{}, len(rules.Speech.ExcludeCategories)),
	}
	for _, w := range rules.CommonWords {
		c.common[strings.ToLower(w)] = struct{}{}
	}
	for _, cat := range rules.Speech.ExcludeCategories {
		c.excl[cat] = struct{}{}
	}
	return c
}

// Classify scores one item. Title is always available; text and duration may
// be empty/zero and the signals degrade gracefully.
func (c *Classifier) Classify(title, text string, durationSec float64) Result {
	category := c.category(title + " " + text)
	score := c.ilrScore(title, text)
	return Result{
		Category: category,
		Level:    c.level(score),
		ILRScore: score,
		Speech:   c.speech(category, durationSec),
	}
}

// category returns the first matching topic rule, or the default.
func (c *Classifier) category(text string) string {
	lowered := strings.ToLower(text)
	for _, rule := range c.rules.Categories {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				return rule.Name
			}
		}
	}
	return c.rules.DefaultCategory
}

// level buckets a score into the configured bands.
func (c *Classifier) level(score float64) string {
	for _, band := range c.rules.Levels {
		if score < band.Max {
			return band.Name
		}
	}
	return c.rules.Levels[len(c.rules.Levels)-1].Name
}

// speech decides whether the item is predominantly spoken narration.
// Excluded categories fail outright; known durations outside the window fail;
// unknown durations pass.
func (c *Classifier) speech(category string, durationSec float64) bool {
	if _, ok := c.excl[category]; ok {
		return false
	}
	if durationSec > 0 {
		if durationSec < c.rules.Speech.MinDurationSec || durationSec > c.rules.Speech.MaxDurationSec {
			return false
		}
	}
	return true
}

// ilrScore maps three observable complexity signals onto a 0-5 scale:
// average sentence length, ratio of words outside the frequency list, and
// density of mid-sentence capitalized tokens (named entity proxy).
func (c *Classifier) ilrScore(title, text string) float64 {
	corpus := strings.TrimSpace(text)
	if corpus == "" {
		corpus = title
	}

	sentences := splitSentences(corpus)
	if len(sentences) == 0 {
		return 0
	}

	var total, rare, rareEligible, entities int
	for _, s := range sentences {
		words := tokenize(s)
		for i, w := range words {
			total++
			if runeLen(w) >= 4 {
				rareEligible++
				if _, ok := c.common[strings.ToLower(w)]; !ok {
					rare++
				}
			}
			if i > 0 && isCapitalized(w) {
				entities++
			}
		}
	}
	if total == 0 {
		return 0
	}

	avgLen := float64(total) / float64(len(sentences))
	lenScore := clamp(avgLen/30*5, 0, 5)

	var vocabScore float64
	if rareEligible > 0 {
		vocabScore = clamp(float64(rare)/float64(rareEligible)/0.7*5, 0, 5)
	}

	entityScore := clamp(float64(entities)/float64(total)/0.25*5, 0, 5)

	score := 0.4*lenScore + 0.4*vocabScore + 0.2*entityScore
	return math.Round(score*100) / 100
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '…'
	})
	sentences := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
}

func isCapitalized(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
