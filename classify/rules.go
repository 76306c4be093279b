package classify

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// CategoryRule is one ordered topic rule: the first rule whose keyword
// appears in the item text wins.
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// LevelBand maps a score ceiling to a pedagogical level label.
type LevelBand struct {
	Name string  `yaml:"name"`
	Max  float64 `yaml:"max"`
}

// SpeechRules configures the spoken-narration filter.
type SpeechRules struct {
	ExcludeCategories []string `yaml:"exclude_categories"`
	MinDurationSec    float64  `yaml:"min_duration_sec"`
	MaxDurationSec    float64  `yaml:"max_duration_sec"`
}

// Rules is the full versioned taxonomy loaded from rules.yaml.
type Rules struct {
	Version         int            `yaml:"version"`
	DefaultCategory string         `yaml:"default_category"`
	Categories      []CategoryRule `yaml:"categories"`
	Levels          []LevelBand    `yaml:"levels"`
	Speech          SpeechRules    `yaml:"speech_filter"`
	CommonWords     []string       `yaml:"common_words"`
}

// LoadRules parses the embedded taxonomy.
func LoadRules() (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(rulesYAML, &r); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules.yaml: %w", err)
	}
	if r.DefaultCategory == "" || len(r.Levels) == 0 {
		return Rules{}, fmt.Errorf("rules.yaml is incomplete (version %d)", r.Version)
	}
	return r, nil
}
