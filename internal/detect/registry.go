package detect

import (
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/Gunoch/anonimatizacao/patterns"
)

// RecognizerFile is the top-level YAML structure for a recognizer config file.
// Mirrors Presidio's recognizer registry YAML format.
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig is one named recognizer with local extensions: the closed
// PII category it reports and an optional checksum gate.
type RecognizerConfig struct {
	Name               string            `yaml:"name" json:"name"`
	SupportedEntity    string            `yaml:"supported_entity" json:"supported_entity"`
	Category           string            `yaml:"category" json:"category"`
	Checksum           string            `yaml:"checksum,omitempty" json:"checksum,omitempty"`
	Enabled            *bool             `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns           []PatternConfig   `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	SupportedLanguages []LanguageContext `yaml:"supported_languages,omitempty" json:"supported_languages,omitempty"`
}

// PatternConfig is a single regex pattern within a recognizer.
type PatternConfig struct {
	Name  string  `yaml:"name" json:"name"`
	Regex string  `yaml:"regex" json:"regex"`
	Score float64 `yaml:"score" json:"score"`
}

// LanguageContext holds context words for a specific language.
type LanguageContext struct {
	Language string   `yaml:"language" json:"language"`
	Context  []string `yaml:"context,omitempty" json:"context,omitempty"`
}

// isEnabled returns true if the recognizer is enabled (defaults to true when nil).
func (r *RecognizerConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// contextWords flattens context words across all configured languages.
func (r *RecognizerConfig) contextWords() []string {
	var words []string
	for _, lc := range r.SupportedLanguages {
		words = append(words, lc.Context...)
	}
	return words
}

// ParseRecognizerFile parses recognizer YAML bytes into a RecognizerFile.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return &rf, nil
}

// LoadRecognizerFile reads and parses a recognizer YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing override file as a no-op.
func LoadRecognizerFile(path string) (*RecognizerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &ConfigError{Err: err}
	}
	return ParseRecognizerFile(data)
}

// DefaultRecognizers returns the built-in recognizers parsed from the
// embedded pii_br.yaml. This is the first layer in the merge chain.
func DefaultRecognizers() ([]RecognizerConfig, error) {
	rf, err := ParseRecognizerFile(patterns.PIIBRYAML())
	if err != nil {
		return nil, err
	}
	return rf.Recognizers, nil
}

// MergeRecognizers layers recognizer lists: defaults first, then overrides.
// Later layers replace earlier ones by matching on the recognizer Name
// field; new recognizers are appended.
func MergeRecognizers(layers ...[]RecognizerConfig) []RecognizerConfig {
	index := make(map[string]int)
	var merged []RecognizerConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, rc)
			}
		}
	}

	return merged
}

// PIIPattern is a compiled, ready-to-use detection pattern.
type PIIPattern struct {
	Name         string
	Entity       string
	Category     Category
	Pattern      *regexp.Regexp
	Score        float64
	ContextWords []string
	Checksum     checksumFunc
}

// CompilePatterns converts recognizer configs into the compiled []PIIPattern
// slice used by the Scanner. Disabled recognizers are skipped. A bad regex,
// unknown category, or unknown checksum name is a configuration error
// reported with the offending recognizer and pattern names.
func CompilePatterns(recognizers []RecognizerConfig) ([]PIIPattern, error) {
	var compiled []PIIPattern

	for _, rec := range recognizers {
		if !rec.isEnabled() {
			continue
		}

		category, err := ParseCategory(rec.Category)
		if err != nil {
			return nil, &ConfigError{Recognizer: rec.Name, Err: err}
		}

		checksum, err := checksumByName(rec.Checksum)
		if err != nil {
			return nil, &ConfigError{Recognizer: rec.Name, Err: err}
		}

		for _, p := range rec.Patterns {
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, &ConfigError{Recognizer: rec.Name, Pattern: p.Name, Err: err}
			}
			compiled = append(compiled, PIIPattern{
				Name:         rec.Name,
				Entity:       rec.SupportedEntity,
				Category:     category,
				Pattern:      re,
				Score:        p.Score,
				ContextWords: rec.contextWords(),
				Checksum:     checksum,
			})
		}
	}

	return compiled, nil
}
