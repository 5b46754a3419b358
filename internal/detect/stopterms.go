package detect

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Gunoch/anonimatizacao/patterns"
)

type stopTermFile struct {
	StopTerms []string `yaml:"stop_terms"`
}

// StopTerms is a case-insensitive whitelist of terms that must never be
// treated as PII, whatever any detector says.
type StopTerms map[string]struct{}

// NewStopTerms builds a set from raw terms, lowercasing and trimming each.
func NewStopTerms(terms []string) StopTerms {
	set := make(StopTerms, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// Contains reports whether text matches a stop term exactly, ignoring case
// and surrounding whitespace.
func (st StopTerms) Contains(text string) bool {
	_, ok := st[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// DefaultStopTerms parses the embedded pt-BR stop-term list.
func DefaultStopTerms() (StopTerms, error) {
	var f stopTermFile
	if err := yaml.Unmarshal(patterns.StopTermsYAML(), &f); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return NewStopTerms(f.StopTerms), nil
}

// LoadStopTerms reads extra stop terms from a YAML file and merges them
// over the embedded defaults. A missing file is a configuration error: the
// operator named it, so silence would hide a broken whitelist.
func LoadStopTerms(path string) (StopTerms, error) {
	base, err := DefaultStopTerms()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	var f stopTermFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigError{Err: err}
	}
	for _, t := range f.StopTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			base[t] = struct{}{}
		}
	}
	return base, nil
}
