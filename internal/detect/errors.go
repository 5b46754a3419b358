package detect

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable signals that the NER model (or its sidecar) cannot be
// reached. Callers degrade to pattern-only detection and surface a warning;
// they do not abort the session.
var ErrModelUnavailable = errors.New("NER model unavailable")

// ConfigError reports a bad recognizer or stop-term configuration. It is
// fatal at startup: a malformed pattern is never a per-document failure.
type ConfigError struct {
	Recognizer string // recognizer name, if applicable
	Pattern    string // pattern name within the recognizer, if applicable
	Err        error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Recognizer != "" && e.Pattern != "":
		return fmt.Sprintf("recognizer %q pattern %q: %v", e.Recognizer, e.Pattern, e.Err)
	case e.Recognizer != "":
		return fmt.Sprintf("recognizer %q: %v", e.Recognizer, e.Err)
	default:
		return fmt.Sprintf("detector configuration: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }
