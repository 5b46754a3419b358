// Package patterns provides embedded default recognizer and stop-term
// definitions for Brazilian Portuguese documents. Recognizer YAML files use
// a Presidio-compatible format with local extensions (category, checksum).
package patterns

import _ "embed"

//go:embed pii_br.yaml
var piiBRYAML []byte

//go:embed stopterms_pt_br.yaml
var stopTermsYAML []byte

// PIIBRYAML returns the embedded default PII recognizer definitions.
func PIIBRYAML() []byte { return piiBRYAML }

// StopTermsYAML returns the embedded default stop-term whitelist.
func StopTermsYAML() []byte { return stopTermsYAML }
