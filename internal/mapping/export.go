package mapping

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Gunoch/anonimatizacao/internal/detect"
)

// exportVersion identifies the on-disk mapping format.
const exportVersion = "1.0"

// exportSchema is the JSON Schema every imported mapping file must satisfy
// before any entry is trusted. Structural problems become a DataError;
// nothing partial is ever loaded.
const exportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Anonymization Mapping Table",
  "type": "object",
  "required": ["version", "session_id", "mode", "entries"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string"},
    "session_id": {"type": "string", "minLength": 1},
    "mode": {"type": "string", "enum": ["REALISTIC", "PLACEHOLDER"]},
    "created_at": {"type": "string"},
    "entries": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["original", "synthetic", "category"],
        "additionalProperties": false,
        "properties": {
          "original": {"type": "string", "minLength": 1},
          "synthetic": {"type": "string", "minLength": 1},
          "category": {
            "type": "string",
            "enum": ["PERSON", "ADDRESS", "EMAIL", "PHONE", "ID_NUMBER", "ORG", "OTHER"]
          },
          "first_seen_offset": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

type exportFile struct {
	Version   string    `json:"version"`
	SessionID string    `json:"session_id"`
	Mode      Mode      `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	Entries   []Entry   `json:"entries"`
}

// MarshalJSON serializes the table in the export format.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(exportFile{
		Version:   exportVersion,
		SessionID: t.sessionID,
		Mode:      t.mode,
		CreatedAt: t.createdAt,
		Entries:   t.Entries(),
	}, "", "  ")
}

// UnmarshalTable parses and validates an exported mapping file. Any
// structural invalidity, a synthetic assigned to two different originals
// included, is a DataError naming the source.
func UnmarshalTable(data []byte, source string) (*Table, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(exportSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, &DataError{Source: source, Err: fmt.Errorf("schema validation: %w", err)}
	}
	if !result.Valid() {
		var msg string
		for _, verr := range result.Errors() {
			msg += fmt.Sprintf("- %s\n", verr)
		}
		return nil, &DataError{Source: source, Err: fmt.Errorf("schema violations:\n%s", msg)}
	}

	var f exportFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &DataError{Source: source, Err: err}
	}
	if f.Version != exportVersion {
		return nil, &DataError{Source: source, Err: fmt.Errorf("unsupported mapping version %q", f.Version)}
	}

	t := NewTable(f.SessionID, f.Mode)
	if !f.CreatedAt.IsZero() {
		t.createdAt = f.CreatedAt
	}
	seen := make(map[string]tableKey, len(f.Entries))
	for _, e := range f.Entries {
		key := tableKey{e.Original, e.Category}
		if _, dup := t.entries[key]; dup {
			return nil, &DataError{Source: source,
				Err: fmt.Errorf("duplicate entry for %q (%s)", e.Original, e.Category)}
		}
		if prev, dup := seen[e.Synthetic]; dup && prev != key {
			return nil, &DataError{Source: source,
				Err: fmt.Errorf("synthetic %q assigned to more than one original", e.Synthetic)}
		}
		seen[e.Synthetic] = key
		t.entries[key] = e
		t.inUse[e.Synthetic] = struct{}{}
	}
	return t, nil
}

// The schema enum above must track the category set.
var _ = []detect.Category{
	detect.CategoryPerson, detect.CategoryAddress, detect.CategoryEmail,
	detect.CategoryPhone, detect.CategoryIDNumber, detect.CategoryOrg,
	detect.CategoryOther,
}
