package mapping

import "fmt"

// DataError reports a structurally invalid mapping table, whether found on
// disk or handed in over the import path. It fails the operation that hit
// it and nothing else; the caller's other sessions are unaffected.
type DataError struct {
	Source string
	Err    error
}

func (e *DataError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid mapping data in %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("invalid mapping data: %v", e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// Mismatch records one synthetic-looking token in a reversed document that
// no mapping entry resolves. Mismatches are collected, not fatal: the rest
// of the document still reverses.
type Mismatch struct {
	Token  string `json:"token"`
	Offset int    `json:"offset"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("unresolved token %q at offset %d", m.Token, m.Offset)
}
