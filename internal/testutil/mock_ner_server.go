package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
)

// NEREntity is one entity in a mock sidecar response.
type NEREntity struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// NewNERServer starts an httptest.Server that mimics the spaCy sidecar:
// POST /ents returns the entities whose text occurs verbatim in the request,
// with offsets recomputed against the request text. This keeps the offset
// contract intact no matter what document a test sends. Caller must call
// server.Close() or register t.Cleanup(server.Close).
func NewNERServer(entities []NEREntity) *httptest.Server {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ents" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var found []NEREntity
		for _, ent := range entities {
			idx := strings.Index(req.Text, ent.Text)
			if idx < 0 {
				continue
			}
			ent.Start = idx
			ent.End = idx + len(ent.Text)
			if ent.Score == 0 {
				ent.Score = 0.95
			}
			found = append(found, ent)
		}
		if found == nil {
			found = []NEREntity{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"entities": found})
	})
	return httptest.NewServer(handler)
}
