package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// TimeoutNERCall bounds a single sidecar round trip.
const TimeoutNERCall = 30 * time.Second

// nerDisabledPipes lists the sidecar pipeline stages switched off for entity
// recognition. Tagger and parser add nothing to NER output but their
// tokenization side effects are what cause boundary drift, so they stay off.
var nerDisabledPipes = []string{"tagger", "parser", "lemmatizer"}

// NERClient wraps the statistical entity-recognition model, served by an
// HTTP sidecar (a spaCy pt_core_news model). Deterministic for a fixed
// model and input. Safe for concurrent use; the loaded model behind the
// sidecar is read-only shared state.
type NERClient struct {
	url    string
	client *http.Client
}

// NewNERClient creates a client pointing at the sidecar base URL
// (e.g. "http://localhost:8001").
func NewNERClient(baseURL string) *NERClient {
	return &NERClient{
		url:    baseURL + "/ents",
		client: &http.Client{Timeout: TimeoutNERCall},
	}
}

type nerRequest struct {
	Text         string   `json:"text"`
	DisablePipes []string `json:"disable_pipes"`
}

type nerResponse struct {
	Entities []nerEntity `json:"entities"`
}

type nerEntity struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// nerLabelCategory maps the model's coarse labels onto the closed category
// set. Labels outside this table are ignored rather than guessed at.
var nerLabelCategory = map[string]Category{
	"PER":    CategoryPerson,
	"PERSON": CategoryPerson,
	"LOC":    CategoryAddress,
	"GPE":    CategoryAddress,
	"ORG":    CategoryOrg,
	"MISC":   CategoryOther,
}

// Detect sends text to the sidecar and returns model-sourced spans. An
// unreachable sidecar or non-200 status returns ErrModelUnavailable so the
// caller can degrade to pattern-only detection. Entities whose reported
// offsets do not reproduce their text against the original input are
// dropped with a warning: the offset contract is byte-exact or nothing.
func (c *NERClient) Detect(ctx context.Context, text string) ([]Span, error) {
	ctx, span := tracer.Start(ctx, "detect.ner")
	defer span.End()

	body, err := json.Marshal(nerRequest{Text: text, DisablePipes: nerDisabledPipes})
	if err != nil {
		return nil, fmt.Errorf("marshalling NER request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, TimeoutNERCall)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating NER request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrModelUnavailable, c.url, resp.StatusCode)
	}

	var result nerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding NER response: %w", err)
	}

	spans := make([]Span, 0, len(result.Entities))
	for _, ent := range result.Entities {
		category, ok := nerLabelCategory[ent.Label]
		if !ok {
			continue
		}
		if ent.Start < 0 || ent.End > len(text) || ent.Start >= ent.End {
			log.Warn().Int("start", ent.Start).Int("end", ent.End).Str("label", ent.Label).
				Msg("NER entity offsets out of range, dropping")
			continue
		}
		if text[ent.Start:ent.End] != ent.Text {
			log.Warn().Str("label", ent.Label).Str("entity", ent.Text).
				Msg("NER entity offsets do not match original text, dropping")
			continue
		}

		score := ent.Score
		if score == 0 {
			score = 1.0
		}
		spans = append(spans, Span{
			Start:      ent.Start,
			End:        ent.End,
			Category:   category,
			Source:     SourceModel,
			Text:       ent.Text,
			Confidence: score,
		})
	}

	span.SetAttributes(attribute.Int("detect.ner_spans", len(spans)))
	return spans, nil
}
