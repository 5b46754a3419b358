package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunoch/anonimatizacao/internal/anonymize"
	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/mapping"
)

// fakeNER returns canned spans located by substring, or a fixed error.
type fakeNER struct {
	names map[string]detect.Category
	err   error
}

func (f *fakeNER) Detect(ctx context.Context, text string) ([]detect.Span, error) {
	if f.err != nil {
		return nil, f.err
	}
	var spans []detect.Span
	for name, cat := range f.names {
		idx := strings.Index(text, name)
		if idx < 0 {
			continue
		}
		spans = append(spans, detect.Span{
			Start: idx, End: idx + len(name),
			Category: cat, Source: detect.SourceModel,
			Text: name, Confidence: 0.9,
		})
	}
	return spans, nil
}

func newTestPipeline(t *testing.T, ner NERDetector, mode mapping.Mode) *Pipeline {
	t.Helper()
	stopTerms, err := detect.DefaultStopTerms()
	require.NoError(t, err)
	return New(
		detect.MustNewScanner(),
		ner,
		detect.NewResolver(stopTerms),
		anonymize.NewEngine(anonymize.NewGenerator(mode, 17)),
	)
}

func TestAnonymizeCombinesPatternAndModelSpans(t *testing.T) {
	ner := &fakeNER{names: map[string]detect.Category{"João Silva": detect.CategoryPerson}}
	p := newTestPipeline(t, ner, mapping.ModePlaceholder)
	tbl := mapping.NewTable("sess", mapping.ModePlaceholder)

	text := "João Silva, CPF 123.456.789-00, compareceu."
	result, err := p.Anonymize(context.Background(), text, tbl)
	require.NoError(t, err)

	assert.False(t, result.Degraded)
	assert.Equal(t, "[PERSON_1], CPF [ID_NUMBER_1], compareceu.", result.Text)
	require.NoError(t, result.Spans.Validate(len(text)))
}

func TestAnonymizeDegradesWhenModelUnavailable(t *testing.T) {
	ner := &fakeNER{err: fmt.Errorf("%w: connection refused", detect.ErrModelUnavailable)}
	p := newTestPipeline(t, ner, mapping.ModePlaceholder)
	tbl := mapping.NewTable("sess", mapping.ModePlaceholder)

	result, err := p.Anonymize(context.Background(), "CPF 123.456.789-00 anotado.", tbl)
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "pattern-only")
	assert.Equal(t, "CPF [ID_NUMBER_1] anotado.", result.Text, "pattern detection must still run")
}

func TestAnonymizeFailsOnUnexpectedModelError(t *testing.T) {
	ner := &fakeNER{err: errors.New("malformed response")}
	p := newTestPipeline(t, ner, mapping.ModePlaceholder)
	tbl := mapping.NewTable("sess", mapping.ModePlaceholder)

	_, err := p.Anonymize(context.Background(), "qualquer texto", tbl)
	require.Error(t, err)
	assert.Zero(t, tbl.Len())
}

func TestAnonymizeStopTermNeverSubstituted(t *testing.T) {
	ner := &fakeNER{names: map[string]detect.Category{"Horário": detect.CategoryPerson}}
	p := newTestPipeline(t, ner, mapping.ModePlaceholder)
	tbl := mapping.NewTable("sess", mapping.ModePlaceholder)

	text := "Horário da audiência mantido."
	result, err := p.Anonymize(context.Background(), text, tbl)
	require.NoError(t, err)
	assert.Equal(t, text, result.Text)
	assert.Zero(t, tbl.Len())
}

func TestAnonymizeWithoutNERDetector(t *testing.T) {
	p := newTestPipeline(t, nil, mapping.ModePlaceholder)
	tbl := mapping.NewTable("sess", mapping.ModePlaceholder)

	result, err := p.Anonymize(context.Background(), "Email: maria@ex.com.br", tbl)
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.Contains(t, result.Text, "[EMAIL_1]")
}

func TestAnonymizeReportsProgress(t *testing.T) {
	var stages []string
	p := newTestPipeline(t, nil, mapping.ModePlaceholder).
		WithProgress(func(stage string) { stages = append(stages, stage) })

	_, err := p.Anonymize(context.Background(), "sem dados", mapping.NewTable("s", mapping.ModePlaceholder))
	require.NoError(t, err)
	assert.Equal(t, []string{StageDetect, StageResolve, StageSubstitute}, stages)
}

func TestRunBatchSharesTableAcrossDocuments(t *testing.T) {
	p := newTestPipeline(t, nil, mapping.ModePlaceholder)
	store := newTestStore(t)
	session := NewSession(store, mapping.ModePlaceholder)

	docs := []string{
		"Primeiro: CPF 123.456.789-00.",
		"Segundo: CPF 123.456.789-00 de novo.",
		"Terceiro: sem dados.",
	}
	results := p.RunBatch(context.Background(), session, docs, 2)
	require.Len(t, results, 3)
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	assert.Contains(t, results[0].Result.Text, "[ID_NUMBER_1]")
	assert.Contains(t, results[1].Result.Text, "[ID_NUMBER_1]",
		"same CPF must map to the same placeholder across documents")
	assert.Equal(t, 1, session.Table().Len())
}

func TestRunBatchCancelledContext(t *testing.T) {
	p := newTestPipeline(t, nil, mapping.ModePlaceholder)
	session := NewSession(nil, mapping.ModePlaceholder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.RunBatch(ctx, session, []string{"um", "dois"}, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
	assert.Zero(t, session.Table().Len())
}

func newTestStore(t *testing.T) *mapping.Store {
	t.Helper()
	store, err := mapping.NewStore(filepath.Join(t.TempDir(), "mappings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionSaveAndResume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := NewSession(store, mapping.ModeRealistic)
	session.Table().Insert(mapping.Entry{
		Original: "João Silva", Synthetic: "Carlos Mendes",
		Category: detect.CategoryPerson,
	})
	require.NoError(t, session.Save(ctx))

	resumed, err := ResumeSession(ctx, store, session.ID())
	require.NoError(t, err)
	syn, ok := resumed.Table().Lookup("João Silva", detect.CategoryPerson)
	require.True(t, ok)
	assert.Equal(t, "Carlos Mendes", syn)
}

func TestResumeUnknownSession(t *testing.T) {
	store := newTestStore(t)
	_, err := ResumeSession(context.Background(), store, "missing")
	require.Error(t, err)
	var dataErr *mapping.DataError
	assert.ErrorAs(t, err, &dataErr)
}
