package pipeline

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// DocumentResult pairs a document's index in the input batch with its
// outcome. Err is set when that document failed; others are unaffected.
type DocumentResult struct {
	Index  int
	Result *Result
	Err    error
}

// RunBatch anonymizes documents concurrently with at most workers in
// flight, all sharing the session's table so repeated PII across documents
// maps to the same synthetics. Results come back in input order.
func (p *Pipeline) RunBatch(ctx context.Context, session *Session, documents []string, workers int) []DocumentResult {
	ctx, span := tracer.Start(ctx, "pipeline.run_batch")
	defer span.End()

	if workers <= 0 {
		workers = 1
	}
	if workers > len(documents) {
		workers = len(documents)
	}

	results := make([]DocumentResult, len(documents))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := p.Anonymize(ctx, documents[i], session.Table())
				results[i] = DocumentResult{Index: i, Result: res, Err: err}
			}
		}()
	}

submit:
	for i := range documents {
		select {
		case jobs <- i:
		case <-ctx.Done():
			// Unsubmitted documents fail with the context error.
			for j := i; j < len(documents); j++ {
				results[j] = DocumentResult{Index: j, Err: ctx.Err()}
			}
			break submit
		}
	}
	close(jobs)
	wg.Wait()

	span.SetAttributes(
		attribute.Int("pipeline.documents", len(documents)),
		attribute.Int("pipeline.workers", workers),
	)
	return results
}
