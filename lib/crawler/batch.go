package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"skufetch/lib/extract"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("crawler")

// Observer receives one advisory notification per processed identifier.
// Notifications never affect control flow.
type Observer interface {
	Observe(index int, outcome Outcome)
}

// SlogObserver logs a line per identifier, the Go version of the per-code
// progress glyphs.
type SlogObserver struct{}

func (SlogObserver) Observe(index int, o Outcome) {
	if o.Ok() {
		slog.Info("fetched", "index", index, "id", o.Identifier)
		return
	}
	slog.Warn("fetch failed", "index", index, "id", o.Identifier, "reason", o.Err)
}

type Options struct {
	// Concurrency caps in-flight requests. Values below 2 keep the
	// sequential baseline; serialization is the polite default against
	// rate limiting.
	Concurrency int
	// KeepRawBodies retains the raw body of each successful fetch on its
	// outcome, for the raw output mode.
	KeepRawBodies bool
}

// Fetcher runs the batch pipeline. The transport handle is shared
// read-only across identifiers; the caller owns closing it.
type Fetcher struct {
	Template  Template
	Extractor extract.Extractor
	Transport Transport
	Observer  Observer
	Options   Options
}

// Run fetches every identifier and classifies each outcome. It always
// returns len(identifiers) outcomes with Result[i] matching
// identifiers[i]; per-identifier failures are recorded, never propagated,
// so partial results are never discarded.
func (f Fetcher) Run(ctx context.Context, identifiers []string) Result {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.Int("identifiers", len(identifiers)))

	outcomes := make(Result, len(identifiers))
	if f.Options.Concurrency > 1 {
		f.runPool(ctx, identifiers, outcomes)
	} else {
		for i, id := range identifiers {
			outcomes[i] = f.fetchOne(ctx, i, id)
		}
	}

	summary := outcomes.Summary()
	span.SetAttributes(
		attribute.Int("succeeded", summary.Succeeded),
		attribute.Int("failed", summary.Failed),
	)
	return outcomes
}

// runPool fans identifiers out to a bounded worker pool. Each outcome is
// written into its input-index slot, so result order matches input order
// regardless of completion order.
func (f Fetcher) runPool(ctx context.Context, identifiers []string, outcomes Result) {
	workers := f.Options.Concurrency
	if workers > len(identifiers) {
		workers = len(identifiers)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				outcomes[i] = f.fetchOne(ctx, i, identifiers[i])
			}
		}()
	}

	for i := range identifiers {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
}

func (f Fetcher) fetchOne(ctx context.Context, index int, identifier string) Outcome {
	ctx, span := tracer.Start(ctx, "fetchOne")
	defer span.End()
	span.SetAttributes(attribute.String("id", identifier))

	outcome := f.classify(ctx, identifier)
	if !outcome.Ok() {
		span.SetStatus(codes.Error, outcome.Err)
	}

	if f.Observer != nil {
		f.Observer.Observe(index, outcome)
	}
	return outcome
}

// classify is the per-identifier boundary: every failure mode below it is
// converted into a tagged outcome and none crosses into the batch loop.
func (f Fetcher) classify(ctx context.Context, identifier string) Outcome {
	request := f.Template.Bind(identifier)

	response, err := f.Transport.Issue(ctx, request.URL, request.Headers)
	if err != nil {
		return Outcome{Identifier: identifier, Err: fmt.Sprintf("transport: %s", err)}
	}
	if response.Status != http.StatusOK {
		return Outcome{Identifier: identifier, Err: fmt.Sprintf("http status %d", response.Status)}
	}

	record, err := f.Extractor.Extract(identifier, response.Body)
	if err != nil {
		return Outcome{Identifier: identifier, Err: "unparseable body"}
	}

	outcome := Outcome{Identifier: identifier, Record: record}
	if f.Options.KeepRawBodies {
		outcome.Raw = append(json.RawMessage{}, response.Body...)
	}
	return outcome
}
