// Package sink hands completed batch results to their destination: a JSON
// file, the console, or a local run-history database.
package sink

import (
	"context"

	"skufetch/lib/crawler"
)

// Sink receives the final, ordered batch result exactly once per run.
type Sink interface {
	Write(ctx context.Context, result crawler.Result) error
}
