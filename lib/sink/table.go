package sink

import (
	"context"
	"fmt"
	"io"
	"os"

	"skufetch/lib/crawler"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders the per-identifier outcomes and a totals footer to the
// console.
type Table struct {
	// Out defaults to stdout.
	Out io.Writer
}

func (s Table) Write(ctx context.Context, result crawler.Result) error {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"#", "Identifier", "Status"})

	for i, o := range result {
		status := "ok"
		if !o.Ok() {
			status = o.Err
		}
		t.AppendRow(table.Row{i, o.Identifier, status})
	}

	summary := result.Summary()
	t.AppendFooter(table.Row{
		"",
		"attempted / succeeded / failed",
		fmt.Sprintf("%d / %d / %d", summary.Attempted, summary.Succeeded, summary.Failed),
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
