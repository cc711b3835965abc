package sink

import (
	"context"
	"encoding/json"
	"os"

	"skufetch/lib/crawler"
)

// JSONFile writes the successful records as an ordered JSON array, one
// flat object per record.
type JSONFile struct {
	Path string
	// Raw writes the retained raw response bodies instead of the
	// extracted records.
	Raw bool
}

func (s JSONFile) Write(ctx context.Context, result crawler.Result) error {
	var payload any
	if s.Raw {
		payload = result.RawBodies()
	} else {
		payload = result.Records()
	}

	buf, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, buf, 0644)
}
