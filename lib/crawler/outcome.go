package crawler

import (
	"encoding/json"

	"skufetch/lib/extract"
)

// Outcome classifies the fetch of one identifier. Exactly one outcome is
// produced per input identifier and never mutated afterwards.
type Outcome struct {
	Identifier string          `json:"id"`
	Record     *extract.Record `json:"record,omitempty"`
	// Raw is the unprocessed response body, kept only when
	// Options.KeepRawBodies is set.
	Raw json.RawMessage `json:"-"`
	// Err is empty on success, otherwise one of:
	// "http status <code>", "transport: <detail>", "unparseable body".
	Err string `json:"error,omitempty"`
}

func (o Outcome) Ok() bool { return o.Err == "" }

// Result holds one outcome per input identifier, in input order. Its
// length always equals the input length.
type Result []Outcome

type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
}

func (r Result) Summary() Summary {
	s := Summary{Attempted: len(r)}
	for _, o := range r {
		if o.Ok() {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// Failures returns the failed outcomes, preserving input order.
func (r Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r {
		if !o.Ok() {
			out = append(out, o)
		}
	}
	return out
}

// Records returns the records of the successful outcomes in input order.
// It is never nil so an empty run still serializes as [].
func (r Result) Records() []*extract.Record {
	out := make([]*extract.Record, 0, len(r))
	for _, o := range r {
		if o.Ok() {
			out = append(out, o.Record)
		}
	}
	return out
}

// RawBodies returns the retained raw bodies of successful outcomes.
func (r Result) RawBodies() []json.RawMessage {
	out := make([]json.RawMessage, 0, len(r))
	for _, o := range r {
		if o.Ok() && len(o.Raw) > 0 {
			out = append(out, o.Raw)
		}
	}
	return out
}
