package extract

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// Extractor turns one successful response body into a flat Record. The only
// failure mode is an unparseable body; resolving the declared fields is
// total once the body decodes.
type Extractor interface {
	Extract(identifier string, body []byte) (*Record, error)
}

// FieldSpec is one entry of the ordered field declaration list. The
// concrete kinds are Path, Selector and Derive.
type FieldSpec interface {
	FieldName() string
}

// Path declares a field read from a decoded JSON body via a jsonpath
// query, e.g. "$.product.priceData.salePrice". An absent segment resolves
// to the missing sentinel, never an error.
type Path struct {
	Name string
	Path string
}

func (f Path) FieldName() string { return f.Name }

// Selector declares a field read from an HTML body as the text of the
// first node matching a CSS selector.
type Selector struct {
	Name     string
	Selector string
	// Numeric strips currency and grouping symbols from the text and
	// parses it as a number.
	Numeric bool
}

func (f Selector) FieldName() string { return f.Name }

// DeriveFunc computes a field from the partially built record, i.e. the
// fields declared before it. Implementations must resolve missing
// dependencies to Missing or false, never panic.
type DeriveFunc func(*Record) Value

// Derive declares a computed field.
type Derive struct {
	Name string
	Fn   DeriveFunc
}

func (f Derive) FieldName() string { return f.Name }

// JSONExtractor resolves Path and Derive fields against a JSON object
// body. Selector fields resolve to Missing; they only make sense for HTML.
type JSONExtractor struct {
	Fields []FieldSpec
}

func (e JSONExtractor) Extract(identifier string, body []byte) (*Record, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}

	record := NewRecord(identifier)
	for _, field := range e.Fields {
		switch field := field.(type) {
		case Path:
			record.Set(field.Name, lookupPath(data, field.Path))
		case Derive:
			record.Set(field.Name, runDerive(field.Fn, record))
		default:
			record.Set(field.FieldName(), Missing)
		}
	}
	return record, nil
}

func lookupPath(data any, path string) Value {
	result, err := jsonpath.Get(path, data)
	if err != nil {
		// absent segment, not a failure
		return Missing
	}
	return FromAny(result)
}

// runDerive shields the batch from a misbehaving derive function: a panic
// resolves the field to Missing instead of crossing the per-item boundary.
func runDerive(fn DeriveFunc, record *Record) (v Value) {
	defer func() {
		if recover() != nil {
			v = Missing
		}
	}()
	if fn == nil {
		return Missing
	}
	return fn(record)
}
