package extract

import (
	"bytes"
	"encoding/json"
)

// key under which the originating identifier is serialized
const identifierKey = "id"

// Record is the flat, ordered mapping of declared field names to extracted
// values for one identifier. Records are created during extraction and not
// mutated afterwards.
type Record struct {
	Identifier string

	names  []string
	values map[string]Value
}

func NewRecord(identifier string) *Record {
	return &Record{
		Identifier: identifier,
		values:     map[string]Value{},
	}
}

// Set stores a field value, remembering first-set order for serialization.
func (r *Record) Set(name string, v Value) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns the value for name, or the missing sentinel when the field
// was never declared or set.
func (r *Record) Get(name string) Value {
	v, ok := r.values[name]
	if !ok {
		return Missing
	}
	return v
}

// Names returns the field names in declaration order.
func (r *Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Record) Len() int { return len(r.names) }

// Equal reports whether two records hold the same identifier and the same
// fields in the same order. go-cmp picks this up for diffs.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Identifier != o.Identifier || len(r.names) != len(o.names) {
		return false
	}
	for i, name := range r.names {
		if o.names[i] != name || r.values[name] != o.values[name] {
			return false
		}
	}
	return true
}

// MarshalJSON emits a flat object: the identifier first, then every field
// in declaration order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writePair := func(name string, value any) error {
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		val, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	if err := writePair(identifierKey, r.Identifier); err != nil {
		return nil, err
	}
	for _, name := range r.names {
		buf.WriteByte(',')
		if err := writePair(name, r.values[name]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
