// Package extract normalizes response bodies into flat records according
// to a declarative field spec.
package extract

import (
	"encoding/json"
	"strconv"
)

type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a scalar extracted from a response body. The zero value is the
// missing sentinel used whenever a declared field cannot be resolved;
// extraction records a Missing value instead of failing.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// Missing is the sentinel for fields that could not be resolved.
var Missing = Value{}

func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

// FromAny converts a decoded JSON scalar (or an expression result) into a
// Value. Non-scalar results collapse to Missing since records are flat.
func FromAny(v any) Value {
	switch v := v.(type) {
	case nil:
		return Missing
	case string:
		return String(v)
	case bool:
		return Bool(v)
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return Missing
		}
		return Number(n)
	default:
		return Missing
	}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Str returns the string content, or "" for any other kind.
func (v Value) Str() string {
	if v.kind != KindString {
		return ""
	}
	return v.str
}

// Num returns the numeric content, or 0 for any other kind.
func (v Value) Num() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.num
}

// Bool returns the boolean content, or false for any other kind.
func (v Value) Bool() bool {
	if v.kind != KindBool {
		return false
	}
	return v.b
}

// Native returns the value as its Go representation, with Missing as nil.
// This is the shape derive expressions evaluate against.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// MarshalJSON writes Missing as null, matching get-with-default output.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return strconv.AppendFloat(nil, v.num, 'f', -1, 64), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	default:
		return []byte("null"), nil
	}
}
