package flow

import (
	"encoding/json"
	"fmt"
)

// ValueKind tags the closed set of session value variants. External JSON is
// converted into these at the boundary instead of flowing untyped through the
// core.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindJSON
)

// Value is a tagged session-data value.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	raw  json.RawMessage
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// JSONValue wraps an arbitrary JSON document.
func JSONValue(raw json.RawMessage) Value { return Value{kind: KindJSON, raw: raw} }

// ValueFromJSON converts a decoded JSON value into a tagged Value.
func ValueFromJSON(v any) Value {
	switch t := v.(type) {
	case string:
		return StringValue(t)
	case float64:
		return NumberValue(t)
	case bool:
		return BoolValue(t)
	case json.RawMessage:
		return JSONValue(t)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return StringValue(fmt.Sprintf("%v", v))
		}
		return JSONValue(raw)
	}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// String returns the string form of the value. Non-string variants format
// their payload.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	default:
		return string(v.raw)
	}
}

// Number returns the numeric payload and whether the value is a number.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean payload and whether the value is a bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// JSON returns the raw JSON payload and whether the value is a JSON document.
func (v Value) JSON() (json.RawMessage, bool) { return v.raw, v.kind == KindJSON }

// MarshalJSON emits the underlying value without the tag.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		if v.raw == nil {
			return []byte("null"), nil
		}
		return v.raw, nil
	}
}

// UnmarshalJSON re-tags a raw JSON value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch t := probe.(type) {
	case string:
		*v = StringValue(t)
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	default:
		*v = JSONValue(append(json.RawMessage(nil), data...))
	}
	return nil
}

// SessionData is the merged key-value store carried across navigation.
type SessionData map[string]Value

// Merge copies the entries of other into d, overwriting existing keys.
func (d SessionData) Merge(other SessionData) {
	for k, v := range other {
		d[k] = v
	}
}

// Clone returns an independent copy of the session data.
func (d SessionData) Clone() SessionData {
	out := make(SessionData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
