package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind discriminates the tagged union of config and condition values
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "boolean"
	KindArray  ValueKind = "array"
	KindJSON   ValueKind = "json"
)

// Value is a typed configuration or condition value. On the wire it is the
// plain JSON representation; the kind is inferred on unmarshal.
type Value struct {
	Kind ValueKind

	Str  string
	Num  float64
	Bool bool
	Arr  []Value
	Raw  json.RawMessage // json objects, kept verbatim
}

// StringValue creates a string value
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NumberValue creates a number value
func NumberValue(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

// BoolValue creates a boolean value
func BoolValue(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// ArrayValue creates an array value
func ArrayValue(elems ...Value) Value {
	return Value{Kind: KindArray, Arr: elems}
}

// JSONValue creates a value holding a raw JSON document
func JSONValue(raw json.RawMessage) Value {
	return Value{Kind: KindJSON, Raw: raw}
}

// StringArrayValue creates an array value from plain strings
func StringArrayValue(elems ...string) Value {
	arr := make([]Value, 0, len(elems))
	for _, e := range elems {
		arr = append(arr, StringValue(e))
	}
	return ArrayValue(arr...)
}

// IsZero reports whether the value is the empty/unset value
func (v Value) IsZero() bool {
	return v.Kind == ""
}

// AsString coerces the value to a string
func (v Value) AsString() (string, error) {
	switch v.Kind {
	case KindString:
		return v.Str, nil
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), nil
	case KindBool:
		return strconv.FormatBool(v.Bool), nil
	default:
		return "", fmt.Errorf("cannot coerce %s value to string", v.Kind)
	}
}

// AsNumber coerces the value to a float64
func (v Value) AsNumber() (float64, error) {
	switch v.Kind {
	case KindNumber:
		return v.Num, nil
	case KindString:
		n, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v.Str)
		}
		return n, nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot coerce %s value to number", v.Kind)
	}
}

// AsBool coerces the value to a boolean
func (v Value) AsBool() (bool, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindString:
		b, err := strconv.ParseBool(v.Str)
		if err != nil {
			return false, fmt.Errorf("value %q is not boolean", v.Str)
		}
		return b, nil
	case KindNumber:
		return v.Num != 0, nil
	default:
		return false, fmt.Errorf("cannot coerce %s value to boolean", v.Kind)
	}
}

// AsStrings coerces the value to a list of strings. Scalars become a
// single-element list.
func (v Value) AsStrings() ([]string, error) {
	if v.Kind == KindArray {
		out := make([]string, 0, len(v.Arr))
		for _, e := range v.Arr {
			s, err := e.AsString()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	s, err := v.AsString()
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

// MarshalJSON emits the plain JSON representation
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindArray:
		return json.Marshal(v.Arr)
	case KindJSON:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON infers the kind from the JSON type
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := trimLeft(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty value")
	}

	switch trimmed[0] {
	case '"':
		v.Kind = KindString
		return json.Unmarshal(data, &v.Str)
	case 't', 'f':
		v.Kind = KindBool
		return json.Unmarshal(data, &v.Bool)
	case '[':
		v.Kind = KindArray
		return json.Unmarshal(data, &v.Arr)
	case '{':
		v.Kind = KindJSON
		v.Raw = append(json.RawMessage(nil), data...)
		return nil
	case 'n':
		*v = Value{}
		return nil
	default:
		v.Kind = KindNumber
		return json.Unmarshal(data, &v.Num)
	}
}

func trimLeft(data []byte) []byte {
	for i, c := range data {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return data[i:]
		}
	}
	return nil
}

// Equal compares two values after coercing both sides to this value's kind
func (v Value) Equal(other Value) bool {
	switch v.Kind {
	case KindNumber:
		n, err := other.AsNumber()
		return err == nil && n == v.Num
	case KindBool:
		b, err := other.AsBool()
		return err == nil && b == v.Bool
	case KindString:
		s, err := other.AsString()
		return err == nil && s == v.Str
	case KindArray:
		if other.Kind != KindArray || len(other.Arr) != len(v.Arr) {
			return false
		}
		for i := range v.Arr {
			if !v.Arr[i].Equal(other.Arr[i]) {
				return false
			}
		}
		return true
	case KindJSON:
		return string(v.Raw) == string(other.Raw)
	default:
		return other.Kind == ""
	}
}
