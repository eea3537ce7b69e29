package scedump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which member of the Value variant is populated.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a setting value in its most natural type: a 64-bit signed
// integer, a boolean or a raw string.
type Value struct {
	kind Kind
	i    int64
	b    bool
	s    string
}

// IntValue returns an integer Value.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// BoolValue returns a boolean Value.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// StringValue returns a string Value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer held by v.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Str returns the string held by v.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Interface returns the held value as int64, bool or string, or nil for the
// zero Value.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindBool:
		return v.b
	case KindString:
		return v.s
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Equal reports whether v and o hold the same variant and value.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.Interface() == o.Interface()
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts a JSON number, boolean or string. Numbers must be
// integral.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return fmt.Errorf("value %s is not a 64-bit integer", t)
		}
		*v = IntValue(n)
	case bool:
		*v = BoolValue(t)
	case string:
		*v = StringValue(t)
	case nil:
		*v = Value{}
	default:
		return fmt.Errorf("unsupported value %s", string(data))
	}
	return nil
}

// ParseValue interprets command-line text: "true"/"false" become booleans,
// anything that decodes as a number (decimal, 0x-prefixed or h-suffixed
// hex) becomes an integer, everything else stays a string.
func ParseValue(s string) Value {
	if b, ok := parseBoolWord(s); ok {
		return BoolValue(b)
	}
	if n, ok := decodeNumber(s); ok {
		return IntValue(n)
	}
	return StringValue(s)
}
