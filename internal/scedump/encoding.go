package scedump

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// Type describes how a value field was decoded.
type Type string

const (
	TypeHex   Type = "hex"
	TypeInt   Type = "int"
	TypeFloat Type = "float"
	TypeBool  Type = "bool"
	TypeStr   Type = "str"
)

// EncodingKind is the format class of a value field.
type EncodingKind uint8

const (
	EncodingRaw EncodingKind = iota
	EncodingHex
	EncodingDecimal
	EncodingFloat
	EncodingBoolean
)

func (k EncodingKind) String() string {
	switch k {
	case EncodingHex:
		return "hex"
	case EncodingDecimal:
		return "decimal"
	case EncodingFloat:
		return "float"
	case EncodingBoolean:
		return "boolean"
	default:
		return "raw"
	}
}

// Encoding records the textual form a value field was found in, so a new
// value can be written back in the same form.
//
// For hex fields Width is the original digit count and exactly one of
// Prefix ("0x" or "0X") and Suffix ("h" or "H") is set. For boolean fields
// Word holds the original literal ("true", "False", ...).
type Encoding struct {
	Kind   EncodingKind
	Width  int
	Prefix string
	Suffix string
	Word   string
}

// hashRange bounds the placeholder integer produced for non-numeric values.
const hashRange = 10000

// ClassifyEncoding determines the encoding of a raw value field. The order
// is hex prefix, hex suffix, decimal, float, true/false literal, raw.
func ClassifyEncoding(raw string) Encoding {
	if digits, prefix, ok := splitHexPrefix(raw); ok {
		return Encoding{Kind: EncodingHex, Width: len(digits), Prefix: prefix}
	}
	if digits, suffix, ok := splitHexSuffix(raw); ok {
		return Encoding{Kind: EncodingHex, Width: len(digits), Suffix: suffix}
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Encoding{Kind: EncodingDecimal}
	}
	if _, ok := parseFinite(raw); ok {
		return Encoding{Kind: EncodingFloat}
	}
	if _, ok := parseBoolWord(raw); ok {
		return Encoding{Kind: EncodingBoolean, Word: raw}
	}
	return Encoding{Kind: EncodingRaw}
}

// decodeField decodes a value field for the full parse: hex and decimal
// become integers, floats are truncated, true/false literals become
// booleans and anything else is kept as a string.
func decodeField(raw string) (Value, Type, Encoding) {
	enc := ClassifyEncoding(raw)
	switch enc.Kind {
	case EncodingHex:
		n, _ := decodeHex(raw)
		return IntValue(n), TypeHex, enc
	case EncodingDecimal:
		n, _ := strconv.ParseInt(raw, 10, 64)
		return IntValue(n), TypeInt, enc
	case EncodingFloat:
		f, _ := parseFinite(raw)
		return IntValue(int64(f)), TypeFloat, enc
	case EncodingBoolean:
		b, _ := parseBoolWord(raw)
		return BoolValue(b), TypeBool, enc
	default:
		return StringValue(raw), TypeStr, enc
	}
}

// DecodeInt decodes a value field as an integer: hex prefix, hex suffix,
// decimal, truncated float. Non-numeric text falls back to a stable hash of
// the string in [0, 10000); that number is a placeholder, not a real value,
// and is reported with numeric == false.
func DecodeInt(raw string) (n int64, numeric bool) {
	if n, ok := decodeNumber(raw); ok {
		return n, true
	}
	if f, ok := parseFinite(raw); ok {
		return int64(f), true
	}
	return hashString(raw), false
}

// TypeOf classifies a value field for point lookups: exactly "0" or "1" is
// bool, then hex, int, float, and str for everything else.
func TypeOf(raw string) Type {
	if raw == "0" || raw == "1" {
		return TypeBool
	}
	if _, _, ok := splitHexPrefix(raw); ok {
		return TypeHex
	}
	if _, _, ok := splitHexSuffix(raw); ok {
		return TypeHex
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return TypeInt
	}
	if _, ok := parseFinite(raw); ok {
		return TypeFloat
	}
	return TypeStr
}

// Encode renders v in the form described by enc.
func Encode(enc Encoding, v Value) (string, error) {
	switch enc.Kind {
	case EncodingHex:
		n, err := numericOf(v)
		if err != nil {
			return "", err
		}
		// Hex fields are unsigned; a negative int is the two's-complement
		// form of a 64-bit field with the top bit set.
		digits := strings.ToUpper(strconv.FormatUint(uint64(n), 16))
		if pad := enc.Width - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}
		return enc.Prefix + digits + enc.Suffix, nil

	case EncodingBoolean:
		b, ok := truthOf(v)
		if !ok {
			return "", fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v.String())
		}
		return formatBoolWord(b, enc.Word), nil

	case EncodingDecimal, EncodingFloat:
		switch v.Kind() {
		case KindBool:
			b, _ := v.Bool()
			return boolDigit(b), nil
		case KindString:
			s, _ := v.Str()
			s = strings.TrimSpace(s)
			if _, ok := parseFinite(s); ok && enc.Kind == EncodingFloat {
				return s, nil
			}
			if n, ok := decodeNumber(s); ok {
				return strconv.FormatInt(n, 10), nil
			}
			return s, nil
		}
		return v.String(), nil

	default:
		if b, ok := v.Bool(); ok {
			return boolDigit(b), nil
		}
		return v.String(), nil
	}
}

func numericOf(v Value) (int64, error) {
	switch v.Kind() {
	case KindInt:
		n, _ := v.Int()
		return n, nil
	case KindBool:
		b, _ := v.Bool()
		if b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		s, _ := v.Str()
		if n, ok := decodeNumber(strings.TrimSpace(s)); ok {
			return n, nil
		}
		return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidValue, s)
	default:
		return 0, fmt.Errorf("%w: empty value", ErrInvalidValue)
	}
}

func truthOf(v Value) (bool, bool) {
	switch v.Kind() {
	case KindBool:
		return v.Bool()
	case KindInt:
		n, _ := v.Int()
		if n == 0 || n == 1 {
			return n == 1, true
		}
	case KindString:
		s, _ := v.Str()
		if b, ok := parseBoolWord(s); ok {
			return b, true
		}
		if s == "0" || s == "1" {
			return s == "1", true
		}
	}
	return false, false
}

// decodeNumber decodes hex-prefixed, hex-suffixed and decimal integers.
func decodeNumber(raw string) (int64, bool) {
	if n, ok := decodeHex(raw); ok {
		return n, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	return n, err == nil
}

func decodeHex(raw string) (int64, bool) {
	digits, _, ok := splitHexPrefix(raw)
	if !ok {
		digits, _, ok = splitHexSuffix(raw)
	}
	if !ok {
		return 0, false
	}
	u, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, false
	}
	return int64(u), true
}

func splitHexPrefix(raw string) (digits, prefix string, ok bool) {
	if len(raw) < 3 || !strings.EqualFold(raw[:2], "0x") {
		return "", "", false
	}
	if !isHexDigits(raw[2:]) {
		return "", "", false
	}
	return raw[2:], raw[:2], true
}

func splitHexSuffix(raw string) (digits, suffix string, ok bool) {
	if len(raw) < 2 {
		return "", "", false
	}
	last := raw[len(raw)-1]
	if last != 'h' && last != 'H' {
		return "", "", false
	}
	if !isHexDigits(raw[:len(raw)-1]) {
		return "", "", false
	}
	return raw[:len(raw)-1], raw[len(raw)-1:], true
}

func isHexDigits(s string) bool {
	if s == "" || len(s) > 16 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

func parseFinite(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return f, true
}

func parseBoolWord(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	}
	return false, false
}

func formatBoolWord(b bool, like string) string {
	word := "false"
	if b {
		word = "true"
	}
	switch {
	case like == "":
		return boolDigit(b)
	case like == strings.ToUpper(like):
		return strings.ToUpper(word)
	case like[:1] == strings.ToUpper(like[:1]):
		return strings.ToUpper(word[:1]) + word[1:]
	default:
		return word
	}
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func hashString(s string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum32() % hashRange)
}
