// Package scedump reads and edits the flat-text settings dump written by the
// AMI SCE utility (SCEWIN / AMISCE).
//
// A dump is a sequence of blocks. Each block starts at a line beginning with
// "Setup Question" and runs until the next such line or end of input. Inside
// a block, "Key = Value" lines describe the setting; the "Value" line holds
// its current value.
package scedump

import (
	"strings"
)

const (
	HeaderMarker = "Setup Question"
	ValueMarker  = "Value"

	keyDefault = "BIOS Default"
	keyToken   = "Token"
	keyOffset  = "Offset"
	keyWidth   = "Width"
)

// valueLine locates the authoritative Value line of a block.
type valueLine struct {
	header int
	index  int
	// head is the line up to and including the first '=' plus the
	// whitespace that followed it; tail is the trailing whitespace.
	head string
	raw  string
	tail string
	cr   bool
}

func isHeader(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), HeaderMarker)
}

func isValueLine(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, ValueMarker) {
		return false
	}
	rest := t[len(ValueMarker):]
	return rest == "" || rest[0] == '=' || rest[0] == ' ' || rest[0] == '\t'
}

func headerMatches(line, lowerName string) bool {
	return isHeader(line) && strings.Contains(strings.ToLower(line), lowerName)
}

// headerName extracts the display name from a header line, dropping the
// marker and a leading '=' or ':' separator.
func headerName(line string) (name, raw string) {
	t := strings.TrimSpace(line)
	raw = t[len(HeaderMarker):]
	name = strings.TrimSpace(raw)
	if name != "" && (name[0] == '=' || name[0] == ':') {
		name = strings.TrimSpace(name[1:])
	}
	return name, raw
}

// splitLines splits text on '\n' without dropping anything, so joining the
// result with '\n' reproduces text exactly.
func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// locate finds the Value line of the first block whose header contains
// name, case-insensitively. Blocks without a Value line are skipped.
func locate(lines []string, name string) (valueLine, error) {
	if strings.TrimSpace(name) == "" {
		return valueLine{}, settingErr(name, ErrSettingNotFound)
	}
	lower := strings.ToLower(name)
	matched := false

	for i := 0; i < len(lines); i++ {
		if !headerMatches(lines[i], lower) {
			continue
		}
		matched = true
		j := i + 1
		for ; j < len(lines) && !isHeader(lines[j]); j++ {
			if !isValueLine(lines[j]) {
				continue
			}
			vl, ok := splitValueLine(lines[j])
			if !ok {
				return valueLine{}, settingErr(name, ErrMalformedValue)
			}
			vl.header, vl.index = i, j
			return vl, nil
		}
		i = j - 1
	}

	if matched {
		return valueLine{}, settingErr(name, ErrValueUndetermined)
	}
	return valueLine{}, settingErr(name, ErrSettingNotFound)
}

func splitValueLine(line string) (valueLine, bool) {
	var vl valueLine
	if strings.HasSuffix(line, "\r") {
		vl.cr = true
		line = line[:len(line)-1]
	}
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return vl, false
	}
	rest := line[eq+1:]
	value := strings.TrimLeft(rest, " \t")
	vl.head = line[:len(line)-len(value)]
	vl.raw = strings.TrimRight(value, " \t")
	vl.tail = value[len(vl.raw):]
	return vl, true
}

// LookupRaw returns the unparsed value text of the named setting.
func LookupRaw(text, name string) (string, error) {
	vl, err := locate(splitLines(text), name)
	if err != nil {
		return "", err
	}
	return vl.raw, nil
}

// LookupValue returns the named setting's value as an integer, decoded with
// DecodeInt. numeric is false when the value was not a number and the
// result is only a hash placeholder.
func LookupValue(text, name string) (n int64, numeric bool, err error) {
	raw, err := LookupRaw(text, name)
	if err != nil {
		return 0, false, err
	}
	n, numeric = DecodeInt(raw)
	return n, numeric, nil
}

// LookupType returns the type class of the named setting's value.
func LookupType(text, name string) (Type, error) {
	raw, err := LookupRaw(text, name)
	if err != nil {
		return "", err
	}
	return TypeOf(raw), nil
}
