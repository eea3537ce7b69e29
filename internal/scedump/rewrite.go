package scedump

import (
	"strings"
)

// Mutation is the result of rewriting one setting's Value line.
type Mutation struct {
	// Text is the full rewritten dump.
	Text string
	// Line is the 0-based index of the rewritten line.
	Line     int
	OldRaw   string
	NewRaw   string
	Encoding Encoding
}

// Changed reports whether the rewritten value text differs from the
// original.
func (m *Mutation) Changed() bool { return m.OldRaw != m.NewRaw }

// Rewrite replaces the value of the named setting in text. The block is
// located as in LookupValue. Only the Value line changes: its text up to
// the first '=' and the surrounding whitespace are kept and the new value
// is encoded in the original field's encoding. Every other line, including
// line endings, is returned unchanged.
func Rewrite(text, name string, v Value) (*Mutation, error) {
	lines := splitLines(text)
	vl, err := locate(lines, name)
	if err != nil {
		return nil, err
	}

	enc := ClassifyEncoding(vl.raw)
	encoded, err := Encode(enc, v)
	if err != nil {
		return nil, settingErr(name, err)
	}

	line := vl.head + encoded + vl.tail
	if vl.cr {
		line += "\r"
	}
	lines[vl.index] = line

	return &Mutation{
		Text:     strings.Join(lines, "\n"),
		Line:     vl.index,
		OldRaw:   vl.raw,
		NewRaw:   encoded,
		Encoding: enc,
	}, nil
}
