package scedump

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText converts raw dump bytes to a string. A UTF-8 or UTF-16 byte
// order mark selects the source encoding and is stripped; otherwise the
// input is read as UTF-8. Invalid sequences become U+FFFD.
func DecodeText(data []byte) string {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(out)
}
