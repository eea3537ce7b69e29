package scedump

import (
	"strings"

	"github.com/go-tangra/go-tangra-bios/internal/classify"
)

// Record is one parsed setting block.
type Record struct {
	Name     string   `json:"name"`
	RawName  string   `json:"raw_name"`
	Value    Value    `json:"value"`
	ValueRaw string   `json:"value_raw"`
	Type     Type     `json:"type"`
	Encoding Encoding `json:"-"`

	Default string            `json:"default,omitempty"`
	Token   string            `json:"token,omitempty"`
	Offset  string            `json:"offset,omitempty"`
	Width   string            `json:"width,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`

	Category             classify.Category `json:"category"`
	RequiresReboot       bool              `json:"requires_reboot"`
	IsPerformanceRelated bool              `json:"is_performance_related"`
}

// Settings maps setting names to records and remembers parse order.
type Settings struct {
	names   []string
	records map[string]*Record
}

func newSettings() *Settings {
	return &Settings{records: make(map[string]*Record)}
}

// put stores rec; a later record with the same name replaces the earlier
// one but keeps its position.
func (s *Settings) put(rec *Record) {
	if _, ok := s.records[rec.Name]; !ok {
		s.names = append(s.names, rec.Name)
	}
	s.records[rec.Name] = rec
}

// Len returns the number of distinct settings.
func (s *Settings) Len() int { return len(s.names) }

// Get returns the record with exactly the given name.
func (s *Settings) Get(name string) (*Record, bool) {
	rec, ok := s.records[name]
	return rec, ok
}

// Names returns setting names in parse order.
func (s *Settings) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Records returns records in parse order.
func (s *Settings) Records() []*Record {
	out := make([]*Record, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.records[name])
	}
	return out
}

// Filter returns, in parse order, the names of records for which keep
// returns true.
func (s *Settings) Filter(keep func(*Record) bool) []string {
	var out []string
	for _, name := range s.names {
		if keep(s.records[name]) {
			out = append(out, name)
		}
	}
	return out
}

// Parse scans a whole dump. Every named block produces a record; a block
// without a Value line (option lists, for instance) gets the zero Value and
// type str. Duplicate names overwrite earlier entries, unlike LookupValue
// which stops at the first matching block.
func Parse(text string) *Settings {
	settings := newSettings()
	var cur *Record
	hasValue := false

	flush := func() {
		if cur != nil {
			settings.put(cur)
		}
		cur, hasValue = nil, false
	}

	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, HeaderMarker) {
			flush()
			name, raw := headerName(line)
			if name == "" {
				continue
			}
			cur = &Record{
				Name:                 name,
				RawName:              raw,
				Type:                 TypeStr,
				Category:             classify.Categorize(name),
				RequiresReboot:       classify.RequiresReboot(name),
				IsPerformanceRelated: classify.IsPerformanceRelated(name),
			}
			continue
		}

		if cur == nil {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case ValueMarker:
			if hasValue {
				continue
			}
			cur.Value, cur.Type, cur.Encoding = decodeField(value)
			cur.ValueRaw = value
			hasValue = true
		case keyDefault:
			cur.Default = value
		case keyToken:
			cur.Token = value
		case keyOffset:
			cur.Offset = value
		case keyWidth:
			cur.Width = value
		default:
			if cur.Extra == nil {
				cur.Extra = make(map[string]string)
			}
			cur.Extra[normalizeKey(key)] = value
		}
	}
	flush()

	return settings
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), " ", "_")
}
