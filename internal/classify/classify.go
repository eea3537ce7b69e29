// Package classify assigns BIOS settings to functional groups by keyword
// matching against their display names. All matching is case-insensitive
// substring containment.
package classify

import (
	"fmt"
	"strings"
)

// Category is the functional group recorded on every parsed setting.
type Category string

const (
	CPUPower    Category = "cpu_power"
	CPUFreq     Category = "cpu_freq"
	CPUVoltage  Category = "cpu_voltage"
	Memory      Category = "memory"
	CPUFeatures Category = "cpu_features"
	Other       Category = "other"
)

// Finder selects one of the targeted setting searches.
type Finder string

const (
	PowerLimit Finder = "power"
	Voltage    Finder = "voltage"
	XMP        Finder = "xmp"
	CState     Finder = "cstate"
	Turbo      Finder = "turbo"
)

// Bucket is a group in the performance breakdown.
type Bucket string

const (
	BucketCPUPower    Bucket = "cpu_power"
	BucketCPUVoltage  Bucket = "cpu_voltage"
	BucketMemory      Bucket = "memory"
	BucketCStates     Bucket = "cstates"
	BucketCPUFreq     Bucket = "cpu_freq"
	BucketCPUFeatures Bucket = "cpu_features"
	BucketOther       Bucket = "other"
)

// Categorize returns the first category whose keywords occur in name, or
// Other.
func Categorize(name string) Category {
	lower := strings.ToLower(name)
	for _, c := range categoryTable {
		if containsAny(lower, c.keywords) {
			return c.category
		}
	}
	return Other
}

// RequiresReboot reports whether changing the setting needs a restart.
func RequiresReboot(name string) bool {
	return containsAny(strings.ToLower(name), rebootKeywords)
}

// IsPerformanceRelated reports whether the setting affects performance
// tuning.
func IsPerformanceRelated(name string) bool {
	return containsAny(strings.ToLower(name), performanceKeywords)
}

// Finders returns every finder in a fixed order.
func Finders() []Finder {
	return []Finder{PowerLimit, Voltage, XMP, CState, Turbo}
}

// ParseFinder maps a finder name to a Finder.
func ParseFinder(s string) (Finder, error) {
	f := Finder(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := finderKeywords[f]; !ok {
		return "", fmt.Errorf("unknown finder %q", s)
	}
	return f, nil
}

// Keywords returns a copy of the finder's keyword list.
func (f Finder) Keywords() []string {
	return append([]string(nil), finderKeywords[f]...)
}

// RequiresPerformance reports whether a match must also be
// performance-related. Only the power-limit and turbo searches apply
// that filter.
func (f Finder) RequiresPerformance() bool {
	return f == PowerLimit || f == Turbo
}

// Match reports whether name matches the finder. performanceRelated is the
// setting's IsPerformanceRelated flag.
func (f Finder) Match(name string, performanceRelated bool) bool {
	if f.RequiresPerformance() && !performanceRelated {
		return false
	}
	return containsAny(strings.ToLower(name), finderKeywords[f])
}

// Buckets returns the buckets in priority order, BucketOther last.
func Buckets() []Bucket {
	out := make([]Bucket, 0, len(bucketTable)+1)
	for _, b := range bucketTable {
		out = append(out, b.bucket)
	}
	return append(out, BucketOther)
}

// BucketOf assigns a performance-related setting to exactly one bucket.
func BucketOf(name string) Bucket {
	lower := strings.ToLower(name)
	for _, b := range bucketTable {
		if containsAny(lower, b.keywords) {
			return b.bucket
		}
	}
	return BucketOther
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
