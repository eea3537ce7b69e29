package classify

// The tables below are read-only after package initialization.

var performanceKeywords = []string{
	"cpu", "power", "limit", "ratio", "turbo", "boost", "overclock", "xmp", "docp",
	"performance", "frequency", "clock", "c-state", "voltage", "vcore", "offset",
	"c-states", "multiplier", "tdp", "pl1", "pl2", "ppt", "tdc", "edc", "smt",
	"hyper-threading", "threading", "avx", "memory", "dram", "timing", "speed",
	"bclk", "base clock", "intel speed step", "speedstep", "coolnquiet", "cool n quiet",
}

var rebootKeywords = []string{
	"memory", "xmp", "docp", "bclk", "base clock", "smt", "hyper-threading",
}

type categoryKeywords struct {
	category Category
	keywords []string
}

// categoryTable is checked in order; the first category with a matching
// keyword wins.
var categoryTable = []categoryKeywords{
	{CPUPower, []string{"power limit", "pl1", "pl2", "ppt", "tdc", "edc", "tdp"}},
	{CPUFreq, []string{"ratio", "multiplier", "turbo", "boost", "frequency", "clock", "bclk"}},
	{CPUVoltage, []string{"voltage", "vcore", "offset", "vid"}},
	{Memory, []string{"memory", "dram", "ram", "xmp", "docp", "timing"}},
	{CPUFeatures, []string{"c-state", "hyper", "threading", "smt", "avx", "speedstep", "coolnquiet"}},
}

var finderKeywords = map[Finder][]string{
	PowerLimit: {
		"power limit", "tdp", "thermal design power", "pl1", "pl2",
		"long duration", "short duration", "package power", "ppt",
		"tdc", "edc", "power target",
	},
	Voltage: {"voltage", "vcore", "offset", "vid", "core volt"},
	XMP:     {"xmp", "docp", "memory profile", "extreme memory profile"},
	CState:  {"c-state", "c state", "c1e", "c3", "c6", "c7", "package c state"},
	Turbo:   {"turbo", "boost", "intel turbo", "precision boost", "core performance"},
}

type bucketKeywords struct {
	bucket   Bucket
	keywords []string
}

// bucketTable is checked in order for performance-related settings;
// anything unmatched lands in BucketOther.
var bucketTable = []bucketKeywords{
	{BucketCPUPower, []string{"power", "limit", "tdp", "pl1", "pl2", "ppt"}},
	{BucketCPUVoltage, []string{"voltage", "vcore", "offset", "vid"}},
	{BucketMemory, []string{"memory", "ram", "xmp", "docp"}},
	{BucketCStates, []string{"c-state", "c state", "c1e", "c3", "c6"}},
	{BucketCPUFreq, []string{"turbo", "boost"}},
	{BucketCPUFeatures, []string{"smt", "hyper", "thread", "virtualization"}},
}
