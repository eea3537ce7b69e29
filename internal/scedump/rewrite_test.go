package scedump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name    string
		setting string
		value   Value
		want    string
	}{
		{name: "bool into decimal", setting: "Turbo Boost", value: BoolValue(false), want: "Value = 0"},
		{name: "int into hex prefix keeps width", setting: "CPU Core Voltage", value: IntValue(0x3), want: "Value = 0x03"},
		{name: "int into hex prefix grows", setting: "CPU Core Voltage", value: IntValue(0x1F4), want: "Value = 0x1F4"},
		{name: "int into hex suffix", setting: "Long Duration", value: IntValue(0xC8), want: "Value = 0C8h"},
		{name: "hex string into hex", setting: "Long Duration", value: StringValue("0x7d"), want: "Value = 07Dh"},
		{name: "bool into hex", setting: "CPU Core Voltage", value: BoolValue(true), want: "Value = 0x01"},
		{name: "int into decimal", setting: "DRAM Frequency", value: IntValue(3600), want: "Value = 3600"},
		{name: "hex string into decimal", setting: "DRAM Frequency", value: StringValue("0x10"), want: "Value = 16"},
		{name: "word into decimal", setting: "DRAM Frequency", value: StringValue("Auto"), want: "Value = Auto"},
		{name: "word into float", setting: "Core Ratio Scale", value: StringValue(" Auto "), want: "Value = Auto"},
		{name: "negative into hex", setting: "CPU Core Voltage", value: IntValue(-1), want: "Value = 0xFFFFFFFFFFFFFFFF"},
		{name: "string into raw", setting: "Package C State", value: StringValue("C6"), want: "Value = C6"},
		{name: "float text into float", setting: "Core Ratio Scale", value: StringValue("2.5"), want: "Value = 2.5"},
		{name: "word bool keeps word", setting: "Above 4G Decoding", value: BoolValue(false), want: "Value = false"},
		{name: "digit into word bool", setting: "Above 4G Decoding", value: IntValue(1), want: "Value = true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Rewrite(sampleDump, tt.setting, tt.value)
			require.NoError(t, err)

			lines := strings.Split(m.Text, "\n")
			assert.Equal(t, tt.want, lines[m.Line])

			before := strings.Split(sampleDump, "\n")
			require.Len(t, lines, len(before))
			for i := range before {
				if i != m.Line {
					assert.Equal(t, before[i], lines[i], "line %d changed", i)
				}
			}
		})
	}
}

func TestRewrite_RoundTrip(t *testing.T) {
	for _, rec := range Parse(sampleDump).Records() {
		if rec.ValueRaw == "" {
			continue
		}
		name := rec.Name
		t.Run(name, func(t *testing.T) {
			m, err := Rewrite(sampleDump, name, rec.Value)
			require.NoError(t, err)

			got, ok := Parse(m.Text).Get(name)
			require.True(t, ok)
			assert.Equal(t, rec.Value, got.Value)
		})
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	once, err := Rewrite(sampleDump, "CPU Core Voltage", IntValue(0x44))
	require.NoError(t, err)
	twice, err := Rewrite(once.Text, "CPU Core Voltage", IntValue(0x44))
	require.NoError(t, err)

	assert.Equal(t, once.Text, twice.Text)
	assert.True(t, once.Changed())
	assert.False(t, twice.Changed())
}

func TestRewrite_CurrentValueLeavesTextUnchanged(t *testing.T) {
	tests := []struct {
		name string
		dump string
	}{
		{name: "full width hex prefix", dump: "Setup Question = Mask\nValue = 0xFFFFFFFFFFFFFFFF\n"},
		{name: "full width hex suffix", dump: "Setup Question = Mask\nValue = 8000000000000000h\n"},
		{name: "plain hex", dump: "Setup Question = Mask\nValue = 0x7F\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := Parse(tt.dump).Get("Mask")
			require.True(t, ok)

			n, numeric, err := LookupValue(tt.dump, "Mask")
			require.NoError(t, err)
			require.True(t, numeric)

			m, err := Rewrite(tt.dump, "Mask", IntValue(n))
			require.NoError(t, err)
			assert.Equal(t, tt.dump, m.Text)
			assert.False(t, m.Changed())

			m, err = Rewrite(tt.dump, "Mask", rec.Value)
			require.NoError(t, err)
			assert.Equal(t, tt.dump, m.Text)
		})
	}
}

func TestRewrite_PreservesLayout(t *testing.T) {
	dump := "Setup Question = Intel SpeedStep\r\nToken =17\r\nValue\t=\t0x01  \r\n"

	m, err := Rewrite(dump, "speedstep", IntValue(0))
	require.NoError(t, err)
	assert.Equal(t, "Setup Question = Intel SpeedStep\r\nToken =17\r\nValue\t=\t0x00  \r\n", m.Text)
	assert.Equal(t, "0x01", m.OldRaw)
	assert.Equal(t, "0x00", m.NewRaw)
	assert.Equal(t, EncodingHex, m.Encoding.Kind)
}

func TestRewrite_UppercaseSuffixAndPrefix(t *testing.T) {
	dump := "Setup Question = A\nValue = 0X0a\nSetup Question = B\nValue = 00FFH\n"

	m, err := Rewrite(dump, "A", IntValue(255))
	require.NoError(t, err)
	assert.Contains(t, m.Text, "Value = 0XFF\n")

	m, err = Rewrite(dump, "B", IntValue(1))
	require.NoError(t, err)
	assert.Contains(t, m.Text, "Value = 0001H\n")
}

func TestRewrite_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setting string
		value   Value
		wantErr error
	}{
		{name: "missing setting", setting: "Secure Boot", value: IntValue(1), wantErr: ErrSettingNotFound},
		{name: "block without value", setting: "Orphan", value: IntValue(1), wantErr: ErrValueUndetermined},
		{name: "word into hex", setting: "CPU Core Voltage", value: StringValue("Auto"), wantErr: ErrInvalidValue},
		{name: "number into word bool", setting: "Above 4G Decoding", value: IntValue(7), wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Rewrite(sampleDump, tt.setting, tt.value)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, m)

			var se *SettingError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.setting, se.Name)
		})
	}
}

func TestClassifyEncoding(t *testing.T) {
	tests := []struct {
		raw  string
		want Encoding
	}{
		{"0x20", Encoding{Kind: EncodingHex, Width: 2, Prefix: "0x"}},
		{"0X0a", Encoding{Kind: EncodingHex, Width: 2, Prefix: "0X"}},
		{"0FAh", Encoding{Kind: EncodingHex, Width: 3, Suffix: "h"}},
		{"10", Encoding{Kind: EncodingDecimal}},
		{"-5", Encoding{Kind: EncodingDecimal}},
		{"1.75", Encoding{Kind: EncodingFloat}},
		{"TRUE", Encoding{Kind: EncodingBoolean, Word: "TRUE"}},
		{"Auto", Encoding{Kind: EncodingRaw}},
		{"0xZZ", Encoding{Kind: EncodingRaw}},
		{"Enh", Encoding{Kind: EncodingRaw}},
		{"NaN", Encoding{Kind: EncodingRaw}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEncoding(tt.raw))
		})
	}
}

func TestDecodeInt(t *testing.T) {
	n, numeric := DecodeInt("0xZZ")
	assert.False(t, numeric)
	assert.Equal(t, hashString("0xZZ"), n)

	n, numeric = DecodeInt("-3.9")
	assert.True(t, numeric)
	assert.Equal(t, int64(-3), n)

	n, numeric = DecodeInt("FFh")
	assert.True(t, numeric)
	assert.Equal(t, int64(255), n)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeBool, TypeOf("0"))
	assert.Equal(t, TypeBool, TypeOf("1"))
	assert.Equal(t, TypeInt, TypeOf("2"))
	assert.Equal(t, TypeHex, TypeOf("0x1"))
	assert.Equal(t, TypeHex, TypeOf("1h"))
	assert.Equal(t, TypeFloat, TypeOf("0.5"))
	assert.Equal(t, TypeStr, TypeOf("false"))
	assert.Equal(t, TypeStr, TypeOf(""))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, BoolValue(true), ParseValue("True"))
	assert.Equal(t, IntValue(26), ParseValue("0x1A"))
	assert.Equal(t, IntValue(-4), ParseValue("-4"))
	assert.Equal(t, StringValue("Auto"), ParseValue("Auto"))
}

func TestValueJSON(t *testing.T) {
	for _, v := range []Value{IntValue(42), BoolValue(true), StringValue("Auto")} {
		data, err := v.MarshalJSON()
		require.NoError(t, err)

		var got Value
		require.NoError(t, got.UnmarshalJSON(data))
		assert.True(t, v.Equal(got), "%s", data)
	}
}
