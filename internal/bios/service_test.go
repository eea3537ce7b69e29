package bios

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tangra/go-tangra-bios/internal/classify"
	"github.com/go-tangra/go-tangra-bios/internal/scedump"
	"github.com/go-tangra/go-tangra-bios/internal/scewin"
)

const firmwareDump = `// Script File Name : bios_out.txt
HIICrc32= 8E4D2F61

Setup Question: CPU Core Voltage
Token	=2A	// Do NOT change this line
Offset	=0F2
Width	=01
BIOS Default	=0x00
Value = 0x20

Setup Question: Turbo Boost
Token	=2B
Value = 1

Setup Question = Long Duration Power Limit
Value = 0FAh

Setup Question = Extreme Memory Profile (XMP)
Value = 0

Setup Question = Package C State Limit
Value = Auto

Setup Question = VID Offset Table
Value = 4

Setup Question = Secure Boot Mode
Value = 1
`

// fakeTool keeps the firmware state in memory. Export writes it to the
// destination; Import replaces it with the script contents.
type fakeTool struct {
	mu        sync.Mutex
	state     string
	exports   []string
	imports   []string
	exportErr error
	importErr error
}

func (f *fakeTool) Export(_ context.Context, dest string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, dest)
	if f.exportErr != nil {
		return "", f.exportErr
	}
	if err := os.WriteFile(dest, []byte(f.state), 0o644); err != nil {
		return "", err
	}
	return f.state, nil
}

func (f *fakeTool) Import(_ context.Context, script string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, script)
	if f.importErr != nil {
		return f.importErr
	}
	data, err := os.ReadFile(script)
	if err != nil {
		return err
	}
	f.state = string(data)
	return nil
}

type memRecorder struct {
	changes []Change
	err     error
}

func (m *memRecorder) RecordChange(_ context.Context, c Change) error {
	m.changes = append(m.changes, c)
	return m.err
}

func newService(t *testing.T, tool *fakeTool, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithPaths(DefaultPaths(t.TempDir()))}, opts...)
	return New(context.Background(), tool, opts...)
}

func TestNew_TakesBackup(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)

	assert.True(t, s.BackupAvailable())
	require.Len(t, tool.exports, 1)
	assert.Equal(t, s.Paths().Backup, tool.exports[0])

	data, err := os.ReadFile(s.Paths().Backup)
	require.NoError(t, err)
	assert.Equal(t, firmwareDump, string(data))
}

func TestNew_BackupFailureIsSwallowed(t *testing.T) {
	tool := &fakeTool{state: firmwareDump, exportErr: scewin.ErrIO}
	s := newService(t, tool)

	assert.False(t, s.BackupAvailable())
	assert.False(t, s.RestoreDefaults(context.Background()))
	assert.Empty(t, tool.imports)
}

func TestNew_ReuseBackup(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)

	tool := &fakeTool{state: firmwareDump}
	s := New(context.Background(), tool, WithPaths(paths), ReuseBackup())
	assert.False(t, s.BackupAvailable())
	assert.Empty(t, tool.exports)

	require.NoError(t, os.WriteFile(paths.Backup, []byte(firmwareDump), 0o644))
	s = New(context.Background(), tool, WithPaths(paths), ReuseBackup())
	assert.True(t, s.BackupAvailable())
	assert.Empty(t, tool.exports)
}

func TestDefaultPaths(t *testing.T) {
	p := DefaultPaths("")
	assert.Equal(t, filepath.Join(os.TempDir(), "bios_out.txt"), p.Dump)
	assert.Equal(t, filepath.Join(os.TempDir(), "bios_set.txt"), p.Script)
	assert.Equal(t, filepath.Join(os.TempDir(), "bios_backup.txt"), p.Backup)
}

func TestGetSettingValueAndType(t *testing.T) {
	s := newService(t, &fakeTool{state: firmwareDump})
	ctx := context.Background()

	n, err := s.GetSettingValue(ctx, "CPU Core Voltage")
	require.NoError(t, err)
	assert.Equal(t, int64(32), n)

	typ, err := s.GetSettingType(ctx, "CPU Core Voltage")
	require.NoError(t, err)
	assert.Equal(t, scedump.TypeHex, typ)

	typ, err = s.GetSettingType(ctx, "Turbo Boost")
	require.NoError(t, err)
	assert.Equal(t, scedump.TypeBool, typ)

	settings, err := s.ParseAllSettings(ctx)
	require.NoError(t, err)
	rec, ok := settings.Get("CPU Core Voltage")
	require.True(t, ok)
	assert.Equal(t, classify.CPUVoltage, rec.Category)
}

func TestGetSettingValue_EveryCallExports(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)
	ctx := context.Background()

	_, err := s.GetSettingValue(ctx, "Turbo Boost")
	require.NoError(t, err)
	_, err = s.GetSettingType(ctx, "Turbo Boost")
	require.NoError(t, err)

	// One backup plus one export per call.
	assert.Len(t, tool.exports, 3)
	assert.Equal(t, s.Paths().Dump, tool.exports[2])
}

func TestGetSettingValue_ExportFailure(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)
	tool.exportErr = fmt.Errorf("%w: export produced an empty file", scewin.ErrIO)

	_, err := s.GetSettingValue(context.Background(), "CPU Core Voltage")
	require.ErrorIs(t, err, scewin.ErrIO)
}

func TestGetSettingValue_NotFound(t *testing.T) {
	s := newService(t, &fakeTool{state: firmwareDump})

	_, err := s.GetSettingValue(context.Background(), "Fan Curve Mode")
	require.ErrorIs(t, err, scedump.ErrSettingNotFound)
	assert.Contains(t, err.Error(), `"Fan Curve Mode"`)
}

func TestSetSettingValue(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)
	ctx := context.Background()

	require.NoError(t, s.SetSettingValue(ctx, "Turbo Boost", scedump.BoolValue(false)))

	require.Len(t, tool.imports, 1)
	assert.Equal(t, s.Paths().Script, tool.imports[0])

	script, err := os.ReadFile(s.Paths().Script)
	require.NoError(t, err)
	assert.Contains(t, string(script), "Setup Question: Turbo Boost\nToken\t=2B\nValue = 0\n")
	assert.Equal(t, strings.Replace(firmwareDump, "Token\t=2B\nValue = 1", "Token\t=2B\nValue = 0", 1), string(script))

	n, err := s.GetSettingValue(ctx, "Turbo Boost")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSetSettingValue_RoundTrip(t *testing.T) {
	tests := []struct {
		setting string
		value   scedump.Value
		want    scedump.Value
	}{
		{"CPU Core Voltage", scedump.IntValue(0x2C), scedump.IntValue(0x2C)},
		{"Long Duration Power Limit", scedump.IntValue(125), scedump.IntValue(125)},
		{"Turbo Boost", scedump.BoolValue(true), scedump.IntValue(1)},
		{"Package C State Limit", scedump.StringValue("C10"), scedump.StringValue("C10")},
	}

	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			s := newService(t, &fakeTool{state: firmwareDump})
			ctx := context.Background()

			require.NoError(t, s.SetSettingValue(ctx, tt.setting, tt.value))

			settings, err := s.ParseAllSettings(ctx)
			require.NoError(t, err)
			rec, ok := settings.Get(tt.setting)
			require.True(t, ok)
			assert.Equal(t, tt.want, rec.Value)
		})
	}
}

func TestSetSettingValue_NotFoundTouchesNothing(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)

	err := s.SetSettingValue(context.Background(), "Fan Curve Mode", scedump.IntValue(1))
	require.ErrorIs(t, err, scedump.ErrSettingNotFound)

	assert.Empty(t, tool.imports)
	_, statErr := os.Stat(s.Paths().Script)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestSetSettingValue_ImportFailure(t *testing.T) {
	tool := &fakeTool{state: firmwareDump, importErr: &scewin.ToolError{Op: "import", ExitCode: 5, Stderr: "denied"}}
	rec := &memRecorder{}
	s := newService(t, tool, WithRecorder(rec))

	err := s.SetSettingValue(context.Background(), "CPU Core Voltage", scedump.IntValue(0x30))
	require.ErrorIs(t, err, scewin.ErrIO)
	assert.Contains(t, err.Error(), "denied")

	script, readErr := os.ReadFile(s.Paths().Script)
	require.NoError(t, readErr)
	assert.Contains(t, string(script), "Value = 0x30")

	require.Len(t, rec.changes, 1)
	c := rec.changes[0]
	assert.False(t, c.Success)
	assert.Equal(t, "CPU Core Voltage", c.Setting)
	assert.Equal(t, "0x20", c.OldRaw)
	assert.Equal(t, "0x30", c.NewRaw)
	assert.NotEmpty(t, c.Error)
}

func TestSetSettingValue_RecordsChange(t *testing.T) {
	rec := &memRecorder{err: errors.New("database is locked")}
	s := newService(t, &fakeTool{state: firmwareDump}, WithRecorder(rec))
	fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	// A failing recorder does not fail the update.
	require.NoError(t, s.SetSettingValue(context.Background(), "Long Duration", scedump.IntValue(200)))

	require.Len(t, rec.changes, 1)
	c := rec.changes[0]
	assert.True(t, c.Success)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, fixed, c.RequestedAt)
	assert.Equal(t, "0FAh", c.OldRaw)
	assert.Equal(t, "0C8h", c.NewRaw)
}

func TestSetSettingValue_InvalidValue(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)

	err := s.SetSettingValue(context.Background(), "CPU Core Voltage", scedump.StringValue("Auto"))
	require.ErrorIs(t, err, scedump.ErrInvalidValue)
	assert.Empty(t, tool.imports)
}

func TestRestoreDefaults(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)
	ctx := context.Background()

	require.NoError(t, s.SetSettingValue(ctx, "Turbo Boost", scedump.IntValue(0)))
	assert.True(t, s.RestoreDefaults(ctx))
	assert.Equal(t, s.Paths().Backup, tool.imports[len(tool.imports)-1])

	n, err := s.GetSettingValue(ctx, "Turbo Boost")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRestoreDefaults_ImportFailure(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)
	tool.importErr = scewin.ErrIO

	assert.False(t, s.RestoreDefaults(context.Background()))
}

func TestFinders(t *testing.T) {
	s := newService(t, &fakeTool{state: firmwareDump})
	ctx := context.Background()

	tests := []struct {
		name string
		find func(context.Context) ([]string, error)
		want []string
	}{
		{"power", s.FindPowerLimitParameters, []string{"Long Duration Power Limit"}},
		{"voltage", s.FindVoltageParameters, []string{"CPU Core Voltage", "VID Offset Table"}},
		{"xmp", s.FindXMPParameters, []string{"Extreme Memory Profile (XMP)"}},
		{"cstate", s.FindCStateParameters, []string{"Package C State Limit"}},
		{"turbo", s.FindTurboBoostParameters, []string{"Turbo Boost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.find(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinders_IncludeBlocksWithoutValue(t *testing.T) {
	state := firmwareDump + "\nSetup Question\t= Intel(R) Turbo Boost Technology\nToken\t=5C\nOptions\t=*[01]Enabled\n"
	s := newService(t, &fakeTool{state: state})
	ctx := context.Background()

	turbo, err := s.FindTurboBoostParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Turbo Boost", "Intel(R) Turbo Boost Technology"}, turbo)

	all, err := s.FindAllPerformanceParameters(ctx)
	require.NoError(t, err)
	assert.Contains(t, all[classify.BucketCPUFreq], "Intel(R) Turbo Boost Technology")

	_, err = s.GetSettingValue(ctx, "Intel(R) Turbo Boost Technology")
	assert.ErrorIs(t, err, scedump.ErrValueUndetermined)
}

func TestFindAllPerformanceParameters(t *testing.T) {
	s := newService(t, &fakeTool{state: firmwareDump})

	got, err := s.FindAllPerformanceParameters(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, len(classify.Buckets()))
	// "limit" is checked before the C-state keywords.
	assert.Equal(t, []string{"Long Duration Power Limit", "Package C State Limit"}, got[classify.BucketCPUPower])
	assert.Equal(t, []string{"CPU Core Voltage", "VID Offset Table"}, got[classify.BucketCPUVoltage])
	assert.Equal(t, []string{"Extreme Memory Profile (XMP)"}, got[classify.BucketMemory])
	assert.Equal(t, []string{"Turbo Boost"}, got[classify.BucketCPUFreq])
	assert.Empty(t, got[classify.BucketCStates])
	assert.Empty(t, got[classify.BucketOther])

	seen := map[string]int{}
	for _, names := range got {
		for _, n := range names {
			seen[n]++
		}
	}
	for n, count := range seen {
		assert.Equal(t, 1, count, n)
	}

	power, err := s.FindPowerLimitParameters(context.Background())
	require.NoError(t, err)
	for _, n := range power {
		assert.Contains(t, seen, n)
	}
}

func TestDiffAgainstBackup(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)
	ctx := context.Background()

	diff, err := s.DiffAgainstBackup(ctx)
	require.NoError(t, err)
	assert.Empty(t, diff)

	require.NoError(t, s.SetSettingValue(ctx, "CPU Core Voltage", scedump.IntValue(0x24)))
	diff, err = s.DiffAgainstBackup(ctx)
	require.NoError(t, err)
	assert.Contains(t, diff, "--- backup")
	assert.Contains(t, diff, "+++ current")
	assert.Contains(t, diff, "-Value = 0x20")
	assert.Contains(t, diff, "+Value = 0x24")
}

func TestDiffAgainstBackup_NoBackup(t *testing.T) {
	s := newService(t, &fakeTool{state: firmwareDump, exportErr: scewin.ErrIO})
	_, err := s.DiffAgainstBackup(context.Background())
	require.ErrorIs(t, err, ErrNoBackup)
}

func TestService_ConcurrentSetsAreSerialized(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	s := newService(t, tool)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, name := range []string{"CPU Core Voltage", "Long Duration Power Limit", "VID Offset Table"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, s.SetSettingValue(ctx, name, scedump.IntValue(9)))
		}(name)
	}
	wg.Wait()

	settings, err := s.ParseAllSettings(ctx)
	require.NoError(t, err)
	for _, name := range []string{"CPU Core Voltage", "Long Duration Power Limit", "VID Offset Table"} {
		rec, ok := settings.Get(name)
		require.True(t, ok)
		assert.Equal(t, scedump.IntValue(9), rec.Value, name)
	}
}

type outcomes struct {
	writes   []bool
	restores []bool
}

func (o *outcomes) ObserveSettingWrite(ok bool) { o.writes = append(o.writes, ok) }
func (o *outcomes) ObserveRestore(ok bool)      { o.restores = append(o.restores, ok) }

func TestObserver(t *testing.T) {
	tool := &fakeTool{state: firmwareDump}
	obs := &outcomes{}
	s := newService(t, tool, WithObserver(obs))
	ctx := context.Background()

	require.NoError(t, s.SetSettingValue(ctx, "Turbo Boost", scedump.BoolValue(false)))
	require.Error(t, s.SetSettingValue(ctx, "No Such Setting", scedump.IntValue(1)))

	tool.importErr = scewin.ErrIO
	require.Error(t, s.SetSettingValue(ctx, "Turbo Boost", scedump.BoolValue(true)))
	assert.False(t, s.RestoreDefaults(ctx))

	tool.importErr = nil
	assert.True(t, s.RestoreDefaults(ctx))

	assert.Equal(t, []bool{true, false}, obs.writes)
	assert.Equal(t, []bool{false, true}, obs.restores)
}
