package scewin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	path string
	args []string
}

type fakeRunner struct {
	calls  []call
	output []byte
	result Result
	err    error
	block  bool
}

func (f *fakeRunner) Run(ctx context.Context, path string, args ...string) (Result, error) {
	f.calls = append(f.calls, call{path: path, args: args})
	if f.block {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}
	if f.err != nil {
		return Result{}, f.err
	}
	if f.output != nil && len(args) == 3 && args[0] == "/o" {
		if err := os.WriteFile(args[2], f.output, 0o644); err != nil {
			return Result{}, err
		}
	}
	return f.result, nil
}

func newTool(t *testing.T, r Runner, opts ...Option) *Tool {
	t.Helper()
	exe := filepath.Join(t.TempDir(), "SCEWIN_64.exe")
	require.NoError(t, os.WriteFile(exe, []byte("stub"), 0o755))

	tool, err := New(exe, append([]Option{WithRunner(r)}, opts...)...)
	require.NoError(t, err)
	return tool
}

func TestNew_ToolNotFound(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.exe"))
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestExport(t *testing.T) {
	r := &fakeRunner{output: []byte("Setup Question = Turbo Boost\nValue = 1\n")}
	tool := newTool(t, r)
	dest := filepath.Join(t.TempDir(), "bios_out.txt")

	text, err := tool.Export(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, "Setup Question = Turbo Boost\nValue = 1\n", text)

	require.Len(t, r.calls, 1)
	assert.Equal(t, tool.Path(), r.calls[0].path)
	assert.Equal(t, []string{"/o", "/s", dest}, r.calls[0].args)
}

func TestExport_RemovesStaleDump(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "bios_out.txt")
	require.NoError(t, os.WriteFile(dest, []byte("Setup Question = Stale\nValue = 1\n"), 0o644))

	tool := newTool(t, &fakeRunner{})
	_, err := tool.Export(context.Background(), dest)
	require.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "did not create")
}

func TestExport_EmptyFile(t *testing.T) {
	tool := newTool(t, &fakeRunner{output: []byte(" \r\n\n")})
	_, err := tool.Export(context.Background(), filepath.Join(t.TempDir(), "bios_out.txt"))
	require.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "empty")
}

func TestExport_NonZeroExit(t *testing.T) {
	r := &fakeRunner{
		output: []byte("Setup Question = X\nValue = 1\n"),
		result: Result{ExitCode: 3, Stderr: []byte("  Driver not loaded\r\n")},
	}
	tool := newTool(t, r)
	dest := filepath.Join(t.TempDir(), "bios_out.txt")

	_, err := tool.Export(context.Background(), dest)
	require.ErrorIs(t, err, ErrIO)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "export", te.Op)
	assert.Equal(t, dest, te.File)
	assert.Equal(t, 3, te.ExitCode)
	assert.Equal(t, "Driver not loaded", te.Stderr)
	assert.Contains(t, err.Error(), "exit code 3")
	assert.Contains(t, err.Error(), "Driver not loaded")
}

func TestExport_RunFailure(t *testing.T) {
	tool := newTool(t, &fakeRunner{err: errors.New("exec format error")})
	_, err := tool.Export(context.Background(), filepath.Join(t.TempDir(), "bios_out.txt"))
	require.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "exec format error")
}

func TestExport_UTF16(t *testing.T) {
	tool := newTool(t, &fakeRunner{output: []byte("\xff\xfeV\x00a\x00l\x00u\x00e\x00")})
	text, err := tool.Export(context.Background(), filepath.Join(t.TempDir(), "bios_out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Value", text)
}

func TestImport(t *testing.T) {
	r := &fakeRunner{}
	tool := newTool(t, r)

	require.NoError(t, tool.Import(context.Background(), "bios_set.txt"))
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"/i", "/s", "bios_set.txt"}, r.calls[0].args)
}

func TestImport_NonZeroExit(t *testing.T) {
	tool := newTool(t, &fakeRunner{result: Result{ExitCode: 1, Stderr: []byte("locked")}})

	err := tool.Import(context.Background(), "bios_set.txt")
	require.ErrorIs(t, err, ErrIO)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "import", te.Op)
	assert.Equal(t, 1, te.ExitCode)
}

func TestTimeout(t *testing.T) {
	tool := newTool(t, &fakeRunner{block: true}, WithTimeout(10*time.Millisecond))

	err := tool.Import(context.Background(), "bios_set.txt")
	require.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), context.DeadlineExceeded.Error())
}

type runLog struct {
	ops  []string
	errs []error
}

func (l *runLog) ObserveToolRun(op string, _ time.Duration, err error) {
	l.ops = append(l.ops, op)
	l.errs = append(l.errs, err)
}

func TestObserver(t *testing.T) {
	obs := &runLog{}
	r := &fakeRunner{output: []byte("Setup Question = X\nValue = 1\n")}
	tool := newTool(t, r, WithObserver(obs))

	_, err := tool.Export(context.Background(), filepath.Join(t.TempDir(), "bios_out.txt"))
	require.NoError(t, err)

	r.result = Result{ExitCode: 2}
	require.Error(t, tool.Import(context.Background(), "bios_set.txt"))

	assert.Equal(t, []string{"export", "import"}, obs.ops)
	assert.NoError(t, obs.errs[0])
	assert.ErrorIs(t, obs.errs[1], ErrIO)
}
