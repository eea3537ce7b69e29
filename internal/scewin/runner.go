package scewin

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result is the outcome of one tool invocation.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner starts the vendor tool and waits for it to exit. A non-zero exit
// status is reported through Result.ExitCode; the error is reserved for
// failures to run the process at all.
type Runner interface {
	Run(ctx context.Context, path string, args ...string) (Result, error)
}

// ExecRunner runs the tool as a child process.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, path string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, err
	}
	return res, nil
}
