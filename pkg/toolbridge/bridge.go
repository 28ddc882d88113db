// Package toolbridge wraps the host EDA tool's command-line utilities:
// netlist export, BOM export and electrical rule checking. Every call is
// a blocking subprocess with a bounded timeout, run strictly after the
// project files are written, so a tool failure never corrupts the
// project. Failures surface as typed errors and are never retried; they
// come from the environment, not from transient faults.
package toolbridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrToolNotFound reports that the external tool binary is not on PATH
var ErrToolNotFound = errors.New("external tool not found")

// ToolError is a tool invocation that ran but failed
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s failed: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Runner executes one external command and returns its stdout. Tests
// inject a fake; the default shells out.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Bridge invokes the host tool's CLI for one project
type Bridge struct {
	// Binary is the tool executable, resolved via PATH when bare
	Binary string

	// Timeout bounds each invocation; expiry is a tool failure
	Timeout time.Duration

	// Run executes commands; nil means a real subprocess
	Run Runner
}

// New returns a bridge around the given binary
func New(binary string, timeout time.Duration) *Bridge {
	if binary == "" {
		binary = "kicad-cli"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Bridge{Binary: binary, Timeout: timeout}
}

func (b *Bridge) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	runner := b.Run
	if runner == nil {
		runner = execRunner
	}
	return runner(ctx, b.Binary, args...)
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return stdout.Bytes(), &ToolError{
		Tool:   name,
		Args:   args,
		Stderr: strings.TrimSpace(stderr.String()),
		Err:    err,
	}
}
