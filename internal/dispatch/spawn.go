// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/SOALIN228/soa-cli/pkg/types"
)

// ErrSpawn is returned when the command package could not be started.
var ErrSpawn = errors.New("failed to start command package")

// SpawnError wraps the start failure of an entry point.
type SpawnError struct {
	Entry string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting %s: %v", e.Entry, e.Err)
}

func (e *SpawnError) Unwrap() []error { return []error{ErrSpawn, e.Err} }

// ParseInterpreter splits a configured interpreter command line such as
// "node --enable-source-maps" with POSIX shell quoting rules.
func ParseInterpreter(s string) ([]string, error) {
	fields, err := shell.Fields(s, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parsing interpreter %q: %w", s, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("parsing interpreter %q: empty command", s)
	}
	return fields, nil
}

// isJavaScript reports whether entry must be run through the interpreter.
func isJavaScript(entry string) bool {
	switch strings.ToLower(filepath.Ext(entry)) {
	case ".js", ".cjs", ".mjs":
		return true
	}
	return false
}

// spawn runs entry with payload as last argument and in InvocationEnv,
// attached to the dispatcher's streams.
func (d *Dispatcher) spawn(ctx context.Context, entry string, payload []byte) (types.ExitCode, error) {
	path := filepath.FromSlash(entry)

	var argv []string
	if isJavaScript(path) {
		argv = append(argv, d.opts.Interpreter...)
	}
	argv = append(argv, path, string(payload))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), InvocationEnv+"="+string(payload))
	cmd.Stdin = d.opts.Stdin
	cmd.Stdout = d.opts.Stdout
	cmd.Stderr = d.opts.Stderr

	err := cmd.Run()
	if err == nil {
		return types.ExitSuccess, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Killed by a signal reports -1.
		return types.ExitCode(exitErr.ExitCode()).Normalize(), nil
	}
	return types.ExitFailure, &SpawnError{Entry: entry, Err: err}
}
