// Package transport runs structured command descriptors either on the local
// host or on a remote host reached over ssh. Callers build Command values and
// never interpolate shell strings themselves.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Command describes a process invocation as an argument list.
type Command struct {
	Name string
	Args []string
}

// Argv returns the full argument vector including the program name.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command as a shell-safe line, suitable for display and
// for handing to a remote shell.
func (c Command) String() string {
	argv := c.Argv()
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = Quote(a)
	}
	return strings.Join(parts, " ")
}

// Streams wires a command's standard streams. Nil fields are discarded
// (stdout/stderr) or empty (stdin).
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Transport executes commands somewhere.
type Transport interface {
	// Name identifies the transport in logs ("local", "ssh:pi1").
	Name() string
	// Run executes c and blocks until it exits.
	Run(ctx context.Context, c Command, s Streams) error
}

// ExitError reports a command that failed to start or exited non-zero.
type ExitError struct {
	Command   Command
	Transport string
	Stderr    string
	Err       error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Transport, e.Command.String(), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the process exit status, or -1 when the process never ran.
func (e *ExitError) ExitCode() int {
	var ee *exec.ExitError
	if errors.As(e.Err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// Output runs c on t and returns its trimmed stdout.
func Output(ctx context.Context, t Transport, c Command) (string, error) {
	var stdout bytes.Buffer
	if err := t.Run(ctx, c, Streams{Stdout: &stdout}); err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

func runCmd(ctx context.Context, cmd *exec.Cmd, c Command, name string, s Streams) error {
	logger := zerolog.Ctx(ctx)
	var stderrBuf bytes.Buffer
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	if s.Stdout == nil {
		cmd.Stdout = io.Discard
	}
	if s.Stderr != nil {
		cmd.Stderr = io.MultiWriter(s.Stderr, &stderrBuf)
	} else {
		cmd.Stderr = &stderrBuf
	}

	start := time.Now()
	logger.Debug().Str("action", "exec").Str("transport", name).Str("cmd", c.String()).Msg("starting command")
	if err := cmd.Run(); err != nil {
		logger.Debug().Err(err).Str("action", "exec").Str("transport", name).Str("cmd", c.String()).
			Dur("elapsed_ms", time.Since(start)).Msg("command failed")
		return &ExitError{Command: c, Transport: name, Stderr: stderrBuf.String(), Err: err}
	}
	logger.Debug().Str("action", "exec").Str("transport", name).Str("cmd", c.String()).
		Dur("elapsed_ms", time.Since(start)).Msg("command finished")
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
