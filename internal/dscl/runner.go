package dscl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrCommandTimeout marks an external command that exceeded the bounded
// timeout. A hung directory utility would otherwise block the whole
// pass; expiry is surfaced fatally.
var ErrCommandTimeout = errors.New("command timed out")

// Runner executes commands. The production implementation shells out;
// tests and dry runs substitute a RecordingRunner.
type Runner interface {
	Run(ctx context.Context, c Command) (string, error)
}

// ExecRunner runs commands against the real system.
type ExecRunner struct {
	Timeout time.Duration
}

func NewRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExecRunner{Timeout: timeout}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if len(c.Secrets) > 0 {
		return runWithPrompts(ctx, c)
	}

	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%s: %w", c, ErrCommandTimeout)
		}
		s := strings.TrimSpace(stderr.String())
		if s == "" {
			return stdout.String(), fmt.Errorf("%s: %w", c, err)
		}
		return stdout.String(), fmt.Errorf("%s: %s", c, s)
	}
	// sysadminctl reports on stderr even on success, so both streams are
	// part of the result.
	return stdout.String() + stderr.String(), nil
}

// RecordingRunner captures the command sequence instead of executing
// it. Outputs, when set, maps Command.String() to a canned result.
type RecordingRunner struct {
	Commands []Command
	Outputs  map[string]string
	Errs     map[string]error
}

func (r *RecordingRunner) Run(_ context.Context, c Command) (string, error) {
	r.Commands = append(r.Commands, c)
	if err, ok := r.Errs[c.String()]; ok {
		return "", err
	}
	return r.Outputs[c.String()], nil
}

// Strings returns the recorded invocations in order, redacted.
func (r *RecordingRunner) Strings() []string {
	out := make([]string, 0, len(r.Commands))
	for _, c := range r.Commands {
		out = append(out, c.String())
	}
	return out
}
