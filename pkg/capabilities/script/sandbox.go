// Package script provides the isolated, time-bounded sandbox that executes
// caller-supplied script node logic against the run context.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/expr-lang/expr"
)

// ErrTimeout indicates the script exceeded its time budget.
var ErrTimeout = errors.New("script execution timed out")

const defaultTimeout = 5 * time.Second

// Sandbox compiles and runs expression programs with a hard time budget.
// Programs cannot reach the filesystem, network, or process environment;
// their only input is the environment map passed to Run.
type Sandbox struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewSandbox creates a sandbox with the given per-run time budget. A
// non-positive timeout falls back to the default of 5s.
func NewSandbox(timeout time.Duration, logger *slog.Logger) *Sandbox {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Sandbox{
		timeout: timeout,
		logger:  logger.With("module", "script_sandbox"),
	}
}

// Run compiles source against env and evaluates it, returning the program's
// value. A compile error, runtime fault, or timeout is returned as an error;
// callers classify it as a script fault.
func (s *Sandbox) Run(ctx context.Context, source string, env map[string]any) (any, error) {
	program, err := expr.Compile(source, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		value any
		err   error
	}

	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("script panicked: %v", r)}
			}
		}()

		value, runErr := expr.Run(program, env)
		done <- result{value: value, err: runErr}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("script fault: %w", res.err)
		}

		return res.value, nil
	case <-runCtx.Done():
		s.logger.WarnContext(ctx, "Script exceeded time budget", "timeout", s.timeout)

		return nil, ErrTimeout
	}
}
