package main

import (
	"errors"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/miter"
	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
	"github.com/robert-at-pretension-io/sigtrace/internal/resolve"
	"github.com/robert-at-pretension-io/sigtrace/internal/tracer"
	"github.com/robert-at-pretension-io/sigtrace/internal/verilog"
	"github.com/robert-at-pretension-io/sigtrace/internal/yosys"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitNotProven   = 1
	ExitUsage       = 2
	ExitResolution  = 3
	ExitNoCandidate = 4
	ExitTimeout     = 5
	ExitBackend     = 6
)

// ExitError carries the exit code for an error. A nil Err exits silently.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) *ExitError {
	return &ExitError{Code: ExitUsage, Err: err}
}

// classify maps a pipeline error to its exit code.
func classify(err error) *ExitError {
	var (
		exitErr *ExitError
		resErr  *resolve.ResolutionError
		timeout *yosys.TimeoutError
		integ   *prover.IntegrityError
		mnf     *verilog.ModuleNotFoundError
		ambig   *miter.AmbiguousTopError
	)
	switch {
	case errors.As(err, &exitErr):
		return exitErr
	case errors.As(err, &resErr):
		return &ExitError{Code: ExitResolution, Err: err}
	case errors.Is(err, tracer.ErrNoCandidates):
		return &ExitError{Code: ExitNoCandidate, Err: err}
	case errors.As(err, &timeout):
		return &ExitError{Code: ExitTimeout, Err: err}
	case errors.As(err, &integ):
		return &ExitError{Code: ExitBackend, Err: err}
	case errors.Is(err, design.ErrFileNotFound), errors.As(err, &mnf), errors.As(err, &ambig):
		return &ExitError{Code: ExitUsage, Err: err}
	default:
		return &ExitError{Code: ExitBackend, Err: err}
	}
}
