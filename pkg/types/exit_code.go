// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared by the command line and its
// tests.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Process exit codes.
const (
	// ExitOK reports success.
	ExitOK ExitCode = 0
	// ExitGraphError reports a build graph that cannot be generated:
	// unresolvable references, cycles, invalid rules or write failures.
	ExitGraphError ExitCode = 1
	// ExitUsage reports a bad invocation or configuration.
	ExitUsage ExitCode = 2
	// ExitInterrupted reports a run stopped by SIGINT.
	ExitInterrupted ExitCode = 130
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code in the range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates success.
func (c ExitCode) IsSuccess() bool { return c == ExitOK }

// IsUsage returns true when the failure came from the invocation rather
// than the build graph, so rerunning with different flags may succeed.
func (c ExitCode) IsUsage() bool { return c == ExitUsage }

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
