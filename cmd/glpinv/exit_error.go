package main

import (
	"errors"

	"glpinv/internal/groups"
	"glpinv/internal/inventory"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitError carries the exit code and the stderr prefix of a failed run.
type exitError struct {
	code   int
	prefix string
	err    error
}

func (e *exitError) Error() string {
	return e.prefix + e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(err error) error {
	return &exitError{code: exitUsage, prefix: "error: ", err: err}
}

func configError(err error) error {
	return &exitError{code: exitFailure, prefix: "error: ", err: err}
}

func connectionError(err error) error {
	return &exitError{code: exitFailure, prefix: "unable to connect to GLPI: ", err: err}
}

func outputError(err error) error {
	return &exitError{code: exitFailure, prefix: "error: writing output: ", err: err}
}

// classify maps a walk failure to a config or connection error.
func classify(err error) error {
	var cfgErr *groups.ConfigError
	var retrErr *inventory.GroupRetrievalError
	if errors.As(err, &cfgErr) || errors.As(err, &retrErr) {
		return configError(err)
	}
	return connectionError(err)
}

// exitCode returns the process exit code for err. Errors cobra raises
// itself (unknown flags, flag groups, arguments) are usage errors.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return exitUsage
}

// errorMessage returns the stderr line for err.
func errorMessage(err error) string {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.Error()
	}
	return "error: " + err.Error()
}
