package cmd

import (
	"errors"

	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
)

// Exit codes for hitcall CLI
const (
	// ExitSuccess indicates the call completed
	ExitSuccess = 0

	// ExitCallFailure indicates an unsuccessful response or a rejected login
	ExitCallFailure = 1

	// ExitParseError indicates the configuration file could not be read
	ExitParseError = 2

	// ExitConfigError indicates a client configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error or timeout
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// usageError marks bad arguments or flags
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// configFileError marks a configuration file that could not be loaded
type configFileError struct {
	path string
	err  error
}

func (e *configFileError) Error() string {
	return "cannot load config " + e.path + ": " + e.err.Error()
}
func (e *configFileError) Unwrap() error { return e.err }

// reportedError is an error the formatter has already printed
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// ExitCode maps an error to the process exit code
func ExitCode(err error) int {
	var (
		usage    *usageError
		file     *configFileError
		cfgErr   *hithttp.ConfigurationError
		urlErr   *hithttp.InvalidURLError
		epErr    *hithttp.EndpointNotFoundError
		transErr *hithttp.HTTPError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &file):
		return ExitParseError
	case errors.As(err, &cfgErr), errors.As(err, &urlErr), errors.As(err, &epErr):
		return ExitConfigError
	case errors.As(err, &transErr):
		return ExitNetworkError
	default:
		return ExitCallFailure
	}
}
