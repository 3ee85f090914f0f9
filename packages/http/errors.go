package http

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoRequest is returned when the last request is read before any call completed
	ErrNoRequest = errors.New("no request has been invoked yet")
	// ErrNoResponse is returned when the last response is read before any call completed
	ErrNoResponse = errors.New("no response has been received yet")
)

// ConfigurationError reports a named client or request that cannot be used
// as configured.
type ConfigurationError struct {
	Client string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := e.Reason
	if e.Client != "" {
		msg = fmt.Sprintf("HTTP client %q: %s", e.Client, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InvalidURLError reports a URL that cannot be parsed or has no host
type InvalidURLError struct {
	URL    string
	Reason string
	Err    error
}

func (e *InvalidURLError) Error() string {
	msg := fmt.Sprintf("'%s' is not a valid uri", e.URL)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidURLError) Unwrap() error { return e.Err }

// EndpointNotFoundError reports an endpoint name missing from the catalog
type EndpointNotFoundError struct {
	Endpoint string
	Source   string
	Reason   string
}

func (e *EndpointNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("endpoint %q: %s", e.Endpoint, e.Reason)
	}
	if e.Source != "" {
		return fmt.Sprintf("endpoint %q not found in %s", e.Endpoint, e.Source)
	}
	return fmt.Sprintf("endpoint %q not found", e.Endpoint)
}

// AuthenticationError reports a failed authentication hook
type AuthenticationError struct {
	Strategy   string
	URL        string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("%s authentication against %s failed", e.Strategy, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": %d %s", e.StatusCode, e.Status)
		if e.Body != "" {
			msg += "\n" + e.Body
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// HTTPError reports a transport failure: the connection could not be made,
// or the response did not arrive within the configured timeout.
type HTTPError struct {
	ID      string
	Method  string
	URL     string
	Timeout time.Duration // set when the failure was a timeout
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("[%s] HTTP timeout of %s exceeded for '%s %s'", e.ID, e.Timeout, e.Method, e.URL)
	}
	return fmt.Sprintf("[%s] The request '%s %s' failed: %v\n"+
		"Please check if the given URL '%s' is valid and available "+
		"or a corresponding HTTP config in the environment file exists. "+
		"See log for more details.", e.ID, e.Method, e.URL, e.Err, e.URL)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// IsTimeout reports whether the failure was a timeout
func (e *HTTPError) IsTimeout() bool { return e.Timeout > 0 }

// UnsuccessfulResponseError is returned for a status >= 400 when the request
// asked for EnsureSuccess.
type UnsuccessfulResponseError struct {
	ID         string
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *UnsuccessfulResponseError) Error() string {
	return fmt.Sprintf("Response code of %s (%s %s) did not indicate success: %d %s",
		e.ID, e.Method, e.URL, e.StatusCode, e.Status)
}
