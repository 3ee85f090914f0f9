package http

import (
	"context"
	"sync"
)

// Session remembers the last request and response of one logical thread of
// execution (a test, a goroutine). Starting a call clears what was stored;
// it is stored again only once the call has succeeded.
type Session struct {
	client *Client

	mu       sync.Mutex
	request  *RequestConfig
	response *Response
}

// NewSession creates a session sending through c
func (c *Client) NewSession() *Session {
	return &Session{client: c}
}

// HTTP calls a named client over plain HTTP unless its configuration says otherwise
func (s *Session) HTTP(ctx context.Context, name string, configure func(*Builder)) (*Response, error) {
	return s.call(ctx, name, false, configure)
}

// HTTPS calls a named client over TLS unless its configuration says otherwise
func (s *Session) HTTPS(ctx context.Context, name string, configure func(*Builder)) (*Response, error) {
	return s.call(ctx, name, true, configure)
}

// Do sends a prepared configuration
func (s *Session) Do(ctx context.Context, cfg *RequestConfig) (*Response, error) {
	s.Reset()
	return s.record(s.client.Do(ctx, cfg))
}

func (s *Session) call(ctx context.Context, name string, secure bool, configure func(*Builder)) (*Response, error) {
	s.Reset()
	return s.record(s.client.HTTP(ctx, name, secure, configure))
}

func (s *Session) record(ex *Exchange, err error) (*Response, error) {
	if err != nil {
		if ex != nil {
			return ex.Response, err
		}
		return nil, err
	}

	s.mu.Lock()
	s.request = ex.Request
	s.response = ex.Response
	s.mu.Unlock()
	return ex.Response, nil
}

// Request returns the configuration of the last successful call
func (s *Session) Request() (*RequestConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.request == nil {
		return nil, ErrNoRequest
	}
	return s.request, nil
}

// Response returns the response of the last successful call
func (s *Session) Response() (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.response == nil {
		return nil, ErrNoResponse
	}
	return s.response, nil
}

// Reset forgets the last call
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request = nil
	s.response = nil
}

type sessionKey struct{}

// WithSession attaches a session to ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session attached to ctx, if any
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
