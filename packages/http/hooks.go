package http

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
)

// Hook is anything that can be registered on a Pipeline. What it does is
// decided by which of the capability interfaces below it implements.
type Hook interface {
	ID() string
}

// PreSendHook runs after the request has been built and before it is sent.
// It may add headers or otherwise modify Call.Request.
type PreSendHook interface {
	Hook
	OnPreSend(ctx context.Context, call *Call) error
}

// PostReceiveHook runs after the response has been read and logged
type PostReceiveHook interface {
	Hook
	OnPostReceive(ctx context.Context, call *Call) error
}

// Call is the state hooks see for one request
type Call struct {
	ID      string
	Config  *RequestConfig
	Request *http.Request
	// Body is the rendered request body
	Body     string
	Response *Response
}

// Pipeline runs registered hooks in registration order. A hook error aborts
// the call and is returned to the caller.
type Pipeline struct {
	mu          sync.RWMutex
	hooks       []Hook
	preSend     []PreSendHook
	postReceive []PostReceiveHook
}

// NewPipeline creates a pipeline with the given hooks registered
func NewPipeline(hooks ...Hook) *Pipeline {
	p := &Pipeline{}
	for _, h := range hooks {
		p.Register(h)
	}
	return p
}

// Register detects which capability interfaces a hook implements and adds
// it to the matching lists.
func (p *Pipeline) Register(hook Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.hooks = append(p.hooks, hook)
	if h, ok := hook.(PreSendHook); ok {
		p.preSend = append(p.preSend, h)
	}
	if h, ok := hook.(PostReceiveHook); ok {
		p.postReceive = append(p.postReceive, h)
	}
}

// Hooks returns the ids of all registered hooks
func (p *Pipeline) Hooks() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, len(p.hooks))
	for i, h := range p.hooks {
		ids[i] = h.ID()
	}
	return ids
}

// RunPreSend runs every pre-send hook, stopping at the first error
func (p *Pipeline) RunPreSend(ctx context.Context, call *Call) error {
	p.mu.RLock()
	hooks := append([]PreSendHook(nil), p.preSend...)
	p.mu.RUnlock()

	for _, h := range hooks {
		if err := h.OnPreSend(ctx, call); err != nil {
			return fmt.Errorf("pre-send hook %s: %w", h.ID(), err)
		}
	}
	return nil
}

// RunPostReceive runs every post-receive hook, stopping at the first error
func (p *Pipeline) RunPostReceive(ctx context.Context, call *Call) error {
	p.mu.RLock()
	hooks := append([]PostReceiveHook(nil), p.postReceive...)
	p.mu.RUnlock()

	for _, h := range hooks {
		if err := h.OnPostReceive(ctx, call); err != nil {
			return fmt.Errorf("post-receive hook %s: %w", h.ID(), err)
		}
	}
	return nil
}

// BasicAuthHook sets the Authorization header from RequestConfig.BasicAuth
type BasicAuthHook struct{}

func (BasicAuthHook) ID() string { return AuthBasic }

func (BasicAuthHook) OnPreSend(_ context.Context, call *Call) error {
	cfg := call.Config
	if cfg.Auth != AuthBasic || cfg.BasicAuth == nil {
		return nil
	}
	creds := cfg.BasicAuth.Username + ":" + cfg.BasicAuth.Password
	call.Request.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	return nil
}
