package http

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Builder mutates a RequestConfig through chainable calls. The first error
// encountered is kept and returned by Config.
type Builder struct {
	cfg *RequestConfig
	err error
}

// NewBuilder starts a builder on cfg. cfg is modified in place.
func NewBuilder(cfg *RequestConfig) *Builder {
	if cfg.Params == nil {
		cfg.Params = make(map[string]any)
	}
	return &Builder{cfg: cfg}
}

// Config returns the built configuration, or the first builder error
func (b *Builder) Config() (*RequestConfig, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg, nil
}

func (b *Builder) Method(method string) *Builder {
	b.cfg.Method = strings.ToUpper(strings.TrimSpace(method))
	return b
}

func (b *Builder) Get(path string) *Builder    { return b.Method("GET").Path(path) }
func (b *Builder) Post(path string) *Builder   { return b.Method("POST").Path(path) }
func (b *Builder) Put(path string) *Builder    { return b.Method("PUT").Path(path) }
func (b *Builder) Patch(path string) *Builder  { return b.Method("PATCH").Path(path) }
func (b *Builder) Delete(path string) *Builder { return b.Method("DELETE").Path(path) }

// URL overrides the base URL
func (b *Builder) URL(baseURL string) *Builder {
	b.cfg.BaseURL = strings.TrimSpace(baseURL)
	return b
}

func (b *Builder) Path(path string) *Builder {
	b.cfg.Path = path
	return b
}

// Endpoint targets an operation by name instead of a literal path
func (b *Builder) Endpoint(operation string) *Builder {
	b.cfg.Endpoint = operation
	return b
}

// OpenAPI sets the document the endpoint is looked up in
func (b *Builder) OpenAPI(source string) *Builder {
	b.cfg.OpenAPI = source
	return b
}

// Header appends a header. Headers in UniqueHeaders replace any earlier
// value instead.
func (b *Builder) Header(name string, value any) *Builder {
	name = strings.TrimSpace(name)
	v := strings.TrimSpace(fmt.Sprint(value))

	if IsUniqueHeader(name) {
		kept := make(Pairs, 0, len(b.cfg.Headers))
		for _, h := range b.cfg.Headers {
			if !strings.EqualFold(h.Name, name) {
				kept = append(kept, h)
			}
		}
		b.cfg.Headers = kept
	}
	b.cfg.Headers = append(b.cfg.Headers, Pair{Name: name, Value: v})
	return b
}

// Query appends a query parameter
func (b *Builder) Query(name string, value any) *Builder {
	b.cfg.Query = append(b.cfg.Query, Pair{Name: name, Value: fmt.Sprint(value)})
	return b
}

// With sets a route parameter substituted into {name} placeholders
func (b *Builder) With(name string, value any) *Builder {
	b.cfg.Params[name] = value
	return b
}

// Param is an alias for With
func (b *Builder) Param(name string, value any) *Builder {
	return b.With(name, value)
}

// Body sets a raw body
func (b *Builder) Body(body string) *Builder {
	b.cfg.Body = body
	return b
}

// JSON encodes v as an indented JSON body. Content-Type defaults to
// application/json unless one has been set already.
func (b *Builder) JSON(v any) *Builder {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("encoding JSON body: %w", err)
		}
		return b
	}
	b.cfg.Body = string(data)
	if !b.cfg.HasContentType() {
		b.cfg.ContentType = "application/json"
	}
	return b
}

func (b *Builder) ContentType(ct string) *Builder {
	b.cfg.ContentType = ct
	return b
}

// BasicAuth sets credentials and selects the basic auth strategy
func (b *Builder) BasicAuth(username, password string) *Builder {
	b.cfg.BasicAuth = &BasicAuth{Username: username, Password: password}
	b.cfg.Auth = AuthBasic
	return b
}

func (b *Builder) Timeout(d time.Duration) *Builder {
	b.cfg.Timeout = d.Seconds()
	return b
}

// Retries sets how many times a failed connection is retried for
// idempotent methods.
func (b *Builder) Retries(n int) *Builder {
	if n < 0 {
		n = 0
	}
	b.cfg.Retries = n
	return b
}

// Certificate sets a PEM file the server certificate is verified against
func (b *Builder) Certificate(path string) *Builder {
	b.cfg.Cert = path
	return b
}

// Authenticate selects an auth strategy by name
func (b *Builder) Authenticate(strategy string) *Builder {
	b.cfg.Auth = strategy
	return b
}

// NoAuth disables every auth hook for this call
func (b *Builder) NoAuth() *Builder {
	b.cfg.Auth = AuthNone
	return b
}

// Keystone sets the login descriptor and selects keystone auth
func (b *Builder) Keystone(desc KeystoneAuth) *Builder {
	b.cfg.Keystone = &desc
	b.cfg.Auth = AuthKeystone
	return b
}

// AWS sets credentials and selects AWS Signature v4 signing
func (b *Builder) AWS(creds AWSAuthCredentials) *Builder {
	b.cfg.AWS = &creds
	b.cfg.Auth = AuthAWS
	return b
}

func (b *Builder) UseSSL(on bool) *Builder {
	b.cfg.UseSSL = on
	return b
}

// NoLog hides request and response bodies in the audit log
func (b *Builder) NoLog() *Builder {
	b.cfg.NoLog = true
	return b
}

// EnsureSuccess makes a status of 400 or above fail the call
func (b *Builder) EnsureSuccess() *Builder {
	b.cfg.EnsureSuccess = true
	return b
}
