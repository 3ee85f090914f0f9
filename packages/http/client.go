package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitcall/packages/audit"
	"github.com/abdul-hamid-achik/hitcall/packages/catalog"
	"github.com/abdul-hamid-achik/hitcall/packages/core/config"
	"github.com/abdul-hamid-achik/hitcall/packages/logging"
)

const (
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client issues calls for named clients. It is safe for concurrent use; the
// per-call state lives in a Session.
type Client struct {
	store     *config.Store
	catalogs  *catalog.Cache
	pipeline  *Pipeline
	logger    *zap.Logger
	audit     *audit.Logger
	plain     *audit.Logger // unredacted, used while debug is on
	debug     bool
	verifyTLS bool
	limiter   *rate.Limiter

	mu         sync.Mutex
	transports map[string]http.RoundTripper // by certificate path
}

// Exchange is one completed call
type Exchange struct {
	ID string
	// URL is the final request URL, query included
	URL      string
	Request  *RequestConfig
	Response *Response
}

type ClientOption func(*Client)

// WithStore sets where named client configurations are looked up
func WithStore(s *config.Store) ClientOption {
	return func(c *Client) {
		c.store = s
	}
}

// WithCatalogCache sets the cache used to resolve named endpoints
func WithCatalogCache(cache *catalog.Cache) ClientOption {
	return func(c *Client) {
		c.catalogs = cache
	}
}

// WithHooks registers hooks after the built-in basic auth hook
func WithHooks(hooks ...Hook) ClientOption {
	return func(c *Client) {
		for _, h := range hooks {
			c.pipeline.Register(h)
		}
	}
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDebug turns off redaction in the audit log regardless of the store's
// debug flag, which is read on every call
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithVerifyTLS verifies server certificates against the system roots when
// no certificate file is configured. Without it such calls skip
// verification.
func WithVerifyTLS(verify bool) ClientOption {
	return func(c *Client) {
		c.verifyTLS = verify
	}
}

// WithRateLimit caps the rate at which calls are sent
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		pipeline:   NewPipeline(BasicAuthHook{}),
		transports: make(map[string]http.RoundTripper),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = logging.OrNop(c.logger).Named("http")
	if c.store == nil {
		c.store = config.NewStore(nil)
	}
	if c.catalogs == nil {
		c.catalogs = catalog.NewCache(catalog.WithLogger(c.logger))
	}
	c.audit = audit.NewLogger(c.logger, false)
	c.plain = audit.NewLogger(c.logger, true)

	return c
}

func (c *Client) Store() *config.Store     { return c.store }
func (c *Client) Catalogs() *catalog.Cache { return c.catalogs }
func (c *Client) Pipeline() *Pipeline      { return c.pipeline }

// Resolve returns the starting configuration for a named client
func (c *Client) Resolve(name string, secure bool) (*RequestConfig, error) {
	return Resolve(c.store, name, secure)
}

// HTTP resolves a named client, lets configure adjust it, and sends it
func (c *Client) HTTP(ctx context.Context, name string, secure bool, configure func(*Builder)) (*Exchange, error) {
	cfg, err := c.Resolve(name, secure)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(cfg)
	if configure != nil {
		configure(b)
	}
	if cfg, err = b.Config(); err != nil {
		return nil, err
	}
	return c.Do(ctx, cfg)
}

// Do sends cfg. The configuration is copied first; the copy, with its
// resolved method and path and its timestamps, is what the Exchange holds.
// When EnsureSuccess is set and the status is 400 or above, the Exchange is
// returned together with an UnsuccessfulResponseError.
func (c *Client) Do(ctx context.Context, cfg *RequestConfig) (*Exchange, error) {
	cfg = cfg.Clone()
	id := audit.NewCorrelationID()

	u, err := ResolveURL(ctx, cfg, c.catalogs)
	if err != nil {
		return nil, err
	}
	if missing := UnresolvedPlaceholders(u.Path); len(missing) > 0 {
		c.logger.Warn("route params not provided, placeholders left as is",
			logging.CorrelationID(id),
			logging.URL(u.String()),
			zap.Strings("params", missing))
	}

	body, err := encodeBody(cfg)
	if err != nil {
		return nil, &ConfigurationError{Client: cfg.Name, Reason: "cannot encode body", Err: err}
	}

	rt, err := c.transportFor(cfg)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "https" && cfg.Cert == "" && !c.verifyTLS {
		c.logger.Warn("TLS certificate verification is disabled, configure a cert to verify the server",
			logging.CorrelationID(id),
			logging.Client(cfg.Name))
	}

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(ctx, cfg.Method, u.String(), reader)
	if err != nil {
		return nil, &InvalidURLError{URL: u.String(), Err: err}
	}
	if cfg.ContentType != "" {
		req.Header.Set(HeaderContentType, cfg.ContentType)
	}
	for _, h := range cfg.Headers {
		if IsUniqueHeader(h.Name) {
			req.Header.Set(h.Name, h.Value)
			continue
		}
		req.Header.Add(h.Name, h.Value)
	}

	call := &Call{ID: id, Config: cfg, Request: req, Body: body}
	if err := c.pipeline.RunPreSend(ctx, call); err != nil {
		return nil, err
	}
	req = call.Request

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("[%s] rate limit wait for '%s %s': %w", id, cfg.Method, req.URL, err)
		}
	}

	auditLog := c.auditLogger()
	auditLog.LogRequest(audit.RequestEntry{
		ID:     id,
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header,
		Body:   body,
		NoLog:  cfg.NoLog,
	})

	httpClient := &http.Client{
		Transport: &retryTransport{base: rt, retries: cfg.Retries, logger: c.logger},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// The timeout covers the exchange only, not hooks or rate limiting.
	timeout := cfg.TimeoutDuration()
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req = req.WithContext(sendCtx)

	cfg.StartedAt = time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		cfg.FinishedAt = time.Now()
		return nil, c.transportError(id, cfg, req, timeout, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	cfg.FinishedAt = time.Now()
	if err != nil {
		return nil, c.transportError(id, cfg, req, timeout, err)
	}

	response := NewResponse(resp, respBody, cfg.FinishedAt.Sub(cfg.StartedAt))
	auditLog.LogResponse(audit.ResponseEntry{
		ID:         id,
		StatusCode: response.StatusCode,
		Message:    response.Message,
		Header:     response.Headers,
		Body:       response.BodyString(),
		Duration:   response.Duration,
		NoLog:      cfg.NoLog,
	})

	call.Response = response
	if err := c.pipeline.RunPostReceive(ctx, call); err != nil {
		return nil, err
	}

	exchange := &Exchange{ID: id, URL: req.URL.String(), Request: cfg, Response: response}
	if cfg.EnsureSuccess && !response.Success() {
		return exchange, &UnsuccessfulResponseError{
			ID:         id,
			Method:     cfg.Method,
			URL:        req.URL.String(),
			StatusCode: response.StatusCode,
			Status:     response.Message,
		}
	}
	return exchange, nil
}

// auditLogger reads the debug flag per call since a reload may toggle it
func (c *Client) auditLogger() *audit.Logger {
	if c.debug || c.store.Debug() {
		return c.plain
	}
	return c.audit
}

func (c *Client) transportError(id string, cfg *RequestConfig, req *http.Request, timeout time.Duration, err error) error {
	herr := &HTTPError{ID: id, Method: cfg.Method, URL: req.URL.String(), Err: err}
	if isTimeout(err) {
		herr.Timeout = timeout
	}
	c.logger.Error("request failed",
		logging.CorrelationID(id),
		logging.Method(cfg.Method),
		logging.URL(herr.URL),
		zap.Error(err))
	return herr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// encodeBody renders the body; structured values are sent as indented JSON
func encodeBody(cfg *RequestConfig) (string, error) {
	switch b := cfg.Body.(type) {
	case nil:
		return "", nil
	case string:
		return b, nil
	case []byte:
		return string(b), nil
	default:
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return "", err
		}
		if !cfg.HasContentType() {
			cfg.ContentType = "application/json"
		}
		return string(data), nil
	}
}

// transportFor returns the pooled transport for the call's certificate
func (c *Client) transportFor(cfg *RequestConfig) (http.RoundTripper, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rt, ok := c.transports[cfg.Cert]; ok {
		return rt, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	switch {
	case cfg.Cert != "":
		pool, err := LoadCertPool(cfg.Cert)
		if err != nil {
			return nil, &ConfigurationError{Client: cfg.Name, Reason: "invalid certificate", Err: err}
		}
		tlsConfig.RootCAs = pool
	case !c.verifyTLS:
		tlsConfig.InsecureSkipVerify = true
	}

	rt := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}
	c.transports[cfg.Cert] = rt
	return rt, nil
}

// LoadCertPool reads a PEM file into a certificate pool
func LoadCertPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("certificate file %s does not exist", path)
		}
		return nil, fmt.Errorf("reading certificate file %s: %w", path, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no PEM certificates found in %s", path)
	}
	return pool, nil
}

// retryTransport resends idempotent requests that failed before a response
// arrived.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	logger  *zap.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)

	for attempt := 1; err != nil && attempt <= t.retries && isIdempotent(req.Method); attempt++ {
		if req.Context().Err() != nil {
			break
		}

		next := req.Clone(req.Context())
		if req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				break
			}
			body, gerr := req.GetBody()
			if gerr != nil {
				break
			}
			next.Body = body
		}

		t.logger.Warn("retrying request",
			logging.Method(req.Method),
			logging.URL(req.URL.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		resp, err = t.base.RoundTrip(next)
	}

	return resp, err
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
