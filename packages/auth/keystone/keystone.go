// Package keystone authenticates calls against OpenStack Keystone. A
// password login is made once per descriptor and the token is sent as
// X-Auth-Token on every call that selects keystone auth.
package keystone

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/abdul-hamid-achik/hitcall/packages/logging"
)

const (
	// HeaderAuthToken carries the token on authenticated calls
	HeaderAuthToken = "X-Auth-Token"
	// HeaderSubjectToken carries the issued token in the login response
	HeaderSubjectToken = "X-Subject-Token"

	tokensPath = "auth/tokens?nocatalog=true"

	// DefaultTimeout bounds a login request
	DefaultTimeout = 30 * time.Second
)

type name struct {
	Name string `json:"name"`
}

type user struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Domain   name   `json:"domain"`
}

type project struct {
	Name   string `json:"name"`
	Domain name   `json:"domain"`
}

type authRequest struct {
	Auth struct {
		Identity struct {
			Methods  []string `json:"methods"`
			Password struct {
				User user `json:"user"`
			} `json:"password"`
		} `json:"identity"`
		Scope struct {
			Project project `json:"project"`
		} `json:"scope"`
	} `json:"auth"`
}

func newAuthRequest(desc hithttp.KeystoneAuth) authRequest {
	var r authRequest
	r.Auth.Identity.Methods = []string{"password"}
	r.Auth.Identity.Password.User = user{
		Name:     desc.Username,
		Password: desc.Password,
		Domain:   name{Name: desc.Domain},
	}
	r.Auth.Scope.Project = project{
		Name:   desc.Project,
		Domain: name{Name: desc.Domain},
	}
	return r
}

// Token is the result of a successful login
type Token struct {
	Value string
	// Body is the decoded token document returned by keystone
	Body map[string]any
}

// TokensURL returns the login endpoint under a keystone base URL
func TokensURL(base string) (string, error) {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("%q has no host", base)
	}
	ref, err := url.Parse(tokensPath)
	if err != nil {
		return "", err
	}
	return u.ResolveReference(ref).String(), nil
}

// Authenticate performs a password login. client may be nil; when the
// descriptor names a certificate the server is verified against it.
func Authenticate(ctx context.Context, client *http.Client, desc hithttp.KeystoneAuth) (*Token, error) {
	fail := func(err error) error {
		return &hithttp.AuthenticationError{Strategy: hithttp.AuthKeystone, URL: desc.URL, Err: err}
	}

	endpoint, err := TokensURL(desc.URL)
	if err != nil {
		return nil, fail(err)
	}

	if desc.Cert != "" {
		pool, err := hithttp.LoadCertPool(desc.Cert)
		if err != nil {
			return nil, fail(err)
		}
		client = &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
			},
		}
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	payload, err := json.MarshalIndent(newAuthRequest(desc), "", "  ")
	if err != nil {
		return nil, fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fail(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fail(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, &hithttp.AuthenticationError{
			Strategy:   hithttp.AuthKeystone,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	token := resp.Header.Get(HeaderSubjectToken)
	if token == "" {
		return nil, fail(errors.New("response carries no " + HeaderSubjectToken + " header"))
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fail(fmt.Errorf("decoding token document: %w", err))
	}

	return &Token{Value: token, Body: doc}, nil
}

// Hook is a pre-send hook adding X-Auth-Token to calls using keystone auth
type Hook struct {
	cache      *TokenCache
	group      singleflight.Group
	httpClient *http.Client
	logger     *zap.Logger
}

// Option is a functional option for Hook
type Option func(*Hook)

// WithCache sets the token cache; GlobalCache is used otherwise
func WithCache(c *TokenCache) Option {
	return func(h *Hook) {
		h.cache = c
	}
}

// WithHTTPClient sets the client used for logins without a certificate
func WithHTTPClient(c *http.Client) Option {
	return func(h *Hook) {
		h.httpClient = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Hook) {
		h.logger = l
	}
}

// NewHook creates a keystone hook
func NewHook(opts ...Option) *Hook {
	h := &Hook{cache: GlobalCache}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.OrNop(h.logger).Named("keystone")
	return h
}

func (h *Hook) ID() string { return hithttp.AuthKeystone }

// OnPreSend implements http.PreSendHook
func (h *Hook) OnPreSend(ctx context.Context, call *hithttp.Call) error {
	cfg := call.Config
	if cfg.Auth != hithttp.AuthKeystone || cfg.Keystone == nil {
		return nil
	}

	token, err := h.Token(ctx, *cfg.Keystone)
	if err != nil {
		return err
	}
	call.Request.Header.Set(HeaderAuthToken, token)
	return nil
}

// Token returns the cached token for desc, logging in on first use.
// Concurrent first uses of one descriptor share a single login.
func (h *Hook) Token(ctx context.Context, desc hithttp.KeystoneAuth) (string, error) {
	if token, ok := h.cache.Get(desc); ok {
		return token, nil
	}

	v, err, _ := h.group.Do(flightKey(desc), func() (any, error) {
		if token, ok := h.cache.Get(desc); ok {
			return token, nil
		}

		// The login is shared, so one caller giving up must not fail the rest.
		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTimeout)
		defer cancel()

		start := time.Now()
		tok, err := Authenticate(loginCtx, h.httpClient, desc)
		if err != nil {
			return nil, err
		}
		h.cache.Set(desc, tok.Value)

		h.logger.Info("keystone token issued",
			logging.URL(desc.URL),
			zap.String("user", desc.Username),
			zap.String("project", desc.Project),
			logging.Duration(time.Since(start)))
		return tok.Value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func flightKey(desc hithttp.KeystoneAuth) string {
	return strings.Join([]string{desc.URL, desc.Username, desc.Password, desc.Project, desc.Domain, desc.Cert}, "\x00")
}
