package http

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcall/packages/core/config"
)

func TestPairs_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Pairs
	}{
		{
			name: "list of pairs",
			doc:  "- [header1, value1]\n- [header2, 2]\n",
			want: Pairs{{"header1", "value1"}, {"header2", "2"}},
		},
		{
			name: "list of mappings",
			doc:  "- name: a\n  value: b\n",
			want: Pairs{{"a", "b"}},
		},
		{
			name: "mapping keeps document order",
			doc:  "zeta: 1\nalpha: 2\n",
			want: Pairs{{"zeta", "1"}, {"alpha", "2"}},
		},
		{
			name: "duplicates kept",
			doc:  "- [k, 1]\n- [k, 2]\n",
			want: Pairs{{"k", "1"}, {"k", "2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Pairs
			require.NoError(t, yaml.Unmarshal([]byte(tt.doc), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPairs_UnmarshalYAML_Invalid(t *testing.T) {
	var got Pairs
	err := yaml.Unmarshal([]byte("- [only-name]\n"), &got)
	assert.Error(t, err)

	err = yaml.Unmarshal([]byte("just a string"), &got)
	assert.Error(t, err)
}

func exampleStore() *config.Store {
	return config.NewStore(map[string]map[string]any{
		"example": {
			"base_url": "some-rest-api.io",
			"path":     "some-resource",
			"method":   "post",
			"headers":  []any{[]any{"header1", "value1"}},
			"query":    []any{[]any{"key1", "value1"}},
		},
		"broken": {
			"path": "/missing-base",
		},
		"plain": {
			"base_url": "plain.io",
			"scheme":   "http",
		},
		"pinned": {
			"base_url": "pinned.io",
			"use_ssl":  true,
		},
	})
}

func TestResolve(t *testing.T) {
	cfg, err := Resolve(exampleStore(), "example", true)
	require.NoError(t, err)

	assert.Equal(t, "example", cfg.Name)
	assert.Equal(t, "POST", cfg.Method)
	assert.Equal(t, "some-rest-api.io", cfg.BaseURL)
	assert.Equal(t, "some-resource", cfg.Path)
	assert.True(t, cfg.UseSSL)
	assert.Equal(t, Pairs{{"header1", "value1"}}, cfg.Headers)
	assert.Equal(t, Pairs{{"key1", "value1"}}, cfg.Query)
	assert.Equal(t, 180*time.Second, cfg.TimeoutDuration())
	assert.NotNil(t, cfg.Params)
}

func TestResolve_MissingBaseURL(t *testing.T) {
	_, err := Resolve(exampleStore(), "broken", false)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "broken", cfgErr.Client)
}

func TestResolve_UnknownNameIsLiteralURL(t *testing.T) {
	cfg, err := Resolve(exampleStore(), "http://localhost:8080/api", false)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", cfg.BaseURL)
	assert.Equal(t, "GET", cfg.Method)

	cfg, err = Resolve(nil, "localhost:9000", true)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", cfg.BaseURL)
	assert.True(t, cfg.UseSSL)
}

func TestResolve_StoredSchemeWins(t *testing.T) {
	cfg, err := Resolve(exampleStore(), "plain", true)
	require.NoError(t, err)
	assert.False(t, cfg.UseSSL)

	cfg, err = Resolve(exampleStore(), "pinned", false)
	require.NoError(t, err)
	assert.True(t, cfg.UseSSL)
}

func TestResolve_DoesNotLeakBetweenCalls(t *testing.T) {
	store := exampleStore()

	first, err := Resolve(store, "example", false)
	require.NoError(t, err)
	NewBuilder(first).Header("X-Extra", "1").Query("extra", 1)

	second, err := Resolve(store, "example", false)
	require.NoError(t, err)
	assert.Len(t, second.Headers, 1)
	assert.Len(t, second.Query, 1)
}

func TestBuilder_VerbShortcuts(t *testing.T) {
	tests := []struct {
		name   string
		apply  func(*Builder) *Builder
		method string
	}{
		{"get", func(b *Builder) *Builder { return b.Get("/x") }, "GET"},
		{"post", func(b *Builder) *Builder { return b.Post("/x") }, "POST"},
		{"put", func(b *Builder) *Builder { return b.Put("/x") }, "PUT"},
		{"patch", func(b *Builder) *Builder { return b.Patch("/x") }, "PATCH"},
		{"delete", func(b *Builder) *Builder { return b.Delete("/x") }, "DELETE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.apply(NewBuilder(&RequestConfig{})).Config()
			require.NoError(t, err)
			assert.Equal(t, tt.method, cfg.Method)
			assert.Equal(t, "/x", cfg.Path)
		})
	}
}

func TestBuilder_HeadersAppendButContentTypeReplaces(t *testing.T) {
	cfg, err := NewBuilder(&RequestConfig{}).
		Header("Accept", "text/plain").
		Header("Accept", "application/json").
		Header("Content-Type", "text/plain").
		Header("content-type", "application/xml").
		Header("X-Count", 3).
		Config()
	require.NoError(t, err)

	assert.Equal(t, Pairs{
		{"Accept", "text/plain"},
		{"Accept", "application/json"},
		{"content-type", "application/xml"},
		{"X-Count", "3"},
	}, cfg.Headers)
}

func TestBuilder_UniqueHeaderLeavesSharedHeadersIntact(t *testing.T) {
	shared := Pairs{{"Content-Type", "text/plain"}, {"Accept", "text/plain"}}
	first := &RequestConfig{Headers: shared[:1]}
	second := &RequestConfig{Headers: shared}

	_, err := NewBuilder(first).Header("Content-Type", "application/xml").Config()
	require.NoError(t, err)

	assert.Equal(t, Pairs{{"Content-Type", "application/xml"}}, first.Headers)
	assert.Equal(t, Pairs{{"Content-Type", "text/plain"}, {"Accept", "text/plain"}}, second.Headers)
}

func TestBuilder_JSON(t *testing.T) {
	cfg, err := NewBuilder(&RequestConfig{}).JSON(map[string]string{"message": "Hello"}).Config()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"message\": \"Hello\"\n}", cfg.Body)
	assert.Equal(t, "application/json", cfg.ContentType)
}

func TestBuilder_JSONKeepsExistingContentType(t *testing.T) {
	cfg, err := NewBuilder(&RequestConfig{}).
		Header("Content-Type", "application/vnd.api+json").
		JSON(map[string]int{"a": 1}).
		Config()
	require.NoError(t, err)
	assert.Empty(t, cfg.ContentType)

	ct, ok := cfg.Headers.Get("content-type")
	require.True(t, ok)
	assert.Equal(t, "application/vnd.api+json", ct)
}

func TestBuilder_JSONError(t *testing.T) {
	_, err := NewBuilder(&RequestConfig{}).JSON(make(chan int)).Config()
	assert.Error(t, err)
}

func TestBuilder_Auth(t *testing.T) {
	cfg, err := NewBuilder(&RequestConfig{}).BasicAuth("user", "pw").Config()
	require.NoError(t, err)
	assert.Equal(t, AuthBasic, cfg.Auth)
	assert.Equal(t, &BasicAuth{Username: "user", Password: "pw"}, cfg.BasicAuth)

	cfg, err = NewBuilder(cfg).NoAuth().Config()
	require.NoError(t, err)
	assert.Equal(t, AuthNone, cfg.Auth)

	cfg, err = NewBuilder(cfg).Keystone(KeystoneAuth{URL: "http://ks", Username: "u"}).Config()
	require.NoError(t, err)
	assert.Equal(t, AuthKeystone, cfg.Auth)
	assert.Equal(t, "http://ks", cfg.Keystone.URL)
}

func TestBuilder_Misc(t *testing.T) {
	cfg, err := NewBuilder(&RequestConfig{}).
		URL(" api.io ").
		Timeout(1500 * time.Millisecond).
		Retries(-1).
		Certificate("/tmp/ca.pem").
		UseSSL(true).
		NoLog().
		EnsureSuccess().
		With("id", 5).
		Param("name", "x").
		Config()
	require.NoError(t, err)

	assert.Equal(t, "api.io", cfg.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.TimeoutDuration())
	assert.Equal(t, 0, cfg.Retries)
	assert.Equal(t, "/tmp/ca.pem", cfg.Cert)
	assert.True(t, cfg.UseSSL)
	assert.True(t, cfg.NoLog)
	assert.True(t, cfg.EnsureSuccess)
	assert.Equal(t, map[string]any{"id": 5, "name": "x"}, cfg.Params)
}

func TestRequestConfig_Clone(t *testing.T) {
	orig := &RequestConfig{
		Headers:   Pairs{{"a", "1"}},
		Query:     Pairs{{"q", "1"}},
		Params:    map[string]any{"id": 1},
		Body:      map[string]any{"nested": map[string]any{"x": 1}},
		BasicAuth: &BasicAuth{Username: "u"},
	}

	cp := orig.Clone()
	cp.Headers[0].Value = "changed"
	cp.Query = append(cp.Query, Pair{"q2", "2"})
	cp.Params["id"] = 2
	cp.Body.(map[string]any)["nested"].(map[string]any)["x"] = 2
	cp.BasicAuth.Username = "other"

	assert.Equal(t, "1", orig.Headers[0].Value)
	assert.Len(t, orig.Query, 1)
	assert.Equal(t, 1, orig.Params["id"])
	assert.Equal(t, 1, orig.Body.(map[string]any)["nested"].(map[string]any)["x"])
	assert.Equal(t, "u", orig.BasicAuth.Username)
}
