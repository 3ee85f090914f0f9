package http

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcall/packages/catalog"
	"github.com/abdul-hamid-achik/hitcall/packages/core/config"
)

// Auth strategy names understood by the bundled hooks
const (
	AuthNone     = "none"
	AuthBasic    = "basic_auth"
	AuthKeystone = "keystone"
	AuthAWS      = "aws_sigv4"
)

// HeaderContentType is the one header that replaces instead of appending
const HeaderContentType = "Content-Type"

// UniqueHeaders may appear at most once on a request
var UniqueHeaders = []string{HeaderContentType}

// IsUniqueHeader reports whether setting name replaces earlier values
func IsUniqueHeader(name string) bool {
	for _, h := range UniqueHeaders {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

// Pair is one ordered name/value entry of a header or query list
type Pair struct {
	Name  string
	Value string
}

// Pairs is an ordered list of name/value entries. In configuration files it
// may be written as a list of [name, value] lists, a list of
// {name, value} mappings, or a mapping (read in document order).
type Pairs []Pair

// UnmarshalYAML implements yaml.Unmarshaler
func (p *Pairs) UnmarshalYAML(node *yaml.Node) error {
	var out Pairs

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			out = append(out, Pair{Name: node.Content[i].Value, Value: node.Content[i+1].Value})
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.SequenceNode:
				if len(item.Content) != 2 {
					return fmt.Errorf("line %d: expected [name, value], got %d items", item.Line, len(item.Content))
				}
				out = append(out, Pair{Name: item.Content[0].Value, Value: item.Content[1].Value})
			case yaml.MappingNode:
				var kv struct {
					Name  string `yaml:"name"`
					Value string `yaml:"value"`
				}
				if err := item.Decode(&kv); err != nil {
					return err
				}
				out = append(out, Pair{Name: kv.Name, Value: kv.Value})
			default:
				return fmt.Errorf("line %d: unsupported header/query entry", item.Line)
			}
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return fmt.Errorf("line %d: expected a list of name/value pairs", node.Line)
		}
	default:
		return fmt.Errorf("line %d: expected a list of name/value pairs", node.Line)
	}

	*p = out
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (p Pairs) MarshalYAML() (any, error) {
	out := make([][]string, len(p))
	for i, pair := range p {
		out[i] = []string{pair.Name, pair.Value}
	}
	return out, nil
}

// Get returns the first value for name, compared case-insensitively
func (p Pairs) Get(name string) (string, bool) {
	for _, pair := range p {
		if strings.EqualFold(pair.Name, name) {
			return pair.Value, true
		}
	}
	return "", false
}

// BasicAuth holds credentials for HTTP basic authentication
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// KeystoneAuth describes an OpenStack Keystone password login. The whole
// descriptor is the token cache key, so it must stay comparable.
type KeystoneAuth struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Project  string `yaml:"project"`
	Domain   string `yaml:"domain"`
	Cert     string `yaml:"cert,omitempty"`
}

// AWSAuthCredentials holds credentials for AWS Signature v4 authentication
type AWSAuthCredentials struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Service   string `yaml:"service"`
}

// RequestConfig is everything needed to issue one call. It is assembled
// from defaults, named-client configuration and builder calls, and is
// frozen (cloned) once the call has been sent.
type RequestConfig struct {
	Name      string                      `yaml:"-"`
	Method    string                      `yaml:"method"`
	BaseURL   string                      `yaml:"base_url"`
	Path      string                      `yaml:"path"`
	Endpoint  string                      `yaml:"endpoint,omitempty"`
	OpenAPI   string                      `yaml:"openapi,omitempty"`
	Endpoints map[string]catalog.Endpoint `yaml:"endpoints,omitempty"`
	UseSSL    bool                        `yaml:"use_ssl"`
	Cert      string                      `yaml:"cert,omitempty"`
	Headers   Pairs                       `yaml:"headers"`
	Query     Pairs                       `yaml:"query"`
	Params    map[string]any              `yaml:"params"`
	// Body is a raw string, or a structured value sent as JSON
	Body        any     `yaml:"body,omitempty"`
	ContentType string  `yaml:"content_type"`
	Timeout     float64 `yaml:"timeout"` // seconds
	Retries     int     `yaml:"retries"`

	Auth      string              `yaml:"auth,omitempty"`
	BasicAuth *BasicAuth          `yaml:"basic_auth,omitempty"`
	Keystone  *KeystoneAuth       `yaml:"keystone,omitempty"`
	AWS       *AWSAuthCredentials `yaml:"aws,omitempty"`

	EnsureSuccess bool `yaml:"ensure_success"`
	NoLog         bool `yaml:"no_log"`

	StartedAt  time.Time `yaml:"-"`
	FinishedAt time.Time `yaml:"-"`
}

// FromTree decodes a generic configuration tree into a RequestConfig
func FromTree(tree map[string]any) (*RequestConfig, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encoding request config: %w", err)
	}

	cfg := &RequestConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding request config: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = make(map[string]any)
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	return cfg, nil
}

// TimeoutDuration returns the read timeout, falling back to the default
func (c *RequestConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return config.DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Timeout * float64(time.Second))
}

// HasContentType reports whether a content type was set, either directly or
// through a Content-Type header.
func (c *RequestConfig) HasContentType() bool {
	if c.ContentType != "" {
		return true
	}
	_, ok := c.Headers.Get(HeaderContentType)
	return ok
}

// Clone returns a deep copy
func (c *RequestConfig) Clone() *RequestConfig {
	cp := *c
	cp.Headers = append(Pairs(nil), c.Headers...)
	cp.Query = append(Pairs(nil), c.Query...)
	cp.Params = config.CopyTree(c.Params)
	if c.Endpoints != nil {
		cp.Endpoints = make(map[string]catalog.Endpoint, len(c.Endpoints))
		for k, v := range c.Endpoints {
			cp.Endpoints[k] = v
		}
	}
	if m, ok := c.Body.(map[string]any); ok {
		cp.Body = config.CopyTree(m)
	}
	if c.BasicAuth != nil {
		ba := *c.BasicAuth
		cp.BasicAuth = &ba
	}
	if c.Keystone != nil {
		ks := *c.Keystone
		cp.Keystone = &ks
	}
	if c.AWS != nil {
		aws := *c.AWS
		cp.AWS = &aws
	}
	return &cp
}

func (c *RequestConfig) String() string {
	return fmt.Sprintf("%s %s %s", c.Method, c.BaseURL, c.Path)
}
