package http

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hitcall/packages/catalog"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}/]+)\}`)

// ResolveURL turns a RequestConfig into the final request URL:
//
//  1. a base URL without scheme gets http:// or https:// from UseSSL
//  2. a named endpoint is looked up in the inline endpoints or the OpenAPI
//     catalog and replaces method and path
//  3. base and path are joined with exactly one slash
//  4. {name} placeholders are replaced by route params
//  5. the result must parse and carry a host
//  6. query pairs are appended in insertion order
//
// cfg.Method and cfg.Path are updated when an endpoint is resolved.
func ResolveURL(ctx context.Context, cfg *RequestConfig, catalogs *catalog.Cache) (*url.URL, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if !strings.Contains(base, "://") {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + base
	}

	if cfg.Endpoint != "" {
		ep, err := lookupEndpoint(ctx, cfg, catalogs)
		if err != nil {
			return nil, err
		}
		cfg.Method = strings.ToUpper(ep.Method)
		cfg.Path = ep.Path
	}

	raw := JoinPath(base, cfg.Path)
	raw = SubstituteParams(raw, cfg.Params)

	u, err := url.Parse(raw)
	if err != nil {
		return nil, &InvalidURLError{URL: raw, Err: err}
	}
	if u.Host == "" {
		return nil, &InvalidURLError{URL: raw, Reason: "missing host"}
	}

	if q := EncodeQuery(cfg.Query); q != "" {
		if u.RawQuery != "" {
			u.RawQuery += "&" + q
		} else {
			u.RawQuery = q
		}
	}

	return u, nil
}

func lookupEndpoint(ctx context.Context, cfg *RequestConfig, catalogs *catalog.Cache) (catalog.Endpoint, error) {
	if ep, ok := cfg.Endpoints[cfg.Endpoint]; ok {
		return ep, nil
	}

	if cfg.OpenAPI == "" {
		return catalog.Endpoint{}, &EndpointNotFoundError{
			Endpoint: cfg.Endpoint,
			Reason:   "no openapi source or inline endpoints configured",
		}
	}
	if catalogs == nil {
		return catalog.Endpoint{}, &ConfigurationError{Client: cfg.Name, Reason: "no endpoint catalog available"}
	}

	ep, err := catalogs.Lookup(ctx, cfg.OpenAPI, cfg.Endpoint)
	if err != nil {
		if errors.Is(err, catalog.ErrOperationNotFound) {
			return catalog.Endpoint{}, &EndpointNotFoundError{Endpoint: cfg.Endpoint, Source: cfg.OpenAPI}
		}
		return catalog.Endpoint{}, &ConfigurationError{
			Client: cfg.Name,
			Reason: fmt.Sprintf("loading openapi document %s", cfg.OpenAPI),
			Err:    err,
		}
	}
	return ep, nil
}

// JoinPath joins base and path with exactly one slash. An empty path leaves
// base untouched.
func JoinPath(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// SubstituteParams replaces every {name} with the matching param value.
// Placeholders without a param are left as they are.
func SubstituteParams(s string, params map[string]any) string {
	if len(params) == 0 {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := params[name]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}

// UnresolvedPlaceholders returns the {name} placeholders still present in s
func UnresolvedPlaceholders(s string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return names
}

// EncodeQuery form-encodes pairs keeping their order and duplicates
func EncodeQuery(pairs Pairs) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, url.QueryEscape(p.Name)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}
