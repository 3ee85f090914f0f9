package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abdul-hamid-achik/hitcall/packages/logging"
)

// DefaultFetchTimeout bounds how long fetching a remote document may take
const DefaultFetchTimeout = 30 * time.Second

// Cache loads each catalog source once and keeps the result for the life of
// the process. Sources are URLs or local file paths. It is safe for
// concurrent use; concurrent loads of the same source share one fetch.
type Cache struct {
	mu         sync.RWMutex
	catalogs   map[string]Catalog
	group      singleflight.Group
	httpClient *http.Client
	logger     *zap.Logger
}

// Option is a functional option for Cache
type Option func(*Cache)

// WithHTTPClient sets the client used for remote sources
func WithHTTPClient(c *http.Client) Option {
	return func(cache *Cache) {
		cache.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(cache *Cache) {
		cache.logger = l
	}
}

// NewCache creates an empty catalog cache
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		catalogs: make(map[string]Catalog),
		httpClient: &http.Client{
			Timeout: DefaultFetchTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger).Named("catalog")
	return c
}

// Load returns the catalog for source, fetching and parsing it on first use
func (c *Cache) Load(ctx context.Context, source string) (Catalog, error) {
	c.mu.RLock()
	cat, ok := c.catalogs[source]
	c.mu.RUnlock()
	if ok {
		return cat, nil
	}

	v, err, _ := c.group.Do(source, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.catalogs[source]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		data, err := c.fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		parsed, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}

		c.mu.Lock()
		c.catalogs[source] = parsed
		c.mu.Unlock()

		c.logger.Debug("endpoint catalog loaded",
			logging.Source(source),
			zap.Int("operations", len(parsed)))
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Catalog), nil
}

// Lookup resolves operation in the catalog loaded from source
func (c *Cache) Lookup(ctx context.Context, source, operation string) (Endpoint, error) {
	cat, err := c.Load(ctx, source)
	if err != nil {
		return Endpoint{}, err
	}
	return cat.Lookup(operation)
}

// Put stores an already built catalog under source
func (c *Cache) Put(source string, cat Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogs[source] = cat
}

// Len returns the number of cached sources
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.catalogs)
}

// IsRemote reports whether source is fetched over HTTP(S)
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (c *Cache) fetch(ctx context.Context, source string) ([]byte, error) {
	if !IsRemote(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read OpenAPI document: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid OpenAPI source %q: %w", source, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OpenAPI document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch OpenAPI document %s: %s", source, resp.Status)
	}

	return io.ReadAll(resp.Body)
}
