package keystone

import (
	"sync"

	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
)

// TokenCache holds keystone tokens for the life of the process, keyed by the
// complete login descriptor. Tokens never expire from it.
type TokenCache struct {
	tokens map[hithttp.KeystoneAuth]string
	mutex  sync.RWMutex
}

// NewTokenCache creates an empty token cache
func NewTokenCache() *TokenCache {
	return &TokenCache{
		tokens: make(map[hithttp.KeystoneAuth]string),
	}
}

// Get returns the token stored for desc
func (c *TokenCache) Get(desc hithttp.KeystoneAuth) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	token, ok := c.tokens[desc]
	return token, ok
}

// Set stores a token for desc
func (c *TokenCache) Set(desc hithttp.KeystoneAuth, token string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.tokens[desc] = token
}

// Delete removes the token stored for desc
func (c *TokenCache) Delete(desc hithttp.KeystoneAuth) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.tokens, desc)
}

// Len returns the number of cached tokens
func (c *TokenCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.tokens)
}

// Clear removes all tokens
func (c *TokenCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.tokens = make(map[hithttp.KeystoneAuth]string)
}

// GlobalCache is the token cache hooks share unless given their own
var GlobalCache = NewTokenCache()
