package config

import (
	"sort"
	"sync"
)

// Store is the process-wide mapping from client name to its base request
// configuration tree. It is safe for concurrent use; lookups hand out deep
// copies so callers may mutate what they receive.
type Store struct {
	mu      sync.RWMutex
	clients map[string]map[string]any
	debug   bool
}

// NewStore creates a store holding the given client trees
func NewStore(clients map[string]map[string]any) *Store {
	s := &Store{}
	s.Replace(clients)
	return s
}

// NewStoreFromConfig creates a store from a loaded configuration file
func NewStoreFromConfig(cfg *Config) *Store {
	s := NewStore(cfg.HTTP)
	s.debug = cfg.Debug
	return s
}

// Lookup returns a copy of the named client's configuration tree
func (s *Store) Lookup(name string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.clients[name]
	if !ok {
		return nil, false
	}
	return CopyTree(tree), true
}

// Set adds or replaces a single client
func (s *Store) Set(name string, tree map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[name] = CopyTree(tree)
}

// Replace swaps every client at once
func (s *Store) Replace(clients map[string]map[string]any) {
	next := make(map[string]map[string]any, len(clients))
	for name, tree := range clients {
		next[name] = CopyTree(tree)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = next
}

// Reload re-reads the config file at path and replaces the stored clients.
// On error the current clients are kept.
func (s *Store) Reload(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	s.Replace(cfg.HTTP)

	s.mu.Lock()
	s.debug = cfg.Debug
	s.mu.Unlock()
	return nil
}

// Names returns the configured client names in sorted order
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.clients))
	for name := range s.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Debug reports whether the loaded configuration asked for debug mode
func (s *Store) Debug() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debug
}
