package taxonomy

import (
	"fmt"
	"sync"
)

// Registry keeps every schema version a deployment knows about so labels
// can be checked against the version they were created under.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	latest  string
}

// NewRegistry creates a registry holding the given schemas. The last one
// becomes the latest version.
func NewRegistry(schemas ...*Schema) *Registry {
	r := &Registry{schemas: make(map[string]*Schema)}
	for _, s := range schemas {
		_ = r.Register(s)
	}
	return r
}

// Register adds a schema. Versions are write-once.
func (r *Registry) Register(s *Schema) error {
	if s == nil {
		return fmt.Errorf("nil schema")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.Version()]; exists {
		return fmt.Errorf("taxonomy version %q already registered", s.Version())
	}
	r.schemas[s.Version()] = s
	r.latest = s.Version()
	return nil
}

// Get returns the schema for a version
func (r *Registry) Get(version string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[version]
	return s, ok
}

// Latest returns the most recently registered schema, nil when empty
func (r *Registry) Latest() *Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[r.latest]
}
