package provider

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry holds adapters registered once at startup and looked up by
// ID. It is read-only after construction; the router never mutates it
// mid-request.
type Registry struct {
	mu       sync.RWMutex
	adapters map[ID]Adapter
	info     map[ID]Info
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		adapters: make(map[ID]Adapter),
		info:     make(map[ID]Info),
		logger:   logger,
	}
}

// Register adds an adapter under the given identity. Registering the
// same ID twice replaces the previous entry; callers are expected to
// register once at startup.
func (r *Registry) Register(id ID, name, version string, adapter Adapter) error {
	if id == "" {
		return fmt.Errorf("provider: empty provider id")
	}
	if adapter == nil {
		return fmt.Errorf("provider: nil adapter for %q", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[id] = adapter
	r.info[id] = Info{
		ID:           id,
		Name:         name,
		Version:      version,
		Capabilities: adapter.Capabilities(),
	}

	r.logger.Info("registered provider",
		zap.String("provider_id", string(id)),
		zap.String("name", name),
		zap.String("version", version))
	return nil
}

// Get returns the adapter for id and whether it is known to the registry.
func (r *Registry) Get(id ID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// Info returns introspection metadata for id.
func (r *Registry) Info(id ID) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.info[id]
	return info, ok
}

// SupportsDataType reports whether the provider registered under id
// declares capability for dt. Unknown providers never support anything.
func (r *Registry) SupportsDataType(id ID, dt DataType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.info[id]
	if !ok {
		return false
	}
	return info.Capabilities[dt]
}

// IDs returns every registered provider ID in a stable, sorted order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
