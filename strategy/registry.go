package strategy

import "sync"

// Registry maps job class names to their strategies.
// It is safe for concurrent use: built once at startup, read on every
// fetch cycle thereafter.
type Registry struct {
	mu         sync.RWMutex
	store      Store
	inherit    bool
	strategies map[string]*Strategy
	parents    map[string]string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithInheritance makes Get resolve a class through its declared
// ancestry (see SetParent) when the class has no strategy of its own.
func WithInheritance() RegistryOption {
	return func(r *Registry) { r.inherit = true }
}

// NewRegistry creates an empty registry whose strategies evaluate
// against the given store.
func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:      store,
		strategies: make(map[string]*Strategy),
		parents:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add builds a Strategy for the class from opts and registers it,
// overwriting any existing entry for that class.
func (r *Registry) Add(class string, opts Options) (*Strategy, error) {
	s, err := New(r.store, class, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.strategies[class] = s
	r.mu.Unlock()
	return s, nil
}

// SetParent declares that child inherits parent's strategy when child
// has no entry of its own and the registry was built WithInheritance.
// Chains are followed transitively (grandparents and beyond).
func (r *Registry) SetParent(child, parent string) {
	r.mu.Lock()
	r.parents[child] = parent
	r.mu.Unlock()
}

// Get returns the strategy for the class, or nil when none applies —
// a nil strategy means the class is never throttled.
//
// With inheritance enabled, a class without a direct entry is resolved
// through its declared ancestry, most specific first.
func (r *Registry) Get(class string) *Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Bounded walk so a miswired ancestry cycle cannot hang a fetch loop.
	for steps := len(r.parents) + 1; class != "" && steps > 0; steps-- {
		if s, ok := r.strategies[class]; ok {
			return s
		}
		if !r.inherit {
			return nil
		}
		class = r.parents[class]
	}
	return nil
}
