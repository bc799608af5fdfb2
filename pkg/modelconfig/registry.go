package modelconfig

import (
	"sort"
	"sync"
)

var DebugLog func(string, ...interface{})

// Registry maps configuration names to records. It is populated at startup
// and frozen before readers start; Lookup on a frozen registry is safe from
// any number of goroutines.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]Config
	frozen  bool
}

func NewRegistry() *Registry {
	return &Registry{
		configs: make(map[string]Config),
	}
}

// Register inserts or replaces the record stored under name.
func (r *Registry) Register(name string, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}
	if DebugLog != nil {
		if _, exists := r.configs[name]; exists {
			DebugLog("replacing config %s", name)
		} else {
			DebugLog("registering config %s", name)
		}
	}
	r.configs[name] = cfg
	return nil
}

func (r *Registry) Lookup(name string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[name]
	if !ok {
		return Config{}, &NotFoundError{Name: name}
	}
	return cfg, nil
}

// Freeze ends the population phase. Later Register calls fail with ErrFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.configs)
}
