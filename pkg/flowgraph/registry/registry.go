package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry is a thread-safe map of values indexed by key, tuned for
// register-once, read-many use.
type Registry[K comparable, V any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[K]V
}

// New creates an empty registry. kind names what the registry holds
// ("store driver", "llm provider") and appears in lookup errors.
func New[K comparable, V any](kind string) *Registry[K, V] {
	return &Registry[K, V]{
		kind:    kind,
		entries: make(map[K]V),
	}
}

// Register adds or replaces the value for key.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// RegisterMany adds multiple entries.
func (r *Registry[K, V]) RegisterMany(entries map[K]V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range entries {
		r.entries[k] = v
	}
}

// Get returns the value for key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Lookup returns the value for key, or a *NotFoundError listing the
// registered keys.
func (r *Registry[K, V]) Lookup(key K) (V, error) {
	if v, ok := r.Get(key); ok {
		return v, nil
	}
	var zero V
	return zero, &NotFoundError{Kind: r.kind, Key: fmt.Sprint(key), Known: r.keyStrings()}
}

// MustGet returns the value for key, panicking if it is not registered.
func (r *Registry[K, V]) MustGet(key K) V {
	v, err := r.Lookup(key)
	if err != nil {
		panic("registry: " + err.Error())
	}
	return v
}

// Has reports whether key is registered.
func (r *Registry[K, V]) Has(key K) bool {
	_, ok := r.Get(key)
	return ok
}

// Keys returns all keys in unspecified order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry[K, V]) keyStrings() []string {
	keys := r.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprint(k)
	}
	sort.Strings(out)
	return out
}

// NotFoundError reports a lookup of an unregistered key.
type NotFoundError struct {
	Kind  string
	Key   string
	Known []string
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "entry"
	}
	return fmt.Sprintf("unknown %s %q (known: %s)", kind, e.Key, strings.Join(e.Known, ", "))
}
