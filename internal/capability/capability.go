// Package capability tracks which optional modules are compiled into this
// build. Modules register themselves from init functions; the serve command
// reads the set once at startup, so availability never changes mid-call.
package capability

import (
	"sort"
	"sync"
)

// IdentityOps is the capability name for the optional identity-operations
// module backing verify_email and reset_password.
const IdentityOps = "identity-ops"

var (
	mu       sync.RWMutex
	registry = make(map[string]any)
)

// Register records an optional module's entry point. Called from init in
// the optional package; registering the same name twice panics, since it
// means two modules claim one capability.
func Register(name string, v any) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[name]; dup {
		panic("capability: duplicate registration for " + name)
	}
	registry[name] = v
}

// Lookup returns a registered module entry point.
func Lookup(name string) (any, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := registry[name]
	return v, ok
}

// Available reports whether an optional module is present in this build.
func Available(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Names returns the registered capability names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
