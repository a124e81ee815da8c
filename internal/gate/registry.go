package gate

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fencegate/fencegate/internal/intercept"
)

// ErrUnavailable means the named integration has not registered yet.
// Integrations load asynchronously and in arbitrary order, so the
// controller retries resolution before treating this as fatal.
var ErrUnavailable = errors.New("gate: integration unavailable")

// Resolver looks up a foreign integration by name.
type Resolver interface {
	Resolve(name string) (intercept.Target, error)
}

// Registry is the in-process Resolver integrations register with as
// they come up.
type Registry struct {
	mu      sync.Mutex
	targets map[string]intercept.Target
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]intercept.Target)}
}

// Register announces an integration. Later registrations under the
// same name replace earlier ones.
func (r *Registry) Register(t intercept.Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[t.Name()] = t
}

// Deregister removes an integration.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.targets, name)
}

// Resolve implements Resolver.
func (r *Registry) Resolve(name string) (intercept.Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, name)
	}
	return t, nil
}

// Names returns the registered integration names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.targets))
	for name := range r.targets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
