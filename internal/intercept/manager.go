// Package intercept redirects calls aimed at named entry points on
// foreign integrations through guards, and can fully undo every
// redirection. The live entry-point value on an integration is a
// resource arbitrated exclusively here: no other component reads or
// writes it directly.
package intercept

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fencegate/fencegate/internal/script"
)

// Contract violations. These indicate a coherence bug in binding
// lifecycle management and are surfaced, never swallowed.
var (
	ErrAlreadyInstalled = errors.New("intercept: guard already installed")
	ErrBindingNotFound  = errors.New("intercept: binding not found")
)

// Target is a foreign integration whose entry points can be read and
// replaced. The gate treats the callables as opaque except for the
// digest-able source text inside each call.
type Target interface {
	Name() string
	EntryPoints() []string
	EntryPoint(name string) (script.RunFunc, error)
	SetEntryPoint(name string, fn script.RunFunc) error
}

// Binding is one installed guard: the target, the entry-point name,
// the original value captured before installation, and the guard that
// replaced it. Exactly one binding exists per (target, entry) pair.
type Binding struct {
	ID       string
	Entry    string
	target   Target
	original script.RunFunc
	guard    script.RunFunc
}

// TargetName returns the name of the integration this binding guards.
func (b *Binding) TargetName() string { return b.target.Name() }

type bindingKey struct {
	target string
	entry  string
}

// GuardFactory builds the guard for a binding being installed. The
// factory receives the binding before the guard goes live, so the
// guard can close over its own binding (needed to delegate) without
// any window in which a call could observe a half-wired guard.
type GuardFactory func(b *Binding) script.RunFunc

// Manager owns the binding table.
type Manager struct {
	mu       sync.Mutex
	bindings map[bindingKey]*Binding
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{bindings: make(map[bindingKey]*Binding)}
}

// Install captures the current entry-point value as the original and
// replaces it with the guard built by the factory. A second Install
// for the same (target, entry) pair without an intervening Uninstall
// is rejected: overwriting would lose the true original and make
// restoration impossible.
func (m *Manager) Install(target Target, entry string, build GuardFactory) (*Binding, error) {
	key := bindingKey{target: target.Name(), entry: entry}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bindings[key]; exists {
		return nil, fmt.Errorf("%w: %s.%s", ErrAlreadyInstalled, key.target, key.entry)
	}

	original, err := target.EntryPoint(entry)
	if err != nil {
		return nil, fmt.Errorf("intercept: capture original %s.%s: %w", key.target, entry, err)
	}

	b := &Binding{
		ID:       uuid.NewString(),
		Entry:    entry,
		target:   target,
		original: original,
	}
	b.guard = build(b)

	if err := target.SetEntryPoint(entry, b.guard); err != nil {
		return nil, fmt.Errorf("intercept: install guard %s.%s: %w", key.target, entry, err)
	}
	m.bindings[key] = b
	return b, nil
}

// Uninstall writes the captured original back to the entry point and
// drops the binding. Restoration takes precedence over "original still
// in place" checks: if other code mutated the entry point in the
// interim, a warning is logged and the original is written anyway.
func (m *Manager) Uninstall(b *Binding) error {
	if b == nil {
		return ErrBindingNotFound
	}
	key := bindingKey{target: b.target.Name(), entry: b.Entry}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.bindings[key]
	if !exists || current != b {
		return fmt.Errorf("%w: %s.%s", ErrBindingNotFound, key.target, key.entry)
	}

	if live, err := b.target.EntryPoint(b.Entry); err == nil {
		// Best effort only: distinct closures of one function literal
		// share a code pointer, so this can miss, never false-alarm
		// on the happy path.
		if !sameFunc(live, b.guard) {
			logrus.WithFields(logrus.Fields{
				"target": key.target,
				"entry":  key.entry,
			}).Warn("entry point was mutated by another actor since install")
		}
	}

	if err := b.target.SetEntryPoint(b.Entry, b.original); err != nil {
		return fmt.Errorf("intercept: restore original %s.%s: %w", key.target, key.entry, err)
	}
	delete(m.bindings, key)
	return nil
}

// Delegate runs one inner call against the original entry point. For
// the duration of that single call the original is reinstated at the
// entry point, so a self-recursive original calls itself and not the
// guard. The guard is put back before Delegate returns on every path,
// including panic, so the entry point is never left unguarded.
func (m *Manager) Delegate(ctx context.Context, b *Binding, call script.Call) (script.Result, error) {
	if b == nil {
		return script.Result{}, ErrBindingNotFound
	}
	key := bindingKey{target: b.target.Name(), entry: b.Entry}

	m.mu.Lock()
	current, exists := m.bindings[key]
	m.mu.Unlock()
	if !exists || current != b {
		return script.Result{}, fmt.Errorf("%w: %s.%s", ErrBindingNotFound, key.target, key.entry)
	}

	if err := b.target.SetEntryPoint(b.Entry, b.original); err != nil {
		return script.Result{}, fmt.Errorf("intercept: enter delegation %s.%s: %w", key.target, key.entry, err)
	}
	defer func() {
		if err := b.target.SetEntryPoint(b.Entry, b.guard); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"target": key.target,
				"entry":  key.entry,
			}).Error("failed to reinstall guard after delegation")
		}
	}()

	return b.original(ctx, call)
}

// Installed reports whether a binding exists for the pair.
func (m *Manager) Installed(target, entry string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bindings[bindingKey{target: target, entry: entry}]
	return ok
}

// Bindings returns the current bindings.
func (m *Manager) Bindings() []*Binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Binding, 0, len(m.bindings))
	for _, b := range m.bindings {
		out = append(out, b)
	}
	return out
}

func sameFunc(a, b script.RunFunc) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
