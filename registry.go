// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package xr

import (
	"errors"
	"sort"
	"sync"

	"github.com/gogpu/xr/driver"
)

// LoaderFactory opens a runtime driver.
type LoaderFactory func() (driver.Loader, error)

// RegistryEntry represents a registered runtime driver.
type RegistryEntry struct {
	// Name is the unique identifier for this driver.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: hardware runtimes
	//   - 50: remoting or streaming runtimes
	//   - 1: the simulated runtime
	Priority int

	// Factory opens the driver.
	Factory LoaderFactory

	// Available reports if the runtime is installed on this system.
	Available func() bool
}

var globalRegistry = NewRegistry()

// Registry manages registered runtime drivers.
//
// Drivers register themselves from an init function, the way
// database/sql drivers do:
//
//	func init() {
//	    xr.Register("openxr", 100, openLoader, loaderInstalled)
//	}
//
// Applications then pick by name or let Create choose the best available
// driver.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and Create.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*RegistryEntry)}
}

// Register adds a driver to the global registry.
//
// If available is nil, the driver is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory LoaderFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a driver from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// Drivers returns the names of all available drivers sorted by priority
// (highest first).
func Drivers() []string {
	return globalRegistry.Available()
}

// OpenDriver opens a driver from the global registry. An empty name selects
// the best available driver.
func OpenDriver(name string) (driver.Loader, error) {
	if name == "" {
		return globalRegistry.OpenBest()
	}
	return globalRegistry.Open(name)
}

// Register adds a driver to this registry.
func (r *Registry) Register(name string, priority int, factory LoaderFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a driver from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// List returns all registered driver names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(false)
}

// Available returns names of all available drivers sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(true)
}

// Get returns a copy of the entry for name.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	entryCopy := *entry
	return &entryCopy, true
}

// Open opens the named driver.
func (r *Registry) Open(name string) (driver.Loader, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &DriverNotFoundError{Name: name}
	}
	if !entry.Available() {
		return nil, &DriverUnavailableError{Name: name}
	}
	return entry.Factory()
}

// OpenBest opens the highest priority driver that opens successfully.
func (r *Registry) OpenBest() (driver.Loader, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	var lastErr error
	for _, name := range available {
		l, err := r.Open(name)
		if err == nil {
			return l, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoDriverAvailable
}

// sortedNames returns driver names sorted by priority (highest first),
// ties broken by name. Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// ErrNoDriverAvailable is returned when no runtime drivers are registered
// or available on the current system.
var ErrNoDriverAvailable = errors.New("xr: no runtime driver available")

// DriverNotFoundError indicates a named driver is not registered.
type DriverNotFoundError struct {
	Name string
}

func (e *DriverNotFoundError) Error() string {
	return "xr: runtime driver not found: " + e.Name
}

// DriverUnavailableError indicates a driver exists but is not available.
type DriverUnavailableError struct {
	Name string
}

func (e *DriverUnavailableError) Error() string {
	return "xr: runtime driver unavailable: " + e.Name
}
