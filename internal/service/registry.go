package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/routing"
	"github.com/jlov7/Switchboard/internal/port/outbound"
)

// ErrAdapterNotFound is returned when a route names an adapter key nothing
// was registered under.
var ErrAdapterNotFound = errors.New("no adapter registered")

// AdapterRegistry holds the named tool adapters and serializes execution
// per adapter key. Downstream tool APIs frequently require ordered calls
// per session, so concurrent requests to one adapter queue while requests
// to different adapters proceed in parallel.
type AdapterRegistry struct {
	mu       sync.Mutex
	adapters map[string]outbound.ToolAdapter
	locks    map[string]*sync.Mutex
}

// NewAdapterRegistry returns an empty registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{
		adapters: make(map[string]outbound.ToolAdapter),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Register adds an adapter under its own name, replacing any previous
// registration.
func (r *AdapterRegistry) Register(adapter outbound.ToolAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Name()] = adapter
}

// Get returns the adapter registered under name.
func (r *AdapterRegistry) Get(name string) (outbound.ToolAdapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w for key=%q", ErrAdapterNotFound, name)
	}
	return adapter, nil
}

// Names returns the registered adapter keys, sorted.
func (r *AdapterRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the request on the named adapter under that adapter's
// mutex.
func (r *AdapterRegistry) Execute(ctx context.Context, name string, request *action.Request) (*routing.AdapterResult, error) {
	adapter, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	lock := r.lockFor(name)
	lock.Lock()
	defer lock.Unlock()
	return adapter.Execute(ctx, request)
}

// lockFor returns the per-adapter mutex, creating it lazily.
func (r *AdapterRegistry) lockFor(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[name] = lock
	}
	return lock
}

// Close closes every adapter that holds resources.
func (r *AdapterRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, adapter := range r.adapters {
		if closer, ok := adapter.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close adapter %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
