package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jlov7/Switchboard/internal/domain/action"
	"github.com/jlov7/Switchboard/internal/domain/routing"
)

// blockingAdapter parks every call until release is closed and tracks how
// many calls ran at once.
type blockingAdapter struct {
	name    string
	started chan struct{}
	release chan struct{}
	active  atomic.Int32
	max     atomic.Int32
	calls   atomic.Int32
}

func newBlockingAdapter(name string, pending int) *blockingAdapter {
	return &blockingAdapter{
		name:    name,
		started: make(chan struct{}, pending),
		release: make(chan struct{}),
	}
}

func (a *blockingAdapter) Name() string { return a.name }

func (a *blockingAdapter) Execute(ctx context.Context, _ *action.Request) (*routing.AdapterResult, error) {
	cur := a.active.Add(1)
	defer a.active.Add(-1)
	for {
		seen := a.max.Load()
		if cur <= seen || a.max.CompareAndSwap(seen, cur) {
			break
		}
	}
	a.calls.Add(1)
	a.started <- struct{}{}
	select {
	case <-a.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &routing.AdapterResult{Success: true, Detail: "ok"}, nil
}

func waitStarted(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an adapter call to start")
	}
}

func TestAdapterRegistrySerializesPerAdapter(t *testing.T) {
	t.Parallel()
	mcp := newBlockingAdapter(routing.AdapterMCP, 2)
	acp := newBlockingAdapter(routing.AdapterACP, 1)
	registry := NewAdapterRegistry()
	registry.Register(mcp)
	registry.Register(acp)

	req := serviceRequest(t, nil)
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	run := func(name string) {
		defer wg.Done()
		_, err := registry.Execute(context.Background(), name, req)
		errs <- err
	}

	// Two calls to the same adapter: the second queues behind the first.
	wg.Add(2)
	go run(routing.AdapterMCP)
	go run(routing.AdapterMCP)
	waitStarted(t, mcp.started)

	// A call to a different adapter proceeds while the first is parked.
	wg.Add(1)
	go run(routing.AdapterACP)
	waitStarted(t, acp.started)

	close(acp.release)
	close(mcp.release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
	}

	if got := mcp.max.Load(); got != 1 {
		t.Fatalf("same-adapter calls overlapped: max concurrency %d", got)
	}
	if got := mcp.calls.Load(); got != 2 {
		t.Fatalf("expected 2 mcp calls, got %d", got)
	}
	if got := acp.calls.Load(); got != 1 {
		t.Fatalf("expected 1 acp call, got %d", got)
	}
}

func TestAdapterRegistryUnknownAdapter(t *testing.T) {
	t.Parallel()
	registry := NewAdapterRegistry()

	_, err := registry.Execute(context.Background(), routing.AdapterMCP, serviceRequest(t, nil))
	if !errors.Is(err, ErrAdapterNotFound) {
		t.Fatalf("expected missing adapter error, got %v", err)
	}
}

func TestAdapterRegistryNamesSorted(t *testing.T) {
	t.Parallel()
	registry := NewAdapterRegistry()
	registry.Register(&mockAdapter{name: routing.AdapterVertex})
	registry.Register(&mockAdapter{name: routing.AdapterACP})
	registry.Register(&mockAdapter{name: routing.AdapterMCP})

	want := []string{routing.AdapterACP, routing.AdapterMCP, routing.AdapterVertex}
	got := registry.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

// closableAdapter records Close calls for registry teardown tests.
type closableAdapter struct {
	mockAdapter
	closeErr error
	closed   bool
}

func (c *closableAdapter) Close() error {
	c.closed = true
	return c.closeErr
}

func TestAdapterRegistryCloseClosesEveryAdapter(t *testing.T) {
	t.Parallel()
	healthy := &closableAdapter{mockAdapter: mockAdapter{name: routing.AdapterMCP}}
	failing := &closableAdapter{
		mockAdapter: mockAdapter{name: routing.AdapterACP},
		closeErr:    errors.New("session teardown failed"),
	}
	registry := NewAdapterRegistry()
	registry.Register(healthy)
	registry.Register(failing)

	err := registry.Close()
	if err == nil || !strings.Contains(err.Error(), "close adapter acp") {
		t.Fatalf("expected close error, got %v", err)
	}
	if !healthy.closed || !failing.closed {
		t.Fatal("every adapter must be closed")
	}
}
