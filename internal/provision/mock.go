package provision

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory Provisioner for tests and local development
// (--provisioner mock). It records what would run where and can inject
// latency and failures.
type Mock struct {
	mu     sync.Mutex
	active map[string]Spec // keyed by host:port

	// Latency is added to every call, interruptible by ctx.
	Latency time.Duration
	// FailWith, when set, is returned by Provision.
	FailWith error
	// TeardownErr, when set, is returned by Teardown.
	TeardownErr error
}

// NewMock constructs an empty mock provisioner.
func NewMock() *Mock {
	return &Mock{active: make(map[string]Spec)}
}

func key(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

func (m *Mock) sleep(ctx context.Context) error {
	if m.Latency <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Provision records the spec as running.
func (m *Mock) Provision(ctx context.Context, spec Spec) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[key(spec.Host, spec.Port)] = spec
	return nil
}

// Teardown forgets the deployment.
func (m *Mock) Teardown(ctx context.Context, spec TeardownSpec) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	if m.TeardownErr != nil {
		return m.TeardownErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, key(spec.Host, spec.Port))
	return nil
}

// Running reports whether a deployment is recorded for host:port.
func (m *Mock) Running(host string, port int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[key(host, port)]
	return ok
}

// Count returns the number of recorded deployments.
func (m *Mock) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
