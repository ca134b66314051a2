// Package orchestrator owns the deployment lifecycle: admission, capacity,
// provisioning, and persistence write-through.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deployd/internal/provision"
	"deployd/internal/store"
	"deployd/pkg/types"
)

type Orchestrator struct {
	mu      sync.RWMutex
	catalog []types.Model
	store   *store.Store
	prov    provision.Provisioner
	pub     EventPublisher

	budgetMB int
	marginMB int
	scheme   string

	// Per-host admission gates and usage, created lazily.
	hosts map[string]*hostGate
	// Deployments by id; apiNames maps active api_name -> deployment id.
	deps     map[string]*deployment
	apiNames map[string]string

	maxQueueDepth    int
	maxWait          time.Duration
	provisionTimeout time.Duration

	ready          bool
	lastErr        string
	startTime      time.Time
	deploysTotal   uint64
	evictionsTotal uint64
}

// New constructs an Orchestrator with package defaults.
func New(catalog []types.Model, st *store.Store, prov provision.Provisioner, budgetMB, marginMB int) *Orchestrator {
	// Delegate to NewWithConfig to centralize defaults and option parsing
	return NewWithConfig(Config{
		Catalog:     catalog,
		Store:       st,
		Provisioner: prov,
		BudgetMB:    budgetMB,
		MarginMB:    marginMB,
	})
}

// Start rehydrates state from the store and marks the orchestrator ready.
// Deployments stuck in provisioning from a previous process are failed.
func (o *Orchestrator) Start(ctx context.Context) error {
	if n, err := o.store.FailStaleProvisioning(ctx); err != nil {
		return fmt.Errorf("recover stale deployments: %w", err)
	} else if n > 0 {
		o.pub.Publish(Event{Name: "deploy_recovered_failed", Fields: map[string]any{"count": n}})
	}
	if n, err := o.store.CompleteStaleDraining(ctx); err != nil {
		return fmt.Errorf("recover draining deployments: %w", err)
	} else if n > 0 {
		o.pub.Publish(Event{Name: "deploy_recovered_terminated", Fields: map[string]any{"count": n}})
	}
	active, err := o.store.ActiveDeployments(ctx)
	if err != nil {
		return fmt.Errorf("load active deployments: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range active {
		st := State(rec.Status)
		if st != StateReady {
			continue
		}
		d := &deployment{rec: rec, state: st, lastUsed: rec.UpdatedAt}
		o.deps[rec.ID] = d
		o.apiNames[rec.APIName] = rec.ID
		o.gateLocked(rec.Host).usedEstMB += rec.EstVRAMMB
	}
	o.ready = true
	return nil
}

// Ready reports whether the orchestrator finished startup.
func (o *Orchestrator) Ready() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ready
}

// Models returns the deployable model catalog.
func (o *Orchestrator) Models() []types.Model {
	o.mu.RLock()
	defer o.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(o.catalog))
	copy(out, o.catalog)
	return out
}

// gateLocked returns the host gate, creating it if needed. Caller holds mu.
func (o *Orchestrator) gateLocked(host string) *hostGate {
	g, ok := o.hosts[host]
	if !ok {
		g = &hostGate{
			provCh:  make(chan struct{}, 1),
			queueCh: make(chan struct{}, o.maxQueueDepth),
		}
		o.hosts[host] = g
	}
	return g
}

func (o *Orchestrator) modelByID(id string) (types.Model, bool) {
	for _, m := range o.catalog {
		if m.ID == id {
			return m, true
		}
	}
	return types.Model{}, false
}

func (o *Orchestrator) setLastErr(err error) {
	o.mu.Lock()
	o.lastErr = err.Error()
	o.mu.Unlock()
}
