package orchestrator

import "context"

// evictUntilFits terminates LRU idle deployments on host until requiredMB
// fits budget + margin. Returns a capacity error when nothing more can be
// evicted and the model still does not fit.
func (o *Orchestrator) evictUntilFits(ctx context.Context, host string, requiredMB int) error {
	for {
		o.mu.Lock()
		g := o.gateLocked(host)
		if g.usedEstMB+requiredMB+o.marginMB <= o.budgetMB {
			o.mu.Unlock()
			return nil
		}
		// Pick the LRU ready deployment on this host.
		var lru *deployment
		for _, d := range o.deps {
			if d.rec.Host != host || d.state != StateReady {
				continue
			}
			if lru == nil || d.lastUsed.Before(lru.lastUsed) {
				lru = d
			}
		}
		if lru == nil {
			o.mu.Unlock()
			return capacityError{host: host}
		}
		lru.state = StateDraining
		lru.rec.Status = string(StateDraining)
		o.mu.Unlock()

		o.teardown(ctx, lru)
		if _, err := o.finishTerminate(ctx, lru, true, "deploy_evicted"); err != nil {
			return err
		}
		o.mu.Lock()
		o.evictionsTotal++
		o.mu.Unlock()
		// loop to re-check
	}
}
