package orchestrator

import (
	"context"
	"sort"
	"time"

	"deployd/pkg/types"
)

// Status builds a detailed status response for /status.
func (o *Orchestrator) Status() types.StatusResponse {
	o.mu.RLock()
	defer o.mu.RUnlock()
	resp := types.StatusResponse{
		BudgetMB:       o.budgetMB,
		MarginMB:       o.marginMB,
		LastError:      o.lastErr,
		UptimeSeconds:  int64(time.Since(o.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		DeploysTotal:   o.deploysTotal,
		EvictionsTotal: o.evictionsTotal,
	}
	provisioning := 0
	draining := 0
	perHost := make(map[string]int)
	resp.Deployments = make([]types.Deployment, 0, len(o.deps))
	for _, d := range o.deps {
		if d.state == StateProvisioning { provisioning++ }
		if d.state == StateDraining { draining++ }
		if d.state == StateReady || d.state == StateProvisioning {
			perHost[d.rec.Host]++
		}
		resp.Deployments = append(resp.Deployments, d.rec)
	}
	sort.Slice(resp.Deployments, func(i, j int) bool {
		return resp.Deployments[i].CreatedAt.Before(resp.Deployments[j].CreatedAt)
	})
	resp.Hosts = make([]types.HostStatus, 0, len(o.hosts))
	for host, g := range o.hosts {
		resp.Hosts = append(resp.Hosts, types.HostStatus{
			Host:          host,
			UsedMB:        g.usedEstMB,
			Deployments:   perHost[host],
			QueueLen:      len(g.queueCh),
			Inflight:      len(g.provCh),
			MaxQueueDepth: cap(g.queueCh),
		})
	}
	sort.Slice(resp.Hosts, func(i, j int) bool { return resp.Hosts[i].Host < resp.Hosts[j].Host })
	resp.ProvisioningCount = provisioning
	resp.DrainingCount = draining
	return resp
}

// List returns persisted deployments, optionally filtered by user.
func (o *Orchestrator) List(ctx context.Context, userID string) ([]types.Deployment, error) {
	return o.store.ListDeployments(ctx, userID)
}

// Get returns one deployment by id, or a not-found error.
func (o *Orchestrator) Get(ctx context.Context, id string) (*types.Deployment, error) {
	rec, err := o.store.GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, deploymentNotFoundError{id: id}
	}
	return rec, nil
}
