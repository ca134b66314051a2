package orchestrator

import (
	"context"
	"fmt"
	"time"

	"deployd/internal/provision"
	"deployd/pkg/types"
)

// Terminate stops a deployment's remote runtime and marks it terminated.
// Terminating an already-terminated deployment is a conflict.
func (o *Orchestrator) Terminate(ctx context.Context, id string) (*types.Deployment, error) {
	o.mu.Lock()
	d, ok := o.deps[id]
	if !ok {
		o.mu.Unlock()
		// Not in memory: it may be a failed or rehydrated record.
		rec, err := o.store.GetDeployment(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, deploymentNotFoundError{id: id}
		}
		if rec.Status == string(StateTerminated) {
			return nil, conflictError{msg: fmt.Sprintf("deployment %s already terminated", id)}
		}
		if err := o.store.UpdateDeploymentStatus(ctx, id, string(StateTerminated)); err != nil {
			return nil, err
		}
		rec.Status = string(StateTerminated)
		o.pub.Publish(Event{Name: "deploy_terminated", DeploymentID: id})
		return rec, nil
	}
	switch d.state {
	case StateTerminated, StateDraining:
		o.mu.Unlock()
		return nil, conflictError{msg: fmt.Sprintf("deployment %s already %s", id, d.state)}
	case StateProvisioning:
		o.mu.Unlock()
		return nil, conflictError{msg: fmt.Sprintf("deployment %s still provisioning", id)}
	}
	heldCapacity := d.state == StateReady
	d.state = StateDraining
	d.rec.Status = string(StateDraining)
	o.mu.Unlock()
	_ = o.store.UpdateDeploymentStatus(ctx, id, string(StateDraining))

	o.teardown(ctx, d)
	return o.finishTerminate(ctx, d, heldCapacity, "deploy_terminated")
}

// teardown stops the remote runtime when credentials are still held.
// Rehydrated deployments have no credentials; their remote runtime is left
// as-is and only the record transitions.
func (o *Orchestrator) teardown(ctx context.Context, d *deployment) {
	if d.creds == nil {
		o.pub.Publish(Event{Name: "deploy_teardown_skipped", DeploymentID: d.rec.ID, Fields: map[string]any{"reason": "no credentials"}})
		return
	}
	tctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	err := o.prov.Teardown(tctx, provision.TeardownSpec{
		Host:        d.rec.Host,
		SSHUser:     d.creds.user,
		SSHPassword: d.creds.password,
		APIName:     d.rec.APIName,
		Port:        d.rec.Port,
	})
	if err != nil {
		// Teardown is best effort; the record still transitions.
		o.setLastErr(err)
		o.pub.Publish(Event{Name: "deploy_teardown_failed", DeploymentID: d.rec.ID, Fields: map[string]any{"error": err.Error()}})
	}
}

// finishTerminate commits the terminated state and releases held resources.
func (o *Orchestrator) finishTerminate(ctx context.Context, d *deployment, heldCapacity bool, event string) (*types.Deployment, error) {
	o.mu.Lock()
	d.state = StateTerminated
	d.rec.Status = string(StateTerminated)
	d.creds = nil
	if heldCapacity {
		o.gateLocked(d.rec.Host).usedEstMB -= d.rec.EstVRAMMB
	}
	if o.apiNames[d.rec.APIName] == d.rec.ID {
		delete(o.apiNames, d.rec.APIName)
	}
	rec := d.rec
	o.mu.Unlock()

	if err := o.store.UpdateDeploymentStatus(ctx, rec.ID, string(StateTerminated)); err != nil {
		return nil, err
	}
	o.pub.Publish(Event{Name: event, DeploymentID: rec.ID})
	return &rec, nil
}
