package orchestrator

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"deployd/internal/apikey"
	"deployd/internal/provision"
	"deployd/pkg/types"
)

// Deploy provisions cmd.ModelID onto cmd.Host and returns the finished
// deployment record with its freshly minted API key. Synchronous: the call
// returns once the remote runtime is listening or provisioning failed.
func (o *Orchestrator) Deploy(ctx context.Context, cmd Command) (*types.DeployResponse, error) {
	mdl, ok := o.modelByID(cmd.ModelID)
	if !ok {
		return nil, ErrModelNotFound(cmd.ModelID)
	}

	// Reserve the api_name before queueing so concurrent requests for the
	// same name fail fast.
	o.mu.Lock()
	if holder, taken := o.apiNames[cmd.APIName]; taken {
		o.mu.Unlock()
		return nil, conflictError{msg: fmt.Sprintf("api_name %q already in use by deployment %s", cmd.APIName, holder)}
	}
	id := uuid.NewString()
	o.apiNames[cmd.APIName] = id
	o.mu.Unlock()

	resp, err := o.deploy(ctx, id, cmd, mdl)
	if err != nil {
		o.mu.Lock()
		if o.apiNames[cmd.APIName] == id {
			delete(o.apiNames, cmd.APIName)
		}
		o.mu.Unlock()
		o.setLastErr(err)
		return nil, err
	}
	return resp, nil
}

func (o *Orchestrator) deploy(ctx context.Context, id string, cmd Command, mdl types.Model) (*types.DeployResponse, error) {
	release, err := o.beginProvision(ctx, cmd.Host)
	if err != nil {
		return nil, err
	}
	defer release()

	if o.budgetMB > 0 {
		if err := o.evictUntilFits(ctx, cmd.Host, mdl.EstVRAMMB); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	rec := types.Deployment{
		ID:        id,
		ModelID:   cmd.ModelID,
		UserID:    cmd.UserID,
		APIName:   cmd.APIName,
		Host:      cmd.Host,
		Port:      cmd.Port,
		Endpoint:  endpointURL(o.scheme, cmd.Host, cmd.Port),
		Status:    string(StateProvisioning),
		EstVRAMMB: mdl.EstVRAMMB,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d := &deployment{
		rec:      rec,
		state:    StateProvisioning,
		lastUsed: now,
		creds:    &credentials{user: cmd.SSHUser, password: cmd.SSHPassword},
	}

	o.mu.Lock()
	o.deps[id] = d
	o.gateLocked(cmd.Host).usedEstMB += mdl.EstVRAMMB
	o.mu.Unlock()

	fail := func(cause error) error {
		o.mu.Lock()
		d.state = StateFailed
		d.rec.Status = string(StateFailed)
		o.gateLocked(cmd.Host).usedEstMB -= mdl.EstVRAMMB
		o.mu.Unlock()
		_ = o.store.UpdateDeploymentStatus(context.Background(), id, string(StateFailed))
		// A key issued for this attempt must not resolve to a failed deployment.
		_ = o.store.DeleteAPIKeysForDeployment(context.Background(), id)
		o.pub.Publish(Event{Name: "deploy_failed", DeploymentID: id, Fields: map[string]any{"model_id": cmd.ModelID, "error": cause.Error()}})
		return cause
	}

	if err := o.store.CreateDeployment(ctx, rec); err != nil {
		o.mu.Lock()
		delete(o.deps, id)
		o.gateLocked(cmd.Host).usedEstMB -= mdl.EstVRAMMB
		o.mu.Unlock()
		return nil, err
	}
	o.pub.Publish(Event{Name: "deploy_started", DeploymentID: id, Fields: map[string]any{"model_id": cmd.ModelID, "host": cmd.Host}})

	key, err := apikey.New()
	if err != nil {
		return nil, fail(err)
	}
	if err := o.store.InsertAPIKey(ctx, uuid.NewString(), id, key.Digest, key.Hint); err != nil {
		return nil, fail(err)
	}

	provCtx, cancel := context.WithTimeout(ctx, o.provisionTimeout)
	defer cancel()
	err = o.prov.Provision(provCtx, provision.Spec{
		Host:        cmd.Host,
		SSHUser:     cmd.SSHUser,
		SSHPassword: cmd.SSHPassword,
		APIName:     cmd.APIName,
		ModelID:     mdl.ID,
		Source:      mdl.Source,
		Port:        cmd.Port,
		KeyDigest:   key.Digest,
	})
	if err != nil {
		return nil, fail(err)
	}

	o.mu.Lock()
	d.state = StateReady
	d.rec.Status = string(StateReady)
	d.lastUsed = time.Now()
	o.deploysTotal++
	o.mu.Unlock()
	if err := o.store.UpdateDeploymentStatus(ctx, id, string(StateReady)); err != nil {
		return nil, fail(err)
	}
	o.pub.Publish(Event{Name: "deploy_ready", DeploymentID: id, Fields: map[string]any{"endpoint": rec.Endpoint}})

	out := d.rec
	out.Status = string(StateReady)
	return &types.DeployResponse{Deployment: out, APIKey: key.Plaintext}, nil
}

// endpointURL builds the public URL for a deployment. A host that already
// carries a port is stripped to its host part first.
func endpointURL(scheme, host string, port int) string {
	h := host
	if sh, _, err := net.SplitHostPort(host); err == nil {
		h = sh
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(h, fmt.Sprintf("%d", port)))
}
