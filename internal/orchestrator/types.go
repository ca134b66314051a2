package orchestrator

import (
	"time"

	"deployd/pkg/types"
)

// State represents lifecycle state of a deployment.
type State string

const (
	StateProvisioning State = "provisioning"
	StateReady        State = "ready"
	StateFailed       State = "failed"
	StateDraining     State = "draining"
	StateTerminated   State = "terminated"
)

// credentials are kept in memory for the life of the process only, so the
// orchestrator can tear a deployment down later. They are never persisted.
type credentials struct {
	user     string
	password string
}

// deployment is the in-memory view of one deployment.
type deployment struct {
	rec      types.Deployment
	state    State
	lastUsed time.Time
	creds    *credentials // nil for rehydrated deployments
}

// hostGate serializes provisioning per target host and tracks its
// estimated capacity usage.
type hostGate struct {
	provCh    chan struct{} // size 1: single in-flight provisioning
	queueCh   chan struct{} // buffered: queue slots
	usedEstMB int
}

// Command is a validated deploy request handed to the orchestrator.
type Command struct {
	ModelID     string
	UserID      string
	APIName     string
	Host        string
	Port        int
	SSHUser     string
	SSHPassword string
}
