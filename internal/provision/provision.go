// Package provision installs and removes model runtimes on remote hosts.
// The SSH implementation uploads a launch script over SFTP and starts the
// runtime; the mock implementation backs tests and local development.
package provision

import "context"

// Spec describes one provisioning job. Credentials live only for the
// duration of the call.
type Spec struct {
	Host        string
	SSHUser     string
	SSHPassword string
	APIName     string
	ModelID     string
	Source      string
	// Port the model server must listen on.
	Port int
	// KeyDigest is the sha256 of the issued API key; the remote runtime
	// verifies presented keys against it.
	KeyDigest string
}

// TeardownSpec identifies a deployment to remove from its host.
type TeardownSpec struct {
	Host        string
	SSHUser     string
	SSHPassword string
	APIName     string
	Port        int
}

// Provisioner starts and stops model runtimes on target machines.
type Provisioner interface {
	// Provision is idempotent per (host, port): re-running against a live
	// deployment is a no-op on the target.
	Provision(ctx context.Context, spec Spec) error
	Teardown(ctx context.Context, spec TeardownSpec) error
}
