package types

// SSHConfig carries the connection parameters for the target machine.
// The port is the TCP port the deployed model API must listen on; SSH
// itself connects on 22 unless the host string carries an explicit port.
type SSHConfig struct {
	// Hostname or IP address of the target machine.
	// example: 24.83.13.62
	Host string `json:"host" example:"24.83.13.62"`
	// SSH login user.
	// example: tang
	Username string `json:"username" example:"tang"`
	// Service port for the deployed model API, as a decimal string.
	// example: 11000
	Port string `json:"port" example:"11000"`
	// SSH password. Used for the provisioning session only; never stored.
	Password string `json:"password"`
}

// DeployRequest is the payload for POST /api/v1/deploy.
type DeployRequest struct {
	// Catalog model id to deploy.
	// example: gpt2-large
	ModelID string `json:"model_id" example:"gpt2-large"`
	// Requesting user id.
	// example: test-user
	UserID string `json:"user_id" example:"test-user"`
	// Public name for the resulting API; unique among active deployments.
	// example: gpt2-large
	APIName string `json:"api_name" example:"gpt2-large"`
	// Target machine SSH coordinates.
	SSHConfig SSHConfig `json:"ssh_config"`
}

// DeployResponse is returned by POST /api/v1/deploy on success.
type DeployResponse struct {
	Deployment
	// Plaintext API key for the deployed endpoint. Returned exactly once;
	// only a digest is kept server-side.
	// example: dk_1f8e2c1b9a4d4e0f8c6b5a3d2e1f0a9b
	APIKey string `json:"api_key" example:"dk_1f8e2c1b9a4d4e0f8c6b5a3d2e1f0a9b"`
}

// DeploymentsResponse wraps the list returned by GET /api/v1/deployments.
type DeploymentsResponse struct {
	Deployments []Deployment `json:"deployments"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of deployable models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HostStatus summarizes one target host for /status.
type HostStatus struct {
	// Host address.
	// example: 24.83.13.62
	Host string `json:"host" example:"24.83.13.62"`
	// Estimated used VRAM in MB across deployments on this host.
	// example: 4500
	UsedMB int `json:"used_est_mb" example:"4500"`
	// Number of non-terminated deployments on this host.
	// example: 2
	Deployments int `json:"deployments" example:"2"`
	// Current provisioning queue length for this host.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Number of in-flight provisioning operations (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued deploy requests allowed before backpressure triggers.
	// example: 8
	MaxQueueDepth int `json:"max_queue_depth" example:"8"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Active and recent deployments.
	Deployments []Deployment `json:"deployments"`
	// Per-host usage and queue state.
	Hosts []HostStatus `json:"hosts"`
	// Per-host VRAM budget in MB (0 = unlimited).
	// example: 8192
	BudgetMB int `json:"budget_mb" example:"8192"`
	// Reserved VRAM margin in MB.
	// example: 512
	MarginMB int `json:"margin_mb" example:"512"`
	// Last error observed by the orchestrator (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total deployments provisioned since start.
	// example: 12
	DeploysTotal uint64 `json:"deploys_total" example:"12"`
	// Total deployments evicted to free capacity.
	// example: 2
	EvictionsTotal uint64 `json:"evictions_total" example:"2"`
	// Number of deployments currently provisioning.
	// example: 1
	ProvisioningCount int `json:"provisioning_count" example:"1"`
	// Number of deployments currently draining.
	// example: 0
	DrainingCount int `json:"draining_count" example:"0"`
}
