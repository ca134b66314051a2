package types

import "time"

// Model represents a deployable model from the catalog.
type Model struct {
	// Stable identifier for the model.
	// example: gpt2-large
	ID string `json:"id" example:"gpt2-large"`
	// Human-friendly name.
	// example: GPT-2 Large
	Name string `json:"name" example:"GPT-2 Large"`
	// Artifact source the target host pulls the model from.
	// example: hf://openai-community/gpt2-large
	Source string `json:"source" example:"hf://openai-community/gpt2-large"`
	// Estimated VRAM usage in MB once serving.
	// example: 3600
	EstVRAMMB int `json:"est_vram_mb" yaml:"est_vram_mb" toml:"est_vram_mb" example:"3600"`
	// Optional family (e.g., gpt2, llama, mistral).
	// example: gpt2
	Family string `json:"family,omitempty" example:"gpt2"`
}

// Deployment is the record of one model deployed to one host.
type Deployment struct {
	// Unique deployment id.
	// example: 5f0c3f9e-9f7a-4c42-9c1e-2f9a1b6d7e10
	ID string `json:"deployment_id" example:"5f0c3f9e-9f7a-4c42-9c1e-2f9a1b6d7e10"`
	// Catalog model id this deployment serves.
	// example: gpt2-large
	ModelID string `json:"model_id" example:"gpt2-large"`
	// User that requested the deployment.
	// example: test-user
	UserID string `json:"user_id" example:"test-user"`
	// Public API name; unique among active deployments.
	// example: gpt2-large
	APIName string `json:"api_name" example:"gpt2-large"`
	// Target host the model runs on.
	// example: 24.83.13.62
	Host string `json:"host" example:"24.83.13.62"`
	// TCP port the model server listens on.
	// example: 11000
	Port int `json:"port" example:"11000"`
	// Base URL of the deployed model API.
	// example: http://24.83.13.62:11000
	Endpoint string `json:"endpoint" example:"http://24.83.13.62:11000"`
	// Lifecycle status (provisioning, ready, failed, draining, terminated).
	// example: ready
	Status string `json:"status" example:"ready"`
	// Estimated VRAM held on the host in MB.
	// example: 3600
	EstVRAMMB int `json:"est_vram_mb" example:"3600"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
