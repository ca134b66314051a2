package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr                string   `json:"addr" yaml:"addr" toml:"addr"`
	CatalogPath         string   `json:"catalog_path" yaml:"catalog_path" toml:"catalog_path"`
	DBPath              string   `json:"db_path" yaml:"db_path" toml:"db_path"`
	Provisioner         string   `json:"provisioner" yaml:"provisioner" toml:"provisioner"`
	HostBudgetMB        int      `json:"host_budget_mb" yaml:"host_budget_mb" toml:"host_budget_mb"`
	HostMarginMB        int      `json:"host_margin_mb" yaml:"host_margin_mb" toml:"host_margin_mb"`
	MaxQueueDepth       int      `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSec          int      `json:"max_wait_sec" yaml:"max_wait_sec" toml:"max_wait_sec"`
	SSHTimeoutSec       int      `json:"ssh_timeout_sec" yaml:"ssh_timeout_sec" toml:"ssh_timeout_sec"`
	ProvisionTimeoutSec int      `json:"provision_timeout_sec" yaml:"provision_timeout_sec" toml:"provision_timeout_sec"`
	StrictHostKey       bool     `json:"strict_host_key" yaml:"strict_host_key" toml:"strict_host_key"`
	KnownHostsPath      string   `json:"known_hosts_path" yaml:"known_hosts_path" toml:"known_hosts_path"`
	LogLevel            string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORSEnabled         bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins         []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes        int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
