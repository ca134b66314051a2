package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"deployd/pkg/types"
)

// fileSchema is the on-disk shape of a catalog file.
type fileSchema struct {
	Models []types.Model `json:"models" yaml:"models" toml:"models"`
}

// LoadFile reads the model catalog from path. The format follows the file
// extension (.yaml/.yml, .json, .toml). Model ids must be unique and
// non-empty; est_vram_mb defaults to 0 (treated as unknown by the budget).
func LoadFile(path string) ([]types.Model, error) {
	p, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f fileSchema
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &f); err != nil { return nil, fmt.Errorf("parse catalog: %w", err) }
	case ".json":
		if err := json.Unmarshal(b, &f); err != nil { return nil, fmt.Errorf("parse catalog: %w", err) }
	case ".toml":
		if err := toml.Unmarshal(b, &f); err != nil { return nil, fmt.Errorf("parse catalog: %w", err) }
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	seen := make(map[string]struct{}, len(f.Models))
	for _, m := range f.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("catalog entry with empty id")
		}
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id: %s", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return f.Models, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" { return path, nil }
	if path[0] != '~' { return path, nil }
	home, err := os.UserHomeDir()
	if err != nil { return "", fmt.Errorf("home dir: %w", err) }
	if path == "~" { return home, nil }
	// handle cases like ~/deployd/catalog.yaml
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
