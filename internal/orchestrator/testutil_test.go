package orchestrator

import (
	"context"
	"testing"

	"deployd/internal/provision"
	"deployd/internal/store"
	"deployd/pkg/types"
)

func testCatalog() []types.Model {
	return []types.Model{
		{ID: "gpt2-large", Name: "GPT-2 Large", Source: "hf://openai-community/gpt2-large", EstVRAMMB: 3600, Family: "gpt2"},
		{ID: "gpt2-medium", Name: "GPT-2 Medium", Source: "hf://openai-community/gpt2-medium", EstVRAMMB: 1800, Family: "gpt2"},
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil { t.Fatalf("open store: %v", err) }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newTestOrchestrator builds a started orchestrator over an in-memory store
// and a mock provisioner.
func newTestOrchestrator(t *testing.T, cfg Config) (*Orchestrator, *provision.Mock) {
	t.Helper()
	mock := provision.NewMock()
	if cfg.Catalog == nil { cfg.Catalog = testCatalog() }
	if cfg.Store == nil { cfg.Store = newTestStore(t) }
	if cfg.Provisioner == nil { cfg.Provisioner = mock }
	o := NewWithConfig(cfg)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return o, mock
}

func testCommand(apiName string, port int) Command {
	return Command{
		ModelID:     "gpt2-large",
		UserID:      "test-user",
		APIName:     apiName,
		Host:        "24.83.13.62",
		Port:        port,
		SSHUser:     "tang",
		SSHPassword: "secret",
	}
}
