package orchestrator

import (
	"context"
	"testing"
	"time"

	"deployd/pkg/types"
)

func TestStatusReportsHostsAndCounters(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{BudgetMB: 8192, MarginMB: 512})
	ctx := context.Background()
	if _, err := o.Deploy(ctx, testCommand("a", 11000)); err != nil { t.Fatalf("deploy: %v", err) }

	st := o.Status()
	if st.BudgetMB != 8192 || st.MarginMB != 512 { t.Fatalf("budget fields: %+v", st) }
	if st.DeploysTotal != 1 { t.Fatalf("deploys_total=%d", st.DeploysTotal) }
	if len(st.Deployments) != 1 || st.Deployments[0].Status != "ready" {
		t.Fatalf("deployments: %+v", st.Deployments)
	}
	if len(st.Hosts) != 1 { t.Fatalf("hosts: %+v", st.Hosts) }
	h := st.Hosts[0]
	if h.Host != "24.83.13.62" || h.UsedMB != 3600 || h.Deployments != 1 || h.MaxQueueDepth != defaultMaxQueueDepth {
		t.Fatalf("host status: %+v", h)
	}
	if st.UptimeSeconds < 0 || st.ServerTimeUnix == 0 { t.Fatalf("clock fields: %+v", st) }
}

func TestReadyOnlyAfterStart(t *testing.T) {
	o := NewWithConfig(Config{Catalog: testCatalog(), Store: newTestStore(t), Provisioner: nil})
	if o.Ready() { t.Fatalf("ready before Start") }
	if err := o.Start(context.Background()); err != nil { t.Fatalf("start: %v", err) }
	if !o.Ready() { t.Fatalf("not ready after Start") }
}

func TestStartRehydratesReadyDeployments(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seed := types.Deployment{
		ID: "dep-old", ModelID: "gpt2-large", UserID: "u", APIName: "taken",
		Host: "24.83.13.62", Port: 11000, Endpoint: "http://24.83.13.62:11000",
		Status: "ready", EstVRAMMB: 3600, CreatedAt: now, UpdatedAt: now,
	}
	if err := st.CreateDeployment(ctx, seed); err != nil { t.Fatalf("seed: %v", err) }
	stale := seed
	stale.ID = "dep-stale"
	stale.APIName = "stale"
	stale.Status = "provisioning"
	if err := st.CreateDeployment(ctx, stale); err != nil { t.Fatalf("seed stale: %v", err) }

	o, _ := newTestOrchestrator(t, Config{Store: st, BudgetMB: 4000})

	// rehydrated api_name still reserved
	if _, err := o.Deploy(ctx, testCommand("taken", 12000)); !IsConflict(err) {
		t.Fatalf("expected conflict on rehydrated name, got %v", err)
	}
	// rehydrated capacity still held: 3600 of 4000 used
	other := testCommand("fresh", 12000)
	other.ModelID = "gpt2-medium"
	if _, err := o.Deploy(ctx, other); !IsCapacityExceeded(err) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	// stale provisioning record was failed
	rec, err := o.Get(ctx, "dep-stale")
	if err != nil { t.Fatalf("get stale: %v", err) }
	if rec.Status != "failed" { t.Fatalf("stale status=%s", rec.Status) }
}

func TestStartCompletesStaleDraining(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seed := types.Deployment{
		ID: "dep-drain", ModelID: "gpt2-large", UserID: "u", APIName: "drainer",
		Host: "24.83.13.62", Port: 11000, Endpoint: "http://24.83.13.62:11000",
		Status: "draining", EstVRAMMB: 3600, CreatedAt: now, UpdatedAt: now,
	}
	if err := st.CreateDeployment(ctx, seed); err != nil { t.Fatalf("seed: %v", err) }

	o, _ := newTestOrchestrator(t, Config{Store: st, BudgetMB: 4000})

	// the interrupted drain is finished off
	rec, err := o.Get(ctx, "dep-drain")
	if err != nil { t.Fatalf("get: %v", err) }
	if rec.Status != "terminated" { t.Fatalf("drain status=%s", rec.Status) }

	// its api_name and capacity are free again (3600 of 4000)
	if _, err := o.Deploy(ctx, testCommand("drainer", 12000)); err != nil {
		t.Fatalf("redeploy after drain recovery: %v", err)
	}
}

func TestListAndGet(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{})
	ctx := context.Background()
	resp, err := o.Deploy(ctx, testCommand("a", 11000))
	if err != nil { t.Fatalf("deploy: %v", err) }

	list, err := o.List(ctx, "test-user")
	if err != nil { t.Fatalf("list: %v", err) }
	if len(list) != 1 || list[0].ID != resp.ID { t.Fatalf("list: %+v", list) }

	none, err := o.List(ctx, "someone-else")
	if err != nil { t.Fatalf("list other: %v", err) }
	if len(none) != 0 { t.Fatalf("expected empty list, got %+v", none) }

	if _, err := o.Get(ctx, "missing"); !IsDeploymentNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestErrorPredicatesDistinct(t *testing.T) {
	if IsTooBusy(ErrModelNotFound("x")) { t.Fatal("predicate overlap") }
	if IsModelNotFound(tooBusyError{host: "h"}) { t.Fatal("predicate overlap") }
	if IsConflict(capacityError{host: "h"}) { t.Fatal("predicate overlap") }
	if !IsCapacityExceeded(capacityError{host: "h"}) { t.Fatal("capacity predicate") }
}
