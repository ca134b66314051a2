package orchestrator

import (
	"time"

	"deployd/internal/provision"
	"deployd/internal/store"
	"deployd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth    = 8
	defaultMaxWait          = 60 * time.Second
	defaultProvisionTimeout = 10 * time.Minute
)

// Config encapsulates all tunables for Orchestrator construction.
type Config struct {
	Catalog     []types.Model
	Store       *store.Store
	Provisioner provision.Provisioner
	// Per-host capacity, in estimated VRAM MB (0 = unlimited).
	BudgetMB int
	MarginMB int
	// Admission gate tunables.
	MaxQueueDepth int
	MaxWait       time.Duration
	// Upper bound on one provisioning run.
	ProvisionTimeout time.Duration
	// BaseScheme prefixes endpoint URLs; defaults to http.
	BaseScheme string
	Events     EventPublisher
}

// NewWithConfig constructs an Orchestrator from Config.
func NewWithConfig(cfg Config) *Orchestrator {
	o := &Orchestrator{
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		prov:     cfg.Provisioner,
		budgetMB: cfg.BudgetMB,
		marginMB: cfg.MarginMB,
		scheme:   cfg.BaseScheme,
		pub:      cfg.Events,
		hosts:    make(map[string]*hostGate),
		deps:     make(map[string]*deployment),
		apiNames: make(map[string]string),
	}
	if o.scheme == "" {
		o.scheme = "http"
	}
	if o.pub == nil {
		o.pub = noopPublisher{}
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		o.maxQueueDepth = defaultMaxQueueDepth
	} else {
		o.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		o.maxWait = defaultMaxWait
	} else {
		o.maxWait = cfg.MaxWait
	}
	if cfg.ProvisionTimeout <= 0 {
		o.provisionTimeout = defaultProvisionTimeout
	} else {
		o.provisionTimeout = cfg.ProvisionTimeout
	}
	o.startTime = time.Now()
	return o
}
