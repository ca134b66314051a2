package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"deployd/internal/catalog"
	"deployd/internal/config"
	"deployd/internal/httpapi"
	"deployd/internal/orchestrator"
	"deployd/internal/provision"
	"deployd/internal/store"
)

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// flagDefaults carries flag values applied to config fields the file
// left unset. The config file wins where it sets a field.
type flagDefaults struct {
	addr        string
	catalogPath string
	dbPath      string
	provisioner string
	logLevel    string
	budgetMB    int
	marginMB    int
}

func mergeConfig(cfg config.Config, d flagDefaults) config.Config {
	if cfg.Addr == "" {
		cfg.Addr = d.addr
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = d.catalogPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = d.dbPath
	}
	if cfg.Provisioner == "" {
		cfg.Provisioner = d.provisioner
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = d.logLevel
	}
	if cfg.HostBudgetMB == 0 {
		cfg.HostBudgetMB = d.budgetMB
	}
	if cfg.HostMarginMB == 0 {
		cfg.HostMarginMB = d.marginMB
	}
	return cfg
}

func main() {
	// Flags with environment variable defaults
	addr := flag.String("addr", envString("DEPLOYD_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	configPath := flag.String("config", envString("DEPLOYD_CONFIG", ""), "Optional config file (.yaml/.json/.toml)")
	catalogPath := flag.String("catalog", envString("DEPLOYD_CATALOG", "~/deployd/catalog.yaml"), "Model catalog file")
	dbPath := flag.String("db", envString("DEPLOYD_DB", "deployd.db"), "SQLite database path")
	provisionerName := flag.String("provisioner", envString("DEPLOYD_PROVISIONER", "ssh"), "Provisioner backend: ssh or mock")
	budgetMB := flag.Int("host-budget-mb", envInt("DEPLOYD_HOST_BUDGET_MB", 0), "Per-host VRAM budget in MB (0=unlimited)")
	marginMB := flag.Int("host-margin-mb", envInt("DEPLOYD_HOST_MARGIN_MB", 0), "Reserved VRAM margin in MB to keep free per host")
	logLevel := flag.String("log-level", envString("DEPLOYD_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			boot := zerolog.New(os.Stderr).With().Timestamp().Str("service", "deployd").Logger()
			boot.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
	}
	cfg = mergeConfig(cfg, flagDefaults{
		addr:        *addr,
		catalogPath: *catalogPath,
		dbPath:      *dbPath,
		provisioner: *provisionerName,
		logLevel:    *logLevel,
		budgetMB:    *budgetMB,
		marginMB:    *marginMB,
	})

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("service", "deployd").Logger()

	models, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load catalog")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open store")
	}
	defer st.Close()

	var prov provision.Provisioner
	switch strings.ToLower(cfg.Provisioner) {
	case "mock":
		prov = provision.NewMock()
	case "ssh", "":
		prov = provision.NewSSH(provision.SSHOptions{
			ConnectTimeout: time.Duration(cfg.SSHTimeoutSec) * time.Second,
			StrictHostKey:  cfg.StrictHostKey,
			KnownHostsPath: cfg.KnownHostsPath,
			Logger:         &logger,
		})
	default:
		logger.Fatal().Str("provisioner", cfg.Provisioner).Msg("unknown provisioner backend")
	}

	orch := orchestrator.NewWithConfig(orchestrator.Config{
		Catalog:          models,
		Store:            st,
		Provisioner:      prov,
		BudgetMB:         cfg.HostBudgetMB,
		MarginMB:         cfg.HostMarginMB,
		MaxQueueDepth:    cfg.MaxQueueDepth,
		MaxWait:          time.Duration(cfg.MaxWaitSec) * time.Second,
		ProvisionTimeout: time.Duration(cfg.ProvisionTimeoutSec) * time.Second,
		Events:           orchestrator.ZerologPublisher{Log: logger},
	})
	if err := orch.Start(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to start orchestrator")
	}

	httpapi.SetLogger(logger)
	if cfg.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	}
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins,
			[]string{"GET", "POST", "DELETE", "OPTIONS"},
			[]string{"Accept", "Content-Type", "X-Log-Level"})
	}

	// Base context canceled on shutdown so in-flight deploys stop cleanly.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(orch)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("catalog", cfg.CatalogPath).Int("models", len(models)).Msg("deployd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}
