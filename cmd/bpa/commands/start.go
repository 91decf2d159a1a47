package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dtnkit/bpa/internal/adminapi"
	"github.com/dtnkit/bpa/internal/bpa"
	"github.com/dtnkit/bpa/internal/cla"
	"github.com/dtnkit/bpa/internal/config"
	"github.com/dtnkit/bpa/internal/contactmgr"
	"github.com/dtnkit/bpa/internal/controlplane/store"
	"github.com/dtnkit/bpa/internal/logger"
	"github.com/dtnkit/bpa/internal/metrics"
	"github.com/dtnkit/bpa/internal/router"
	"github.com/dtnkit/bpa/internal/routing"
	"github.com/dtnkit/bpa/internal/telemetry"
	"github.com/dtnkit/bpa/pkg/aap"
	"github.com/dtnkit/bpa/pkg/codec"
	"github.com/dtnkit/bpa/pkg/configagent"
	"github.com/dtnkit/bpa/pkg/eid"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Bundle Protocol Agent",
	Long: `Start the Bundle Protocol Agent: the routing table, Router, Contact
Manager, and Bundle Processor, plus whichever of the admin API, metrics
endpoint, and control-plane store are enabled in the configuration.

No concrete convergence-layer adapter or wire codec ships with this
binary — core defines only the abstract vtable they plug into (spec
Non-goals). Configured CLAs are only logged with a warning at startup;
nothing is registered for them, and no bundles are sent or received
until a concrete adapter is registered via the cla.Registry/cla.CLA
interfaces.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := InitLogger(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.Endpoint != "" {
		telemetryCfg.Endpoint = cfg.Telemetry.Endpoint
	}
	telemetryCfg.Insecure = cfg.Telemetry.Insecure
	if cfg.Telemetry.SampleRate > 0 {
		telemetryCfg.SampleRate = cfg.Telemetry.SampleRate
	}
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	localEID, err := eid.Parse(cfg.Node.EID)
	if err != nil {
		return fmt.Errorf("invalid node EID %q: %w", cfg.Node.EID, err)
	}

	table := routing.New(nil)
	claRegistry := cla.NewRegistry()
	codecRegistry := codec.NewRegistry()
	_ = codecRegistry // held for future concrete-codec registration; spec Non-goal, see start.go doc

	for _, c := range cfg.CLAs {
		logger.Warn("configured CLA has no built-in transport; register a concrete cla.CLA to use it",
			"cla", c.Name, "listen_addr", c.ListenAddr)
	}

	routerCfg := router.DefaultConfig()
	routerCfg.FragmentMinPayload = cfg.Router.FragmentMinPayload
	routerCfg.RouterMaxFragments = cfg.Router.RouterMaxFragments
	if cfg.Router.MaximumBundleSize > 0 {
		routerCfg.MaximumBundleSize = cfg.Router.MaximumBundleSize.Int64()
	}
	rt := router.New(table, routerCfg, claRegistry, localEID)

	bpaCfg := bpa.DefaultConfig()
	switch cfg.Processor.FailurePolicy {
	case "", "reschedule":
		bpaCfg.FailurePolicy = bpa.PolicyTryReschedule
	case "drop":
		bpaCfg.FailurePolicy = bpa.PolicyDrop
	default:
		logger.Warn("unknown failure policy, using default", "failure_policy", cfg.Processor.FailurePolicy)
	}
	if cfg.Processor.KnownListTTL > 0 {
		bpaCfg.KnownListTTLMs = cfg.Processor.KnownListTTL.Milliseconds()
	}
	if cfg.Processor.QueueCapacity > 0 {
		bpaCfg.QueueCapacity = cfg.Processor.QueueCapacity
	}

	now := func() int64 { return time.Now().UnixMilli() }
	processor := bpa.New(localEID, table, rt, nil, bpaCfg, now)

	cmCfg := contactmgr.DefaultConfig()
	if cfg.ContactManager.MaxConcurrentContacts > 0 {
		cmCfg.MaxConcurrentContacts = cfg.ContactManager.MaxConcurrentContacts
	}
	cm := contactmgr.New(table, claRegistry, processor.ContactNotifier(), cmCfg)
	processor.SetContactManager(cm)

	reg := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(reg)
	processor.SetMetrics(appMetrics)
	cm.SetMetrics(appMetrics)

	if err := bpa.RegisterBuiltinAgents(processor); err != nil {
		return fmt.Errorf("failed to register built-in agents: %w", err)
	}

	if cfg.AgentAuth.Enabled {
		tokenSvc, err := aap.NewTokenService(aap.TokenConfig{
			Secret:        cfg.AgentAuth.Secret,
			Issuer:        cfg.AgentAuth.Issuer,
			TokenDuration: cfg.AgentAuth.TokenDuration,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize agent token service: %w", err)
		}
		processor.SetAgentTokenVerifier(tokenSvc.Verify)
	}

	if cfg.ContactSeedFile != "" {
		cmds, err := config.LoadSeed(cfg.ContactSeedFile)
		if err != nil {
			return fmt.Errorf("failed to load contact seed file: %w", err)
		}
		for _, c := range cmds {
			if _, err := configagent.Apply(table, c); err != nil {
				return fmt.Errorf("failed to apply seed command: %w", err)
			}
		}
		logger.Info("loaded contact seed file", "file", cfg.ContactSeedFile, "count", len(cmds))
	}

	var cpStore *store.Store
	if cfg.ControlPlane.Enabled {
		cpStore, err = store.New(cfg.ControlPlane.Driver, cfg.ControlPlane.DSN)
		if err != nil {
			return fmt.Errorf("failed to open control-plane store: %w", err)
		}
		nodes, err := cpStore.LoadAll()
		if err != nil {
			return fmt.Errorf("failed to load persisted nodes: %w", err)
		}
		for _, n := range nodes {
			table.AddNode(n)
		}
		logger.Info("reseeded routing table from control-plane store", "count", len(nodes))
	}

	var wg sync.WaitGroup
	serverErrs := make(chan error, 2)

	var adminSrv *adminapi.Server
	if cfg.AdminAPI.Enabled {
		adminSrv = adminapi.NewServer(cfg.AdminAPI.Port, table)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adminSrv.Start(ctx); err != nil {
				serverErrs <- err
			}
		}()
	}

	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Port, reg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsSrv.Start(ctx); err != nil {
				serverErrs <- err
			}
		}()
	}

	pidFile := DefaultPidFile()
	if err := writePidFile(pidFile); err != nil {
		logger.Warn("failed to write pid file", "path", pidFile, "error", err)
	}
	defer os.Remove(pidFile)

	processor.Start(ctx)
	cm.Start(ctx)

	logger.Info("bpa started", "node_eid", localEID.String())

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrs:
		logger.Error("server failed, shutting down", "error", err)
		stop()
	}

	processor.Stop()
	cm.Stop()
	wg.Wait()

	if cpStore != nil {
		if err := cpStore.Close(); err != nil {
			logger.Warn("failed to close control-plane store", "error", err)
		}
	}

	logger.Info("bpa stopped")
	return nil
}

func writePidFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}
