package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jlov7/Switchboard/internal/adapter/inbound/api"
	"github.com/jlov7/Switchboard/internal/adapter/outbound/auditlog"
	"github.com/jlov7/Switchboard/internal/adapter/outbound/executor"
	"github.com/jlov7/Switchboard/internal/adapter/outbound/memory"
	"github.com/jlov7/Switchboard/internal/adapter/outbound/opa"
	"github.com/jlov7/Switchboard/internal/adapter/outbound/rekor"
	"github.com/jlov7/Switchboard/internal/adapter/outbound/sqlstore"
	"github.com/jlov7/Switchboard/internal/config"
	"github.com/jlov7/Switchboard/internal/domain/approval"
	"github.com/jlov7/Switchboard/internal/domain/audit"
	"github.com/jlov7/Switchboard/internal/domain/auth"
	"github.com/jlov7/Switchboard/internal/domain/policy"
	"github.com/jlov7/Switchboard/internal/service"
	"github.com/jlov7/Switchboard/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Switchboard API server.

The server routes POST /route requests through policy evaluation, audit
signing, and adapter dispatch, and exposes the approvals queue for human
reviewers.

Examples:
  # Start with config file settings
  switchboard serve

  # Start with a specific config file
  switchboard --config /path/to/switchboard.yaml serve`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "enable development mode (debug logging)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C does a
	// hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if devMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("switchboard stopped")
	return nil
}

// run wires all components together and blocks until the context is
// cancelled or the server fails.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Telemetry bootstrap. Stdout exporters only; the provider owns the
	// global tracer/meter for the lifetime of the process.
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.Setup(ctx,
			telemetry.WithLogger(logger),
			telemetry.WithServiceVersion(Version),
		)
		if err != nil {
			return fmt.Errorf("failed to set up telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	// One registry for the HTTP layer and the service observers.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := api.NewMetrics(registry)

	// Policy evaluation: the local ruleset always loads; the remote OPA
	// evaluator is consulted first when enabled and falls back to the
	// ruleset on any failure.
	policyCfg := policy.DefaultConfig()
	if cfg.Policy.ConfigPath != "" {
		loaded, err := policy.LoadConfig(cfg.Policy.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load policy config: %w", err)
		}
		policyCfg = loaded
	}
	engine := policy.NewEngine(policyCfg)

	policyOpts := []service.PolicyOption{
		service.WithDecisionObserver(metrics.ObservePolicyDecision),
	}
	if cfg.Policy.UseOPA {
		policyOpts = append(policyOpts, service.WithRemoteEvaluator(opa.NewClient(cfg.Policy.OPAURL)))
	}
	policies := service.NewPolicyService(engine, logger, policyOpts...)

	// Audit pipeline: HMAC signer, append-only JSONL store, transparency
	// log. An empty Rekor URL runs the transparency log in offline mode
	// against the same file.
	store := auditlog.NewStore(cfg.Audit.LogPath,
		auditlog.WithRotation(cfg.Audit.RotateMaxBytes),
		auditlog.WithRetention(cfg.Audit.RotateKeep),
	)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("audit log close failed", "error", err)
		}
	}()
	signer := audit.NewSigner(cfg.Audit.SigningKey)
	transparency := rekor.NewClient(cfg.Audit.RekorURL, store)
	audits := service.NewAuditService(signer, store, transparency, logger,
		service.WithRecordObserver(metrics.ObserveAuditRecord),
	)

	// Approvals queue backend.
	var approvals approval.Store
	switch cfg.Approvals.Backend {
	case "persistent":
		approvals = sqlstore.NewApprovalStore(cfg.Approvals.DatabaseURL)
	default:
		approvals = memory.NewApprovalStore()
	}
	if err := approvals.Warmup(ctx); err != nil {
		return fmt.Errorf("failed to warm up approval store: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := approvals.Shutdown(shutdownCtx); err != nil {
			logger.Warn("approval store shutdown failed", "error", err)
		}
	}()

	// Tool adapters: mcp and acp always; the cloud adapters only when
	// enabled (dry-run needs no credentials, live does).
	adapters := service.NewAdapterRegistry()
	adapters.Register(executor.NewMCPAdapter(cfg.Adapters.MCPServerURL))
	adapters.Register(executor.NewACPAdapter(cfg.Adapters.ACPEndpoint))
	if cfg.Adapters.EnableBedrock {
		bedrock, err := executor.NewBedrockAdapter(ctx, executor.BedrockConfig{
			Mode:    cfg.Adapters.AWSMode,
			Region:  cfg.Adapters.AWSRegion,
			ModelID: cfg.Adapters.BedrockModelID,
		})
		if err != nil {
			return fmt.Errorf("failed to create bedrock adapter: %w", err)
		}
		adapters.Register(bedrock)
	}
	if cfg.Adapters.EnableVertex {
		vertex, err := executor.NewVertexAdapter(ctx, executor.VertexConfig{
			Mode:     cfg.Adapters.GCPMode,
			Project:  cfg.Adapters.GCPProject,
			Location: cfg.Adapters.GCPLocation,
			Model:    cfg.Adapters.VertexModel,
		})
		if err != nil {
			return fmt.Errorf("failed to create vertex adapter: %w", err)
		}
		adapters.Register(vertex)
	}
	defer func() {
		if err := adapters.Close(); err != nil {
			logger.Warn("adapter close failed", "error", err)
		}
	}()

	router := service.NewRouterService(policies, audits, approvals, adapters, logger)

	keyring := auth.ParseKeyring(cfg.Reviewer.Keys)
	if keyring.Empty() {
		logger.Warn("approvals endpoints are unauthenticated: no reviewer keys configured")
	}

	server := api.NewServer(router,
		api.WithAddr(cfg.Server.Addr),
		api.WithLogger(logger),
		api.WithReviewerKeyring(keyring),
		api.WithInstrumentation(registry, metrics),
	)

	transparencyMode := "offline"
	if cfg.Audit.RekorURL != "" {
		transparencyMode = "rekor"
	}
	logger.Info("switchboard started",
		"addr", cfg.Server.Addr,
		"adapters", adapters.Names(),
		"approvals_backend", cfg.Approvals.Backend,
		"remote_policy", cfg.Policy.UseOPA,
		"transparency", transparencyMode,
	)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
