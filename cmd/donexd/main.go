package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"donex/config"
	"donex/observability/logging"
	telemetry "donex/observability/otel"
)

const (
	genesisPathEnv  = "DONEX_GENESIS"
	operatorPassEnv = "DONEX_OPERATOR_PASS"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON or YAML file (overrides DONEX_GENESIS and config GenesisFile)")
	allowAutogenesis := flag.Bool("allow-autogenesis", false, "DEV ONLY: instantiate with the operator key as owner when no genesis file is configured")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logOut io.Writer = os.Stdout
	if file := logging.FileWriter(logging.RotateConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); file != nil {
		defer file.Close()
		logOut = io.MultiWriter(os.Stdout, file)
	}
	logger := logging.SetupWriter(logOut, "donexd", cfg.Log.Env, cfg.Log.Level)
	logger.Info("starting donexd",
		slog.String("network", cfg.NetworkName),
		slog.String("db_backend", cfg.DBBackend),
		logging.MaskField("jwt_secret", cfg.RPC.JWTSecret))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetryConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialise telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)
	n, err := buildNode(ctx, cfg, nodeOptions{
		GenesisPath:      genesisPath,
		AllowAutogenesis: *allowAutogenesis,
		OperatorPass:     os.Getenv(operatorPassEnv),
	}, logger)
	if err != nil {
		logger.Error("Failed to start node", slog.Any("error", err))
		os.Exit(1)
	}
	defer n.Close()

	if err := n.server.Serve(ctx, cfg.ListenAddress); err != nil {
		logger.Error("JSON-RPC server stopped", slog.Any("error", err))
		n.Close()
		os.Exit(1)
	}
	logger.Info("donexd stopped", slog.Uint64("height", n.host.Height()))
}

// resolveGenesisPath picks the genesis file: flag, then environment, then
// config.
func resolveGenesisPath(cliPath, cfgPath string, lookup func(string) (string, bool)) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return strings.TrimSpace(cfgPath)
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		ServiceName:     telemetry.DefaultServiceName,
		Environment:     cfg.Log.Env,
		Network:         cfg.NetworkName,
		ContractAddress: cfg.ContractAddress,
		AddressPrefix:   cfg.AddressPrefix,
		Endpoint:        cfg.Telemetry.Endpoint,
		Insecure:        cfg.Telemetry.Insecure,
		Headers:         telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:         cfg.Telemetry.Metrics,
		Traces:          cfg.Telemetry.Traces,
		SampleRatio:     cfg.Telemetry.SampleRatio,
		ExportInterval:  time.Duration(cfg.Telemetry.ExportIntervalSeconds) * time.Second,
	}
}
