// Package main is the entry point for opagate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/opagate/internal/config"
	"github.com/vyrodovalexey/opagate/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	if flags.showVersion {
		printVersion(os.Stdout)
		return
	}

	bootstrap, err := newLogger(observability.DefaultLogConfig(), flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(flags.configPath, bootstrap)
	if err != nil {
		bootstrap.Error("failed to load configuration", observability.Error(err))
		_ = bootstrap.Sync()
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Observability.Logging, flags)
	if err != nil {
		bootstrap.Error("failed to initialize logger", observability.Error(err))
		_ = bootstrap.Sync()
		os.Exit(1)
	}
	observability.SetGlobalLogger(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("opagate exited with error", observability.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// parseFlags parses command line flags. Unset flags fall back to the
// environment and then to the configuration file.
func parseFlags(args []string) (cliFlags, error) {
	fs := flag.NewFlagSet("opagate", flag.ContinueOnError)
	configPath := fs.String("config", getEnvOrDefault(envConfigPath, "configs/opagate.yaml"),
		"Path to configuration file")
	logLevel := fs.String("log-level", getEnvOrDefault(envLogLevel, ""),
		"Log level (debug, info, warn, error); overrides the configuration file")
	logFormat := fs.String("log-format", getEnvOrDefault(envLogFormat, ""),
		"Log format (json, console); overrides the configuration file")
	showVersion := fs.Bool("version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}, nil
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "opagate version %s\n", version)
	fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// newLogger builds a logger from cfg with the flag overrides applied.
func newLogger(cfg observability.LogConfig, flags cliFlags) (observability.Logger, error) {
	if flags.logLevel != "" {
		cfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Format = flags.logFormat
	}
	return observability.NewLogger(cfg)
}

// loadConfig loads and validates the configuration.
func loadConfig(configPath string, logger observability.Logger) (*config.Config, error) {
	logger.Info("starting opagate",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		observability.String("policy_engine", cfg.PolicyEngine.URL),
		observability.String("policy_path", cfg.Authz.PolicyPath),
		observability.Int("route_groups", len(cfg.Authz.RouteGroups)),
		observability.String("context_provider", cfg.Authz.ContextProvider.Type),
		observability.Bool("fail_open", cfg.Authz.FailOpen),
		observability.Bool("jwt", cfg.JWT.Enabled),
		observability.Bool("vault", cfg.PolicyEngine.Vault.Enabled),
	)

	return cfg, nil
}
