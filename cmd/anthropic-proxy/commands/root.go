package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/m0n0x41d/anthropic-proxy/internal/app"
	"github.com/m0n0x41d/anthropic-proxy/internal/config"
	"github.com/m0n0x41d/anthropic-proxy/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	cmd := &cli.Command{
		Name:    "anthropic-proxy",
		Usage:   "Proxy Anthropic Messages API requests to OpenAI-compatible endpoints",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to TOML configuration file",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "listen port (overrides PORT env var)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging (same as DEBUG=true)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable verbose logging (same as VERBOSE=true)",
			},
		},
		Commands: []*cli.Command{
			proxyStartCommand(),
			keyCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

func proxyStartCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Starts the proxy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: "text",
			},
		},
		Action: proxyStartAction,
	}
}

// loadConfig resolves configuration and applies CLI flag overrides, which
// take precedence over both file and environment.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"), os.Environ)
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.Bool("debug") {
		cfg.Debug = true
	}
	if cmd.Bool("verbose") {
		cfg.Verbose = true
	}

	// The environment and keyring are alternative stores for the same secret.
	if cfg.UpstreamAPIKey == "" {
		key, err := config.LookupKeyringAPIKey()
		if err != nil {
			return nil, fmt.Errorf("failed to read API key from keyring: %w", err)
		}
		cfg.UpstreamAPIKey = key
	}

	return cfg, nil
}

func proxyStartAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	err = observability.Instrument(cfg.LogLevel(), cmd.String("log-format"))
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	for _, warning := range cfg.Warnings() {
		slog.WarnContext(ctx, warning)
	}
	if cfg.UpstreamAPIKey == "" {
		slog.InfoContext(ctx, "no upstream API key configured, using unauthenticated endpoint")
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting")

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
