// Package config loads proxy configuration from layered sources:
// built-in defaults, an optional TOML file, and the environment, with the
// environment always winning.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the immutable runtime configuration. It is resolved once at
// startup and never mutated afterwards.
type Config struct {
	// Port is the listen port of the proxy.
	Port int `koanf:"port" validate:"required,min=1,max=65535"`
	// UpstreamBaseURL is the OpenAI-compatible endpoint root, without /v1.
	UpstreamBaseURL string `koanf:"upstream_base_url" validate:"required"`
	// UpstreamAPIKey is the optional bearer token for the upstream.
	UpstreamAPIKey string `koanf:"upstream_api_key"`
	// ReasoningModel overrides the model for thinking-enabled requests.
	ReasoningModel string `koanf:"reasoning_model"`
	// CompletionModel overrides the model for all other requests.
	CompletionModel string `koanf:"completion_model"`
	// UpstreamIdleTimeout bounds the gap between upstream reads on streams.
	UpstreamIdleTimeout time.Duration `koanf:"upstream_idle_timeout" validate:"min=0"`
	// Debug enables debug-level logging.
	Debug bool `koanf:"debug"`
	// Verbose enables debug-level logging, the same as Debug.
	Verbose bool `koanf:"verbose"`
}

// envKeys maps accepted environment variables to config keys. The second
// group are legacy aliases kept from earlier releases; they load first so
// the canonical names win.
var (
	envKeys = map[string]string{
		"UPSTREAM_BASE_URL":     "upstream_base_url",
		"UPSTREAM_API_KEY":      "upstream_api_key",
		"PORT":                  "port",
		"REASONING_MODEL":       "reasoning_model",
		"COMPLETION_MODEL":      "completion_model",
		"UPSTREAM_IDLE_TIMEOUT": "upstream_idle_timeout",
		"DEBUG":                 "debug",
		"VERBOSE":               "verbose",
	}
	envAliasKeys = map[string]string{
		"ANTHROPIC_PROXY_BASE_URL": "upstream_base_url",
		"OPENROUTER_API_KEY":       "upstream_api_key",
	}
)

// discoveryPaths returns the config file locations probed when no explicit
// path is given, in priority order.
func discoveryPaths() []string {
	paths := []string{"anthropic-proxy.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".anthropic-proxy.toml"))
	}
	return append(paths, "/etc/anthropic-proxy/config.toml")
}

// Load resolves the configuration: defaults, then an optional TOML file
// (the explicit path, or the first discovered one), then the environment.
// environ supplies the environment in os.Environ form, injectable for tests.
func Load(path string, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"port":                  3000,
		"upstream_idle_timeout": "10m",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else {
		for _, candidate := range discoveryPaths() {
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if err := k.Load(file.Provider(candidate), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", candidate, err)
			}
			break
		}
	}

	// Aliases first so canonical variables override them.
	for _, keys := range []map[string]string{envAliasKeys, envKeys} {
		if err := k.Load(env.Provider(".", env.Opt{
			EnvironFunc: environ,
			TransformFunc: func(key, value string) (string, any) {
				mapped, ok := keys[key]
				if !ok || value == "" {
					return "", nil
				}
				return mapped, value
			},
		}), nil); err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LogLevel derives the slog level from the verbosity toggles.
func (c *Config) LogLevel() slog.Level {
	if c.Debug || c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// ListenAddr is the TCP address the proxy binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

// Warnings reports configuration smells worth surfacing at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if strings.HasSuffix(strings.TrimRight(c.UpstreamBaseURL, "/"), "/v1") {
		warnings = append(warnings,
			"UPSTREAM_BASE_URL ends with /v1; the proxy appends /v1/chat/completions itself, so requests will hit /v1/v1/...")
	}
	return warnings
}
