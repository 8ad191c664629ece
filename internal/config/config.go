package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Specs   SpecsConfig   `koanf:"specs"`
	Client  ClientConfig  `koanf:"client"`
	Gateway GatewayConfig `koanf:"gateway"`
	Log     LogConfig     `koanf:"log"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type SpecsConfig struct {
	// Dir holds one subdirectory per API in local mode.
	Dir      string `koanf:"dir"`
	UseLocal bool   `koanf:"use-local"`
	// CatalogURL lists the API names available remotely; BaseURL serves
	// each named spec document.
	CatalogURL string `koanf:"catalog-url"`
	BaseURL    string `koanf:"base-url"`
	// BaseURLOverrides pins an API's upstream base URL, winning over
	// anything resolved from its document.
	BaseURLOverrides map[string]string `koanf:"base-url-overrides"`
}

type ClientConfig struct {
	Timeout          time.Duration `koanf:"timeout"`
	RequestDelay     time.Duration `koanf:"request-delay"`
	MaxRetries       int           `koanf:"max-retries"`
	RetryDelay       time.Duration `koanf:"retry-delay"`
	RetryStatusCodes []int         `koanf:"retry-status-codes"`
	RetryMethods     []string      `koanf:"retry-methods"`
	MaxConnections   int           `koanf:"max-connections"`
	VerifySSL        bool          `koanf:"verify-ssl"`
}

type GatewayConfig struct {
	Name           string                       `koanf:"name"`
	Version        string                       `koanf:"version"`
	ToolPrefix     string                       `koanf:"tool-prefix"`
	RequestTimeout time.Duration                `koanf:"request-timeout"`
	DefaultHeaders map[string]string            `koanf:"default-headers"`
	APIHeaders     map[string]map[string]string `koanf:"api-headers"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.host":               "0.0.0.0",
		"server.port":               8000,
		"specs.dir":                 "api_specs",
		"specs.use-local":           true,
		"specs.catalog-url":         "https://api.example.com/apis",
		"specs.base-url":            "https://api.example.com/specs",
		"client.timeout":            "5s",
		"client.request-delay":      "0s",
		"client.max-retries":        3,
		"client.retry-delay":        "1s",
		"client.retry-status-codes": []int{500, 502, 503, 504},
		"client.retry-methods":      []string{"GET", "POST"},
		"client.max-connections":    100,
		"client.verify-ssl":         false,
		"gateway.name":              "openapi-gateway",
		"gateway.version":           "1.0.0",
		"gateway.request-timeout":   "30s",
		"log.level":                 "info",
		"log.format":                "console",
	}
}

// BindRootFlags binds the flags every subcommand inherits.
func BindRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: portico.yaml)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: console, json")
}

// BindServeFlags binds the flags of the serve command.
func BindServeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String("host", "", "Host interface to bind")
	flags.IntP("port", "p", 0, "Port to listen on")
	flags.String("specs-dir", "", "Directory holding one subdirectory per API")
	flags.Bool("remote", false, "Fetch specs from the remote catalog instead of the local directory")
	flags.String("catalog-url", "", "URL listing the API names to fetch")
	flags.String("spec-base-url", "", "Base URL serving the spec documents")
	flags.String("tool-prefix", "", "Prefix prepended to every tool name")
}

// Load layers configuration sources: built-in defaults, then the config
// file, then PORTICO_ environment variables, then flags.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		configFile, _ = cmd.PersistentFlags().GetString("config")
	}
	if configFile == "" {
		if _, err := os.Stat("portico.yaml"); err == nil {
			configFile = "portico.yaml"
		}
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("PORTICO_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	flagsMap := buildFlagsMap(cmd)
	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps PORTICO_SPECS__CATALOG_URL to specs.catalog-url: a double
// underscore separates segments, a single one spells a dash.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "PORTICO_"))
	s = strings.ReplaceAll(s, "__", ".")
	return strings.ReplaceAll(s, "_", "-")
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)

	getString := func(name string) string {
		if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
			return v
		}
		if v, err := cmd.PersistentFlags().GetString(name); err == nil && v != "" {
			return v
		}
		return ""
	}

	if v := getString("host"); v != "" {
		m["server.host"] = v
	}
	if v, err := cmd.Flags().GetInt("port"); err == nil && v != 0 {
		m["server.port"] = v
	}
	if v := getString("specs-dir"); v != "" {
		m["specs.dir"] = v
	}
	if cmd.Flags().Changed("remote") {
		remote, _ := cmd.Flags().GetBool("remote")
		m["specs.use-local"] = !remote
	}
	if v := getString("catalog-url"); v != "" {
		m["specs.catalog-url"] = v
	}
	if v := getString("spec-base-url"); v != "" {
		m["specs.base-url"] = v
	}
	if v := getString("tool-prefix"); v != "" {
		m["gateway.tool-prefix"] = v
	}
	if v := getString("log-level"); v != "" {
		m["log.level"] = v
	}
	if v := getString("log-format"); v != "" {
		m["log.format"] = v
	}

	return m
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Specs.UseLocal {
		if c.Specs.Dir == "" {
			return fmt.Errorf("specs directory is required in local mode")
		}
	} else {
		if c.Specs.CatalogURL == "" {
			return fmt.Errorf("catalog URL is required in remote mode")
		}
		if c.Specs.BaseURL == "" {
			return fmt.Errorf("spec base URL is required in remote mode")
		}
	}

	if c.Client.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Client.MaxConnections < 1 {
		return fmt.Errorf("max connections must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Log.Level)
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (valid: console, json)", c.Log.Format)
	}

	return nil
}

// Addr is the host:port the HTTP server binds.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
