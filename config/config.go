// Package config provides configuration management for the application.
//
// Configuration is layered: built-in defaults, then an optional YAML file with
// ${VAR} / ${VAR:-default} placeholders, then environment variables (a .env file in
// the working directory is loaded first when present).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the HTTP listen port.
	DefaultPort = "8080"
	// DefaultBodySizeLimit leaves room for a 10 MiB image plus multipart framing.
	DefaultBodySizeLimit int64 = 12 * 1024 * 1024
	// DefaultGeneratorType selects the native Gemini REST generator.
	DefaultGeneratorType = "gemini"
	// DefaultModel is the Gemini image model used for ad creatives.
	DefaultModel = "gemini-2.5-flash-image"
	// DefaultGenAIBackend is the backend used by the genai generator.
	DefaultGenAIBackend = "gemini-api"
	// DefaultSessionTTL is how long an idle studio session is kept, in seconds.
	DefaultSessionTTL = 3600
	// DefaultHTTPTimeout bounds one generation call, in seconds.
	DefaultHTTPTimeout = 180
	// DefaultGenerateRateLimit is the per-client rate of generate calls per second.
	DefaultGenerateRateLimit = 0.5
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Generator GeneratorConfig `yaml:"generator"`
	Session   SessionConfig   `yaml:"session"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port              string  `yaml:"port"`
	BodySizeLimit     int64   `yaml:"body_size_limit"`
	GenerateRateLimit float64 `yaml:"generate_rate_limit"`
}

// GeneratorConfig selects and configures the external image model client.
type GeneratorConfig struct {
	// Type is the registered generator type: "gemini" or "genai".
	Type    string `yaml:"type"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`

	// genai generator only
	Backend  string `yaml:"backend"` // "gemini-api" or "vertex"
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
}

// SessionConfig controls in-memory studio sessions.
type SessionConfig struct {
	TTL int `yaml:"ttl"` // seconds
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// HTTPConfig holds outbound HTTP client timeouts, in seconds.
type HTTPConfig struct {
	Timeout               int `yaml:"timeout"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout"`
}

// LogConfig controls the root slog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json", "pretty" or "" (auto)
}

// LoadResult is the outcome of Load.
type LoadResult struct {
	Config *Config
	// Path is the YAML file that was applied, or "" when none was found.
	Path string
}

// configSearchPaths are tried in order when CONFIG_PATH is unset.
var configSearchPaths = []string{"config.yaml", "config/config.yaml"}

// Load reads configuration from defaults, an optional YAML file and the environment.
func Load() (*LoadResult, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := buildDefaultConfig()

	path, err := applyConfigFile(cfg, os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &LoadResult{Config: cfg, Path: path}, nil
}

// Validate checks values that would otherwise fail at first use.
// A missing API key is deliberately not an error here: it surfaces on the first
// generation attempt instead.
func (c *Config) Validate() error {
	switch c.Generator.Type {
	case "gemini", "genai":
	default:
		return fmt.Errorf("unknown generator type %q", c.Generator.Type)
	}
	if c.Generator.Type == "genai" {
		switch c.Generator.Backend {
		case "gemini-api":
		case "vertex":
			if c.Generator.Project == "" || c.Generator.Location == "" {
				return fmt.Errorf("genai vertex backend requires project and location")
			}
		default:
			return fmt.Errorf("unknown genai backend %q", c.Generator.Backend)
		}
	}
	if c.Generator.Model == "" {
		return fmt.Errorf("generator model must not be empty")
	}
	if c.Server.BodySizeLimit <= 0 {
		return fmt.Errorf("server body size limit must be positive")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	return nil
}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              DefaultPort,
			BodySizeLimit:     DefaultBodySizeLimit,
			GenerateRateLimit: DefaultGenerateRateLimit,
		},
		Generator: GeneratorConfig{
			Type:    DefaultGeneratorType,
			Model:   DefaultModel,
			Backend: DefaultGenAIBackend,
		},
		Session: SessionConfig{TTL: DefaultSessionTTL},
		Metrics: MetricsConfig{Enabled: false, Endpoint: "/metrics"},
		HTTP: HTTPConfig{
			Timeout:               DefaultHTTPTimeout,
			ResponseHeaderTimeout: DefaultHTTPTimeout,
		},
		Log: LogConfig{Level: "info"},
	}
}

// applyConfigFile merges the first YAML file found over cfg and returns its path.
func applyConfigFile(cfg *Config, explicit string) (string, error) {
	paths := configSearchPaths
	if explicit != "" {
		paths = []string{explicit}
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && explicit == "" {
				continue
			}
			return "", fmt.Errorf("failed to read config file %s: %w", p, err)
		}
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %w", p, err)
		}
		return p, nil
	}
	return "", nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString resolves ${VAR} and ${VAR:-default}. A ${VAR} whose variable is unset or
// empty is left untouched so that misconfiguration stays visible.
func expandString(s string) string {
	if s == "" {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// applyEnvOverrides applies environment variables over cfg.
func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Generator.Type, "GENERATOR_TYPE")
	setString(&cfg.Generator.Model, "GEMINI_MODEL")
	setString(&cfg.Generator.BaseURL, "GEMINI_BASE_URL")
	setString(&cfg.Generator.Backend, "GENAI_BACKEND")
	setString(&cfg.Generator.Project, "GOOGLE_CLOUD_PROJECT")
	setString(&cfg.Generator.Location, "GOOGLE_CLOUD_LOCATION")
	setString(&cfg.Metrics.Endpoint, "METRICS_ENDPOINT")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	// API_KEY is the legacy name; GEMINI_API_KEY wins.
	setString(&cfg.Generator.APIKey, "API_KEY")
	setString(&cfg.Generator.APIKey, "GEMINI_API_KEY")

	if err := setInt64(&cfg.Server.BodySizeLimit, "BODY_SIZE_LIMIT"); err != nil {
		return err
	}
	if err := setFloat(&cfg.Server.GenerateRateLimit, "GENERATE_RATE_LIMIT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Session.TTL, "SESSION_TTL"); err != nil {
		return err
	}
	if err := setInt(&cfg.HTTP.Timeout, "HTTP_TIMEOUT"); err != nil {
		return err
	}
	if err := setInt(&cfg.HTTP.ResponseHeaderTimeout, "HTTP_RESPONSE_HEADER_TIMEOUT"); err != nil {
		return err
	}
	return setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}
