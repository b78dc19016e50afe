// Package config loads titlesearch configuration from defaults, YAML
// files, a .env file and TITLESEARCH_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/titlesearch/internal/embed"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
)

// ProjectConfigName is the project-level config file looked up in the
// working directory.
const ProjectConfigName = ".titlesearch.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TITLESEARCH_"

// Config is the complete configuration.
type Config struct {
	Index      IndexConfig      `yaml:"index"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// IndexConfig locates the artifact and the dataset it is built from.
type IndexConfig struct {
	// Path is the search index artifact.
	Path string `yaml:"path"`

	// Dataset is a CSV path, a SQLite file or sqlite:// URL, a
	// postgres:// URL, or "sample" for the built-in records.
	Dataset string `yaml:"dataset"`

	// Table is the table read from SQL datasets.
	Table string `yaml:"table"`

	// Probes replaces the built-in probe queries when set.
	Probes []string `yaml:"probes,omitempty"`

	// Depth is the number of results cached per probe.
	Depth int `yaml:"depth"`

	// Concurrency bounds parallel probe ranking.
	Concurrency int `yaml:"concurrency"`
}

// SearchConfig tunes the hybrid engine.
type SearchConfig struct {
	FuzzyThreshold          float64       `yaml:"fuzzy_threshold"`
	DefaultLimit            int           `yaml:"default_limit"`
	MaxLimit                int           `yaml:"max_limit"`
	ClampSemanticConfidence bool          `yaml:"clamp_semantic_confidence"`
	UseQueryCache           bool          `yaml:"use_query_cache"`
	SemanticTimeout         time.Duration `yaml:"semantic_timeout"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	// Provider is none, static, ollama, openai or bedrock.
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model,omitempty"`
	Dimensions int    `yaml:"dimensions,omitempty"`

	OllamaHost    string `yaml:"ollama_host,omitempty"`
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty"`
	OpenAIToken   string `yaml:"openai_token,omitempty"`
	BedrockRegion string `yaml:"bedrock_region,omitempty"`

	InitTimeout time.Duration `yaml:"init_timeout"`
	CacheSize   int           `yaml:"cache_size"`

	// RedisAddr enables the shared embedding cache tier.
	RedisAddr     string        `yaml:"redis_addr,omitempty"`
	RedisPassword string        `yaml:"redis_password,omitempty"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Transport      string   `yaml:"transport"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Watch          bool     `yaml:"watch"`
	LogLevel       string   `yaml:"log_level"`
	LogFile        string   `yaml:"log_file,omitempty"`
}

// TelemetryConfig controls local query telemetry.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Path:        "search_index.json",
			Dataset:     "sample",
			Table:       "jobs",
			Depth:       15,
			Concurrency: runtime.NumCPU(),
		},
		Search: SearchConfig{
			FuzzyThreshold:          85,
			DefaultLimit:            15,
			MaxLimit:                100,
			ClampSemanticConfidence: true,
			UseQueryCache:           true,
			SemanticTimeout:         10 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			Provider:    string(embed.ProviderStatic),
			InitTimeout: embed.DefaultInitTimeout,
			CacheSize:   1000,
			RedisTTL:    24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			Transport:      "http",
			AllowedOrigins: []string{"*"},
			LogLevel:       "info",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}

// GetUserConfigPath returns the user configuration file:
// $XDG_CONFIG_HOME/titlesearch/config.yaml or ~/.config/titlesearch/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "titlesearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "titlesearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "titlesearch", "config.yaml")
}

// DefaultTelemetryPath returns the default metrics database location.
func DefaultTelemetryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".titlesearch", "telemetry.db")
	}
	return filepath.Join(home, ".titlesearch", "telemetry.db")
}

// LoadOptions locates the configuration sources.
type LoadOptions struct {
	// ConfigPath is an explicit project config file. When empty,
	// ProjectConfigName in Dir is used if present.
	ConfigPath string

	// Dir is the project directory (default: working directory).
	Dir string

	// EnvFile is loaded into the environment before overrides are read.
	// Defaults to .env in Dir. A missing file is ignored.
	EnvFile string

	// SkipUserConfig ignores the user configuration file.
	SkipUserConfig bool
}

// Load builds the configuration in increasing precedence:
//  1. defaults
//  2. user config (~/.config/titlesearch/config.yaml)
//  3. project config (--config or ./.titlesearch.yaml)
//  4. .env file (never overrides variables already set)
//  5. TITLESEARCH_* environment variables
func Load(opts LoadOptions) (*Config, error) {
	cfg := NewConfig()

	if !opts.SkipUserConfig {
		if err := cfg.loadYAMLIfExists(GetUserConfigPath()); err != nil {
			return nil, err
		}
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if opts.ConfigPath != "" {
		if err := cfg.loadYAML(opts.ConfigPath); err != nil {
			return nil, err
		}
	} else if err := cfg.loadYAMLIfExists(filepath.Join(dir, ProjectConfigName)); err != nil {
		return nil, err
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = filepath.Join(dir, ".env")
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, tserrors.ConfigError("failed to read env file", err).WithDetail("path", envFile)
	}

	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAMLIfExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return c.loadYAML(path)
}

// loadYAML decodes path over the current values, so keys absent from
// the file keep their earlier value. Unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return tserrors.ConfigError("failed to read config file", err).WithDetail("path", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return tserrors.ConfigError("failed to parse config file", err).
			WithDetail("path", path).
			WithSuggestion("Check the file against 'titlesearch init --print'")
	}
	return nil
}

// applyEnvOverrides applies TITLESEARCH_* variables read through lookup.
func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	var firstErr error
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	fail := func(name string, err error) {
		if firstErr == nil {
			firstErr = tserrors.ConfigError("invalid environment override", err).WithDetail("variable", EnvPrefix+name)
		}
	}
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = n
		}
	}
	setFloat := func(name string, dst *float64) {
		if v, ok := get(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = f
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = b
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = d
		}
	}

	setString("INDEX_PATH", &c.Index.Path)
	setString("DATASET", &c.Index.Dataset)
	setString("TABLE", &c.Index.Table)
	setInt("DEPTH", &c.Index.Depth)

	setFloat("FUZZY_THRESHOLD", &c.Search.FuzzyThreshold)
	setInt("DEFAULT_LIMIT", &c.Search.DefaultLimit)
	setInt("MAX_LIMIT", &c.Search.MaxLimit)
	setBool("CLAMP_SEMANTIC_CONFIDENCE", &c.Search.ClampSemanticConfidence)
	setBool("USE_QUERY_CACHE", &c.Search.UseQueryCache)
	setDuration("SEMANTIC_TIMEOUT", &c.Search.SemanticTimeout)

	setString("EMBEDDINGS_PROVIDER", &c.Embeddings.Provider)
	// TITLESEARCH_EMBEDDER is an alias for TITLESEARCH_EMBEDDINGS_PROVIDER
	setString("EMBEDDER", &c.Embeddings.Provider)
	setString("EMBEDDINGS_MODEL", &c.Embeddings.Model)
	setInt("EMBEDDINGS_DIMENSIONS", &c.Embeddings.Dimensions)
	setString("OLLAMA_HOST", &c.Embeddings.OllamaHost)
	setString("OPENAI_BASE_URL", &c.Embeddings.OpenAIBaseURL)
	setString("OPENAI_TOKEN", &c.Embeddings.OpenAIToken)
	setString("BEDROCK_REGION", &c.Embeddings.BedrockRegion)
	setDuration("INIT_TIMEOUT", &c.Embeddings.InitTimeout)
	setInt("CACHE_SIZE", &c.Embeddings.CacheSize)
	setString("REDIS_ADDR", &c.Embeddings.RedisAddr)
	setString("REDIS_PASSWORD", &c.Embeddings.RedisPassword)
	setDuration("REDIS_TTL", &c.Embeddings.RedisTTL)

	setString("ADDR", &c.Server.Addr)
	setString("TRANSPORT", &c.Server.Transport)
	if v, ok := get("ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitList(v)
	}
	setBool("WATCH", &c.Server.Watch)
	setString("LOG_LEVEL", &c.Server.LogLevel)
	setString("LOG_FILE", &c.Server.LogFile)

	setBool("TELEMETRY", &c.Telemetry.Enabled)
	setString("TELEMETRY_PATH", &c.Telemetry.Path)

	return firstErr
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects out-of-range values with ERR_101.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return tserrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Index.Path == "" {
		return invalid("index.path must not be empty")
	}
	if c.Index.Depth <= 0 {
		return invalid("index.depth must be positive, got %d", c.Index.Depth)
	}
	if c.Index.Concurrency < 0 {
		return invalid("index.concurrency must be non-negative, got %d", c.Index.Concurrency)
	}

	if c.Search.FuzzyThreshold < 0 || c.Search.FuzzyThreshold > 100 {
		return invalid("search.fuzzy_threshold must be between 0 and 100, got %g", c.Search.FuzzyThreshold)
	}
	if c.Search.DefaultLimit <= 0 {
		return invalid("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return invalid("search.max_limit (%d) must be at least search.default_limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.SemanticTimeout < 0 {
		return invalid("search.semantic_timeout must be non-negative")
	}

	if _, err := embed.ParseProvider(c.Embeddings.Provider); err != nil {
		return tserrors.ConfigError(err.Error(), nil).WithDetail("field", "embeddings.provider")
	}
	if c.Embeddings.Dimensions < 0 {
		return invalid("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.CacheSize < 0 {
		return invalid("embeddings.cache_size must be non-negative, got %d", c.Embeddings.CacheSize)
	}

	switch strings.ToLower(c.Server.Transport) {
	case "http", "stdio":
	default:
		return invalid("server.transport must be 'http' or 'stdio', got %q", c.Server.Transport)
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel)
	}
	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
