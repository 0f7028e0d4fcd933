package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the recall engine configuration.
type Config struct {
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Storage    StorageConfig    `yaml:"storage"`
	Sources    SourcesConfig    `yaml:"sources"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ExtractionConfig holds structured-generation settings.
type ExtractionConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// RetrievalConfig holds matching thresholds and result caps.
// The thresholds are configuration, not hard-coded law: the qa threshold
// gates verbatim answer substitution and must stay high, the chunk
// threshold only gates grounding context and tolerates more recall.
type RetrievalConfig struct {
	QAThreshold    float64 `yaml:"qa_threshold"`
	ChunkThreshold float64 `yaml:"chunk_threshold"`
	MaxQAMatches   int     `yaml:"max_qa_matches"`
	MaxChunks      int     `yaml:"max_chunks"`
}

// ChunkingConfig holds fallback window-chunking settings.
type ChunkingConfig struct {
	WindowSize int `yaml:"window_size"`
	Overlap    int `yaml:"overlap"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Driver    string   `yaml:"driver"` // bolt, redis (default: bolt)
	Path      string   `yaml:"path"`   // bolt file path
	Addrs     []string `yaml:"addrs"`  // redis addresses
	Password  string   `yaml:"password"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// ArtifactSource names one per-organization artifact text file.
type ArtifactSource struct {
	Org  string `yaml:"org"`
	Path string `yaml:"path"`
}

// SourcesConfig points at the candidate's source documents.
type SourcesConfig struct {
	QAPath         string           `yaml:"qa_path"`         // JSON array of prepared Q&A entries
	CVPath         string           `yaml:"cv_path"`         // plain text
	ActivitiesPath string           `yaml:"activities_path"` // plain text
	Artifacts      []ArtifactSource `yaml:"artifacts"`
}

// MetricsConfig holds the optional Prometheus listener settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Retrieval.QAThreshold <= 0 {
		c.Retrieval.QAThreshold = 0.85
	}
	if c.Retrieval.ChunkThreshold <= 0 {
		c.Retrieval.ChunkThreshold = 0.70
	}
	if c.Retrieval.MaxQAMatches <= 0 {
		c.Retrieval.MaxQAMatches = 3
	}
	if c.Retrieval.MaxChunks <= 0 {
		c.Retrieval.MaxChunks = 5
	}
	if c.Chunking.WindowSize <= 0 {
		c.Chunking.WindowSize = 500
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.WindowSize {
		c.Chunking.Overlap = 50
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "bolt"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "recall.db"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "recall:"
	}
	if c.Extraction.Temperature <= 0 {
		c.Extraction.Temperature = 0.2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "bolt":
		// path defaulted above
	case "redis":
		if len(c.Storage.Addrs) == 0 {
			return fmt.Errorf("storage.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (want bolt or redis)", c.Storage.Driver)
	}

	if c.Retrieval.QAThreshold > 1 {
		return fmt.Errorf("retrieval.qa_threshold must be <= 1, got %v", c.Retrieval.QAThreshold)
	}
	if c.Retrieval.ChunkThreshold > 1 {
		return fmt.Errorf("retrieval.chunk_threshold must be <= 1, got %v", c.Retrieval.ChunkThreshold)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
