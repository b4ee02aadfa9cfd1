// Package config provides configuration management for recall.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/recall/internal/capture"
	"github.com/thebtf/recall/internal/cluster"
	"github.com/thebtf/recall/internal/selector"
)

const (
	// DefaultWorkerPort is the default HTTP port for the worker service.
	DefaultWorkerPort = 37840
	// DataDirEnv overrides the data directory location.
	DataDirEnv = "RECALL_DATA_DIR"
	// settingsFile is the YAML settings file name inside the data directory.
	settingsFile = "settings.yaml"
	// dbFile is the capture database file name inside the data directory.
	dbFile = "recall.db"
)

// Config holds all tunable settings. Zero values are replaced by defaults
// on load so a partial settings file is valid.
type Config struct {
	WorkerPort int `yaml:"worker_port"`
	MaxConns   int `yaml:"max_conns"`

	// Frame change detection
	MinChangeRatio float64 `yaml:"min_change_ratio"`
	SignatureSize  int     `yaml:"signature_size"`

	// Context selection
	RecentWindowSeconds int     `yaml:"recent_window_seconds"`
	MinRecent           int     `yaml:"min_recent"`
	MaxRecentFallback   int     `yaml:"max_recent_fallback"`
	MaxTotal            int     `yaml:"max_total"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// Clustering diagnostics
	ClusterThreshold float64 `yaml:"cluster_threshold"`

	// Embedding provider
	OllamaURL      string `yaml:"ollama_url"`
	EmbeddingModel string `yaml:"embedding_model"`

	// Generation client (API key comes from OPENAI_API_KEY)
	GenerationBaseURL string `yaml:"generation_base_url"`
	GenerationModel   string `yaml:"generation_model"`
}

// Default returns the stock configuration.
func Default() *Config {
	sel := selector.DefaultConfig()
	return &Config{
		WorkerPort:          DefaultWorkerPort,
		MaxConns:            4,
		MinChangeRatio:      capture.DefaultMinChangeRatio,
		SignatureSize:       capture.DefaultSignatureSize,
		RecentWindowSeconds: int(sel.RecentWindow / time.Second),
		MinRecent:           sel.MinRecent,
		MaxRecentFallback:   sel.MaxRecentFallback,
		MaxTotal:            sel.MaxTotal,
		SimilarityThreshold: sel.SimilarityThreshold,
		ClusterThreshold:    cluster.DefaultThreshold,
		OllamaURL:           "",
		EmbeddingModel:      "",
	}
}

// DataDir returns the data directory path: $RECALL_DATA_DIR if set,
// otherwise ~/.recall.
func DataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recall"
	}
	return filepath.Join(home, ".recall")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFile)
}

// DBPath returns the capture database path.
func DBPath() string {
	return filepath.Join(DataDir(), dbFile)
}

// EnsureAll creates the data directory if it does not exist.
func EnsureAll() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// Load reads the settings file and fills unset fields with defaults.
// A missing file is not an error: defaults are returned.
func Load() (*Config, error) {
	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the settings file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(SettingsPath(), data, 0o644)
}

// SelectorConfig converts the flat settings into a selector.Config.
func (c *Config) SelectorConfig() selector.Config {
	return selector.Config{
		RecentWindow:        time.Duration(c.RecentWindowSeconds) * time.Second,
		MinRecent:           c.MinRecent,
		MaxRecentFallback:   c.MaxRecentFallback,
		MaxTotal:            c.MaxTotal,
		SimilarityThreshold: c.SimilarityThreshold,
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.WorkerPort == 0 {
		c.WorkerPort = def.WorkerPort
	}
	if c.MaxConns == 0 {
		c.MaxConns = def.MaxConns
	}
	if c.MinChangeRatio == 0 {
		c.MinChangeRatio = def.MinChangeRatio
	}
	if c.SignatureSize == 0 {
		c.SignatureSize = def.SignatureSize
	}
	if c.RecentWindowSeconds == 0 {
		c.RecentWindowSeconds = def.RecentWindowSeconds
	}
	if c.MinRecent == 0 {
		c.MinRecent = def.MinRecent
	}
	if c.MaxRecentFallback == 0 {
		c.MaxRecentFallback = def.MaxRecentFallback
	}
	if c.MaxTotal == 0 {
		c.MaxTotal = def.MaxTotal
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = def.SimilarityThreshold
	}
	if c.ClusterThreshold == 0 {
		c.ClusterThreshold = def.ClusterThreshold
	}
}
