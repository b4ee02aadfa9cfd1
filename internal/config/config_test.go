// Package config provides configuration management for recall.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)
	s.T().Setenv(DataDirEnv, s.tempDir)
}

func (s *ConfigSuite) TearDownTest() {
	os.RemoveAll(s.tempDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
	s.Equal(4, cfg.MaxConns)
	s.InDelta(0.02, cfg.MinChangeRatio, 1e-9)
	s.Equal(16, cfg.SignatureSize)
	s.Equal(60, cfg.RecentWindowSeconds)
	s.Equal(5, cfg.MinRecent)
	s.Equal(20, cfg.MaxRecentFallback)
	s.Equal(40, cfg.MaxTotal)
	s.InDelta(0.75, cfg.SimilarityThreshold, 1e-9)
	s.InDelta(0.85, cfg.ClusterThreshold, 1e-9)
}

// TestDataDir tests data directory resolution via the env override.
func (s *ConfigSuite) TestDataDir() {
	s.Equal(s.tempDir, DataDir())
	s.Equal(filepath.Join(s.tempDir, "settings.yaml"), SettingsPath())
	s.Equal(filepath.Join(s.tempDir, "recall.db"), DBPath())
}

// TestLoadMissingFileReturnsDefaults tests that a missing settings file is
// not an error.
func (s *ConfigSuite) TestLoadMissingFileReturnsDefaults() {
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(Default(), cfg)
}

// TestSaveLoadRoundtrip tests settings persistence.
func (s *ConfigSuite) TestSaveLoadRoundtrip() {
	s.Require().NoError(EnsureAll())

	cfg := Default()
	cfg.WorkerPort = 4242
	cfg.SimilarityThreshold = 0.9
	cfg.OllamaURL = "http://embedder:11434"
	s.Require().NoError(cfg.Save())

	loaded, err := Load()
	s.Require().NoError(err)
	s.Equal(4242, loaded.WorkerPort)
	s.InDelta(0.9, loaded.SimilarityThreshold, 1e-9)
	s.Equal("http://embedder:11434", loaded.OllamaURL)
}

// TestPartialFileFillsDefaults tests that unset fields fall back to defaults.
func (s *ConfigSuite) TestPartialFileFillsDefaults() {
	s.Require().NoError(EnsureAll())
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte("worker_port: 9001\n"), 0o644))

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(9001, cfg.WorkerPort)
	s.Equal(40, cfg.MaxTotal)
	s.InDelta(0.75, cfg.SimilarityThreshold, 1e-9)
}

// TestSelectorConfig tests conversion to the selector's config type.
func (s *ConfigSuite) TestSelectorConfig() {
	cfg := Default()
	sel := cfg.SelectorConfig()
	s.Equal(60*time.Second, sel.RecentWindow)
	s.Equal(5, sel.MinRecent)
	s.Equal(20, sel.MaxRecentFallback)
	s.Equal(40, sel.MaxTotal)
	s.InDelta(0.75, sel.SimilarityThreshold, 1e-9)
}
