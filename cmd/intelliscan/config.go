package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration. Env vars override the
// YAML file, YAML overrides defaults.
type Config struct {
	Port      string `yaml:"port"`
	DataDir   string `yaml:"data_dir"`
	HistoryDB string `yaml:"history_db"`
	UploadDir string `yaml:"upload_dir"`
	LogLevel  string `yaml:"log_level"`
	Languages string `yaml:"tesseract_lang"` // comma-separated, e.g. "eng,fra"
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:      "5000",
		DataDir:   "data",
		LogLevel:  "info",
		Languages: "eng",
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig
// merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	return nil
}

// applyEnv layers environment variables on top of the config.
func (c *Config) applyEnv() {
	c.Port = env("PORT", c.Port)
	c.DataDir = env("DATA_DIR", c.DataDir)
	c.HistoryDB = env("HISTORY_DB", c.HistoryDB)
	c.UploadDir = env("UPLOAD_DIR", c.UploadDir)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.Languages = env("TESSERACT_LANG", c.Languages)
}

// resolvePaths fills in db and upload paths relative to data_dir when
// they are not set explicitly.
func (c *Config) resolvePaths() {
	if c.HistoryDB == "" {
		c.HistoryDB = filepath.Join(c.DataDir, "history.db")
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
