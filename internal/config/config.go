package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the workspace configuration file.
const FileName = "finsplit.yaml"

// Config represents the top-level finsplit.yaml configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig locates the ledger database.
type StorageConfig struct {
	Path string `yaml:"path"` // relative to the workspace root
}

// IngestConfig controls how statement files are read.
type IngestConfig struct {
	AllSheets     bool   `yaml:"all_sheets"`     // false = first worksheet only
	MoveProcessed bool   `yaml:"move_processed"` // move scanned files to import/processed
	LogFile       string `yaml:"log_file"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Load reads a finsplit.yaml file from disk. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault reads path, falling back to defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new workspace.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: "finsplit.sqlite",
		},
		Ingest: IngestConfig{
			AllSheets:     false,
			MoveProcessed: true,
			LogFile:       "logs/ingest-log.csv",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8050",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
