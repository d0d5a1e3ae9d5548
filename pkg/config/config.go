// Package config loads the CLI defaults file. Values resolve in the
// hierarchy defaults < YAML < environment; a missing file is not an error,
// an invalid one is.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "stackscan.yaml"

// Config holds the default detection options applied when flags are absent.
type Config struct {
	Scan     ScanConfig     `yaml:"scan"`
	Registry RegistryConfig `yaml:"registry"`
}

// ScanConfig mirrors the engine's option surface.
type ScanConfig struct {
	Mode            string `yaml:"mode"`
	MaxDepth        int    `yaml:"max_depth"`
	MaxFiles        int    `yaml:"max_files"`
	MaxBytesPerFile int64  `yaml:"max_bytes_per_file"`
	TimeoutMs       int    `yaml:"timeout_ms"`
}

// RegistryConfig points at an external catalog document. Empty means the
// builtin catalog.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Scan: ScanConfig{
			Mode:            "thorough",
			MaxDepth:        0, // engine picks the per-mode default
			MaxFiles:        20000,
			MaxBytesPerFile: 512 * 1024,
			TimeoutMs:       10000,
		},
	}
}

// Load returns a Config from the default file path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path. The file is
// optional; environment variables override it either way.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func loadEnv(cfg *Config) {
	setString(&cfg.Scan.Mode, "STACKSCAN_SCAN_MODE")
	setInt(&cfg.Scan.MaxDepth, "STACKSCAN_MAX_DEPTH")
	setInt(&cfg.Scan.MaxFiles, "STACKSCAN_MAX_FILES")
	setInt64(&cfg.Scan.MaxBytesPerFile, "STACKSCAN_MAX_BYTES_PER_FILE")
	setInt(&cfg.Scan.TimeoutMs, "STACKSCAN_TIMEOUT_MS")
	setString(&cfg.Registry.Path, "STACKSCAN_REGISTRY")
}

func validate(cfg *Config) error {
	switch cfg.Scan.Mode {
	case "fast", "thorough":
	default:
		return fmt.Errorf("scan mode must be fast or thorough, got %q", cfg.Scan.Mode)
	}
	if cfg.Scan.MaxDepth < 0 {
		return errors.New("max_depth must be non-negative")
	}
	if cfg.Scan.MaxFiles <= 0 {
		return errors.New("max_files must be positive")
	}
	if cfg.Scan.MaxBytesPerFile <= 0 {
		return errors.New("max_bytes_per_file must be positive")
	}
	if cfg.Scan.TimeoutMs <= 0 {
		return errors.New("timeout_ms must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
