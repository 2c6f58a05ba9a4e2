package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vaultmcp/internal/logging"
	"vaultmcp/internal/vault"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "vaultmcp" // application name used for config directory

// EnvPrefix prefixes every environment override, e.g. VAULTMCP_VAULT_PATH.
const EnvPrefix = "VAULTMCP_"

// Config holds the server configuration.
type Config struct {
	Vault   VaultConfig   `yaml:"vault"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

type VaultConfig struct {
	// Path is the vault root. "~/" is expanded to the home directory.
	Path string `yaml:"path" env:"VAULT_PATH"`
	// TargetDirectory is the single subdirectory of the vault notes are saved into.
	TargetDirectory string `yaml:"target_directory" env:"TARGET_DIRECTORY"`
}

type ServerConfig struct {
	Name    string `yaml:"name" env:"SERVER_NAME"`
	Version string `yaml:"version" env:"SERVER_VERSION"`
}

type LoggingConfig struct {
	Level   string `yaml:"level" env:"LOG_LEVEL"`
	File    string `yaml:"file" env:"LOG_FILE"`
	Console bool   `yaml:"console" env:"LOG_CONSOLE"`
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() (string, error) {
	if xdg.ConfigHome == "" {
		return "", fmt.Errorf("cannot determine config directory")
	}
	configPath := filepath.Join(xdg.ConfigHome, APP_NAME, "config.yaml")

	logging.Debug("Determined config path", "path", configPath)
	return configPath, nil
}

// FindConfigFile returns the path to the config file, and whether it exists.
func FindConfigFile() (string, bool) {
	path, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	if _, err := os.Stat(path); err == nil {
		logging.Debug("Config found", "path", path)
		return path, true
	}
	return path, false
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Vault: VaultConfig{
			Path:            "~/Documents/vault",
			TargetDirectory: "Tips",
		},
		Server: ServerConfig{
			Name:    "obsidian-vault",
			Version: "0.1.0",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads the config from the standard location. On first run the
// defaults are written there; failing to write them is only a warning.
// Environment overrides are applied and the result validated.
func Load() (*Config, error) {
	path, exists := FindConfigFile()
	if path == "" {
		return nil, fmt.Errorf("cannot determine config file location")
	}

	if !exists {
		logging.Info("Config file not found, creating default", "path", path)
		cfg := DefaultConfig()
		if err := cfg.SaveTo(path); err != nil {
			logging.Warn("Failed to write default config", "path", path, "error", err)
		}
		return finish(&cfg)
	}

	return LoadFrom(path)
}

// LoadFrom loads config from a specific path. The file must exist; keys
// missing from it keep their default values.
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from VAULTMCP_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}

	if strings.TrimSpace(c.Server.Name) == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	if strings.TrimSpace(c.Server.Version) == "" {
		return fmt.Errorf("server version cannot be empty")
	}

	target := c.Vault.TargetDirectory
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("target directory cannot be empty")
	}
	if target == "." || target == ".." || strings.ContainsAny(target, `/\`) {
		return fmt.Errorf("target directory must be a single directory name: %q", target)
	}

	if c.Vault.Path != "" {
		info, err := os.Stat(vault.ExpandPath(c.Vault.Path))
		switch {
		case err == nil && !info.IsDir():
			return fmt.Errorf("vault path is not a directory: %s", c.Vault.Path)
		case os.IsNotExist(err):
			logging.Warn("Vault path does not exist", "path", c.Vault.Path)
		}
	}

	return nil
}

// VaultRoot returns the absolute, cleaned vault root.
func (c *Config) VaultRoot() (string, error) {
	if strings.TrimSpace(c.Vault.Path) == "" {
		return "", fmt.Errorf("vault path is not configured")
	}
	abs, err := filepath.Abs(vault.ExpandPath(c.Vault.Path))
	if err != nil {
		return "", fmt.Errorf("cannot resolve vault path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// LoggingOptions converts the logging section for logging.New.
func (c *Config) LoggingOptions() logging.Options {
	file := c.Logging.File
	if file != "" {
		file = vault.ExpandPath(file)
	}
	return logging.Options{
		Level:   c.Logging.Level,
		File:    file,
		Console: c.Logging.Console,
	}
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	path, _ := FindConfigFile()
	if path == "" {
		return fmt.Errorf("cannot determine config file location")
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file with restrictive permissions (600) for security
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logging.Info("Config saved", "path", path)
	return nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
