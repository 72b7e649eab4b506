// Package config loads and validates the tool configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete tool configuration.
type Config struct {
	Images ImagesConfig `yaml:"images"`
}

// ImagesConfig configures where image files live and how the image registry
// is kept up to date.
type ImagesConfig struct {
	Directory          string   `yaml:"directory"`                      // Where pulled images are stored
	OtherDirectoriesRO []string `yaml:"other-directories-ro,omitempty"` // Extra read-only image directories
	Default            string   `yaml:"default"`                        // Image used when a VM names none
	UpdateOnCreate     bool     `yaml:"update-on-create,omitempty"`     // Refresh the registry before creating VMs
	UpdateAfterDays    *int     `yaml:"update-after-days,omitempty"`    // Registry-wide staleness threshold
}

// Default returns the configuration used when no config file exists yet.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/root"
	}
	return &Config{
		Images: ImagesConfig{
			Directory: filepath.Join(home, ".local", "share", "vml", "images"),
			Default:   "alt-sisyphus",
		},
	}
}

// Dir returns the tool's configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/etc", "vml")
	}
	return filepath.Join(home, ".config", "vml")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// RegistryPath returns the path of the image registry file, which lives next
// to the configuration file.
func RegistryPath() string {
	return filepath.Join(Dir(), "images.yaml")
}

// AllDirectories returns the writable image directory followed by the
// read-only ones, in lookup order.
func (c *ImagesConfig) AllDirectories() []string {
	dirs := make([]string, 0, 1+len(c.OtherDirectoriesRO))
	dirs = append(dirs, c.Directory)
	dirs = append(dirs, c.OtherDirectoriesRO...)
	return dirs
}

// Validate checks the configuration for errors. Only structure is validated,
// not whether directories or images actually exist.
func (c *Config) Validate() error {
	if c.Images.Directory == "" {
		return fmt.Errorf("images.directory is required")
	}
	if c.Images.Default == "" {
		return fmt.Errorf("images.default is required")
	}
	if c.Images.UpdateAfterDays != nil && *c.Images.UpdateAfterDays < 0 {
		return fmt.Errorf("images.update-after-days must be >= 0, got %d", *c.Images.UpdateAfterDays)
	}
	return nil
}

// Normalize sanitizes user input to consistent forms. This is called
// automatically by LoadFromFile before validation.
func (c *Config) Normalize() {
	c.Images.Directory = expandTilde(strings.TrimSpace(c.Images.Directory))
	for i, dir := range c.Images.OtherDirectoriesRO {
		c.Images.OtherDirectoriesRO[i] = expandTilde(strings.TrimSpace(dir))
	}
	c.Images.Default = strings.TrimSpace(c.Images.Default)
}

// expandTilde rewrites a leading ~ to the current user's home directory.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// LoadFromFile loads the tool configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
