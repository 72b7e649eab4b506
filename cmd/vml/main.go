package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Obirvalger/vml/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	debug      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vml",
	Short: "vml - VM images and lifecycle helper",
	Long: `vml is a CLI tool for managing QEMU virtual machines and their images.

The images subcommands maintain the local image registry: a human-editable
file listing the images available for VM creation, kept in sync with the
registry bundled into the binary.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(imagesCmd)
}

// loadConfig reads the configuration, falling back to built-in defaults when
// no config file exists and none was requested explicitly.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Debug("no config file, using defaults", "path", path)
			return config.Default(), nil
		}
	}
	return config.LoadFromFile(path)
}

// registryPath returns the path of the image registry file. It lives next to
// the config file, so an explicit --config relocates it too.
func registryPath() string {
	if configPath != "" {
		return filepath.Join(filepath.Dir(configPath), "images.yaml")
	}
	return config.RegistryPath()
}
