package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Obirvalger/vml"
	"github.com/Obirvalger/vml/internal/image"
	"github.com/Obirvalger/vml/internal/output"
	"github.com/Obirvalger/vml/internal/store"
)

var (
	outputFormat string
	noHeaders    bool
	reportAll    bool
)

var imagesCmd = &cobra.Command{
	Use:     "images",
	Aliases: []string{"image"},
	Short:   "Work with VM images",
	Long: `Work with VM images: the local image files and the registry describing
which images are available.`,
}

func init() {
	imagesCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, yaml, json)")
	imagesCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "omit headers in table output")

	imagesUpdateCmd.Flags().BoolVar(&reportAll, "all", false, "report unchanged entries too")

	imagesCmd.AddCommand(imagesListCmd)
	imagesCmd.AddCommand(imagesAvailableCmd)
	imagesCmd.AddCommand(imagesUpdateCmd)
	imagesCmd.AddCommand(imagesStaleCmd)
	imagesCmd.AddCommand(imagesRemoveCmd)
}

var imagesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List local image files",
	Long: `List the image files present in the images directory and any read-only
image directories from the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		names, err := store.List(cfg.Images.AllDirectories()...)
		if err != nil {
			return fmt.Errorf("failed to list images: %w", err)
		}

		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var imagesAvailableCmd = &cobra.Command{
	Use:   "available",
	Short: "List images available in the registry",
	Long: `List the images described by the local registry file.

Before the first update the registry file does not exist yet; the registry
bundled into the binary is shown instead.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   Registry file layout
  -o json   JSON array`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatRecords(reg.Records())
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

var imagesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the image registry file",
	Long: `Merge the bundled image registry into the local registry file.

User customizations survive: entries only change where their change
directives allow it, entries marked delete disappear once they are gone
upstream, and new upstream entries are added. The file is rewritten under an
exclusive lock; comments in it do not survive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		canonical, err := image.ParseRegistry(vml.DefaultRegistry())
		if err != nil {
			return fmt.Errorf("bad bundled registry: %w", err)
		}

		path := registryPath()
		log.Debug("updating registry", "path", path)
		actions, err := image.UpdateRegistryFile(path, vml.RegistryHeader(), canonical)
		if err != nil {
			return fmt.Errorf("failed to update registry: %w", err)
		}

		if !reportAll {
			filtered := actions[:0]
			for _, action := range actions {
				if action.Kind != image.ActionUnchanged {
					filtered = append(filtered, action)
				}
			}
			actions = filtered
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatActions(actions)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

var imagesStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List local images due for a refresh",
	Long: `List local image files older than their staleness threshold.

The threshold is each registry entry's update-after-days, falling back to
images.update-after-days from the configuration. Entries with neither are
never reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		now := time.Now()
		for _, rec := range reg.Records() {
			threshold := rec.UpdateAfterDays
			if threshold == nil {
				threshold = cfg.Images.UpdateAfterDays
			}
			if threshold == nil {
				continue
			}

			modTime, ok := localModTime(cfg.Images.AllDirectories(), rec.Name)
			if !ok {
				continue
			}
			if image.IsStale(modTime, now, *threshold) {
				fmt.Println(rec.Name)
			}
		}
		return nil
	},
}

var imagesRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a local image file",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		name := args[0]
		if err := store.Remove(cfg.Images.Directory, name); err != nil {
			return err
		}

		fmt.Printf("Image %s removed\n", name)
		return nil
	},
}

// loadRegistry reads the registry file, falling back to the bundled registry
// before the first update has created the file.
func loadRegistry() (image.Registry, error) {
	path := registryPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debug("no registry file yet, using bundled registry", "path", path)
		reg, err := image.ParseRegistry(vml.DefaultRegistry())
		if err != nil {
			return nil, fmt.Errorf("bad bundled registry: %w", err)
		}
		return reg, nil
	}
	return image.LoadRegistryFile(path)
}

// localModTime finds the named image in the first directory containing it
// and returns its modification time.
func localModTime(dirs []string, name string) (time.Time, bool) {
	for _, dir := range dirs {
		if modTime, err := store.ModTime(dir, name); err == nil {
			return modTime, true
		}
	}
	return time.Time{}, false
}
