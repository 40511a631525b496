package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/tools/itemspawner"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config and catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cats, err := catalogs.Load(cfg.CatalogDir)
		if err != nil {
			return fmt.Errorf("catalogs: %w", err)
		}
		if !cats.Items.Has(cfg.Tool.DefaultItem) {
			return fmt.Errorf("tool.default_item %s: %w", cfg.Tool.DefaultItem, catalogs.ErrUnknownItem)
		}
		if _, err := itemspawner.OptionsFromConfig(cfg.Tool); err != nil {
			return fmt.Errorf("tool: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d blocks, %d items (items digest %s)\n",
			len(cats.Blocks.Palette), len(cats.Items.Palette), cats.Items.PaletteDigest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
