package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"voxeledit.ai/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "editord",
	Short:         "voxeledit editor session server",
	Long:          `editord hosts editor sessions over WebSocket. Every session carries the Item Spawner tool.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "./configs/editord.yaml", "path to editord.yaml")
	f.String("configs", "", "catalog directory (overrides catalog_dir)")
	f.String("data", "", "runtime data directory (overrides data_dir)")
}

// loadConfig reads --config and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	override := func(name string, dst *string) {
		if !cmd.Flags().Changed(name) {
			return
		}
		if v, _ := cmd.Flags().GetString(name); strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	override("configs", &cfg.CatalogDir)
	override("data", &cfg.DataDir)
	if cmd.Flags().Lookup("listen") != nil {
		override("listen", &cfg.Listen)
	}
	if cmd.Flags().Lookup("redis") != nil {
		override("redis", &cfg.RedisAddr)
	}
	if cmd.Flags().Changed("disable_db") {
		cfg.DisableDB, _ = cmd.Flags().GetBool("disable_db")
	}
	return cfg, cfg.Validate()
}
