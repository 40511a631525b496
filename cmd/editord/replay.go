package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/config"
	persistlog "voxeledit.ai/internal/persistence/log"
	"voxeledit.ai/internal/world"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild the item state from the audit log and verify entity ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("audit")
		if dir == "" {
			dir = filepath.Join(cfg.DataDir, "audit")
		}
		return replayAudit(cmd.OutOrStdout(), cfg, dir)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().String("audit", "", "directory with audit-*.jsonl.zst (default <data>/audit)")
}

type replayStats struct {
	files   int
	entries int
	starts  int
	spawns  int
}

func replayAudit(out io.Writer, cfg config.Config, dir string) error {
	cats, err := catalogs.Load(cfg.CatalogDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	dim, err := world.New(worldConfig(cfg), cats.Blocks, nil)
	if err != nil {
		return err
	}
	files, err := persistlog.ListFiles(dir, "audit")
	if err != nil {
		return fmt.Errorf("list audit: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no audit files found in %s", dir)
	}

	var st replayStats
	for _, path := range files {
		st.files++
		err := persistlog.ReadAudit(path, func(e world.AuditEntry) error {
			st.entries++
			switch e.Action {
			case "WORLD_START":
				st.starts++
			case "ITEM_SPAWN":
				st.spawns++
			}
			if err := dim.ApplyAudit(e); err != nil {
				if errors.Is(err, world.ErrReplayMismatch) {
					return fmt.Errorf("%s entry %d: %w", filepath.Base(path), st.entries, err)
				}
				return fmt.Errorf("%s entry %d (%s): %w", filepath.Base(path), st.entries, e.Action, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	// Totals describe the dimension as of the last start.
	totals := map[string]int{}
	for _, it := range dim.Items() {
		totals[it.Item] += it.Count
	}
	names := make([]string, 0, len(totals))
	for n := range totals {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(out, "%s x%d\n", n, totals[n])
	}
	fmt.Fprintf(out, "replay ok: files=%d entries=%d starts=%d spawns=%d entities=%d\n",
		st.files, st.entries, st.starts, st.spawns, len(dim.Items()))
	return nil
}
