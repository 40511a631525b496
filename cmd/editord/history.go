package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"voxeledit.ai/internal/persistence/indexdb"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent editor transactions from the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		idx, err := indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index", "editor.sqlite"))
		if err != nil {
			return err
		}
		defer idx.Close()

		rows, err := idx.RecentTransactions(cmd.Context(), limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TXN\tSESSION\tNAME\tSTATE\tOPS\tCLOSED")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.Owner, r.Name, r.State, r.Ops, r.ClosedAt.Format(time.RFC3339))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		totals, err := idx.SpawnTotals(cmd.Context())
		if err != nil {
			return err
		}
		items := make([]string, 0, len(totals))
		for it := range totals {
			items = append(items, it)
		}
		sort.Strings(items)
		for _, it := range items {
			fmt.Fprintf(cmd.OutOrStdout(), "spawned %s x%d\n", it, totals[it])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 20, "number of transactions to show")
}
