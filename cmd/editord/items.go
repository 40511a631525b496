package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"voxeledit.ai/internal/catalogs"
)

var itemsCmd = &cobra.Command{
	Use:   "items [filter]",
	Short: "List the item types offered by the Item Spawner",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cats, err := catalogs.Load(cfg.CatalogDir)
		if err != nil {
			return err
		}
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		return printItems(cmd.OutOrStdout(), &cats.Items, filter)
	},
}

func init() {
	rootCmd.AddCommand(itemsCmd)
}

func printItems(w io.Writer, items *catalogs.ItemCatalog, filter string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tMAX_STACK\tSTRING_ID")
	for _, d := range items.GetAll() {
		if filter != "" && !strings.Contains(d.ID, filter) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.ID, d.Kind, d.MaxStack, d.StringID())
	}
	return tw.Flush()
}
