package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var catalogStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted catalog version and index sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		version, builtAt, err := store.Meta(ctx)
		if err != nil {
			fmt.Println("catalog store is empty; run `catalog build` or `catalog build --seed`")
			return nil
		}

		cat, err := loadCatalog(ctx, store)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "version:\t%s\n", version)
		fmt.Fprintf(w, "built at:\t%s\n", builtAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(w, "territories:\t%d\n", len(cat.Territories()))
		fmt.Fprintf(w, "cities:\t%d\n", len(cat.Cities()))
		fmt.Fprintf(w, "direct zips:\t%d\n", cat.ZipCount())
		fmt.Fprintf(w, "split zips:\t%d\n", cat.SplitZipCount())
		return w.Flush()
	},
}

func init() {
	catalogCmd.AddCommand(catalogStatusCmd)
}
