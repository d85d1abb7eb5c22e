package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "List the catalog search terms and their metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := loadCatalog()
		if err != nil {
			logError("%v", err)
			return err
		}
		w := cmd.OutOrStdout()
		for _, term := range cat.Terms() {
			m := cat.Lookup(term)
			fmt.Fprintf(w, "%-16s %-24s %-28s %-14s %s\n",
				term, m.Manufacturer, m.Category, m.TargetSpecies, m.EfficacyWindow)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(termsCmd)
}
