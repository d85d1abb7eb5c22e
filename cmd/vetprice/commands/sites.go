package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/vetprice/pkg/sites"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the supported stores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, a := range sites.Registry(sites.Deps{}) {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", a.Name(), a.BaseURL())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
