package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func countriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "countries",
		Short: "List the selectable countries",
		RunE: func(cmd *cobra.Command, args []string) error {
			countries, err := gateway.Countries(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, c := range countries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ISO3, c.ISO2, c.Name)
			}
			return w.Flush()
		},
	}
	return cmd
}
