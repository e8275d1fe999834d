package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/country-explorer/internal/explorer"
)

func inspectCmd() *cobra.Command {
	var (
		timeout time.Duration
		lat     float64
		lon     float64
		amount  float64
	)

	cmd := &cobra.Command{
		Use:   "inspect [ISO3]",
		Short: "Load one country and print its display model",
		Long: "Selects a country by ISO 3166-1 alpha-3 code, or by position with --lat and --lon, " +
			"waits for every provider to settle and prints the merged model as JSON.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byPosition := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			if len(args) == 0 && !byPosition {
				return errors.New("an ISO3 code or --lat/--lon is required")
			}

			sessions := newManager()
			defer sessions.Shutdown()
			s := sessions.Create()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if byPosition {
				loc := explorer.LocatorFunc(func(context.Context) (float64, float64, error) {
					return lat, lon, nil
				})
				if err := s.Locate(ctx, loc); err != nil {
					return err
				}
			} else if _, err := s.Select(ctx, explorer.Country{ISO3: strings.ToUpper(args[0])}); err != nil {
				return err
			}
			if err := s.Settle(ctx); err != nil {
				return fmt.Errorf("waiting for providers: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(s.Model()); err != nil {
				return err
			}

			if cmd.Flags().Changed("amount") {
				q, err := s.Convert(amount)
				if err != nil {
					return fmt.Errorf("convert: %w", err)
				}
				fmt.Printf("%.2f %s = %.2f %s\n", q.Amount, q.Base, q.Converted, q.Target)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for providers")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude to reverse geocode")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude to reverse geocode")
	cmd.Flags().Float64Var(&amount, "amount", 0, "also convert this amount into the country's currency")
	return cmd
}
