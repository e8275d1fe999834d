package commands

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/i474232898/country-explorer/internal/config"
	"github.com/i474232898/country-explorer/internal/explorer"
	"github.com/i474232898/country-explorer/internal/explorer/providers"
	"github.com/i474232898/country-explorer/internal/logging"
	"github.com/i474232898/country-explorer/internal/session"
)

var (
	cfg      *config.AppConfig
	log      zerolog.Logger
	gateway  *providers.Gateway
	geocoder explorer.Geocoder

	logLevel string
	console  bool
)

func Execute() error {
	root := &cobra.Command{
		Use:          "country-explorer",
		Short:        "Country explorer data service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if console {
				log = logging.Console(os.Stderr, cfg.LogLevel)
			} else {
				log = logging.New(os.Stderr, cfg.LogLevel)
			}

			// Shared HTTP client for outbound provider calls.
			pc := providers.Config{
				Client:       &http.Client{Timeout: cfg.HTTPTimeout},
				ProxyBaseURL: cfg.ProxyBaseURL,
				WikipediaURL: cfg.WikipediaURL,
			}
			gateway = providers.NewGateway(pc)
			geocoder = providers.NewGeocoder(pc, cfg.GoogleGeocodingAPIKey, gateway.BorderClient)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&console, "console", false, "human-readable log output")

	root.AddCommand(serveCmd(), inspectCmd(), countriesCmd())
	return root.Execute()
}

func newManager() *session.Manager {
	return session.NewManager(gateway, geocoder, session.Options{
		FeedMaxHistory: cfg.FeedMaxHistory,
		FeedMaxAge:     cfg.FeedMaxAge,
		RatesBase:      cfg.RatesBase,
	}, log)
}
