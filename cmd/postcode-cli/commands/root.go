package commands

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"postcode-api/internal/aggregate"
	"postcode-api/internal/cache"
	"postcode-api/internal/config"
	"postcode-api/internal/logger"
	"postcode-api/internal/postcode"
	"postcode-api/internal/zippo"
)

var (
	panelFlag string
	baseFlag  string
	asJSON    bool

	cfg    config.Config
	client *zippo.Client
	agg    *aggregate.Aggregator
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "postcode-cli",
		Short:         "Postal code lookup across a panel of countries",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(".env")
			_ = godotenv.Load(filepath.Join("data", "env", ".env"))
			logger.Setup()

			c, err := config.FromEnv()
			if err != nil {
				return err
			}
			if panelFlag != "" {
				if c.Panel, err = postcode.ParsePanel(panelFlag); err != nil {
					return err
				}
			}
			if baseFlag != "" {
				c.ZippoBase = baseFlag
			}
			cfg = c
			client = zippo.New(cfg.ZippoBase, &http.Client{Timeout: cfg.UpstreamTimeout + time.Second},
				cache.New(nil, cfg.CacheTTL, cfg.CacheNegativeTTL))
			agg, err = aggregate.New(cfg.Panel, client, aggregate.WithTimeout(cfg.UpstreamTimeout))
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if agg != nil {
				agg.Close()
				agg = nil
			}
		},
	}

	root.PersistentFlags().StringVar(&panelFlag, "panel", "", "comma separated country codes (default $PANEL or the built-in panel)")
	root.PersistentFlags().StringVar(&baseFlag, "base", "", "upstream base URL (default $ZIPPO_BASE)")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")

	root.AddCommand(searchCmd(), lookupCmd(), typeCmd())
	return root
}
