package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/ndewijer/portfolio-valuation/internal/app"
	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/logging"
	"github.com/ndewijer/portfolio-valuation/internal/version"
)

func newRootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "portfolioctl",
		Short:         "Portfolio valuation maintenance tool",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides DB_PATH)")

	// loadApp is shared by every subcommand that needs services.
	loadApp := func() (*app.App, error) {
		cfg, err := loadConfig(dbPath)
		if err != nil {
			return nil, err
		}
		return app.New(cfg)
	}

	root.AddCommand(
		migrateCmd(func() (*config.Config, error) { return loadConfig(dbPath) }),
		revalueCmd(loadApp),
		historyCmd(loadApp),
		rebalanceCmd(loadApp),
		valuateCmd(loadApp),
	)
	return root
}

func loadConfig(dbPath string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
