package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/app"
	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/database"
	"github.com/ndewijer/portfolio-valuation/internal/model"
)

type appLoader func() (*app.App, error)

func migrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return err
			}
			v, err := database.SchemaVersion(db)
			if err != nil {
				return err
			}
			log.Info().Int64("version", v).Str("path", cfg.Database.Path).Msg("schema up to date")
			return writeJSON(cmd.OutOrStdout(), map[string]any{"schemaVersion": v})
		},
	}
}

func revalueCmd(load appLoader) *cobra.Command {
	var portfolioID, asOf string

	cmd := &cobra.Command{
		Use:   "revalue",
		Short: "Revalue holdings of one portfolio, or of every portfolio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := request.ParseAsOf(asOf)
			if err != nil {
				return err
			}
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			if portfolioID != "" {
				res, err := a.Services.Valuation.RevalueAll(cmd.Context(), model.NewScope(portfolioID, at))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			}

			sched, err := a.Scheduler()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), sched.RunOnce(cmd.Context(), at))
		},
	}
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "portfolio ID (default: all portfolios)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "valuation date, YYYY-MM-DD (default: now)")
	return cmd
}

func historyCmd(load appLoader) *cobra.Command {
	var granularity, start, end string

	cmd := &cobra.Command{
		Use:   "history <portfolio-id>",
		Short: "Reconstruct the portfolio value curve against the benchmarks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := request.ParseHistoryFilters(granularity, start, end)
			if err != nil {
				return err
			}
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			curve, err := a.Services.History.Reconstruct(cmd.Context(), model.NewScope(args[0], time.Time{}), filters)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), curve)
		},
	}
	cmd.Flags().StringVar(&granularity, "granularity", "monthly", "weekly, monthly, quarterly, semiannual or annual")
	cmd.Flags().StringVar(&start, "start", "", "first date, YYYY-MM-DD (default: first trade)")
	cmd.Flags().StringVar(&end, "end", "", "last date, YYYY-MM-DD (default: today)")
	return cmd
}

func rebalanceCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Inspect allocation drift",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status <portfolio-id>",
		Short: "Show current allocation, deviations and suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.Services.Rebalance.Status(cmd.Context(), model.NewScope(args[0], time.Time{}))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	})
	return cmd
}

func valuateCmd(load appLoader) *cobra.Command {
	var (
		req   request.IndexedValuationRequest
		asOf  string
		price float64
	)

	cmd := &cobra.Command{
		Use:   "valuate",
		Short: "Value a single indexed position without touching the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Regime.Kind == "" || req.EntryDate == "" {
				return errors.New("--regime and --entry-date are required")
			}
			if price <= 0 {
				return fmt.Errorf("--entry-price must be positive, got %g", price)
			}
			req.EntryPrice = price
			if asOf != "" {
				req.AsOf = &asOf
			}

			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.Services.Valuation.ValuateIndexed(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().StringVar(&req.Regime.Kind, "regime", "", "SELIC, CDI, CDI+, IPCA, IPCA+ or FIXED")
	cmd.Flags().Float64Var(&req.Regime.Rate, "rate", 0, "regime parameter (percent of index, spread or annual rate)")
	cmd.Flags().Float64Var(&price, "entry-price", 0, "entry price")
	cmd.Flags().StringVar(&req.EntryDate, "entry-date", "", "entry date, YYYY-MM-DD")
	cmd.Flags().StringVar(&asOf, "as-of", "", "valuation date, YYYY-MM-DD (default: now)")
	return cmd
}
