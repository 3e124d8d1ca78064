// Command instrumenti serves and inspects the laboratory instrument
// inventory and its reservations.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/instrumenti/internal/config"
	"github.com/erazemk/instrumenti/internal/db"
	"github.com/erazemk/instrumenti/internal/logging"
	"github.com/erazemk/instrumenti/internal/photos"
	"github.com/erazemk/instrumenti/internal/service"
)

var (
	cfg        *config.Config
	logger     *zap.Logger
	closeLog   = func() {}
	outputFlag string
)

// app bundles the opened database and the service built on it.
type app struct {
	db  *sql.DB
	svc *service.Service
}

func openApp() (*app, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	ps, err := photos.New(cfg.PhotoDir, logger)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &app{db: database, svc: service.New(database, ps, logger)}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func newRootCmd() *cobra.Command {
	cfg = config.Load()

	rootCmd := &cobra.Command{
		Use:   "instrumenti",
		Short: "Laboratory instrument inventory and reservations",
		Long: `instrumenti keeps the inventory of laboratory instruments and the
reservations made against them in a single SQLite file.

Run "instrumenti serve" to expose the JSON API, or use the list and
export commands to inspect the data directly.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := logging.New(cfg.LogPath)
			if err != nil {
				return err
			}
			logger, closeLog = l, closeFn
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLog()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfg.DBPath, "db", "d", cfg.DBPath, "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&cfg.PhotoDir, "photos", cfg.PhotoDir, "directory for instrument photos")
	rootCmd.PersistentFlags().StringVarP(&cfg.LogPath, "log", "l", cfg.LogPath, "also append logs to this file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newInstrumentsCmd())
	rootCmd.AddCommand(newReservationsCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
