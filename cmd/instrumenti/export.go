package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/instrumenti/internal/export"
	"github.com/erazemk/instrumenti/internal/model"
)

func newExportCmd() *cobra.Command {
	var (
		formatFlag   string
		outPath      string
		filter       model.InstrumentFilter
		instrumentID int64
	)

	cmd := &cobra.Command{
		Use:       "export instruments|reservations",
		Short:     "Export a table as CSV or XLSX",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"instruments", "reservations"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var rows int
			write := func(w io.Writer) error {
				if args[0] == "instruments" {
					instruments, err := a.svc.ListInstruments(cmd.Context(), filter)
					if err != nil {
						return err
					}
					rows = len(instruments)
					return export.Instruments(w, format, instruments)
				}
				reservations, err := a.svc.ListReservations(cmd.Context(), instrumentID)
				if err != nil {
					return err
				}
				rows = len(reservations)
				return export.Reservations(w, format, reservations)
			}

			if err := writeOutput(outPath, write); err != nil {
				return err
			}
			logExported(outPath, format, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "csv", "file format: csv, xlsx")
	cmd.Flags().StringVar(&outPath, "out", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&filter.Group, "group", "", "instruments: group/unit contains")
	cmd.Flags().StringVar(&filter.Researcher, "researcher", "", "instruments: researcher/group contains")
	cmd.Flags().StringVar(&filter.Name, "name", "", "instruments: name contains")
	cmd.Flags().Int64Var(&instrumentID, "instrument", 0, "reservations: only this instrument id")

	return cmd
}

// writeOutput runs write against path, or stdout when path is empty. The
// file is closed before returning so a failed flush is reported.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// logExported records a file export. Exports to stdout stay silent so the
// log lines do not end up in the data.
func logExported(path string, format export.Format, rows int) {
	if path == "" {
		return
	}
	logger.Info("table exported",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("rows", rows),
	)
}
