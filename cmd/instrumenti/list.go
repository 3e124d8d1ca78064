package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/instrumenti/internal/export"
	"github.com/erazemk/instrumenti/internal/model"
)

func newInstrumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instruments",
		Aliases: []string{"inst"},
		Short:   "Inspect instruments",
	}
	cmd.AddCommand(newInstrumentsListCmd())
	return cmd
}

func newInstrumentsListCmd() *cobra.Command {
	var filter model.InstrumentFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List instruments, optionally filtered",
		Long: `List instruments ordered by id. Each filter keeps instruments whose
field contains the given text; filters combine with AND.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			instruments, err := a.svc.ListInstruments(cmd.Context(), filter)
			if err != nil {
				return err
			}

			rows := export.InstrumentRows(instruments)
			return printOutput(os.Stdout, format, export.Records(export.InstrumentHeaders, rows), export.InstrumentHeaders, rows)
		},
	}

	cmd.Flags().StringVar(&filter.Group, "group", "", "group/unit contains")
	cmd.Flags().StringVar(&filter.Researcher, "researcher", "", "researcher/group contains")
	cmd.Flags().StringVar(&filter.Name, "name", "", "instrument name contains")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "table", "output format: table, json, yaml")

	return cmd
}

func newReservationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reservations",
		Aliases: []string{"res"},
		Short:   "Inspect reservations",
	}
	cmd.AddCommand(newReservationsListCmd())
	return cmd
}

func newReservationsListCmd() *cobra.Command {
	var instrumentID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reservations, most recent start first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			reservations, err := a.svc.ListReservations(cmd.Context(), instrumentID)
			if err != nil {
				return err
			}

			rows := export.ReservationRows(reservations)
			return printOutput(os.Stdout, format, export.Records(export.ReservationHeaders, rows), export.ReservationHeaders, rows)
		},
	}

	cmd.Flags().Int64Var(&instrumentID, "instrument", 0, "only reservations of this instrument id")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "table", "output format: table, json, yaml")

	return cmd
}
