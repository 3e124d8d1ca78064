// Package export renders the instrument and reservation tables as CSV or
// XLSX spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/instrumenti/internal/model"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(CSV):
		return CSV, nil
	case string(XLSX):
		return XLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv or xlsx)", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Ext is the file extension for the format, with the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// InstrumentHeaders are the exported instrument columns. The photo path is
// left out.
var InstrumentHeaders = []string{
	"id", "grupo_unidad", "responsable", "investigador_grupo", "instrumento",
	"numero_inventario", "reserva_uso", "estado", "ubicacion", "descripcion",
	"fecha_registro",
}

// ReservationHeaders are the exported reservation columns.
var ReservationHeaders = []string{
	"id", "instrumento_id", "instrumento", "usuario", "fecha_inicio",
	"fecha_fin", "estado", "comentario",
}

type table struct {
	sheet   string
	headers []string
	rows    [][]string
}

// InstrumentRows renders instruments in InstrumentHeaders order.
func InstrumentRows(instruments []model.Instrument) [][]string {
	rows := make([][]string, 0, len(instruments))
	for _, inst := range instruments {
		rows = append(rows, []string{
			strconv.FormatInt(inst.ID, 10),
			inst.Group,
			inst.Responsible,
			inst.Researcher,
			inst.Name,
			inst.InventoryNumber,
			inst.UsagePolicy,
			inst.Status,
			inst.Location,
			inst.Description,
			timestamp(inst.RegisteredAt),
		})
	}
	return rows
}

// ReservationRows renders reservations in ReservationHeaders order.
func ReservationRows(reservations []model.Reservation) [][]string {
	rows := make([][]string, 0, len(reservations))
	for _, r := range reservations {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.InstrumentID, 10),
			r.InstrumentName,
			r.User,
			model.FormatTimestamp(r.Start),
			model.FormatTimestamp(r.End),
			r.Status,
			r.Comment,
		})
	}
	return rows
}

// Records pairs every row with the headers, one map per row.
func Records(headers []string, rows [][]string) []map[string]string {
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records
}

// Instruments writes the instrument table to w.
func Instruments(w io.Writer, format Format, instruments []model.Instrument) error {
	t := table{sheet: "Instrumentos", headers: InstrumentHeaders, rows: InstrumentRows(instruments)}
	return t.write(w, format)
}

// Reservations writes the reservation table to w.
func Reservations(w io.Writer, format Format, reservations []model.Reservation) error {
	t := table{sheet: "Reservas", headers: ReservationHeaders, rows: ReservationRows(reservations)}
	return t.write(w, format)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return model.FormatTimestamp(t)
}

func (t table) write(w io.Writer, format Format) error {
	switch format {
	case CSV:
		return t.writeCSV(w)
	case XLSX:
		return t.writeXLSX(w)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func (t table) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.headers); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return fmt.Errorf("writing csv rows: %w", err)
	}
	return nil
}

func (t table) writeXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", t.sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(t.sheet, "A1", &t.headers); err != nil {
		return fmt.Errorf("writing xlsx header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(t.headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.sheet, "A1", last, style); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.sheet, cell, &row); err != nil {
			return fmt.Errorf("writing xlsx row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}
