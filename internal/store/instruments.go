package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/instrumenti/internal/model"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var instrumentColumns = []string{
	"id", "grupo_unidad", "responsable", "investigador_grupo", "instrumento",
	"numero_inventario", "reserva_uso", "estado", "ubicacion", "descripcion",
	"foto_path", "fecha_registro",
}

// CreateInstrument inserts an instrument and stamps its registration time.
// There is no uniqueness check on name or inventory number.
func CreateInstrument(ctx context.Context, q Querier, f model.InstrumentFields, photoPath string) (*model.Instrument, error) {
	stmt := builder.Insert("instruments").
		Columns(
			"grupo_unidad", "responsable", "investigador_grupo", "instrumento",
			"numero_inventario", "reserva_uso", "estado", "ubicacion",
			"descripcion", "foto_path", "fecha_registro",
		).
		Values(
			f.Group, f.Responsible, f.Researcher, f.Name,
			f.InventoryNumber, f.UsagePolicy, f.Status, f.Location,
			f.Description, nullable(photoPath), model.FormatTimestamp(now()),
		)

	result, err := exec(ctx, q, stmt)
	if err != nil {
		return nil, fmt.Errorf("creating instrument: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting instrument id: %w", err)
	}

	return GetInstrument(ctx, q, id)
}

// GetInstrument returns an instrument by ID, or nil if it does not exist.
func GetInstrument(ctx context.Context, q Querier, id int64) (*model.Instrument, error) {
	query, args, err := builder.Select(instrumentColumns...).
		From("instruments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	inst, err := scanInstrument(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting instrument: %w", err)
	}
	return inst, nil
}

// ListInstruments returns instruments whose group, researcher and name
// contain the given substrings. Blank filter fields impose no constraint.
// Matching follows SQLite LIKE, which ignores ASCII case; "%" and "_" in a
// filter match themselves.
func ListInstruments(ctx context.Context, q Querier, filter model.InstrumentFilter) ([]model.Instrument, error) {
	b := builder.Select(instrumentColumns...).From("instruments")

	conds := []struct {
		column, value string
	}{
		{"grupo_unidad", filter.Group},
		{"investigador_grupo", filter.Researcher},
		{"instrumento", filter.Name},
	}
	for _, c := range conds {
		if strings.TrimSpace(c.value) == "" {
			continue
		}
		b = b.Where(sq.Expr(c.column+` LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(c.value)+"%"))
	}

	rows, err := queryRows(ctx, q, b.OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("listing instruments: %w", err)
	}
	defer rows.Close()

	var instruments []model.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning instrument: %w", err)
		}
		instruments = append(instruments, *inst)
	}
	return instruments, rows.Err()
}

// UpdateInstrument overwrites every mutable field, including the photo path.
// The ID and registration time are never touched. Unknown IDs are a no-op.
func UpdateInstrument(ctx context.Context, q Querier, id int64, f model.InstrumentFields, photoPath string) error {
	stmt := builder.Update("instruments").
		SetMap(map[string]any{
			"grupo_unidad":       f.Group,
			"responsable":        f.Responsible,
			"investigador_grupo": f.Researcher,
			"instrumento":        f.Name,
			"numero_inventario":  f.InventoryNumber,
			"reserva_uso":        f.UsagePolicy,
			"estado":             f.Status,
			"ubicacion":          f.Location,
			"descripcion":        f.Description,
			"foto_path":          nullable(photoPath),
		}).
		Where(sq.Eq{"id": id})

	if _, err := exec(ctx, q, stmt); err != nil {
		return fmt.Errorf("updating instrument: %w", err)
	}
	return nil
}

// DeleteInstrument removes the instrument row. Its photo and reservations are
// the caller's concern.
func DeleteInstrument(ctx context.Context, q Querier, id int64) error {
	if _, err := exec(ctx, q, builder.Delete("instruments").Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("deleting instrument: %w", err)
	}
	return nil
}

// CountReservationsForInstrument returns how many reservations reference id.
func CountReservationsForInstrument(ctx context.Context, q Querier, id int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservas WHERE instrumento_id = ?`, id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting reservations: %w", err)
	}
	return count, nil
}

// DeleteReservationsForInstrument removes every reservation referencing id
// and returns how many were deleted.
func DeleteReservationsForInstrument(ctx context.Context, q Querier, id int64) (int64, error) {
	result, err := exec(ctx, q, builder.Delete("reservas").Where(sq.Eq{"instrumento_id": id}))
	if err != nil {
		return 0, fmt.Errorf("deleting reservations for instrument: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted reservations: %w", err)
	}
	return n, nil
}

func scanInstrument(row rowScanner) (*model.Instrument, error) {
	var (
		inst                                      model.Instrument
		group, responsible, inventory, policy     sql.NullString
		status, location, description, photoPath sql.NullString
		registered                                sql.NullString
	)
	err := row.Scan(
		&inst.ID, &group, &responsible, &inst.Researcher, &inst.Name,
		&inventory, &policy, &status, &location, &description,
		&photoPath, &registered,
	)
	if err != nil {
		return nil, err
	}

	inst.Group = group.String
	inst.Responsible = responsible.String
	inst.InventoryNumber = inventory.String
	inst.UsagePolicy = policy.String
	inst.Status = status.String
	inst.Location = location.String
	inst.Description = description.String
	inst.PhotoPath = photoPath.String

	inst.RegisteredAt, err = parseStored("fecha_registro", registered)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
