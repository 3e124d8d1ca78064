package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/instrumenti/internal/model"
)

var reservationColumns = []string{
	"r.id", "r.instrumento_id", "r.usuario", "r.fecha_inicio", "r.fecha_fin",
	"r.comentario", "r.estado", "r.fecha_registro", "i.instrumento",
}

// CreateReservation inserts a reservation. The instrument reference is not
// checked here; the service does that.
func CreateReservation(ctx context.Context, q Querier, f model.ReservationFields) (*model.Reservation, error) {
	stmt := builder.Insert("reservas").
		Columns("instrumento_id", "usuario", "fecha_inicio", "fecha_fin", "comentario", "estado", "fecha_registro").
		Values(
			f.InstrumentID, f.User,
			model.FormatTimestamp(f.Start), model.FormatTimestamp(f.End),
			f.Comment, f.Status, model.FormatTimestamp(now()),
		)

	result, err := exec(ctx, q, stmt)
	if err != nil {
		return nil, fmt.Errorf("creating reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting reservation id: %w", err)
	}

	return GetReservation(ctx, q, id)
}

// GetReservation returns a reservation by ID, or nil if it does not exist.
// Orphaned reservations are still returned, with an empty instrument name.
func GetReservation(ctx context.Context, q Querier, id int64) (*model.Reservation, error) {
	query, args, err := builder.Select(reservationColumns...).
		From("reservas r").
		LeftJoin("instruments i ON i.id = r.instrumento_id").
		Where(sq.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	r, err := scanReservation(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting reservation: %w", err)
	}
	return r, nil
}

// ListReservations returns reservations joined with their instrument name,
// most recent start first. An instrumentID of 0 lists all of them.
// Reservations whose instrument no longer exists are omitted.
func ListReservations(ctx context.Context, q Querier, instrumentID int64) ([]model.Reservation, error) {
	b := builder.Select(reservationColumns...).
		From("reservas r").
		Join("instruments i ON i.id = r.instrumento_id").
		OrderBy("r.fecha_inicio DESC", "r.id DESC")
	if instrumentID > 0 {
		b = b.Where(sq.Eq{"r.instrumento_id": instrumentID})
	}

	rows, err := queryRows(ctx, q, b)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

// UpdateReservation overwrites every mutable field of a reservation,
// including the instrument it refers to.
func UpdateReservation(ctx context.Context, q Querier, id int64, f model.ReservationFields) error {
	stmt := builder.Update("reservas").
		SetMap(map[string]any{
			"instrumento_id": f.InstrumentID,
			"usuario":        f.User,
			"fecha_inicio":   model.FormatTimestamp(f.Start),
			"fecha_fin":      model.FormatTimestamp(f.End),
			"comentario":     f.Comment,
			"estado":         f.Status,
		}).
		Where(sq.Eq{"id": id})

	if _, err := exec(ctx, q, stmt); err != nil {
		return fmt.Errorf("updating reservation: %w", err)
	}
	return nil
}

// DeleteReservation removes a reservation. Unknown IDs are a no-op.
func DeleteReservation(ctx context.Context, q Querier, id int64) error {
	if _, err := exec(ctx, q, builder.Delete("reservas").Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("deleting reservation: %w", err)
	}
	return nil
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		r                     model.Reservation
		start, end            string
		comment, status, name sql.NullString
		registered            sql.NullString
	)
	err := row.Scan(&r.ID, &r.InstrumentID, &r.User, &start, &end, &comment, &status, &registered, &name)
	if err != nil {
		return nil, err
	}

	r.Comment = comment.String
	r.Status = status.String
	r.InstrumentName = name.String

	if r.Start, err = model.ParseTimestamp(start); err != nil {
		return nil, fmt.Errorf("parsing fecha_inicio: %w", err)
	}
	if r.End, err = model.ParseTimestamp(end); err != nil {
		return nil, fmt.Errorf("parsing fecha_fin: %w", err)
	}
	if r.RegisteredAt, err = parseStored("fecha_registro", registered); err != nil {
		return nil, err
	}
	return &r, nil
}
