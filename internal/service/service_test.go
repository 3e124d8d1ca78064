package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erazemk/instrumenti/internal/db"
	"github.com/erazemk/instrumenti/internal/model"
	"github.com/erazemk/instrumenti/internal/photos"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	ps, err := photos.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return New(db.NewTestDB(t), ps, zap.NewNop())
}

func balance() model.InstrumentFields {
	return model.InstrumentFields{Researcher: "A", Name: "Balance"}
}

func at(hour int) time.Time {
	return time.Date(2025, 1, 10, hour, 0, 0, 0, time.Local)
}

func reserve(t *testing.T, s *Service, instrumentID int64, user string, start, end time.Time) *model.Reservation {
	t.Helper()
	r, err := s.CreateReservation(context.Background(), model.ReservationFields{
		InstrumentID: instrumentID, User: user, Start: start, End: end,
	})
	require.NoError(t, err)
	return r
}

func TestCreateInstrumentDefaultsAndValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	inst, err := s.CreateInstrument(ctx, balance(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.UsageReservable, inst.UsagePolicy)
	assert.Equal(t, model.StatusOperational, inst.Status)
	assert.Empty(t, inst.PhotoPath)

	_, err = s.CreateInstrument(ctx, model.InstrumentFields{Researcher: "A"}, nil)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	all, err := s.ListInstruments(ctx, model.InstrumentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateInstrumentStoresPhoto(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	gif, err := s.CreateInstrument(ctx, balance(), &Upload{Name: "x.GIF", Data: []byte("gif")})
	require.NoError(t, err)
	assert.Regexp(t, `\.png$`, gif.PhotoPath)
	assert.FileExists(t, gif.PhotoPath)

	jpg, err := s.CreateInstrument(ctx, balance(), &Upload{Name: "y.jpg", Data: []byte("jpg")})
	require.NoError(t, err)
	assert.Regexp(t, `\.jpg$`, jpg.PhotoPath)
}

func TestUpdateInstrumentPreservesIdentity(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	inst, err := s.CreateInstrument(ctx, balance(), &Upload{Name: "a.png", Data: []byte("a")})
	require.NoError(t, err)

	f := balance()
	f.Name = "Balance XL"
	f.Status = model.StatusOutOfService
	updated, err := s.UpdateInstrument(ctx, inst.ID, f, nil)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, updated.ID)
	assert.True(t, inst.RegisteredAt.Equal(updated.RegisteredAt))
	assert.Equal(t, "Balance XL", updated.Name)
	assert.Equal(t, model.StatusOutOfService, updated.Status)
	assert.Equal(t, inst.PhotoPath, updated.PhotoPath, "photo kept without a new upload")

	replaced, err := s.UpdateInstrument(ctx, inst.ID, f, &Upload{Name: "b.tif", Data: []byte("b")})
	require.NoError(t, err)
	assert.Regexp(t, `\.tif$`, replaced.PhotoPath)
	assert.NoFileExists(t, inst.PhotoPath)
	assert.FileExists(t, replaced.PhotoPath)
}

func TestUpdateInstrumentUnknownIsNoop(t *testing.T) {
	s := newTestService(t)

	got, err := s.UpdateInstrument(context.Background(), 99, balance(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteInstrumentRequiresConfirmation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	inst, err := s.CreateInstrument(ctx, balance(), nil)
	require.NoError(t, err)

	for _, text := range []string{"", "borra", "DELETE"} {
		err := s.DeleteInstrument(ctx, inst.ID, DeleteOptions{Confirmation: text})
		assert.ErrorIs(t, err, ErrConfirmation, text)
	}

	got, err := s.GetInstrument(ctx, inst.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	require.NoError(t, s.DeleteInstrument(ctx, inst.ID, DeleteOptions{Confirmation: "  borrar "}))
	got, err = s.GetInstrument(ctx, inst.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteInstrumentWithoutReservations(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	inst, err := s.CreateInstrument(ctx, balance(), &Upload{Name: "a.png", Data: []byte("a")})
	require.NoError(t, err)

	require.NoError(t, s.DeleteInstrument(ctx, inst.ID, DeleteOptions{Confirmation: ConfirmationWord}))
	assert.NoFileExists(t, inst.PhotoPath)

	// Deleting again is a silent no-op.
	assert.NoError(t, s.DeleteInstrument(ctx, inst.ID, DeleteOptions{Confirmation: ConfirmationWord}))
}

func TestDeleteInstrumentBlockedByReservations(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	inst, err := s.CreateInstrument(ctx, balance(), nil)
	require.NoError(t, err)
	reserve(t, s, inst.ID, "ana", at(9), at(10))
	reserve(t, s, inst.ID, "ben", at(11), at(12))

	err = s.DeleteInstrument(ctx, inst.ID, DeleteOptions{Confirmation: ConfirmationWord})
	require.ErrorIs(t, err, ErrHasReservations)
	var hre *HasReservationsError
	require.ErrorAs(t, err, &hre)
	assert.Equal(t, 2, hre.Count)

	detail, err := s.GetInstrument(ctx, inst.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, 2, detail.ReservationCount)

	rs, err := s.ListReservations(ctx, inst.ID)
	require.NoError(t, err)
	assert.Len(t, rs, 2)
}

func TestDeleteInstrumentCascade(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	inst, err := s.CreateInstrument(ctx, balance(), nil)
	require.NoError(t, err)
	other, err := s.CreateInstrument(ctx, balance(), nil)
	require.NoError(t, err)
	reserve(t, s, inst.ID, "ana", at(9), at(10))
	reserve(t, s, inst.ID, "ben", at(11), at(12))
	reserve(t, s, other.ID, "cid", at(9), at(10))

	err = s.DeleteInstrument(ctx, inst.ID, DeleteOptions{Cascade: true, Confirmation: ConfirmationWord})
	require.NoError(t, err)

	got, err := s.GetInstrument(ctx, inst.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	rs, err := s.ListReservations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, other.ID, rs[0].InstrumentID)
}

func TestCascadeRollsBackOnFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	ps, err := photos.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	s := New(mockDB, ps, zap.NewNop())

	cols := []string{
		"id", "grupo_unidad", "responsable", "investigador_grupo", "instrumento",
		"numero_inventario", "reserva_uso", "estado", "ubicacion", "descripcion",
		"foto_path", "fecha_registro",
	}
	mock.ExpectQuery(`SELECT .+ FROM instruments WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			int64(7), "G", nil, "A", "Balance", nil, "Con reserva", "Operativo", nil, nil, nil, "2025-01-10 09:00:00",
		))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservas`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM reservas`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM instruments`).
		WithArgs(int64(7)).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = s.DeleteInstrument(context.Background(), 7, DeleteOptions{Cascade: true, Confirmation: ConfirmationWord})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationScenario(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	inst, err := s.CreateInstrument(ctx, balance(), nil)
	require.NoError(t, err)

	_, err = s.CreateReservation(ctx, model.ReservationFields{
		InstrumentID: inst.ID, User: "ana", Start: at(9), End: at(9),
	})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "end", ve.Field)

	rs, err := s.ListReservations(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rs)

	early := reserve(t, s, inst.ID, "ana", at(9), at(12))
	assert.Equal(t, model.ReservationConfirmed, early.Status)
	late := reserve(t, s, inst.ID, "ben", at(13), at(14))

	rs, err = s.ListReservations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, late.ID, rs[0].ID)
	assert.Equal(t, early.ID, rs[1].ID)
	assert.Equal(t, "Balance", rs[1].InstrumentName)
}

func TestCreateReservationValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	inst, err := s.CreateInstrument(ctx, balance(), nil)
	require.NoError(t, err)

	_, err = s.CreateReservation(ctx, model.ReservationFields{
		InstrumentID: inst.ID, User: "  ", Start: at(9), End: at(10),
	})
	assert.True(t, model.IsValidation(err))

	_, err = s.CreateReservation(ctx, model.ReservationFields{
		InstrumentID: 999, User: "ana", Start: at(9), End: at(10),
	})
	assert.ErrorIs(t, err, ErrInstrumentNotFound)

	// Both instants fall in the same stored second.
	_, err = s.CreateReservation(ctx, model.ReservationFields{
		InstrumentID: inst.ID, User: "ana",
		Start: at(9).Add(100 * time.Millisecond), End: at(9).Add(900 * time.Millisecond),
	})
	assert.True(t, model.IsValidation(err), "expected validation error, got %v", err)

	rs, err := s.ListReservations(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestUpdateAndDeleteReservation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	a, err := s.CreateInstrument(ctx, balance(), nil)
	require.NoError(t, err)
	r := reserve(t, s, a.ID, "ana", at(9), at(10))

	_, err = s.UpdateReservation(ctx, r.ID, model.ReservationFields{
		InstrumentID: 404, User: "ana", Start: at(9), End: at(10),
	})
	assert.ErrorIs(t, err, ErrInstrumentNotFound)

	_, err = s.UpdateReservation(ctx, r.ID, model.ReservationFields{
		InstrumentID: a.ID, User: "ana", Start: at(10), End: at(9),
	})
	assert.True(t, model.IsValidation(err))

	updated, err := s.UpdateReservation(ctx, r.ID, model.ReservationFields{
		InstrumentID: a.ID, User: "ana", Start: at(9), End: at(11), Status: model.ReservationTentative,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationTentative, updated.Status)
	assert.True(t, updated.End.Equal(at(11)))

	missing, err := s.UpdateReservation(ctx, 999, model.ReservationFields{
		InstrumentID: a.ID, User: "ana", Start: at(9), End: at(10),
	})
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, s.DeleteReservation(ctx, r.ID, "no"), ErrConfirmation)
	require.NoError(t, s.DeleteReservation(ctx, r.ID, ConfirmationWord))

	got, err := s.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenPhoto(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	without, err := s.CreateInstrument(ctx, balance(), nil)
	require.NoError(t, err)
	rc, _, err := s.OpenPhoto(ctx, without.ID)
	require.NoError(t, err)
	assert.Nil(t, rc)

	with, err := s.CreateInstrument(ctx, balance(), &Upload{Name: "a.jpg", Data: []byte("jpeg")})
	require.NoError(t, err)
	rc, path, err := s.OpenPhoto(ctx, with.ID)
	require.NoError(t, err)
	require.NotNil(t, rc)
	defer rc.Close()
	assert.Equal(t, with.PhotoPath, path)
}
