// Package service implements the instrument and reservation operations on
// top of the store and the photo directory.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/instrumenti/internal/model"
	"github.com/erazemk/instrumenti/internal/photos"
	"github.com/erazemk/instrumenti/internal/store"
)

// Service runs instrument and reservation commands and queries.
type Service struct {
	DB     *sql.DB
	Photos *photos.Store
	Logger *zap.Logger
}

// New creates a Service.
func New(db *sql.DB, ps *photos.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{DB: db, Photos: ps, Logger: logger}
}

// Upload is a photo file sent along with an instrument.
type Upload struct {
	Name string
	Data []byte
}

// parts returns nil data only when nothing was uploaded.
func (u *Upload) parts() ([]byte, string) {
	if u == nil {
		return nil, ""
	}
	if u.Data == nil {
		return []byte{}, u.Name
	}
	return u.Data, u.Name
}

// DeleteOptions controls DeleteInstrument.
type DeleteOptions struct {
	Cascade      bool
	Confirmation string
}

// InstrumentDetail is an instrument together with its reservation count.
type InstrumentDetail struct {
	model.Instrument
	ReservationCount int `json:"reservation_count"`
}

func confirmed(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), ConfirmationWord)
}

// CreateInstrument validates f, stores the uploaded photo if any and inserts
// the instrument.
func (s *Service) CreateInstrument(ctx context.Context, f model.InstrumentFields, up *Upload) (*model.Instrument, error) {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	path, err := s.Photos.Save(up.parts())
	if err != nil {
		return nil, fmt.Errorf("saving photo: %w", err)
	}

	inst, err := store.CreateInstrument(ctx, s.DB, f, path)
	if err != nil {
		s.Photos.Delete(path)
		return nil, err
	}

	s.Logger.Info("instrument created", zap.Int64("id", inst.ID), zap.String("name", inst.Name))
	return inst, nil
}

// UpdateInstrument overwrites an instrument. A new upload replaces the
// previous photo. Returns nil, nil when the instrument does not exist.
func (s *Service) UpdateInstrument(ctx context.Context, id int64, f model.InstrumentFields, up *Upload) (*model.Instrument, error) {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	existing, err := store.GetInstrument(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	data, name := up.parts()
	path, err := s.Photos.Replace(existing.PhotoPath, data, name)
	if err != nil {
		return nil, fmt.Errorf("replacing photo: %w", err)
	}

	if err := store.UpdateInstrument(ctx, s.DB, id, f, path); err != nil {
		if path != existing.PhotoPath {
			s.Photos.Delete(path)
		}
		return nil, err
	}

	s.Logger.Info("instrument updated", zap.Int64("id", id))
	return store.GetInstrument(ctx, s.DB, id)
}

// DeleteInstrument removes an instrument and its photo. With reservations
// present it fails with *HasReservationsError unless opts.Cascade is set, in
// which case the reservations and the instrument go in one transaction.
// Unknown IDs are a no-op.
func (s *Service) DeleteInstrument(ctx context.Context, id int64, opts DeleteOptions) error {
	if !confirmed(opts.Confirmation) {
		return ErrConfirmation
	}

	inst, err := store.GetInstrument(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if inst == nil {
		return nil
	}

	count, err := store.CountReservationsForInstrument(ctx, s.DB, id)
	if err != nil {
		return err
	}

	switch {
	case count == 0:
		if err := store.DeleteInstrument(ctx, s.DB, id); err != nil {
			return err
		}
	case !opts.Cascade:
		return &HasReservationsError{Count: count}
	default:
		if err := s.cascadeDelete(ctx, id); err != nil {
			return err
		}
	}

	s.Photos.Delete(inst.PhotoPath)
	s.Logger.Info("instrument deleted",
		zap.Int64("id", id),
		zap.Bool("cascade", opts.Cascade),
		zap.Int("reservations", count),
	)
	return nil
}

func (s *Service) cascadeDelete(ctx context.Context, id int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := store.DeleteReservationsForInstrument(ctx, tx, id); err != nil {
		return err
	}
	if err := store.DeleteInstrument(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cascade delete: %w", err)
	}
	return nil
}

// ListInstruments returns instruments matching filter, ordered by ID.
func (s *Service) ListInstruments(ctx context.Context, filter model.InstrumentFilter) ([]model.Instrument, error) {
	return store.ListInstruments(ctx, s.DB, filter)
}

// GetInstrument returns an instrument with its reservation count, or nil.
func (s *Service) GetInstrument(ctx context.Context, id int64) (*InstrumentDetail, error) {
	inst, err := store.GetInstrument(ctx, s.DB, id)
	if err != nil || inst == nil {
		return nil, err
	}
	count, err := store.CountReservationsForInstrument(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return &InstrumentDetail{Instrument: *inst, ReservationCount: count}, nil
}

// OpenPhoto opens the photo of an instrument. It returns a nil reader when
// the instrument does not exist or has no photo.
func (s *Service) OpenPhoto(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	inst, err := store.GetInstrument(ctx, s.DB, id)
	if err != nil {
		return nil, "", err
	}
	if inst == nil || inst.PhotoPath == "" {
		return nil, "", nil
	}
	rc, err := s.Photos.Open(inst.PhotoPath)
	if err != nil {
		return nil, "", err
	}
	return rc, inst.PhotoPath, nil
}

// CreateReservation validates f and inserts it. The instrument must exist.
func (s *Service) CreateReservation(ctx context.Context, f model.ReservationFields) (*model.Reservation, error) {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireInstrument(ctx, f.InstrumentID); err != nil {
		return nil, err
	}

	r, err := store.CreateReservation(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("reservation created",
		zap.Int64("id", r.ID),
		zap.Int64("instrument_id", r.InstrumentID),
		zap.String("user", r.User),
	)
	return r, nil
}

// UpdateReservation overwrites a reservation under the same rules as
// CreateReservation. Returns nil, nil when it does not exist.
func (s *Service) UpdateReservation(ctx context.Context, id int64, f model.ReservationFields) (*model.Reservation, error) {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	existing, err := store.GetReservation(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if f.InstrumentID != existing.InstrumentID {
		if err := s.requireInstrument(ctx, f.InstrumentID); err != nil {
			return nil, err
		}
	}

	if err := store.UpdateReservation(ctx, s.DB, id, f); err != nil {
		return nil, err
	}

	s.Logger.Info("reservation updated", zap.Int64("id", id))
	return store.GetReservation(ctx, s.DB, id)
}

// DeleteReservation removes a reservation once confirmed.
func (s *Service) DeleteReservation(ctx context.Context, id int64, confirmation string) error {
	if !confirmed(confirmation) {
		return ErrConfirmation
	}
	if err := store.DeleteReservation(ctx, s.DB, id); err != nil {
		return err
	}
	s.Logger.Info("reservation deleted", zap.Int64("id", id))
	return nil
}

// ListReservations returns reservations newest start first, optionally for
// a single instrument (instrumentID > 0).
func (s *Service) ListReservations(ctx context.Context, instrumentID int64) ([]model.Reservation, error) {
	return store.ListReservations(ctx, s.DB, instrumentID)
}

// GetReservation returns a reservation, or nil.
func (s *Service) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	return store.GetReservation(ctx, s.DB, id)
}

func (s *Service) requireInstrument(ctx context.Context, id int64) error {
	inst, err := store.GetInstrument(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if inst == nil {
		return ErrInstrumentNotFound
	}
	return nil
}
