package model

import (
	"fmt"
	"strings"
	"time"
)

// Reservation is a claimed usage interval of an instrument by a named user.
type Reservation struct {
	ID int64 `json:"id"`
	ReservationFields
	RegisteredAt time.Time `json:"registered_at"`

	// Joined field (populated by listings).
	InstrumentName string `json:"instrument_name,omitempty"`
}

// ReservationFields holds the user-editable attributes of a reservation.
type ReservationFields struct {
	InstrumentID int64     `json:"instrument_id"`
	User         string    `json:"user"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Comment      string    `json:"comment"`
	Status       string    `json:"status" validate:"reservation_status"`
}

// Reservation statuses, as stored in reservas.estado.
const (
	ReservationConfirmed = "Confirmada"
	ReservationTentative = "Tentativa"
	ReservationCancelled = "Cancelada"
)

// ReservationStatuses lists the accepted reservation statuses in display order.
var ReservationStatuses = []string{ReservationConfirmed, ReservationTentative, ReservationCancelled}

// Normalize fills the defaults a new reservation form starts with and drops
// sub-second precision, which the storage layout cannot hold.
func (f *ReservationFields) Normalize() {
	f.Start = f.Start.Truncate(time.Second)
	f.End = f.End.Truncate(time.Second)
	if f.Status == "" {
		f.Status = ReservationConfirmed
	}
}

// Validate checks the requester, the interval and the status, in that order.
func (f ReservationFields) Validate() error {
	if err := ValidateReservation(f.User, f.Start, f.End); err != nil {
		return err
	}
	if f.InstrumentID <= 0 {
		return &ValidationError{Field: "instrument_id", Message: "instrument is required"}
	}
	return validateStruct(f)
}

// ValidateReservation enforces the rules every reservation must satisfy: a
// non-empty requester, checked first, and an end strictly after the start.
// Overlap with other reservations is not checked.
func ValidateReservation(user string, start, end time.Time) error {
	if strings.TrimSpace(user) == "" {
		return &ValidationError{Field: "user", Message: "requesting user is required"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "end", Message: "end must be after start"}
	}
	return nil
}

// TimestampLayout is the storage and wire format for instants (local time).
const TimestampLayout = "2006-01-02 15:04:05"

const dateLayout = "2006-01-02"

// FormatTimestamp renders t in TimestampLayout, in local time.
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp as local time. Minutes-only values
// ("2025-01-10 09:00") are accepted as well.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimestampLayout, "2006-01-02 15:04", "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q (want %s)", s, TimestampLayout)
}

// CombineDateTime builds one instant from a calendar date (YYYY-MM-DD) and a
// time of day (HH:MM or HH:MM:SS).
func CombineDateTime(date, clock string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}

	clock = strings.TrimSpace(clock)
	var c time.Time
	if c, err = time.Parse("15:04:05", clock); err != nil {
		if c, err = time.Parse("15:04", clock); err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q", clock)
		}
	}

	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.Local), nil
}
