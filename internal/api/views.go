package api

import (
	"fmt"
	"time"

	"github.com/erazemk/instrumenti/internal/model"
	"github.com/erazemk/instrumenti/internal/service"
)

// Instants go over the wire in the storage layout, local time.

type instrumentView struct {
	ID int64 `json:"id"`
	model.InstrumentFields
	PhotoURL         string `json:"photo_url,omitempty"`
	RegisteredAt     string `json:"registered_at"`
	ReservationCount *int   `json:"reservation_count,omitempty"`
}

type reservationView struct {
	ID             int64  `json:"id"`
	InstrumentID   int64  `json:"instrument_id"`
	InstrumentName string `json:"instrument_name"`
	User           string `json:"user"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Comment        string `json:"comment"`
	Status         string `json:"status"`
	RegisteredAt   string `json:"registered_at"`
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return model.FormatTimestamp(t)
}

func newInstrumentView(inst *model.Instrument) instrumentView {
	v := instrumentView{
		ID:               inst.ID,
		InstrumentFields: inst.InstrumentFields,
		RegisteredAt:     timestamp(inst.RegisteredAt),
	}
	if inst.PhotoPath != "" {
		v.PhotoURL = fmt.Sprintf("/api/instruments/%d/photo", inst.ID)
	}
	return v
}

func newInstrumentDetailView(d *service.InstrumentDetail) instrumentView {
	v := newInstrumentView(&d.Instrument)
	count := d.ReservationCount
	v.ReservationCount = &count
	return v
}

func newReservationView(r *model.Reservation) reservationView {
	return reservationView{
		ID:             r.ID,
		InstrumentID:   r.InstrumentID,
		InstrumentName: r.InstrumentName,
		User:           r.User,
		Start:          timestamp(r.Start),
		End:            timestamp(r.End),
		Comment:        r.Comment,
		Status:         r.Status,
		RegisteredAt:   timestamp(r.RegisteredAt),
	}
}
