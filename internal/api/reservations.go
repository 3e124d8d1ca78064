package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/instrumenti/internal/export"
	"github.com/erazemk/instrumenti/internal/model"
	"github.com/erazemk/instrumenti/internal/service"
)

// ReservationsHandler handles reservation endpoints.
type ReservationsHandler struct {
	Service *service.Service
	Logger  *zap.Logger
}

// reservationRequest accepts each instant either whole ("start") or as a
// separate date and time of day ("start_date" + "start_time").
type reservationRequest struct {
	InstrumentID int64  `json:"instrument_id"`
	User         string `json:"user"`
	Start        string `json:"start"`
	End          string `json:"end"`
	StartDate    string `json:"start_date"`
	StartTime    string `json:"start_time"`
	EndDate      string `json:"end_date"`
	EndTime      string `json:"end_time"`
	Comment      string `json:"comment"`
	Status       string `json:"status"`
}

type deleteReservationRequest struct {
	Confirm string `json:"confirm"`
}

func (req reservationRequest) fields() (model.ReservationFields, error) {
	f := model.ReservationFields{
		InstrumentID: req.InstrumentID,
		User:         strings.TrimSpace(req.User),
		Comment:      req.Comment,
		Status:       req.Status,
	}
	if f.User == "" {
		return f, &model.ValidationError{Field: "user", Message: "requesting user is required"}
	}

	var err error
	if f.Start, err = parseInstant("start", req.Start, req.StartDate, req.StartTime); err != nil {
		return f, err
	}
	if f.End, err = parseInstant("end", req.End, req.EndDate, req.EndTime); err != nil {
		return f, err
	}
	return f, nil
}

func parseInstant(field, whole, date, clock string) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	if strings.TrimSpace(whole) != "" {
		t, err = model.ParseTimestamp(whole)
	} else {
		t, err = model.CombineDateTime(date, clock)
	}
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: field, Message: err.Error()}
	}
	return t, nil
}

func (h *ReservationsHandler) instrumentFilter(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("instrument_id")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid instrument_id")
		return 0, false
	}
	return id, true
}

// List handles GET /api/reservations.
func (h *ReservationsHandler) List(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentFilter(w, r)
	if !ok {
		return
	}

	reservations, err := h.Service.ListReservations(r.Context(), instrumentID)
	if err != nil {
		serviceError(w, h.Logger, err, "failed to list reservations")
		return
	}

	views := make([]reservationView, 0, len(reservations))
	for i := range reservations {
		views = append(views, newReservationView(&reservations[i]))
	}
	jsonResponse(w, h.Logger, http.StatusOK, views)
}

// Create handles POST /api/reservations.
func (h *ReservationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f, err := req.fields()
	if err != nil {
		serviceError(w, h.Logger, err, "invalid reservation")
		return
	}

	res, err := h.Service.CreateReservation(r.Context(), f)
	if err != nil {
		serviceError(w, h.Logger, err, "failed to create reservation")
		return
	}
	jsonResponse(w, h.Logger, http.StatusCreated, newReservationView(res))
}

// Get handles GET /api/reservations/{id}.
func (h *ReservationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	res, err := h.Service.GetReservation(r.Context(), id)
	if err != nil {
		serviceError(w, h.Logger, err, "failed to get reservation")
		return
	}
	if res == nil {
		jsonError(w, http.StatusNotFound, "reservation not found")
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, newReservationView(res))
}

// Update handles PUT /api/reservations/{id}. Unknown IDs answer 204.
func (h *ReservationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	var req reservationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f, err := req.fields()
	if err != nil {
		serviceError(w, h.Logger, err, "invalid reservation")
		return
	}

	res, err := h.Service.UpdateReservation(r.Context(), id, f)
	if err != nil {
		serviceError(w, h.Logger, err, "failed to update reservation")
		return
	}
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, newReservationView(res))
}

// Delete handles DELETE /api/reservations/{id}.
func (h *ReservationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	var req deleteReservationRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.DeleteReservation(r.Context(), id, req.Confirm); err != nil {
		serviceError(w, h.Logger, err, "failed to delete reservation")
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, map[string]string{"message": "reservation deleted"})
}

// Export handles GET /api/reservations/export.
func (h *ReservationsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	instrumentID, ok := h.instrumentFilter(w, r)
	if !ok {
		return
	}

	reservations, err := h.Service.ListReservations(r.Context(), instrumentID)
	if err != nil {
		serviceError(w, h.Logger, err, "failed to list reservations")
		return
	}

	var buf bytes.Buffer
	if err := export.Reservations(&buf, format, reservations); err != nil {
		serviceError(w, h.Logger, err, "failed to export reservations")
		return
	}
	writeAttachment(w, format, "reservas", buf.Bytes())
}
