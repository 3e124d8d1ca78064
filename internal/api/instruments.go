package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/instrumenti/internal/export"
	"github.com/erazemk/instrumenti/internal/imaging"
	"github.com/erazemk/instrumenti/internal/model"
	"github.com/erazemk/instrumenti/internal/photos"
	"github.com/erazemk/instrumenti/internal/service"
)

// maxUploadSize caps multipart instrument requests.
const maxUploadSize = 20 << 20

// InstrumentsHandler handles instrument endpoints.
type InstrumentsHandler struct {
	Service *service.Service
	Logger  *zap.Logger
}

type deleteInstrumentRequest struct {
	Confirm string `json:"confirm"`
	Cascade bool   `json:"cascade"`
}

func filterFromQuery(r *http.Request) model.InstrumentFilter {
	q := r.URL.Query()
	return model.InstrumentFilter{
		Group:      q.Get("group"),
		Researcher: q.Get("researcher"),
		Name:       q.Get("name"),
	}
}

// readInstrument decodes instrument fields from a JSON body, or from a
// multipart form whose optional "photo" part is returned as the upload.
func readInstrument(w http.ResponseWriter, r *http.Request) (model.InstrumentFields, *service.Upload, error) {
	var f model.InstrumentFields

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err := decodeJSON(r, &f)
		return f, nil, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return f, nil, err
	}
	f = model.InstrumentFields{
		Group:           r.FormValue("group"),
		Responsible:     r.FormValue("responsible"),
		Researcher:      r.FormValue("researcher"),
		Name:            r.FormValue("name"),
		InventoryNumber: r.FormValue("inventory_number"),
		UsagePolicy:     r.FormValue("usage_policy"),
		Status:          r.FormValue("status"),
		Location:        r.FormValue("location"),
		Description:     r.FormValue("description"),
	}

	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return f, nil, nil
	}
	if err != nil {
		return f, nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return f, nil, err
	}
	return f, &service.Upload{Name: header.Filename, Data: data}, nil
}

// List handles GET /api/instruments.
func (h *InstrumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.Service.ListInstruments(r.Context(), filterFromQuery(r))
	if err != nil {
		serviceError(w, h.Logger, err, "failed to list instruments")
		return
	}

	views := make([]instrumentView, 0, len(instruments))
	for i := range instruments {
		views = append(views, newInstrumentView(&instruments[i]))
	}
	jsonResponse(w, h.Logger, http.StatusOK, views)
}

// Create handles POST /api/instruments.
func (h *InstrumentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, upload, err := readInstrument(w, r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inst, err := h.Service.CreateInstrument(r.Context(), f, upload)
	if err != nil {
		serviceError(w, h.Logger, err, "failed to create instrument")
		return
	}
	jsonResponse(w, h.Logger, http.StatusCreated, newInstrumentView(inst))
}

// Get handles GET /api/instruments/{id}.
func (h *InstrumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid instrument id")
		return
	}

	detail, err := h.Service.GetInstrument(r.Context(), id)
	if err != nil {
		serviceError(w, h.Logger, err, "failed to get instrument")
		return
	}
	if detail == nil {
		jsonError(w, http.StatusNotFound, "instrument not found")
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, newInstrumentDetailView(detail))
}

// Update handles PUT /api/instruments/{id}. Unknown IDs are a no-op and
// answer 204.
func (h *InstrumentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid instrument id")
		return
	}

	f, upload, err := readInstrument(w, r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inst, err := h.Service.UpdateInstrument(r.Context(), id, f, upload)
	if err != nil {
		serviceError(w, h.Logger, err, "failed to update instrument")
		return
	}
	if inst == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, newInstrumentView(inst))
}

// Delete handles DELETE /api/instruments/{id}.
func (h *InstrumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid instrument id")
		return
	}

	var req deleteInstrumentRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.Service.DeleteInstrument(r.Context(), id, service.DeleteOptions{
		Cascade:      req.Cascade,
		Confirmation: req.Confirm,
	})
	if err != nil {
		serviceError(w, h.Logger, err, "failed to delete instrument")
		return
	}
	jsonResponse(w, h.Logger, http.StatusOK, map[string]string{"message": "instrument deleted"})
}

// Photo handles GET /api/instruments/{id}/photo. With ?thumb=1 a JPEG
// thumbnail is served instead of the stored file.
func (h *InstrumentsHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid instrument id")
		return
	}

	rc, path, err := h.Service.OpenPhoto(r.Context(), id)
	if err != nil {
		serviceError(w, h.Logger, err, "failed to open photo")
		return
	}
	if rc == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}
	defer rc.Close()

	if thumb := r.URL.Query().Get("thumb"); thumb != "" && thumb != "0" {
		data, err := imaging.Thumbnail(rc, imaging.DefaultThumbnailSize)
		if err != nil {
			h.Logger.Warn("rendering thumbnail", zap.Int64("id", id), zap.Error(err))
			jsonError(w, http.StatusUnprocessableEntity, "photo cannot be previewed")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(data)
		return
	}

	w.Header().Set("Content-Type", photos.ContentType(path))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	io.Copy(w, rc)
}

// Export handles GET /api/instruments/export.
func (h *InstrumentsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	instruments, err := h.Service.ListInstruments(r.Context(), filterFromQuery(r))
	if err != nil {
		serviceError(w, h.Logger, err, "failed to list instruments")
		return
	}

	var buf bytes.Buffer
	if err := export.Instruments(&buf, format, instruments); err != nil {
		serviceError(w, h.Logger, err, "failed to export instruments")
		return
	}
	writeAttachment(w, format, "instrumentos", buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, format export.Format, base string, data []byte) {
	name := fmt.Sprintf("%s_%s%s", base, time.Now().Format("2006-01-02"), format.Ext())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
