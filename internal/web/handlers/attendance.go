package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/alerts"
	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/embedding"
	"github.com/facetrace/attendance/internal/logger"
	"github.com/facetrace/attendance/internal/recognize"
)

// AttendanceHandler serves the attendance ledger endpoints.
type AttendanceHandler struct {
	ledger   *attendance.Ledger
	matcher  *recognize.Matcher
	provider embedding.Provider
	detector *alerts.PatternDetector
	log      *zap.SugaredLogger
}

func NewAttendanceHandler(
	ledger *attendance.Ledger,
	matcher *recognize.Matcher,
	provider embedding.Provider,
	detector *alerts.PatternDetector,
	log *zap.SugaredLogger,
) *AttendanceHandler {
	return &AttendanceHandler{
		ledger:   ledger,
		matcher:  matcher,
		provider: provider,
		detector: detector,
		log:      logger.Named(log, "attendance"),
	}
}

// Mark handles POST /attendance/mark: recognize the uploaded image and
// append a present record for the matched identity. The pattern-shift
// check runs in the background after the append commits; it can never
// fail the request.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	data, ok := readImage(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "image file required")
		return
	}

	face, err := h.provider.Extract(r.Context(), data)
	if err == embedding.ErrNoFace {
		respondDomainError(w, err)
		return
	}
	if err != nil {
		h.log.Errorw("embedding extraction failed", logger.FieldError, err)
		respondError(w, http.StatusBadGateway, "embedding extraction failed")
		return
	}

	result, err := h.matcher.Match(face.Embedding)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !result.Recognized {
		respondJSON(w, http.StatusOK, map[string]any{
			"recognized": false,
			"distance":   result.Distance,
		})
		return
	}

	rec, err := h.ledger.Append(result.IdentityID, attendance.StatusPresent, time.Time{}, attendance.SourceAuto)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if h.detector != nil {
		h.detector.CheckShiftAsync(time.Now())
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"recognized": true,
		"record":     rec,
		"distance":   result.Distance,
	})
}

// manualRequest is the JSON body for POST /attendance/manual.
type manualRequest struct {
	IdentityID string `json:"identity_id"`
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp,omitempty"` // RFC 3339; empty means now
}

// Manual handles POST /attendance/manual: an operator-entered record.
func (h *AttendanceHandler) Manual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	var ts time.Time
	if req.Timestamp != "" {
		var err error
		ts, err = time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			respondError(w, http.StatusBadRequest, "timestamp must be RFC 3339")
			return
		}
	}

	rec, err := h.ledger.Append(req.IdentityID, req.Status, ts, attendance.SourceManual)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if h.detector != nil {
		h.detector.CheckShiftAsync(time.Now())
	}

	respondJSON(w, http.StatusCreated, rec)
}

// List handles GET /attendance, newest first.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.List()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// updateRequest is the JSON body for PUT /attendance/{id}. Omitted fields
// keep their stored values.
type updateRequest struct {
	Status    *string `json:"status,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`
}

// Update handles PUT /attendance/{id}.
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Status == nil && req.Timestamp == nil {
		respondError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	fields := attendance.UpdateFields{Status: req.Status}
	if req.Timestamp != nil {
		ts, err := time.Parse(time.RFC3339, *req.Timestamp)
		if err != nil {
			respondError(w, http.StatusBadRequest, "timestamp must be RFC 3339")
			return
		}
		fields.Timestamp = &ts
	}

	rec, err := h.ledger.Update(recordID, fields)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /attendance/{id}.
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")
	if err := h.ledger.Delete(recordID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": recordID})
}

// DeleteAll handles DELETE /attendance. Admin-key protected in routing.
func (h *AttendanceHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	removed, err := h.ledger.DeleteAll()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Dedupe handles POST /attendance/dedupe.
func (h *AttendanceHandler) Dedupe(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.Deduplicate()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Export handles GET /attendance/export: the full ledger as a CSV
// download, newest first.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.List()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	filename := fmt.Sprintf("attendance_%s_%s.csv",
		time.Now().Format("2006-01-02"), uuid.NewString()[:8])
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"record_id", "identity_id", "name", "status", "timestamp", "source"})
	for _, rec := range records {
		_ = cw.Write([]string{
			rec.ID,
			rec.IdentityID,
			rec.Name,
			rec.Status,
			rec.Timestamp.Format(time.RFC3339),
			rec.Source,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.log.Errorw("csv export failed", logger.FieldError, err)
	}
}
