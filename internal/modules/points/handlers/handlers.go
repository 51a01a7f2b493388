// Package handlers provides HTTP handlers for activity points queries and sync control.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/strideapp/stride/internal/modules/points"
)

// Handler handles points HTTP requests
type Handler struct {
	service *points.Service
	log     zerolog.Logger
}

// NewHandler creates a new points handler
func NewHandler(service *points.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "points").Logger(),
	}
}

// RegisterRoutes registers all points routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/points", func(r chi.Router) {
		r.Get("/range", h.HandleGetRange)
		r.Get("/week", h.HandleGetWeek)
		r.Get("/calendar/{year}/{month}", h.HandleGetMonth)
	})
	r.Route("/sync", func(r chi.Router) {
		r.Post("/", h.HandleTriggerSync)
		r.Get("/status", h.HandleSyncStatus)
	})
}

// HandleGetRange handles GET /api/points/range?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) HandleGetRange(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.service.GetPointsForRange(start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get points range")
		h.writeError(w, http.StatusInternalServerError, "failed to load points range")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"start": points.DayKey(start),
		"end":   points.DayKey(end),
		"days":  records,
	})
}

// HandleGetWeek handles GET /api/points/week
// An optional ?date=YYYY-MM-DD selects the week containing that date.
func (h *Handler) HandleGetWeek(w http.ResponseWriter, r *http.Request) {
	ref := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(points.DateFormat, raw, time.Local)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid date parameter (expected YYYY-MM-DD)")
			return
		}
		ref = parsed
	}

	week, err := h.service.GetWeek(ref)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build week summary")
		h.writeError(w, http.StatusInternalServerError, "failed to load week")
		return
	}

	h.writeJSON(w, http.StatusOK, week)
}

// HandleGetMonth handles GET /api/points/calendar/{year}/{month}
func (h *Handler) HandleGetMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2200 {
		h.writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		h.writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	summary, err := h.service.GetMonth(year, time.Month(month))
	if err != nil {
		h.log.Error().Err(err).Int("year", year).Int("month", month).Msg("Failed to build month summary")
		h.writeError(w, http.StatusInternalServerError, "failed to load calendar month")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleTriggerSync handles POST /api/sync
// The sync runs in the background; progress is streamed via /api/events/stream.
func (h *Handler) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	// The run outlives the request, so it must not inherit the request
	// context's cancellation.
	if err := h.service.StartSync(context.WithoutCancel(r.Context())); err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
	})
}

// HandleSyncStatus handles GET /api/sync/status
func (h *Handler) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	running, last := h.service.SyncStatus()

	response := map[string]interface{}{
		"running": running,
	}
	if last != nil {
		response["last_run"] = last
	}

	h.writeJSON(w, http.StatusOK, response)
}

// parseDateParam parses a required YYYY-MM-DD query parameter
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, &paramError{name: name, reason: "missing"}
	}
	parsed, err := time.ParseInLocation(points.DateFormat, raw, time.Local)
	if err != nil {
		return time.Time{}, &paramError{name: name, reason: "expected YYYY-MM-DD"}
	}
	return parsed, nil
}

type paramError struct {
	name   string
	reason string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + e.reason
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
