package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/strideapp/stride/internal/clients/garmin"
	"github.com/strideapp/stride/internal/database"
)

// SystemHandlers handles system monitoring endpoints.
type SystemHandlers struct {
	log          zerolog.Logger
	activityDB   *database.DB
	garminClient *garmin.Client
	startTime    time.Time
}

// NewSystemHandlers creates system monitoring handlers.
func NewSystemHandlers(log zerolog.Logger, activityDB *database.DB, garminClient *garmin.Client) *SystemHandlers {
	return &SystemHandlers{
		log:          log.With().Str("component", "system_handlers").Logger(),
		activityDB:   activityDB,
		garminClient: garminClient,
		startTime:    time.Now(),
	}
}

// HandleSystemHealth handles GET /api/system/health
func (h *SystemHandlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
	}

	// Database integrity
	dbStatus := "healthy"
	if err := h.activityDB.QuickCheck(ctx); err != nil {
		h.log.Error().Err(err).Msg("Database health check failed")
		dbStatus = "unhealthy"
		health["status"] = "degraded"
	}
	health["database"] = dbStatus

	// CPU usage (sampled over a short window)
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		health["cpu_percent"] = cpuPercent[0]
	}

	// Memory usage
	if vmStat, err := mem.VirtualMemory(); err == nil {
		health["memory_percent"] = vmStat.UsedPercent
		health["memory_used_mb"] = vmStat.Used / 1024 / 1024
	}

	h.respondJSON(w, http.StatusOK, health)
}

// HandleGarminStatus handles GET /api/system/garmin
func (h *SystemHandlers) HandleGarminStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	connected := h.garminClient.IsConnected(ctx)

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected":  connected,
		"checked_at": time.Now().Format(time.RFC3339),
	})
}

// respondJSON writes a JSON response.
func (h *SystemHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
