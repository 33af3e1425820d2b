package detection

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"travelwatch/models"

	"github.com/rs/zerolog"
)

// DetectionHandlers exposes the detection service over HTTP
type DetectionHandlers struct {
	Service *DetectionService
	logger  zerolog.Logger
}

// NewDetectionHandlers creates new detection HTTP handlers
func NewDetectionHandlers(service *DetectionService, logger zerolog.Logger) *DetectionHandlers {
	return &DetectionHandlers{Service: service, logger: logger}
}

// Analyze handles GET /analyze. The login event arrives pipe-separated in a
// single query parameter, the format the SIEM integration sends:
//
//	/analyze?query=user%3Dtest%40example.com%7Cip%3D102.78.106.220%7Cts%3D2025-12-10T10%3A17%3A54
func (h *DetectionHandlers) Analyze(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("query")
	if raw == "" {
		writeError(w, http.StatusBadRequest,
			"Missing required parameter: query. Expected format: user=email|ip=1.2.3.4|ts=2025-12-10T10:17:54")
		return
	}

	params := parsePipeQuery(raw)
	user := params["user"]
	ip := params["ip"]
	ts := params["ts"]

	var missing []string
	if user == "" {
		missing = append(missing, "user")
	}
	if ip == "" {
		missing = append(missing, "ip")
	}
	if ts == "" {
		missing = append(missing, "ts")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf(
			"Missing required parameters: %s. Expected format: user=email|ip=1.2.3.4|ts=2025-12-10T10:17:54",
			strings.Join(missing, ", ")))
		return
	}

	verdict, err := h.Service.Analyze(r.Context(), user, ip, ts)
	if err != nil {
		h.logger.Error().Err(err).Str("user", user).Msg("analysis failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, verdict)
}

// parsePipeQuery splits a "user=X|ip=Y|ts=Z" payload into its parameters.
// The net/http query layer has already URL-decoded the value.
func parsePipeQuery(raw string) map[string]string {
	params := make(map[string]string)
	for _, param := range strings.Split(raw, "|") {
		if key, value, found := strings.Cut(param, "="); found {
			params[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return params
}

// Purge handles POST /purge: deletes all login history records
func (h *DetectionHandlers) Purge(w http.ResponseWriter, r *http.Request) {
	count, err := h.Service.Purge(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("purge failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, models.PurgeResponse{
		Success:        true,
		Message:        fmt.Sprintf("Successfully purged %d records from database", count),
		RecordsDeleted: count,
	})
}

// Stats handles GET /stats
func (h *DetectionHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("stats query failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Health handles GET /health
func (h *DetectionHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "impossible-travel-detection",
	})
}

// Root handles GET / with service information
func (h *DetectionHandlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Impossible Travel Detection API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"analyze": "/analyze?query=user=email|ip=1.2.3.4|ts=2025-12-10T10:17:54",
			"purge":   "/purge (POST)",
			"stats":   "/stats",
			"health":  "/health",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
