package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"weather-average-service/internal/client"
	"weather-average-service/internal/lifecycle"
	"weather-average-service/internal/models"
	"weather-average-service/internal/service"
	"weather-average-service/internal/validation"
)

// AverageProvider is the service-layer capability the handlers depend on.
type AverageProvider interface {
	GetAverage(ctx context.Context, city, country string, days int) (models.AverageWeather, error)
}

// HealthConfig holds the dependencies the health handler probes.
type HealthConfig struct {
	// CacheBackend names the selected backend (memory, redis, memcached).
	CacheBackend string
	// CachePing, when set, is called to check shared-cache reachability.
	CachePing func(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	averages     AverageProvider
	healthConfig *HealthConfig
	logger       *zap.Logger
	cityMaxLen   int
}

// NewHandler returns a new Handler. cityMaxLen bounds the city query
// parameter; 0 uses a sane default.
func NewHandler(averages AverageProvider, healthConfig *HealthConfig, logger *zap.Logger, cityMaxLen int) *Handler {
	if cityMaxLen <= 0 {
		cityMaxLen = 100
	}
	return &Handler{
		averages:     averages,
		healthConfig: healthConfig,
		logger:       logger,
		cityMaxLen:   cityMaxLen,
	}
}

// GetAverageWeather handles GET /weather/average?city=..&days=..&country=..
func (h *Handler) GetAverageWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	city, err := validation.ValidateCity(q.Get("city"), h.cityMaxLen)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}

	days, err := strconv.Atoi(q.Get("days"))
	if err != nil || days < 1 {
		writeError(w, r, http.StatusBadRequest, "INVALID_DAYS", "'days' must be a positive integer")
		return
	}

	country, err := validation.ValidateCountry(q.Get("country"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COUNTRY", err.Error())
		return
	}

	result, err := h.averages.GetAverage(r.Context(), city, country, days)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeLookupError translates service and client errors to the wire.
// Upstream detail is never leaked; it is only logged at debug level.
func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDays):
		writeError(w, r, http.StatusUnprocessableEntity, "DAYS_LIMIT_EXCEEDED", err.Error())
	case errors.Is(err, client.ErrCityNotFound):
		writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", "no match for the requested city")
	case errors.Is(err, client.ErrNoData):
		writeError(w, r, http.StatusNotFound, "NO_DATA", "no temperature data for the requested window")
	default:
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "upstream weather provider error")
		if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
			logger.Debug("upstream error", zap.Error(err))
		}
	}
}

// GetHealth handles GET /healthz.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	statusCode := http.StatusOK
	if lifecycle.IsShuttingDown() {
		status = "shutting-down"
		statusCode = http.StatusServiceUnavailable
	}

	checks := make(map[string]string)
	if h.healthConfig != nil {
		checks["cache"] = h.healthConfig.CacheBackend
		if h.healthConfig.CachePing != nil {
			pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			if h.healthConfig.CachePing(pingCtx) == nil {
				checks["cache"] = "healthy"
			} else {
				checks["cache"] = "unhealthy"
			}
			cancel()
		}
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "weather-average-service",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with
// code, message, and requestId (correlation ID) if available in context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
