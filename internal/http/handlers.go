package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wangyizhang/eco-weather-service/internal/client"
	"github.com/wangyizhang/eco-weather-service/internal/geo"
	"github.com/wangyizhang/eco-weather-service/internal/lifecycle"
	"github.com/wangyizhang/eco-weather-service/internal/service"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	forecasts *service.ForecastService
	logger    *zap.Logger
	validate  *validator.Validate
	// cachePing, when set, is surfaced in health output. Used with the
	// memcached backend.
	cachePing func() error
}

// NewHandler returns a new Handler. cachePing may be nil.
func NewHandler(forecasts *service.ForecastService, logger *zap.Logger, cachePing func() error) *Handler {
	return &Handler{
		forecasts: forecasts,
		logger:    logger,
		validate:  validator.New(),
		cachePing: cachePing,
	}
}

// weekQuery carries the parsed /api/weather/week parameters. Lat/Lon are
// pointers so validation only applies when coordinates were supplied.
type weekQuery struct {
	City string   `validate:"omitempty,min=1"`
	Lat  *float64 `validate:"omitempty,latitude"`
	Lon  *float64 `validate:"omitempty,longitude"`
}

// GetWeeklyForecast handles GET /api/weather/week?city=… or ?lat=…&lon=….
func (h *Handler) GetWeeklyForecast(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseWeekQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.forecasts.GetWeekly(r.Context(), q)
	if err != nil {
		if errors.Is(err, geo.ErrRegionNotFound) {
			writeError(w, http.StatusBadRequest, "provide a county/city name or coordinates", "")
			return
		}
		h.logServiceError(r, err)
		writeError(w, http.StatusInternalServerError, "unable to fetch weather data", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// parseWeekQuery validates the query string into a geo.Query. Coordinates
// take precedence over the city name when both are present, matching the
// resolution order of the geocoder.
func (h *Handler) parseWeekQuery(r *http.Request) (geo.Query, error) {
	values := r.URL.Query()
	q := weekQuery{City: strings.TrimSpace(values.Get("city"))}

	latStr := strings.TrimSpace(values.Get("lat"))
	lonStr := strings.TrimSpace(values.Get("lon"))
	if latStr != "" || lonStr != "" {
		if latStr == "" || lonStr == "" {
			return geo.Query{}, errors.New("lat and lon must be provided together")
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return geo.Query{}, errors.New("lat must be a decimal degree value")
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return geo.Query{}, errors.New("lon must be a decimal degree value")
		}
		q.Lat, q.Lon = &lat, &lon
	}

	if q.City == "" && q.Lat == nil {
		return geo.Query{}, errors.New("provide a county/city name or coordinates")
	}
	if err := h.validate.Struct(q); err != nil {
		return geo.Query{}, errors.New("coordinates out of range")
	}

	out := geo.Query{City: q.City}
	if q.Lat != nil {
		out.Lat, out.Lon, out.HasCoords = *q.Lat, *q.Lon, true
	}
	return out, nil
}

// GetHealth handles GET /api/health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if lifecycle.IsShuttingDown() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "shutting-down",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	resp := map[string]interface{}{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.cachePing != nil {
		if err := h.cachePing(); err != nil {
			resp["cache"] = "unreachable"
		} else {
			resp["cache"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) logServiceError(r *http.Request, err error) {
	logger := h.logger
	if l, ok := r.Context().Value("logger").(*zap.Logger); ok && l != nil {
		logger = l
	}
	if logger == nil {
		return
	}
	switch {
	case errors.Is(err, client.ErrMalformedPayload):
		logger.Error("malformed upstream payload", zap.Error(err))
	default:
		logger.Error("upstream fetch failed", zap.Error(err))
	}
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the boundary error shape: {"error": msg} plus a details
// field carrying the upstream message when there is one.
func writeError(w http.ResponseWriter, status int, message, details string) {
	body := map[string]string{"error": message}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
