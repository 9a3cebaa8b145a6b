package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"weather-prediction/internal/repository"
	"weather-prediction/internal/services"
	"weather-prediction/pkg/logging"
	"weather-prediction/pkg/metrics"
)

// PredictionHandler handles the prediction API endpoints
type PredictionHandler struct {
	predictionService *services.PredictionService
	repo              repository.WeatherRepository
	logger            *logging.StructuredLogger
	metrics           *metrics.Collector
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(
	predictionService *services.PredictionService,
	repo repository.WeatherRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		repo:              repo,
		logger:            logger,
		metrics:           metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// RootResponse represents the service metadata returned at /
type RootResponse struct {
	Message         string   `json:"message"`
	AvailableCities []string `json:"available_cities"`
	Endpoints       []string `json:"endpoints"`
}

// GetRoot handles GET /
func (h *PredictionHandler) GetRoot(w http.ResponseWriter, r *http.Request) {
	response := RootResponse{
		Message:         "Welcome to the Weather Prediction API",
		AvailableCities: h.predictionService.Cities(),
		Endpoints:       []string{"/predictions", "/predictions/{city}"},
	}

	h.metrics.RecordAPIRequest("/", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetAllPredictions handles GET /predictions
func (h *PredictionHandler) GetAllPredictions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/predictions").Observe(time.Since(startTime).Seconds())
	}()

	snapshots, err := h.predictionService.AllSnapshots(ctx)
	if err != nil {
		h.handleServiceError(ctx, w, r, "/predictions", err)
		return
	}

	h.metrics.RecordAPIRequest("/predictions", "GET", "200")
	h.sendJSON(w, snapshots, http.StatusOK)
}

// GetPrediction handles GET /predictions/{city}
func (h *PredictionHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/predictions/{city}").Observe(time.Since(startTime).Seconds())
	}()

	city := mux.Vars(r)["city"]

	snapshot, err := h.predictionService.CitySnapshot(ctx, city)
	if err != nil {
		h.handleServiceError(ctx, w, r, "/predictions/{city}", err)
		return
	}

	h.metrics.RecordAPIRequest("/predictions/{city}", "GET", "200")
	h.sendJSON(w, snapshot, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *PredictionHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.repo.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_FAILED] Store unreachable", logging.Fields{}, err)
		h.sendError(w, r, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.sendJSON(w, status, http.StatusOK)
}

// handleServiceError maps the service error taxonomy onto HTTP statuses:
// unknown city and missing data are 404s, upstream fetch failure is a 503.
func (h *PredictionHandler) handleServiceError(ctx context.Context, w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var unknownCity *services.UnknownCityError
	var upstream *services.UpstreamError
	var noData *services.NoDataError
	var notFound *repository.NotFoundError

	switch {
	case errors.As(err, &unknownCity):
		h.metrics.RecordAPIError("unknown_city", endpoint)
		h.sendError(w, r, unknownCity.Error(), http.StatusNotFound)

	case errors.As(err, &upstream):
		h.metrics.RecordAPIError("upstream_unavailable", endpoint)
		h.sendError(w, r, upstream.Error(), http.StatusServiceUnavailable)

	case errors.As(err, &notFound):
		h.metrics.RecordAPIError("no_prediction", endpoint)
		h.sendError(w, r, "no prediction available for "+notFound.ID, http.StatusNotFound)

	case errors.As(err, &noData):
		h.metrics.RecordAPIError("no_data", endpoint)
		h.sendError(w, r, noData.Error(), http.StatusNotFound)

	default:
		h.logger.Error(ctx, "[API_ERROR] Unexpected failure", logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "internal server error", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *PredictionHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *PredictionHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all prediction API routes
func (h *PredictionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.GetRoot).Methods("GET")
	router.HandleFunc("/predictions", h.GetAllPredictions).Methods("GET")
	router.HandleFunc("/predictions/{city}", h.GetPrediction).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
