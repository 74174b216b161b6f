package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"solar-telemetry-platform/internal/models"
	"solar-telemetry-platform/internal/repository"
	"solar-telemetry-platform/internal/services"
	"solar-telemetry-platform/pkg/dateparse"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
	"solar-telemetry-platform/pkg/spreadsheet"
)

// TelemetryHandler handles the telemetry API endpoints for both data
// streams. The stream is a path variable: /api/weather/... and
// /api/meter/... share handlers.
type TelemetryHandler struct {
	pipeline       *services.BatchPipeline
	summaryService *services.SummaryService
	weatherRepo    repository.WeatherRepository
	meterRepo      repository.MeterRepository
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
	maxFileBytes   int64
}

// NewTelemetryHandler creates a new telemetry handler.
func NewTelemetryHandler(
	pipeline *services.BatchPipeline,
	summaryService *services.SummaryService,
	weatherRepo repository.WeatherRepository,
	meterRepo repository.MeterRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	maxFileBytes int64,
) *TelemetryHandler {
	return &TelemetryHandler{
		pipeline:       pipeline,
		summaryService: summaryService,
		weatherRepo:    weatherRepo,
		meterRepo:      meterRepo,
		logger:         logger,
		metrics:        metricsCollector,
		maxFileBytes:   maxFileBytes,
	}
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// rowsRequest is the JSON body for validate and submit calls.
type rowsRequest struct {
	Rows []models.Row `json:"rows"`
}

func batchKind(r *http.Request) services.BatchKind {
	if mux.Vars(r)["stream"] == "meter" {
		return services.KindMeter
	}
	return services.KindWeather
}

// UploadBatch handles POST /api/{stream}/upload. It parses the multipart
// spreadsheet, validates the batch, and returns the full result: every
// row (normalized, and enriched for meter batches) plus the defect list.
func (h *TelemetryHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stream := mux.Vars(r)["stream"]
	endpoint := fmt.Sprintf("/api/%s/upload", stream)
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes)
	if err := r.ParseMultipartForm(h.maxFileBytes); err != nil {
		h.metrics.UploadedFilesTotal.WithLabelValues(stream, "rejected").Inc()
		h.sendError(w, r, "file too large or malformed multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.metrics.UploadedFilesTotal.WithLabelValues(stream, "rejected").Inc()
		h.sendError(w, r, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	h.metrics.UploadFileBytes.Observe(float64(header.Size))

	rows, err := spreadsheet.Parse(file)
	if err != nil {
		h.logger.Error(ctx, "[API_UPLOAD_PARSE_ERROR] Spreadsheet parse failed", logging.Fields{
			"stream":   stream,
			"filename": header.Filename,
		}, err)
		h.metrics.UploadedFilesTotal.WithLabelValues(stream, "rejected").Inc()
		h.sendError(w, r, "could not parse spreadsheet", http.StatusUnprocessableEntity)
		return
	}
	h.metrics.UploadedFilesTotal.WithLabelValues(stream, "parsed").Inc()

	batch := h.pipeline.NewBatch(batchKind(r), rows)
	result, err := h.pipeline.Validate(ctx, batch)
	if err != nil {
		h.logger.Error(ctx, "[API_UPLOAD_VALIDATE_ERROR] Batch validation failed", logging.Fields{
			"stream":    stream,
			"row_count": len(rows),
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "validation failed", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "POST", "200")
	h.sendJSON(w, result, http.StatusOK)
}

// ValidateBatch handles POST /api/{stream}/validate over a JSON row set,
// the re-validation path after client-side edits.
func (h *TelemetryHandler) ValidateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stream := mux.Vars(r)["stream"]
	endpoint := fmt.Sprintf("/api/%s/validate", stream)
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var req rowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid JSON body, expected {\"rows\": [...]}", http.StatusBadRequest)
		return
	}

	batch := h.pipeline.NewBatch(batchKind(r), req.Rows)
	result, err := h.pipeline.Validate(ctx, batch)
	if err != nil {
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "validation failed", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "POST", "200")
	h.sendJSON(w, result, http.StatusOK)
}

// SubmitBatch handles POST /api/{stream}/submit. The rows are validated
// server-side immediately before persisting so submitted derived fields
// can never be stale; a batch that fails validation comes back 422 with
// the defect list instead of being persisted.
func (h *TelemetryHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stream := mux.Vars(r)["stream"]
	endpoint := fmt.Sprintf("/api/%s/submit", stream)
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var req rowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid JSON body, expected {\"rows\": [...]}", http.StatusBadRequest)
		return
	}

	batch := h.pipeline.NewBatch(batchKind(r), req.Rows)
	validation, err := h.pipeline.Validate(ctx, batch)
	if err != nil {
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "validation failed", http.StatusInternalServerError)
		return
	}

	result, err := h.pipeline.Submit(ctx, batch)
	if err != nil {
		if errors.Is(err, services.ErrBatchInvalid) {
			h.metrics.RecordAPIRequest(endpoint, "POST", "422")
			h.sendJSON(w, validation, http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error(ctx, "[API_SUBMIT_ERROR] Batch submission failed", logging.Fields{
			"stream":    stream,
			"row_count": len(req.Rows),
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "submission failed", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "POST", "200")
	h.sendJSON(w, result, http.StatusOK)
}

// ErrorReport handles POST /api/{stream}/error-report, returning the
// defective rows of a batch as a downloadable spreadsheet.
func (h *TelemetryHandler) ErrorReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stream := mux.Vars(r)["stream"]
	endpoint := fmt.Sprintf("/api/%s/error-report", stream)

	var req rowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid JSON body, expected {\"rows\": [...]}", http.StatusBadRequest)
		return
	}

	batch := h.pipeline.NewBatch(batchKind(r), req.Rows)
	result, err := h.pipeline.Validate(ctx, batch)
	if err != nil {
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "validation failed", http.StatusInternalServerError)
		return
	}

	report, err := spreadsheet.WriteErrorReport(result.Rows, result.Errors)
	if err != nil {
		h.logger.Error(ctx, "[API_ERROR_REPORT] Failed to build error report", logging.Fields{
			"stream": stream,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "failed to build error report", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "POST", "200")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-errors.xlsx", stream))
	w.WriteHeader(http.StatusOK)
	w.Write(report)
}

// GetWeatherSamples handles GET /api/weather.
func (h *TelemetryHandler) GetWeatherSamples(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/weather").Observe(time.Since(startTime).Seconds())
	}()

	page, limit := pagination(r)
	filter := repository.SampleFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if site := r.URL.Query().Get("site"); site != "" {
		filter.SiteName = &site
	}
	if date := r.URL.Query().Get("date"); date != "" {
		filter.Date = &date
	}

	samples, total, err := h.weatherRepo.GetSamples(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_SAMPLES_ERROR] Failed to get weather samples", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/weather")
		h.sendError(w, r, "failed to retrieve weather samples", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/weather", "GET", "200")
	h.sendJSON(w, paginate(samples, total, page, limit), http.StatusOK)
}

// DeleteWeatherSamples handles DELETE /api/weather, the explicit bulk
// delete path. It requires site and date and removes every sample for
// that date regardless of which dialect the date was given in.
func (h *TelemetryHandler) DeleteWeatherSamples(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	site := r.URL.Query().Get("site")
	date := r.URL.Query().Get("date")
	if site == "" || date == "" {
		h.sendError(w, r, "site and date query parameters are required", http.StatusBadRequest)
		return
	}

	deleted, err := h.weatherRepo.DeleteSamplesByDates(ctx, site, dateparse.DateVariants(date))
	if err != nil {
		h.metrics.RecordAPIError("internal_error", "/api/weather")
		h.sendError(w, r, "failed to delete weather samples", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/weather", "DELETE", "200")
	h.sendJSON(w, map[string]int64{"deleted": deleted}, http.StatusOK)
}

// GetMeterRecords handles GET /api/meter.
func (h *TelemetryHandler) GetMeterRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/meter").Observe(time.Since(startTime).Seconds())
	}()

	page, limit := pagination(r)
	filter := repository.RecordFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if site := r.URL.Query().Get("site"); site != "" {
		filter.SiteName = &site
	}
	if date := r.URL.Query().Get("date"); date != "" {
		filter.Date = &date
	}

	records, total, err := h.meterRepo.GetRecords(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_RECORDS_ERROR] Failed to get meter records", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/meter")
		h.sendError(w, r, "failed to retrieve meter records", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/meter", "GET", "200")
	h.sendJSON(w, paginate(records, total, page, limit), http.StatusOK)
}

// GetSummaries handles GET /api/summaries.
func (h *TelemetryHandler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit := pagination(r)
	filter := repository.SummaryFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if site := r.URL.Query().Get("site"); site != "" {
		filter.SiteName = &site
	}
	if month := r.URL.Query().Get("month"); month != "" {
		filter.Month = &month
	}

	summaries, total, err := h.summaryService.GetSummaries(ctx, filter)
	if err != nil {
		h.metrics.RecordAPIError("internal_error", "/api/summaries")
		h.sendError(w, r, "failed to retrieve summaries", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/summaries", "GET", "200")
	h.sendJSON(w, paginate(summaries, total, page, limit), http.StatusOK)
}

// RecalculateSummaries handles POST /api/summaries/recalculate.
func (h *TelemetryHandler) RecalculateSummaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.summaryService.RecalculateAll(ctx); err != nil {
		h.metrics.RecordAPIError("internal_error", "/api/summaries/recalculate")
		h.sendError(w, r, "failed to recalculate summaries", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/summaries/recalculate", "POST", "200")
	h.sendJSON(w, map[string]string{"status": "recalculated"}, http.StatusOK)
}

// HealthCheck handles GET /health.
func (h *TelemetryHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.weatherRepo.HealthCheck(ctx); err != nil {
		h.sendJSON(w, map[string]string{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

func pagination(r *http.Request) (page, limit int) {
	page, limit = 1, 100
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}
	return page, limit
}

func paginate(data interface{}, total, page, limit int) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

func (h *TelemetryHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *TelemetryHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	h.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// RegisterRoutes registers all telemetry API routes.
func (h *TelemetryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/{stream:weather|meter}/upload", h.UploadBatch).Methods("POST")
	router.HandleFunc("/api/{stream:weather|meter}/validate", h.ValidateBatch).Methods("POST")
	router.HandleFunc("/api/{stream:weather|meter}/submit", h.SubmitBatch).Methods("POST")
	router.HandleFunc("/api/{stream:weather|meter}/error-report", h.ErrorReport).Methods("POST")

	router.HandleFunc("/api/weather", h.GetWeatherSamples).Methods("GET")
	router.HandleFunc("/api/weather", h.DeleteWeatherSamples).Methods("DELETE")
	router.HandleFunc("/api/meter", h.GetMeterRecords).Methods("GET")

	router.HandleFunc("/api/summaries", h.GetSummaries).Methods("GET")
	router.HandleFunc("/api/summaries/recalculate", h.RecalculateSummaries).Methods("POST")

	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
