package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
	cataloguc "github.com/kailas-cloud/schemedex/internal/usecase/catalog"
	explainuc "github.com/kailas-cloud/schemedex/internal/usecase/explain"
	healthuc "github.com/kailas-cloud/schemedex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/schemedex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/schemedex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/schemedex/internal/usecase/usage"
)

// ErrorCode classifies API errors for clients.
type ErrorCode string

const (
	CodeBadRequest              ErrorCode = "bad_request"
	CodeValidationFailed        ErrorCode = "validation_failed"
	CodeNotFound                ErrorCode = "not_found"
	CodeIndexNotReady           ErrorCode = "index_not_ready"
	CodeBuildInProgress         ErrorCode = "build_in_progress"
	CodeCorruptIndex            ErrorCode = "corrupt_index"
	CodeDimensionMismatch       ErrorCode = "dimension_mismatch"
	CodeEmbeddingQuotaExceeded  ErrorCode = "embedding_quota_exceeded"
	CodeEmbeddingProviderError  ErrorCode = "embedding_provider_error"
	CodeGenerationProviderError ErrorCode = "generation_provider_error"
	CodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the scheme retrieval API over chi.
type Server struct {
	ingest        *ingestuc.Service
	search        *searchuc.Service
	explain       *explainuc.Service
	catalog       *cataloguc.Service
	health        *healthuc.Service
	usage         *usageuc.Service
	csvPath       string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. csvPath is the active dataset
// served by GET /csv.
func NewServer(
	ingest *ingestuc.Service,
	search *searchuc.Service,
	explain *explainuc.Service,
	catalog *cataloguc.Service,
	health *healthuc.Service,
	usage *usageuc.Service,
	csvPath string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:  ingest,
		search:  search,
		explain: explain,
		catalog: catalog,
		health:  health,
		usage:   usage,
		csvPath: csvPath,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrIndexNotReady, http.StatusServiceUnavailable, CodeIndexNotReady),
		sentinelHandler(domain.ErrBuildInProgress, http.StatusConflict, CodeBuildInProgress),
		sentinelHandler(domain.ErrCorruptIndex, http.StatusInternalServerError, CodeCorruptIndex),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusInternalServerError, CodeDimensionMismatch),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, CodeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, CodeGenerationProviderError),
	}
	return s
}

// Register mounts all API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/ingest", s.Ingest)
	r.Post("/query", s.Query)
	r.Post("/explain", s.Explain)
	r.Post("/resolve_url", s.ResolveURL)
	r.Post("/enrich", s.Enrich)
	r.Post("/chat", s.Chat)
	r.Get("/stats", s.Stats)
	r.Get("/usage", s.Usage)
	r.Get("/csv", s.CSV)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// IngestRequest triggers an index build.
type IngestRequest struct {
	CSVPath      string `json:"csv_path"`
	ForceRebuild bool   `json:"force_rebuild"`
}

// IngestResponse reports a completed (or skipped) build.
type IngestResponse struct {
	Status             string            `json:"status"`
	DocumentsProcessed int               `json:"documents_processed"`
	Rebuilt            bool              `json:"rebuilt"`
	Stats              domain.IndexStats `json:"stats"`
}

// Ingest handles POST /ingest.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.CSVPath == "" {
		req.CSVPath = s.csvPath
	}
	if req.CSVPath == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "csv_path is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.ingest.BuildIndex(ctx, req.CSVPath, req.ForceRebuild)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	// A rebuild means the dataset on disk may have changed; drop the
	// cached catalog rows so the non-vector endpoints reload them.
	if res.Rebuilt && s.catalog != nil {
		s.catalog.Invalidate(req.CSVPath)
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, IngestResponse{
		Status:             "success",
		DocumentsProcessed: res.DocumentsProcessed,
		Rebuilt:            res.Rebuilt,
		Stats:              res.Stats,
	})
}

// QueryRequest is a top-k retrieval request.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// QueryResponse carries ranked results.
type QueryResponse struct {
	Results      []domain.SearchResult `json:"results"`
	TotalResults int                   `json:"total_results"`
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, QueryResponse{
		Results:      results,
		TotalResults: len(results),
	})
}

// ExplainRequest asks a question about one scheme.
type ExplainRequest struct {
	SchemeQuery string `json:"scheme_query"`
	Question    string `json:"question"`
	CSVPath     string `json:"csv_path,omitempty"`
}

// Explain handles POST /explain.
func (s *Server) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.explain.Explain(r.Context(), req.SchemeQuery, req.Question, req.CSVPath)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResolveURLRequest asks for a scheme's application URL.
type ResolveURLRequest struct {
	SchemeQuery string `json:"scheme_query"`
	CSVPath     string `json:"csv_path,omitempty"`
}

// ResolveURL handles POST /resolve_url.
func (s *Server) ResolveURL(w http.ResponseWriter, r *http.Request) {
	var req ResolveURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.explain.ResolveURL(r.Context(), req.SchemeQuery, req.CSVPath)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EnrichRequest asks for short descriptions of several schemes.
type EnrichRequest struct {
	Schemes []explainuc.EnrichItem `json:"schemes"`
	CSVPath string                 `json:"csv_path,omitempty"`
}

// EnrichResponse carries the enriched schemes.
type EnrichResponse struct {
	Schemes []explainuc.EnrichedScheme `json:"schemes"`
}

// Enrich handles POST /enrich.
func (s *Server) Enrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	out, err := s.explain.Enrich(r.Context(), req.Schemes, req.CSVPath)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EnrichResponse{Schemes: out})
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req explainuc.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.explain.Chat(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ingest.Stats()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Usage handles GET /usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period := usageuc.PeriodMonth
	switch r.URL.Query().Get("period") {
	case "day":
		period = usageuc.PeriodDay
	case "total":
		period = usageuc.PeriodTotal
	}
	writeJSON(w, http.StatusOK, s.usage.GetReport(r.Context(), period))
}

// CSV handles GET /csv: serves the active dataset file.
func (s *Server) CSV(w http.ResponseWriter, r *http.Request) {
	if s.csvPath == "" {
		writeError(w, http.StatusNotFound, CodeNotFound, "no dataset configured")
		return
	}
	if _, err := os.Stat(s.csvPath); err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "dataset file not found")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, s.csvPath)
}

// HealthResponse is the aggregated health report.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrInvalidQuery,
		domain.ErrNotFound,
		domain.ErrIndexNotReady,
		domain.ErrBuildInProgress,
		domain.ErrCorruptIndex,
		domain.ErrDimensionMismatch,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
