package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/emicklei/go-restful/v3"

	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
	"github.com/Aman-CERP/titlesearch/internal/lexical"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
)

// summaryJobs is how many highest- and lowest-risk jobs /api/stats lists.
const summaryJobs = 5

// Handler serves the job-title endpoints.
type Handler struct {
	engine  *search.Engine
	metrics *telemetry.QueryMetrics
	logger  *slog.Logger
}

// NewHandler creates a handler. metrics may be nil.
func NewHandler(engine *search.Engine, metrics *telemetry.QueryMetrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, metrics: metrics, logger: logger}
}

// Search handles POST /api/job-search.
func (h *Handler) Search(req *restful.Request, resp *restful.Response) {
	var body SearchRequest
	if err := req.ReadEntity(&body); err != nil {
		h.logger.Warn("invalid search request", slog.String("error", err.Error()))
		writeError(resp, readStatus(err), err)
		return
	}
	h.search(req, resp, body)
}

// SearchQuery handles GET /api/job-search?q=.
func (h *Handler) SearchQuery(req *restful.Request, resp *restful.Response) {
	body := SearchRequest{Query: req.QueryParameter("q")}
	if s := req.QueryParameter("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(resp, http.StatusBadRequest, tserrors.New(tserrors.ErrCodeInvalidQuery, "limit must be an integer", err))
			return
		}
		body.Limit = n
	}
	if s := req.QueryParameter("fuzzy_threshold"); s != "" {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil {
			writeError(resp, http.StatusBadRequest, tserrors.New(tserrors.ErrCodeInvalidQuery, "fuzzy_threshold must be a number", err))
			return
		}
		body.FuzzyThreshold = &t
	}
	h.search(req, resp, body)
}

func (h *Handler) search(req *restful.Request, resp *restful.Response, body SearchRequest) {
	if body.FuzzyThreshold != nil && !search.ThresholdInRange(*body.FuzzyThreshold) {
		writeError(resp, http.StatusBadRequest, tserrors.New(tserrors.ErrCodeInvalidQuery, "fuzzy_threshold must be between 0 and 100", nil))
		return
	}
	if utf8.RuneCountInString(body.Query) > lexical.MaxQueryLength {
		writeError(resp, http.StatusBadRequest, tserrors.New(tserrors.ErrCodeInvalidQuery,
			fmt.Sprintf("query must be at most %d characters", lexical.MaxQueryLength), nil))
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(body.Query)) < lexical.MinQueryLength {
		_ = resp.WriteHeaderAndEntity(http.StatusOK, SearchResponse{Suggestions: []*search.Result{}})
		return
	}

	results, err := h.engine.Search(req.Request.Context(), body.Query, search.Options{
		Limit:          body.Limit,
		FuzzyThreshold: body.FuzzyThreshold,
	})
	if err != nil {
		h.logger.Error("search failed", tserrors.LogAttrs(err)...)
		writeError(resp, http.StatusInternalServerError, err)
		return
	}

	total := len(results)
	_ = resp.WriteHeaderAndEntity(http.StatusOK, SearchResponse{Suggestions: results, TotalMatches: &total})
}

// Lookup handles POST /api/job-lookup.
func (h *Handler) Lookup(req *restful.Request, resp *restful.Response) {
	var body LookupRequest
	if err := req.ReadEntity(&body); err != nil {
		writeError(resp, readStatus(err), err)
		return
	}
	if strings.TrimSpace(body.JobTitle) == "" {
		writeError(resp, http.StatusBadRequest, tserrors.New(tserrors.ErrCodeInvalidQuery, "job_title is required", nil))
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, h.engine.Lookup(body.JobTitle, body.Industry))
}

// Health handles GET /api/health.
func (h *Handler) Health(_ *restful.Request, resp *restful.Response) {
	st := h.engine.Status()
	status := "ok"
	if !st.SemanticAvailable {
		status = "degraded"
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:   status,
		Jobs:     st.Jobs,
		Semantic: st.SemanticAvailable,
		Model:    st.Model,
		Reason:   st.Reason,
	})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(_ *restful.Request, resp *restful.Response) {
	snap := h.engine.Snapshot()
	out := StatsResponse{
		Corpus: snap.Corpus().Summary(summaryJobs),
		Index:  snap.Status(),
	}
	if h.metrics != nil {
		out.Queries = h.metrics.Snapshot()
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, out)
}

// readStatus maps a body decoding error to 413 when the body limit was hit
// and 400 otherwise.
func readStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeError(resp *restful.Response, status int, err error) {
	_ = resp.WriteHeaderAndEntity(status, ErrorResponse{Error: err.Error(), Code: tserrors.GetCode(err)})
}
