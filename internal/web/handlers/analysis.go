package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/analysis"
	"github.com/facetrace/attendance/internal/logger"
)

// AnalysisHandler serves attendance summary and insight endpoints.
type AnalysisHandler struct {
	analyzer *analysis.Analyzer
	log      *zap.SugaredLogger
}

func NewAnalysisHandler(analyzer *analysis.Analyzer, log *zap.SugaredLogger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		log:      logger.Named(log, "analysis"),
	}
}

// windowDays parses the days query parameter, defaulting to 7. Bounds are
// enforced by the analyzer.
func windowDays(r *http.Request) int {
	if s := r.URL.Query().Get("days"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 7
}

// Summary handles GET /analysis/summary?days=N.
func (h *AnalysisHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.analyzer.Summary(windowDays(r), time.Now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

// Insights handles GET /analysis/insights?days=N&explain=true. The
// explain flag requests an AI narrative; without it (or without a
// configured provider) a local heuristic narrative is returned.
func (h *AnalysisHandler) Insights(w http.ResponseWriter, r *http.Request) {
	useAI := r.URL.Query().Get("explain") == "true"
	insight, err := h.analyzer.Insights(r.Context(), windowDays(r), time.Now(), useAI)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, insight)
}
