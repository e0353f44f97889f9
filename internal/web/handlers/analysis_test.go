package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/facetrace/attendance/internal/analysis"
	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/logger"
)

func newAnalysisHandler(env *testEnv) *AnalysisHandler {
	return NewAnalysisHandler(analysis.NewAnalyzer(env.ledger, nil, logger.Nop()), logger.Nop())
}

func TestSummaryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedIdentity(t, "001", "Ada", []float32{1, 0, 0})
	yesterday := time.Now().AddDate(0, 0, -1)
	if _, err := env.ledger.Append("001", attendance.StatusPresent, yesterday, attendance.SourceAuto); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	h := newAnalysisHandler(env)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/summary?days=7", nil)
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var sum analysis.Summary
	decodeJSON(t, rec, &sum)
	if sum.WindowDays != 7 || sum.TotalPresent != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestSummaryEndpoint_InvalidDaysFallsBack(t *testing.T) {
	env := newTestEnv(t)
	h := newAnalysisHandler(env)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/summary?days=banana", nil)
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var sum analysis.Summary
	decodeJSON(t, rec, &sum)
	if sum.WindowDays != 7 {
		t.Errorf("expected default window of 7, got %d", sum.WindowDays)
	}
}

func TestInsightsEndpoint_Heuristic(t *testing.T) {
	env := newTestEnv(t)
	env.seedIdentity(t, "001", "Ada", []float32{1, 0, 0})
	yesterday := time.Now().AddDate(0, 0, -1)
	if _, err := env.ledger.Append("001", attendance.StatusPresent, yesterday, attendance.SourceAuto); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	h := newAnalysisHandler(env)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/insights?days=7&explain=true", nil)
	rec := httptest.NewRecorder()
	h.Insights(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var insight analysis.Insight
	decodeJSON(t, rec, &insight)
	if insight.Source != "heuristic" {
		t.Errorf("expected heuristic source without AI provider, got %s", insight.Source)
	}
	if insight.Text == "" {
		t.Error("expected a narrative")
	}
}
