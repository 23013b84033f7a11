package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqlhr/policy-intel-cli/internal/model"
	"github.com/aqlhr/policy-intel-cli/internal/risk"
	"github.com/aqlhr/policy-intel-cli/internal/store"
	"github.com/aqlhr/policy-intel-cli/pkg/analysis"
)

type fakeAnalysisClient struct {
	result *model.PolicyRiskResult
	err    error
}

func (f *fakeAnalysisClient) Analyze(_ context.Context, _ analysis.AnalyzeRequest, _ analysis.ProgressFunc) (*model.PolicyRiskResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func fixtureResult(id string) *model.PolicyRiskResult {
	return &model.PolicyRiskResult{
		RequestID:    id,
		Lang:         model.LangEnglish,
		PolicySource: model.PolicySource{Type: "text", Title: "Remote Work Policy"},
		Scores: model.RiskScores{
			ComplianceRisk: map[string]model.Score{
				"saudiLaborLaw": {Value: 0.4, Confidence: 0.9},
			},
			Overall: model.Score{Value: 0.42, Confidence: 0.88},
		},
		Mitigations: []model.Mitigation{
			{Strategy: "Update leave clauses", Impact: model.ImpactHigh, Effort: model.ImpactLow, ROI: 3.5, Actions: []string{"Review article 109"}},
		},
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestRouter(t *testing.T, client analysis.Client) (http.Handler, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return newRouter(client, st), st
}

func TestServe_Health(t *testing.T) {
	r, _ := newTestRouter(t, &fakeAnalysisClient{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServe_AnalyzePersistsResult(t *testing.T) {
	r, st := newTestRouter(t, &fakeAnalysisClient{result: fixtureResult("req-1")})

	body, _ := json.Marshal(map[string]string{"text": "All employees must..."})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		model.PolicyRiskResult
		Saved bool `json:"saved"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "req-1", result.RequestID)
	assert.True(t, result.Saved)

	stored, err := st.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "req-1", stored[0].RequestID)
}

type failingSaveStore struct {
	store.Store
}

func (f *failingSaveStore) SaveAssessment(context.Context, *model.PolicyRiskResult) error {
	return eris.New("disk full")
}

func TestServe_AnalyzeReportsFailedSave(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	r := newRouter(&fakeAnalysisClient{result: fixtureResult("req-1")}, &failingSaveStore{Store: st})

	body, _ := json.Marshal(map[string]string{"text": "policy"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		model.PolicyRiskResult
		Saved bool `json:"saved"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "req-1", result.RequestID)
	assert.False(t, result.Saved)

	stored, err := st.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestServe_AnalyzeRejectsEmptyRequest(t *testing.T) {
	r, _ := newTestRouter(t, &fakeAnalysisClient{result: fixtureResult("req-1")})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_AnalyzeUpstreamError(t *testing.T) {
	r, _ := newTestRouter(t, &fakeAnalysisClient{err: &analysis.APIError{StatusCode: 500, Body: "boom"}})

	body, _ := json.Marshal(map[string]string{"text": "policy"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServe_ListAssessments(t *testing.T) {
	r, st := newTestRouter(t, &fakeAnalysisClient{})

	require.NoError(t, st.SaveAssessment(context.Background(), fixtureResult("req-a")))
	require.NoError(t, st.SaveAssessment(context.Background(), fixtureResult("req-b")))

	req := httptest.NewRequest(http.MethodGet, "/api/assessments?limit=1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var results []model.PolicyRiskResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Len(t, results, 1)
}

func TestServe_Trend(t *testing.T) {
	r, st := newTestRouter(t, &fakeAnalysisClient{})

	require.NoError(t, st.SaveAssessment(context.Background(), fixtureResult("req-a")))

	req := httptest.NewRequest(http.MethodGet, "/api/assessments/trend", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var points []risk.TrendPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, 1, points[0].Count)
}

func TestServe_BadListFilter(t *testing.T) {
	r, _ := newTestRouter(t, &fakeAnalysisClient{})

	req := httptest.NewRequest(http.MethodGet, "/api/assessments?from=not-a-date", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
