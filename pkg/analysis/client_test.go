package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqlhr/policy-intel-cli/internal/model"
)

func TestAnalyze_Buffered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, analyzePath, r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEqual(t, "text/event-stream", r.Header.Get("Accept"))

		var req AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Sample policy", req.Text)
		assert.Equal(t, model.LangEnglish, req.Lang)

		w.Header().Set("Content-Type", "application/json")
		result := model.PolicyRiskResult{
			RequestID: "req-1",
			Lang:      model.LangEnglish,
			Scores: model.RiskScores{
				Overall: model.Score{Value: 0.42, Confidence: 0.8},
			},
		}
		_ = json.NewEncoder(w).Encode(result)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("session-token"))
	result, err := client.Analyze(context.Background(), AnalyzeRequest{Text: "Sample policy"}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "req-1", result.RequestID)
	assert.Equal(t, model.Score{Value: 0.42, Confidence: 0.8}, result.Scores.Overall)
	assert.Equal(t, model.RiskMedium, model.ClassifyScore(result.Scores.Overall.Value))
}

func TestAnalyze_Streaming(t *testing.T) {
	// Three arbitrarily-sized chunks carrying four progress events, the
	// result, and a trailing done event after the result.
	stream := progressLine(model.PhaseEmbedding) +
		progressLine(model.PhaseRetrieval) +
		progressLine(model.PhaseAnalysis) +
		progressLine(model.PhaseMitigation) +
		"data: " + strings.ReplaceAll(resultPayload, "\n", "") + "\n" +
		progressLine(model.PhaseDone)

	cut1, cut2 := len(stream)/3, 2*len(stream)/3

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sse", r.URL.Query().Get("stream"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, part := range []string{stream[:cut1], stream[cut1:cut2], stream[cut2:]} {
			_, _ = w.Write([]byte(part))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	var phases []string
	client := NewClient(srv.URL, StaticToken("session-token"))
	result, err := client.Analyze(context.Background(), AnalyzeRequest{
		Text:   "Sample policy",
		Stream: true,
	}, func(ev model.ProgressEvent) {
		phases = append(phases, ev.Phase)
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", result.RequestID)
	assert.Equal(t, []string{
		model.PhaseEmbedding,
		model.PhaseRetrieval,
		model.PhaseAnalysis,
		model.PhaseMitigation,
		model.PhaseDone,
	}, phases)
}

func TestAnalyze_StreamWithoutResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(progressLine(model.PhaseEmbedding) + progressLine(model.PhaseDone)))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("session-token"))
	_, err := client.Analyze(context.Background(), AnalyzeRequest{Text: "x", Stream: true}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestAnalyze_MissingToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken(""))
	_, err := client.Analyze(context.Background(), AnalyzeRequest{Text: "x"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.False(t, called, "no network call may happen without a token")
}

func TestAnalyze_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"neither policyDocId nor text supplied"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("session-token"))
	_, err := client.Analyze(context.Background(), AnalyzeRequest{}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "neither policyDocId nor text")
}

func TestAnalyze_ExplicitLangWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, model.LangArabic, req.Lang)
		_ = json.NewEncoder(w).Encode(model.PolicyRiskResult{RequestID: "req-ar", Lang: req.Lang})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("tok"), WithDefaultLang(model.LangEnglish))
	result, err := client.Analyze(context.Background(), AnalyzeRequest{Text: "x", Lang: model.LangArabic}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.LangArabic, result.Lang)
}

func TestAnalyze_DefaultLangFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, model.LangArabic, req.Lang)
		_ = json.NewEncoder(w).Encode(model.PolicyRiskResult{RequestID: "req-2"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("tok"), WithDefaultLang(model.LangArabic))
	_, err := client.Analyze(context.Background(), AnalyzeRequest{Text: "x"}, nil)
	require.NoError(t, err)
}

func TestAnalyze_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(model.PolicyRiskResult{})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.URL, StaticToken("tok"))
	_, err := client.Analyze(ctx, AnalyzeRequest{Text: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

func TestAnalyze_MalformedBufferedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{broken`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("tok"))
	_, err := client.Analyze(context.Background(), AnalyzeRequest{Text: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}
