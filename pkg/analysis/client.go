// Package analysis is the client for the policy risk analysis service.
// It submits a policy document or pasted text and resolves with a
// finalized assessment, either from a buffered JSON response or
// reassembled from a server-sent event stream.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aqlhr/policy-intel-cli/internal/model"
)

const analyzePath = "/functions/v1/policy-risk-analyze-v1"

// TokenProvider resolves the bearer token for one request. Resolution
// happens once per Analyze call, before any network traffic.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider for a fixed token, typically from config.
// An empty StaticToken means no session.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// AnalyzeRequest describes one analysis submission. At least one of
// PolicyDocID or Text should be set; the service rejects a request with
// neither and the error is surfaced as an APIError.
type AnalyzeRequest struct {
	PolicyDocID string   `json:"policyDocId,omitempty" yaml:"policy_doc_id"`
	Text        string   `json:"text,omitempty" yaml:"text"`
	Title       string   `json:"title,omitempty" yaml:"title"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	Lang        string   `json:"lang,omitempty" yaml:"lang"`
	Stream      bool     `json:"stream,omitempty" yaml:"stream"`
}

// Client performs policy risk analysis requests.
type Client interface {
	Analyze(ctx context.Context, req AnalyzeRequest, onProgress ProgressFunc) (*model.PolicyRiskResult, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithDefaultLang sets the ambient report language used when a request
// does not name one.
func WithDefaultLang(lang string) Option {
	return func(c *httpClient) {
		c.defaultLang = lang
	}
}

type httpClient struct {
	baseURL     string
	tokens      TokenProvider
	defaultLang string
	http        *http.Client
}

// NewClient creates an analysis client. The default http.Client carries no
// overall timeout: streaming responses stay open for the full analysis and
// deadlines belong to the caller's context.
func NewClient(baseURL string, tokens TokenProvider, opts ...Option) Client {
	c := &httpClient{
		baseURL:     baseURL,
		tokens:      tokens,
		defaultLang: model.LangEnglish,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze runs one analysis request to completion. Exactly one outbound
// HTTP request is issued; when streaming, the response body is read to
// exhaustion by this call and progress events are forwarded to onProgress
// synchronously, in arrival order, before Analyze returns.
func (c *httpClient) Analyze(ctx context.Context, req AnalyzeRequest, onProgress ProgressFunc) (*model.PolicyRiskResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: resolve token")
	}
	if token == "" {
		return nil, ErrAuthRequired
	}

	if req.Lang == "" {
		req.Lang = c.defaultLang
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: marshal request")
	}

	url := c.baseURL + analyzePath
	if req.Stream {
		// The query parameter is authoritative for server behavior; the
		// stream field in the body is advisory.
		url += "?stream=sse"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "analysis: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if req.Stream {
		result, err := DecodeStream(ctx, resp.Body, onProgress)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("analysis: stream complete", zap.String("request_id", result.RequestID))
		return result, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: read response")
	}
	var result model.PolicyRiskResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, eris.Wrap(err, "analysis: unmarshal response")
	}
	return &result, nil
}
