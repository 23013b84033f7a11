// Package tasks files follow-up tasks against the platform task service.
// Its one write path turns a recommended mitigation into a tracked task.
package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/aqlhr/policy-intel-cli/internal/model"
)

const createTaskPath = "/functions/v1/create-task-v1"

// Follow-up tasks fall due this long after filing.
const dueDateOffset = 30 * 24 * time.Hour

// TokenProvider resolves the bearer token for one request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// ErrAuthRequired is returned when no bearer token is available. The check
// runs before any network traffic.
var ErrAuthRequired = eris.New("tasks: bearer token required")

// TaskError is returned when the task service rejects a submission. There
// is no automatic retry and nothing to roll back; filing a task is the
// last step of its own flow.
type TaskError struct {
	StatusCode int
	Body       string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("tasks: HTTP %d: %s", e.StatusCode, e.Body)
}

// TaskPayload is the body for POST /functions/v1/create-task-v1.
type TaskPayload struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    string         `json:"priority"`
	Category    string         `json:"category"`
	AssigneeID  string         `json:"assignee_id,omitempty"`
	DueDate     string         `json:"due_date"`
	Metadata    map[string]any `json:"metadata"`
}

// Client files tasks with the task service.
type Client interface {
	CreateMitigationTask(ctx context.Context, m model.Mitigation, policyTitle, assigneeID string) (*TaskPayload, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default submission throttle (2 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithNow overrides the clock used for due dates. Tests only.
func WithNow(now func() time.Time) Option {
	return func(c *httpClient) {
		c.now = now
	}
}

type httpClient struct {
	baseURL string
	tokens  TokenProvider
	limiter *rate.Limiter
	now     func() time.Time
	http    *http.Client
}

// NewClient creates a task service client.
func NewClient(baseURL string, tokens TokenProvider, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		tokens:  tokens,
		limiter: rate.NewLimiter(2, 1),
		now:     time.Now,
		http: &http.Client{
			Timeout: 30 * time.Second,
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

// BuildMitigationTask constructs the task payload for a mitigation without
// submitting it. Priority mirrors the mitigation's impact band and the due
// date is a fixed 30-day offset from now.
func BuildMitigationTask(m model.Mitigation, policyTitle, assigneeID string, now time.Time) TaskPayload {
	var desc strings.Builder
	fmt.Fprintf(&desc, "Mitigation for policy %q: %s\n\nActions:\n", policyTitle, m.Strategy)
	for _, action := range m.Actions {
		fmt.Fprintf(&desc, "- %s\n", action)
	}

	return TaskPayload{
		Title:       fmt.Sprintf("[Policy Risk] %s", m.Strategy),
		Description: desc.String(),
		Priority:    m.Impact,
		Category:    "policy_compliance",
		AssigneeID:  assigneeID,
		DueDate:     now.Add(dueDateOffset).UTC().Format(time.RFC3339),
		Metadata: map[string]any{
			"strategy": m.Strategy,
			"impact":   m.Impact,
			"effort":   m.Effort,
			"roi":      m.ROI,
		},
	}
}

// CreateMitigationTask builds and submits a follow-up task. The submitted
// payload is returned for display and auditing.
func (c *httpClient) CreateMitigationTask(ctx context.Context, m model.Mitigation, policyTitle, assigneeID string) (*TaskPayload, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "tasks: resolve token")
	}
	if token == "" {
		return nil, ErrAuthRequired
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "tasks: rate limit")
		}
	}

	payload := BuildMitigationTask(m, policyTitle, assigneeID, c.now())
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "tasks: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createTaskPath, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "tasks: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "tasks: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return nil, &TaskError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return &payload, nil
}
