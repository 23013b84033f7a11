// Package store persists finalized assessments for the history views.
// The persisted row drops score_details; reads return it empty. That loss
// is part of the contract, not something the store papers over.
package store

import (
	"context"
	"time"

	"github.com/aqlhr/policy-intel-cli/internal/model"
)

// Sort keys accepted by ListFilter.OrderBy.
const (
	OrderByCreatedAt = "created_at"
	OrderByOverall   = "overall"
)

// ListFilter specifies criteria for listing assessments. The zero value
// lists everything, newest first.
type ListFilter struct {
	Query   string    `json:"query,omitempty"`    // substring match on title
	From    time.Time `json:"from,omitempty"`     // inclusive lower bound on created_at
	To      time.Time `json:"to,omitempty"`       // exclusive upper bound on created_at
	OrderBy string    `json:"order_by,omitempty"` // created_at (default) or overall
	Asc     bool      `json:"asc,omitempty"`      // default descending
	Limit   int       `json:"limit,omitempty"`
}

// Store is the persistence interface for assessment history.
type Store interface {
	SaveAssessment(ctx context.Context, result *model.PolicyRiskResult) error
	ListRecent(ctx context.Context, limit int) ([]model.PolicyRiskResult, error)
	ListAssessments(ctx context.Context, filter ListFilter) ([]model.PolicyRiskResult, error)

	Migrate(ctx context.Context) error
	Close() error
}
