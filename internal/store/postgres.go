package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aqlhr/policy-intel-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS policy_risk_assessments (
	request_id    TEXT PRIMARY KEY,
	company_id    TEXT NOT NULL,
	lang          TEXT NOT NULL,
	source_type   TEXT NOT NULL,
	policy_doc_id TEXT,
	title         TEXT,
	scores        JSONB NOT NULL,
	mitigations   JSONB NOT NULL,
	citations     JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_pra_created_at ON policy_risk_assessments(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_pra_company_id ON policy_risk_assessments(company_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresInsertAssessment = `INSERT INTO policy_risk_assessments
	(request_id, company_id, lang, source_type, policy_doc_id, title, scores, mitigations, citations, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *PostgresStore) SaveAssessment(ctx context.Context, result *model.PolicyRiskResult) error {
	row, err := newAssessmentRow(result)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, postgresInsertAssessment,
		row.requestID, result.CompanyID, result.Lang, result.PolicySource.Type,
		nullable(result.PolicySource.ID), nullable(result.PolicySource.Title),
		row.scores, row.mitigations, row.citations, row.createdAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: save assessment")
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]model.PolicyRiskResult, error) {
	return s.ListAssessments(ctx, ListFilter{Limit: limit})
}

func (s *PostgresStore) ListAssessments(ctx context.Context, filter ListFilter) ([]model.PolicyRiskResult, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Query != "" {
		where = append(where, "title ILIKE "+arg("%"+filter.Query+"%"))
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at < "+arg(filter.To))
	}

	sql := `SELECT request_id, company_id, lang, source_type, policy_doc_id, title, scores, mitigations, citations, created_at
		FROM policy_risk_assessments`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY " + orderClause(filter, "(scores->'overall'->>'value')::float8")
	if filter.Limit > 0 {
		sql += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assessments")
	}
	defer rows.Close()

	var results []model.PolicyRiskResult
	for rows.Next() {
		var (
			r                 model.PolicyRiskResult
			docID, title      *string
			scores, mits, cit []byte
		)
		if err := rows.Scan(&r.RequestID, &r.CompanyID, &r.Lang, &r.PolicySource.Type,
			&docID, &title, &scores, &mits, &cit, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assessment")
		}
		if err := hydrateAssessment(&r, docID, title, scores, mits, cit); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate assessments")
	}
	return results, nil
}

// assessmentRow holds the serialized column values shared by both
// backends.
type assessmentRow struct {
	requestID   string
	scores      []byte
	mitigations []byte
	citations   []byte
	createdAt   time.Time
}

func newAssessmentRow(result *model.PolicyRiskResult) (*assessmentRow, error) {
	row := &assessmentRow{
		requestID: result.RequestID,
		createdAt: result.CreatedAt,
	}
	if row.requestID == "" {
		row.requestID = uuid.NewString()
	}
	if row.createdAt.IsZero() {
		row.createdAt = time.Now().UTC()
	}

	var err error
	if row.scores, err = json.Marshal(result.Scores); err != nil {
		return nil, eris.Wrap(err, "store: marshal scores")
	}
	mits := result.Mitigations
	if mits == nil {
		mits = []model.Mitigation{}
	}
	if row.mitigations, err = json.Marshal(mits); err != nil {
		return nil, eris.Wrap(err, "store: marshal mitigations")
	}
	cits := result.Citations
	if cits == nil {
		cits = []model.Citation{}
	}
	if row.citations, err = json.Marshal(cits); err != nil {
		return nil, eris.Wrap(err, "store: marshal citations")
	}
	return row, nil
}

// hydrateAssessment maps a persisted row back into the public result
// shape. ScoreDetails is always empty: the rationale text is not persisted
// and the lossy round trip is deliberate.
func hydrateAssessment(r *model.PolicyRiskResult, docID, title *string, scores, mits, cits []byte) error {
	if docID != nil {
		r.PolicySource.ID = *docID
	}
	if title != nil {
		r.PolicySource.Title = *title
	}
	if err := json.Unmarshal(scores, &r.Scores); err != nil {
		return eris.Wrap(err, "store: unmarshal scores")
	}
	if err := json.Unmarshal(mits, &r.Mitigations); err != nil {
		return eris.Wrap(err, "store: unmarshal mitigations")
	}
	if err := json.Unmarshal(cits, &r.Citations); err != nil {
		return eris.Wrap(err, "store: unmarshal citations")
	}
	r.ScoreDetails = []model.ScoreDetail{}
	return nil
}

// orderClause renders the ORDER BY expression for a filter. overallExpr is
// the backend-specific JSON path to the overall score value.
func orderClause(filter ListFilter, overallExpr string) string {
	col := "created_at"
	if filter.OrderBy == OrderByOverall {
		col = overallExpr
	}
	dir := "DESC"
	if filter.Asc {
		dir = "ASC"
	}
	return col + " " + dir
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
