package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/aqlhr/policy-intel-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local use
// without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS policy_risk_assessments (
	request_id    TEXT PRIMARY KEY,
	company_id    TEXT NOT NULL,
	lang          TEXT NOT NULL,
	source_type   TEXT NOT NULL,
	policy_doc_id TEXT,
	title         TEXT,
	scores        TEXT NOT NULL,
	mitigations   TEXT NOT NULL,
	citations     TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pra_created_at ON policy_risk_assessments(created_at);
CREATE INDEX IF NOT EXISTS idx_pra_company_id ON policy_risk_assessments(company_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// created_at is stored as text and compared lexicographically, so the
// layout must be fixed width. RFC3339Nano trims trailing zeros and does
// not sort.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteInsertAssessment = `INSERT INTO policy_risk_assessments
	(request_id, company_id, lang, source_type, policy_doc_id, title, scores, mitigations, citations, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) SaveAssessment(ctx context.Context, result *model.PolicyRiskResult) error {
	row, err := newAssessmentRow(result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqliteInsertAssessment,
		row.requestID, result.CompanyID, result.Lang, result.PolicySource.Type,
		nullable(result.PolicySource.ID), nullable(result.PolicySource.Title),
		string(row.scores), string(row.mitigations), string(row.citations),
		row.createdAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: save assessment")
	}
	return nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]model.PolicyRiskResult, error) {
	return s.ListAssessments(ctx, ListFilter{Limit: limit})
}

func (s *SQLiteStore) ListAssessments(ctx context.Context, filter ListFilter) ([]model.PolicyRiskResult, error) {
	var (
		where []string
		args  []any
	)
	if filter.Query != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+filter.Query+"%")
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.From.UTC().Format(sqliteTimeLayout))
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, filter.To.UTC().Format(sqliteTimeLayout))
	}

	query := `SELECT request_id, company_id, lang, source_type, policy_doc_id, title, scores, mitigations, citations, created_at
		FROM policy_risk_assessments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + orderClause(filter, "json_extract(scores, '$.overall.value')")
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assessments")
	}
	defer rows.Close()

	var results []model.PolicyRiskResult
	for rows.Next() {
		var (
			r                 model.PolicyRiskResult
			docID, title      *string
			scores, mits, cit []byte
			createdAt         string
		)
		if err := rows.Scan(&r.RequestID, &r.CompanyID, &r.Lang, &r.PolicySource.Type,
			&docID, &title, &scores, &mits, &cit, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assessment")
		}
		if r.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse created_at")
		}
		if err := hydrateAssessment(&r, docID, title, scores, mits, cit); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate assessments")
	}
	return results, nil
}
