package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/caselabel/internal/model"
)

// Store is the reference SQLite persistence for cases and labels.
// Labels are insert-only.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// CaseFilter narrows ListCases
type CaseFilter struct {
	Status          model.CaseStatus
	CalibrationOnly bool
	Limit           int
}

const schema = `
CREATE TABLE IF NOT EXISTS cases (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	status TEXT NOT NULL,
	is_calibration INTEGER NOT NULL DEFAULT 0,
	source TEXT NOT NULL,
	focus_topic_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);

CREATE TABLE IF NOT EXISTS labels (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	case_id TEXT NOT NULL,
	rater_id TEXT NOT NULL,
	schema_version TEXT NOT NULL,
	uncertain INTEGER NOT NULL DEFAULT 0,
	rationale TEXT NOT NULL DEFAULT '',
	candidate TEXT NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY (case_id) REFERENCES cases(id)
);

CREATE INDEX IF NOT EXISTS idx_labels_case_id ON labels(case_id);
`

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection keeps per-connection pragmas and in-memory databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateCase inserts c, filling in id, status, source and creation time when unset
func (s *Store) CreateCase(ctx context.Context, c *model.LabellingCase) error {
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" {
		return fmt.Errorf("case text is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = model.CaseStatusNew
	}
	if c.Source == "" {
		c.Source = model.CaseSourceManual
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cases (id, text, status, is_calibration, source, focus_topic_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Text, string(c.Status), boolToInt(c.IsCalibration), string(c.Source), c.FocusTopicID, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}

	return nil
}

// GetCase loads one case, returning model.ErrCaseNotFound for an unknown id
func (s *Store) GetCase(ctx context.Context, id string) (*model.LabellingCase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, status, is_calibration, source, focus_topic_id, created_at FROM cases WHERE id = ?`, id)

	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrCaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query case: %w", err)
	}

	return c, nil
}

// ListCases returns cases in creation order
func (s *Store) ListCases(ctx context.Context, filter CaseFilter) ([]model.LabellingCase, error) {
	query := `SELECT id, text, status, is_calibration, source, focus_topic_id, created_at FROM cases`

	var conditions []string
	var args []any
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.CalibrationOnly {
		conditions = append(conditions, "is_calibration = 1")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, rowid"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cases := []model.LabellingCase{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, *c)
	}

	return cases, rows.Err()
}

// SetStatus changes the status of a case
func (s *Store) SetStatus(ctx context.Context, id string, status model.CaseStatus) error {
	switch status {
	case model.CaseStatusNew, model.CaseStatusLabeled, model.CaseStatusReview:
	default:
		return fmt.Errorf("unknown case status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE cases SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", model.ErrCaseNotFound, id)
	}

	return nil
}

// AddLabel inserts label and moves its case from NEW to LABELED in one
// transaction. Cases in REVIEW keep their status.
func (s *Store) AddLabel(ctx context.Context, label *model.Label) error {
	if label.ID == "" {
		label.ID = uuid.NewString()
	}
	if label.CreatedAt.IsZero() {
		label.CreatedAt = s.now()
	}

	candidate, err := json.Marshal(label.LabelCandidate)
	if err != nil {
		return fmt.Errorf("marshal label: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases WHERE id = ?`, label.CaseID).Scan(&exists); err != nil {
		return fmt.Errorf("check case: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", model.ErrCaseNotFound, label.CaseID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO labels (id, case_id, rater_id, schema_version, uncertain, rationale, candidate, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		label.ID, label.CaseID, label.RaterID, label.SchemaVersion, boolToInt(label.Uncertain), label.Rationale,
		string(candidate), formatTime(label.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert label: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE cases SET status = ? WHERE id = ? AND status = ?`,
		string(model.CaseStatusLabeled), label.CaseID, string(model.CaseStatusNew))
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// LabelsForCase returns the labels of a case in insertion order
func (s *Store) LabelsForCase(ctx context.Context, caseID string) ([]model.Label, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_id, rater_id, schema_version, uncertain, rationale, candidate, created_at
		 FROM labels WHERE case_id = ? ORDER BY seq`, caseID)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	labels := []model.Label{}
	for rows.Next() {
		var (
			l         model.Label
			uncertain int
			candidate string
			createdAt string
		)
		if err := rows.Scan(&l.ID, &l.CaseID, &l.RaterID, &l.SchemaVersion, &uncertain, &l.Rationale, &candidate, &createdAt); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		if err := json.Unmarshal([]byte(candidate), &l.LabelCandidate); err != nil {
			return nil, fmt.Errorf("decode label %s: %w", l.ID, err)
		}
		l.Uncertain = uncertain != 0
		l.CreatedAt = parseTime(createdAt)
		labels = append(labels, l)
	}

	return labels, rows.Err()
}

// CalibrationPool returns every calibration case with its labels
func (s *Store) CalibrationPool(ctx context.Context) ([]model.CaseLabels, error) {
	cases, err := s.ListCases(ctx, CaseFilter{CalibrationOnly: true})
	if err != nil {
		return nil, err
	}

	pool := make([]model.CaseLabels, 0, len(cases))
	for _, c := range cases {
		labels, err := s.LabelsForCase(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		pool = append(pool, model.CaseLabels{Case: c, Labels: labels})
	}

	return pool, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*model.LabellingCase, error) {
	var (
		c             model.LabellingCase
		status        string
		source        string
		isCalibration int
		createdAt     string
	)
	if err := row.Scan(&c.ID, &c.Text, &status, &isCalibration, &source, &c.FocusTopicID, &createdAt); err != nil {
		return nil, err
	}
	c.Status = model.CaseStatus(status)
	c.Source = model.CaseSource(source)
	c.IsCalibration = isCalibration != 0
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// Fixed-width so stored times sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
