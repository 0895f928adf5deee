package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pulseform/pulseform/internal/services"
)

// SQLiteStore implements the service store interfaces over a SQLite
// database. It is the reference data-access collaborator; the services
// themselves never depend on it directly.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullInt(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}

func encodeJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON(ns sql.NullString, out any) {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return
	}
	if err := json.Unmarshal([]byte(ns.String), out); err != nil {
		log.Printf("sqlite store: decode json column: %v", err)
	}
}

// AddQuestion inserts a question definition.
func (s *SQLiteStore) AddQuestion(q *services.Question) error {
	options, err := encodeJSON(sliceOrNil(q.Options))
	if err != nil {
		return fmt.Errorf("encode question options: %w", err)
	}
	var validation sql.NullString
	if q.Validation != nil {
		if validation, err = encodeJSON(q.Validation); err != nil {
			return fmt.Errorf("encode question validation: %w", err)
		}
	}
	_, err = s.db.Exec(`INSERT INTO questions
		(id, survey_id, type, text, required, options, min_rating, max_rating, validation, ord)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.SurveyID, string(q.Type), q.Text, boolToInt64(q.Required),
		options, toNullInt(q.MinRating), toNullInt(q.MaxRating), validation, q.Order)
	if err != nil {
		return fmt.Errorf("insert question %s: %w", q.ID, err)
	}
	return nil
}

// ListQuestions returns the survey's questions in declared order.
func (s *SQLiteStore) ListQuestions(surveyID string) ([]*services.Question, error) {
	rows, err := s.db.Query(`SELECT id, survey_id, type, text, required, options,
		min_rating, max_rating, validation, ord
		FROM questions WHERE survey_id = ? ORDER BY ord, id`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list questions for survey %s: %w", surveyID, err)
	}
	defer rows.Close()

	var out []*services.Question
	for rows.Next() {
		var (
			q                    services.Question
			qtype                string
			required             int64
			options, validation  sql.NullString
			minRating, maxRating sql.NullInt64
		)
		if err := rows.Scan(&q.ID, &q.SurveyID, &qtype, &q.Text, &required,
			&options, &minRating, &maxRating, &validation, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = services.QuestionType(qtype)
		q.Required = required != 0
		q.MinRating = int(minRating.Int64)
		q.MaxRating = int(maxRating.Int64)
		decodeJSON(options, &q.Options)
		if validation.Valid {
			q.Validation = &services.ValidationRules{}
			decodeJSON(validation, q.Validation)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

// AddResponse inserts a newly submitted response record.
func (s *SQLiteStore) AddResponse(r *services.ResponseRecord) error {
	answers, flags, override, err := encodeResponseColumns(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO responses
		(id, survey_id, submitted_at, completion_time, answers, quality_status, quality_flags, manual_override)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SurveyID, r.SubmittedAt.UTC(), toNullInt(r.CompletionTime),
		answers.String, toNullString(string(r.QualityStatus)), flags, override)
	if err != nil {
		return fmt.Errorf("insert response %s: %w", r.ID, err)
	}
	return nil
}

// UpdateResponse persists classification state on an existing response.
func (s *SQLiteStore) UpdateResponse(r *services.ResponseRecord) error {
	answers, flags, override, err := encodeResponseColumns(r)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE responses SET
		submitted_at = ?, completion_time = ?, answers = ?,
		quality_status = ?, quality_flags = ?, manual_override = ?
		WHERE id = ?`,
		r.SubmittedAt.UTC(), toNullInt(r.CompletionTime), answers.String,
		toNullString(string(r.QualityStatus)), flags, override, r.ID)
	if err != nil {
		return fmt.Errorf("update response %s: %w", r.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update response %s: no such row", r.ID)
	}
	return nil
}

func encodeResponseColumns(r *services.ResponseRecord) (answers, flags, override sql.NullString, err error) {
	a := r.Answers
	if a == nil {
		a = map[string]any{}
	}
	if answers, err = encodeJSON(a); err != nil {
		err = fmt.Errorf("encode response answers: %w", err)
		return
	}
	if flags, err = encodeJSON(sliceOrNilFlags(r.QualityFlags)); err != nil {
		err = fmt.Errorf("encode quality flags: %w", err)
		return
	}
	if r.ManualOverride != nil {
		if override, err = encodeJSON(r.ManualOverride); err != nil {
			err = fmt.Errorf("encode manual override: %w", err)
		}
	}
	return
}

func sliceOrNil(s []string) any {
	if len(s) == 0 {
		return nil
	}
	return s
}

func sliceOrNilFlags(s []services.QualityFlag) any {
	if len(s) == 0 {
		return nil
	}
	return s
}

// GetResponse returns the response or nil when it does not exist.
func (s *SQLiteStore) GetResponse(id string) (*services.ResponseRecord, error) {
	row := s.db.QueryRow(`SELECT id, survey_id, submitted_at, completion_time,
		answers, quality_status, quality_flags, manual_override
		FROM responses WHERE id = ?`, id)
	r, err := scanResponse(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// ListResponsesBySurvey returns the survey's responses ordered by submission time.
func (s *SQLiteStore) ListResponsesBySurvey(surveyID string) ([]*services.ResponseRecord, error) {
	rows, err := s.db.Query(`SELECT id, survey_id, submitted_at, completion_time,
		answers, quality_status, quality_flags, manual_override
		FROM responses WHERE survey_id = ? ORDER BY submitted_at, id`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list responses for survey %s: %w", surveyID, err)
	}
	defer rows.Close()

	var out []*services.ResponseRecord
	for rows.Next() {
		r, err := scanResponse(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanResponse(scan func(...any) error) (*services.ResponseRecord, error) {
	var (
		r                       services.ResponseRecord
		submittedAt             time.Time
		completionTime          sql.NullInt64
		answers                 string
		status, flags, override sql.NullString
	)
	if err := scan(&r.ID, &r.SurveyID, &submittedAt, &completionTime,
		&answers, &status, &flags, &override); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan response: %w", err)
	}
	r.SubmittedAt = submittedAt.UTC()
	r.CompletionTime = int(completionTime.Int64)
	r.QualityStatus = services.QualityStatus(status.String)
	decodeJSON(sql.NullString{String: answers, Valid: true}, &r.Answers)
	decodeJSON(flags, &r.QualityFlags)
	if override.Valid {
		r.ManualOverride = &services.ManualOverride{}
		decodeJSON(override, r.ManualOverride)
	}
	return &r, nil
}

// GetQualityRule returns the survey's rule or nil when none exists.
func (s *SQLiteStore) GetQualityRule(surveyID string) (*services.QualityRule, error) {
	var (
		rule      services.QualityRule
		updatedAt time.Time
	)
	err := s.db.QueryRow(`SELECT survey_id, min_completion_time, total_flagged, total_overridden, updated_at
		FROM quality_rules WHERE survey_id = ?`, surveyID).
		Scan(&rule.SurveyID, &rule.MinCompletionTime, &rule.TotalFlagged, &rule.TotalOverridden, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quality rule for survey %s: %w", surveyID, err)
	}
	rule.UpdatedAt = updatedAt.UTC()
	return &rule, nil
}

// SaveQualityRule upserts the survey's rule row.
func (s *SQLiteStore) SaveQualityRule(rule *services.QualityRule) error {
	_, err := s.db.Exec(`INSERT INTO quality_rules
		(survey_id, min_completion_time, total_flagged, total_overridden, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(survey_id) DO UPDATE SET
			min_completion_time = excluded.min_completion_time,
			total_flagged = excluded.total_flagged,
			total_overridden = excluded.total_overridden,
			updated_at = excluded.updated_at`,
		rule.SurveyID, rule.MinCompletionTime, rule.TotalFlagged, rule.TotalOverridden,
		rule.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save quality rule for survey %s: %w", rule.SurveyID, err)
	}
	return nil
}

// AppendAuditEntry inserts one audit row. No update or delete path exists.
func (s *SQLiteStore) AppendAuditEntry(e *services.QualityAuditEntry) error {
	_, err := s.db.Exec(`INSERT INTO quality_audit_log
		(id, response_id, survey_id, user_id, action, previous_status, new_status,
		 reason, completion_time, threshold_at_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ResponseID, e.SurveyID, toNullString(e.UserID), e.Action,
		toNullString(string(e.PreviousStatus)), toNullString(string(e.NewStatus)),
		toNullString(e.Reason), toNullInt(e.CompletionTime), toNullInt(e.ThresholdAtTime),
		e.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("append audit entry %s: %w", e.ID, err)
	}
	return nil
}

// ListAuditEntries returns a survey's audit trail oldest first.
func (s *SQLiteStore) ListAuditEntries(surveyID string) ([]*services.QualityAuditEntry, error) {
	rows, err := s.db.Query(`SELECT id, response_id, survey_id, user_id, action,
		previous_status, new_status, reason, completion_time, threshold_at_time, created_at
		FROM quality_audit_log WHERE survey_id = ? ORDER BY created_at, id`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries for survey %s: %w", surveyID, err)
	}
	defer rows.Close()

	var out []*services.QualityAuditEntry
	for rows.Next() {
		var e services.QualityAuditEntry
		var userID, prev, next, reason sql.NullString
		var completionTime, thresholdAtTime sql.NullInt64
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.ResponseID, &e.SurveyID, &userID, &e.Action,
			&prev, &next, &reason, &completionTime, &thresholdAtTime, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.UserID = userID.String
		e.PreviousStatus = services.QualityStatus(prev.String)
		e.NewStatus = services.QualityStatus(next.String)
		e.Reason = reason.String
		e.CompletionTime = int(completionTime.Int64)
		e.ThresholdAtTime = int(thresholdAtTime.Int64)
		e.Timestamp = createdAt.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}
