package services

import (
	"errors"
	"time"
)

type ErrorCode string

const (
	ErrorInvalid         ErrorCode = "invalid"
	ErrorForbidden       ErrorCode = "forbidden"
	ErrorNotFound        ErrorCode = "not_found"
	ErrorConflict        ErrorCode = "conflict"
	ErrorUnauthorized    ErrorCode = "unauthorized"
	ErrorTooManyRequests ErrorCode = "too_many_requests"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewTooManyRequestsError(msg string) error {
	return &ServiceError{Code: ErrorTooManyRequests, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionTextarea       QuestionType = "textarea"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionDropdown       QuestionType = "dropdown"
	QuestionRating         QuestionType = "rating"
	QuestionDate           QuestionType = "date"
	QuestionEmail          QuestionType = "email"
	QuestionNumber         QuestionType = "number"
)

// ValidationRules carries optional per-question input constraints.
type ValidationRules struct {
	MinLength *int `json:"minLength,omitempty"`
	MaxLength *int `json:"maxLength,omitempty"`
	Min       *int `json:"min,omitempty"`
	Max       *int `json:"max,omitempty"`
}

// Question is a single survey question. Immutable once attached to a survey.
type Question struct {
	ID         string           `json:"id"`
	SurveyID   string           `json:"survey_id"`
	Type       QuestionType     `json:"type"`
	Text       string           `json:"text"`
	Required   bool             `json:"required,omitempty"`
	Options    []string         `json:"options,omitempty"`
	MinRating  int              `json:"min_rating,omitempty"`
	MaxRating  int              `json:"max_rating,omitempty"`
	Validation *ValidationRules `json:"validation,omitempty"`
	Order      int              `json:"order,omitempty"`
}

// QualityStatus is a response's classification. The zero value means the
// response has never been classified and is treated as quality.
type QualityStatus string

const (
	StatusQuality            QualityStatus = "quality"
	StatusLowQuality         QualityStatus = "low_quality"
	StatusManuallyOverridden QualityStatus = "manually_overridden"
)

// FlagCompletionTime marks a response flagged for answering faster than the
// survey's minimum completion time.
const FlagCompletionTime = "completion_time"

// QualityFlag records that an automated rule suspected low-quality data,
// with the threshold in force at flag time.
type QualityFlag struct {
	Type           string    `json:"flag_type"`
	FlaggedAt      time.Time `json:"flagged_at"`
	ThresholdValue int       `json:"threshold_value"`
}

// ManualOverride records a human decision that supersedes automatic
// classification for a response.
type ManualOverride struct {
	By     string    `json:"by"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// ResponseRecord is one respondent's complete set of answers to a survey.
// Answers maps question ID to the submitted value: string, float64, or a
// []any of strings for checkbox questions. CompletionTime is in seconds;
// values <= 0 mean the timing is unknown.
type ResponseRecord struct {
	ID             string          `json:"id"`
	SurveyID       string          `json:"survey_id"`
	SubmittedAt    time.Time       `json:"submitted_at"`
	CompletionTime int             `json:"completion_time,omitempty"`
	Answers        map[string]any  `json:"response_data"`
	QualityStatus  QualityStatus   `json:"quality_status,omitempty"`
	QualityFlags   []QualityFlag   `json:"quality_flags,omitempty"`
	ManualOverride *ManualOverride `json:"manual_override,omitempty"`
}

// HasFlag reports whether the response already carries a flag of the given type.
func (r *ResponseRecord) HasFlag(flagType string) bool {
	for _, f := range r.QualityFlags {
		if f.Type == flagType {
			return true
		}
	}
	return false
}

// EffectiveStatus resolves the zero value to the quality default.
func (r *ResponseRecord) EffectiveStatus() QualityStatus {
	if r.QualityStatus == "" {
		return StatusQuality
	}
	return r.QualityStatus
}

// QualityRule holds a survey's classification threshold and pass counters.
// TotalFlagged is overwritten by each full classification pass;
// TotalOverridden counts manual overrides. The audit log, not these
// counters, is the ground truth for individual transitions.
type QualityRule struct {
	SurveyID          string    `json:"survey_id"`
	MinCompletionTime int       `json:"min_completion_time"`
	TotalFlagged      int       `json:"total_flagged"`
	TotalOverridden   int       `json:"total_overridden"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const (
	// DefaultMinCompletionTime is used when a survey has no rule yet.
	DefaultMinCompletionTime = 30
	// MinCompletionTimeFloor and MinCompletionTimeCeil bound rule updates.
	MinCompletionTimeFloor = 5
	MinCompletionTimeCeil  = 3600
)

// Audit actions.
const (
	AuditActionFlagged    = "flagged"
	AuditActionOverridden = "overridden"
)

// QualityAuditEntry is one append-only record of a classification
// transition. Entries are never mutated or deleted.
type QualityAuditEntry struct {
	ID              string        `json:"id"`
	ResponseID      string        `json:"response_id"`
	SurveyID        string        `json:"survey_id"`
	UserID          string        `json:"user_id"`
	Action          string        `json:"action"`
	PreviousStatus  QualityStatus `json:"previous_status"`
	NewStatus       QualityStatus `json:"new_status"`
	Reason          string        `json:"reason,omitempty"`
	CompletionTime  int           `json:"completion_time,omitempty"`
	ThresholdAtTime int           `json:"threshold_at_time,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}
