package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// QualityStore abstracts persistence operations required by QualityService.
type QualityStore interface {
	ListResponsesBySurvey(surveyID string) ([]*ResponseRecord, error)
	GetResponse(id string) (*ResponseRecord, error)
	UpdateResponse(r *ResponseRecord) error
	GetQualityRule(surveyID string) (*QualityRule, error)
	SaveQualityRule(rule *QualityRule) error
	AppendAuditEntry(e *QualityAuditEntry) error
}

// ClassificationSummary reports the counts of one full classification pass.
// QualityCount covers responses with a known completion time that passed
// the rule; responses without timing data count toward TotalClassified only.
type ClassificationSummary struct {
	TotalClassified int `json:"total_classified"`
	FlaggedCount    int `json:"flagged_count"`
	QualityCount    int `json:"quality_count"`
}

// RuleUpdates carries the fields of a quality rule a caller wants changed.
type RuleUpdates struct {
	MinCompletionTime *int `json:"min_completion_time,omitempty"`
}

// QualityService classifies survey responses against a survey's quality
// rule and maintains the append-only audit trail of every transition.
type QualityService struct {
	store       QualityStore
	now         func() time.Time
	idGenerator func() string
}

// NewQualityService constructs a service bound to the provided persistence interface.
func NewQualityService(store QualityStore) *QualityService {
	return &QualityService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

// Classify runs a full pass over the survey's responses, flagging any whose
// completion time is known and under the rule's minimum. Manually
// overridden responses are never touched. The pass is idempotent: a
// response gains at most one completion_time flag, and an audit entry is
// appended only when the status actually changes. The rule's TotalFlagged
// is overwritten with this pass's count.
func (s *QualityService) Classify(surveyID string, rule *QualityRule) (*ClassificationSummary, error) {
	if rule == nil {
		return nil, NewInvalidError("quality rule is required")
	}
	responses, err := s.store.ListResponsesBySurvey(surveyID)
	if err != nil {
		return nil, err
	}

	summary := &ClassificationSummary{}
	for _, resp := range responses {
		if resp.QualityStatus == StatusManuallyOverridden {
			continue
		}
		summary.TotalClassified++

		previous := resp.EffectiveStatus()
		flagged := resp.CompletionTime > 0 && resp.CompletionTime < rule.MinCompletionTime
		newStatus := StatusQuality
		if flagged {
			newStatus = StatusLowQuality
			summary.FlaggedCount++
		} else if resp.CompletionTime > 0 {
			summary.QualityCount++
		}

		if flagged && !resp.HasFlag(FlagCompletionTime) {
			resp.QualityFlags = append(resp.QualityFlags, QualityFlag{
				Type:           FlagCompletionTime,
				FlaggedAt:      s.now(),
				ThresholdValue: rule.MinCompletionTime,
			})
		}

		if previous != newStatus {
			entry := &QualityAuditEntry{
				ID:              s.idGenerator(),
				ResponseID:      resp.ID,
				SurveyID:        surveyID,
				Action:          AuditActionFlagged,
				PreviousStatus:  previous,
				NewStatus:       newStatus,
				CompletionTime:  resp.CompletionTime,
				ThresholdAtTime: rule.MinCompletionTime,
				Timestamp:       s.now(),
			}
			if err := s.store.AppendAuditEntry(entry); err != nil {
				return nil, fmt.Errorf("append audit entry for response %s: %w", resp.ID, err)
			}
		}

		resp.QualityStatus = newStatus
		if err := s.store.UpdateResponse(resp); err != nil {
			return nil, fmt.Errorf("persist classification for response %s: %w", resp.ID, err)
		}
	}

	rule.TotalFlagged = summary.FlaggedCount
	rule.UpdatedAt = s.now()
	if err := s.store.SaveQualityRule(rule); err != nil {
		return nil, fmt.Errorf("persist quality rule for survey %s: %w", surveyID, err)
	}
	return summary, nil
}

// OverrideClassification records a human decision on a response. The stored
// status is always manually_overridden so later automatic passes can never
// undo it; the caller's intended status is preserved in the audit entry's
// new_status. The survey rule's TotalOverridden is incremented when a rule
// exists; a missing rule is not an error.
func (s *QualityService) OverrideClassification(responseID, userID string, intended QualityStatus, reason string) error {
	resp, err := s.store.GetResponse(responseID)
	if err != nil {
		return err
	}
	if resp == nil {
		return NewNotFoundError("response not found")
	}

	previous := resp.EffectiveStatus()
	at := s.now()
	resp.QualityStatus = StatusManuallyOverridden
	resp.ManualOverride = &ManualOverride{By: userID, At: at, Reason: reason}
	if err := s.store.UpdateResponse(resp); err != nil {
		return fmt.Errorf("persist override for response %s: %w", responseID, err)
	}

	entry := &QualityAuditEntry{
		ID:             s.idGenerator(),
		ResponseID:     resp.ID,
		SurveyID:       resp.SurveyID,
		UserID:         userID,
		Action:         AuditActionOverridden,
		PreviousStatus: previous,
		NewStatus:      intended,
		Reason:         reason,
		CompletionTime: resp.CompletionTime,
		Timestamp:      at,
	}
	if err := s.store.AppendAuditEntry(entry); err != nil {
		return fmt.Errorf("append audit entry for response %s: %w", responseID, err)
	}

	rule, err := s.store.GetQualityRule(resp.SurveyID)
	if err != nil {
		return err
	}
	if rule != nil {
		rule.TotalOverridden++
		rule.UpdatedAt = at
		if err := s.store.SaveQualityRule(rule); err != nil {
			return fmt.Errorf("persist quality rule for survey %s: %w", resp.SurveyID, err)
		}
	}
	return nil
}

// UpdateRules validates and persists rule changes for a survey, creating a
// default rule when none exists, then always runs a full classification
// pass so stale classifications are never visible after a rule change.
// Callers needing a consistent TotalFlagged must serialize concurrent
// updates per survey; the pass itself is idempotent per response.
func (s *QualityService) UpdateRules(surveyID, userID string, updates RuleUpdates) (*QualityRule, error) {
	if updates.MinCompletionTime != nil {
		v := *updates.MinCompletionTime
		if v < MinCompletionTimeFloor || v > MinCompletionTimeCeil {
			return nil, NewInvalidError(fmt.Sprintf("min_completion_time must be between %d and %d seconds", MinCompletionTimeFloor, MinCompletionTimeCeil))
		}
	}

	rule, err := s.store.GetQualityRule(surveyID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		rule = &QualityRule{SurveyID: surveyID, MinCompletionTime: DefaultMinCompletionTime}
	}
	if updates.MinCompletionTime != nil {
		rule.MinCompletionTime = *updates.MinCompletionTime
	}
	rule.UpdatedAt = s.now()
	if err := s.store.SaveQualityRule(rule); err != nil {
		return nil, fmt.Errorf("persist quality rule for survey %s: %w", surveyID, err)
	}

	if _, err := s.Classify(surveyID, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// FilteredResponses returns the survey's responses matching the requested
// quality buckets. Unclassified and manually overridden responses belong to
// the quality bucket. With both buckets requested the full set is returned,
// newest submissions first.
func (s *QualityService) FilteredResponses(surveyID string, includeQuality, includeLowQuality bool) ([]*ResponseRecord, error) {
	if !includeQuality && !includeLowQuality {
		return []*ResponseRecord{}, nil
	}
	responses, err := s.store.ListResponsesBySurvey(surveyID)
	if err != nil {
		return nil, err
	}
	out := make([]*ResponseRecord, 0, len(responses))
	for _, resp := range responses {
		switch resp.QualityStatus {
		case StatusLowQuality:
			if includeLowQuality {
				out = append(out, resp)
			}
		default:
			if includeQuality {
				out = append(out, resp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}
