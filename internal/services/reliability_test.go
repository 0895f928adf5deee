package services

import (
	"testing"
	"time"
)

func TestCronbachAlpha_PerfectCorrelation(t *testing.T) {
	// 4 respondents, 3 rating questions; answers perfectly correlated.
	// Population-variance alpha is exactly 1.0.
	data := [][]float64{
		{1, 1, 1},
		{2, 2, 2},
		{3, 3, 3},
		{4, 4, 4},
	}
	got := CronbachAlpha(data)
	if got < 0.999 || got > 1.001 {
		t.Fatalf("alpha expected ~1.0, got %f", got)
	}
}

func TestCronbachAlpha_Degenerate(t *testing.T) {
	if got := CronbachAlpha(nil); got != 0 {
		t.Fatalf("empty matrix expected 0, got %f", got)
	}
	if got := CronbachAlpha([][]float64{{1}, {2}}); got != 0 {
		t.Fatalf("single column expected 0, got %f", got)
	}
	if got := CronbachAlpha([][]float64{{1, 2}, {3}}); got != 0 {
		t.Fatalf("ragged matrix expected 0, got %f", got)
	}
}

func TestCronbachAlpha_Bounds(t *testing.T) {
	data := [][]float64{
		{1, 2, 3},
		{2, 1, 4},
		{3, 0, 5},
		{4, -1, 6},
	}
	got := CronbachAlpha(data)
	if got < 0 || got > 1 {
		t.Fatalf("alpha out of bounds [0,1]: %f", got)
	}
}

func TestSummary_RatingReliability(t *testing.T) {
	store := &stubAnalyticsStore{
		questions: []*Question{
			{ID: "q1", SurveyID: "S1", Type: QuestionRating},
			{ID: "q2", SurveyID: "S1", Type: QuestionRating},
			{ID: "q3", SurveyID: "S1", Type: QuestionText},
		},
	}
	day := time.Date(2025, 9, 19, 10, 0, 0, 0, time.UTC)
	store.responses = []*ResponseRecord{
		{ID: "r1", SurveyID: "S1", SubmittedAt: day, Answers: map[string]any{"q1": 2.0, "q2": 3.0}},
		{ID: "r2", SurveyID: "S1", SubmittedAt: day, Answers: map[string]any{"q1": 4.0, "q2": 5.0}},
		// incomplete: excluded from the matrix
		{ID: "r3", SurveyID: "S1", SubmittedAt: day, Answers: map[string]any{"q1": 3.0}},
	}
	svc := newTestAnalyticsService(store)
	summary, err := svc.Summary("S1", 0)
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	rel := summary.Reliability
	if rel == nil {
		t.Fatalf("expected reliability report for two rating questions")
	}
	if rel.N != 2 {
		t.Fatalf("expected 2 complete respondents, got %d", rel.N)
	}
	if rel.Alpha < 0.999 {
		t.Fatalf("correlated answers expected alpha ~1, got %f", rel.Alpha)
	}
}

func TestSummary_NoReliabilityForSingleRating(t *testing.T) {
	store := &stubAnalyticsStore{
		questions: []*Question{{ID: "q1", SurveyID: "S1", Type: QuestionRating}},
	}
	svc := newTestAnalyticsService(store)
	summary, err := svc.Summary("S1", 0)
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if summary.Reliability != nil {
		t.Fatalf("single rating question must not report alpha, got %+v", summary.Reliability)
	}
}
