package services

import (
	"fmt"
	"time"
)

// AnalyticsStore abstracts the reads AnalyticsService needs. Aggregation
// never mutates responses.
type AnalyticsStore interface {
	ListQuestions(surveyID string) ([]*Question, error)
	ListResponsesBySurvey(surveyID string) ([]*ResponseRecord, error)
}

type AnalyticsService struct {
	store AnalyticsStore
	now   func() time.Time
}

// OptionCount is one bucket of a question's answer distribution.
type OptionCount struct {
	Option     string  `json:"option"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// QuestionAnalytics summarizes one question across the response set.
// Average is set for rating questions, AverageLength and Samples for
// free-text questions; other kinds report counts and rates only.
type QuestionAnalytics struct {
	QuestionID    string        `json:"question_id"`
	Type          QuestionType  `json:"type"`
	Text          string        `json:"text"`
	Responses     int           `json:"responses"`
	ResponseRate  float64       `json:"response_rate"`
	Distribution  []OptionCount `json:"distribution,omitempty"`
	Average       *float64      `json:"average,omitempty"`
	AverageLength *float64      `json:"average_length,omitempty"`
	Samples       []string      `json:"samples,omitempty"`
}

// TimelineBucket is one dense calendar-day bin of submission counts.
type TimelineBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// HourCount and WeekdayCount are dense demographic bins.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type WeekdayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type Demographics struct {
	ByHour    []HourCount    `json:"by_hour"`
	ByWeekday []WeekdayCount `json:"by_weekday"`
}

// TimingStats covers responses with a known completion time only. The
// summary carries a nil TimingStats when no response has one.
type TimingStats struct {
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Fastest int     `json:"fastest"`
	Slowest int     `json:"slowest"`
}

// SurveySummary is the analytics payload for one survey. EstimatedViews
// and CompletionRate are estimates derived from response counts, not
// measured traffic; no view tracking exists.
type SurveySummary struct {
	SurveyID       string              `json:"survey_id"`
	TotalResponses int                 `json:"total_responses"`
	Questions      []QuestionAnalytics `json:"questions"`
	Timeline       []TimelineBucket    `json:"timeline"`
	Demographics   Demographics        `json:"demographics"`
	TimingStats    *TimingStats        `json:"timing_stats"`
	EstimatedViews int                 `json:"estimated_views"`
	CompletionRate float64             `json:"completion_rate"`
	Trend          TrendAnalysis       `json:"trend"`
	Reliability    *ReliabilityReport  `json:"reliability,omitempty"`
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// DefaultTimelineDays is the trailing window used when the caller passes 0.
const DefaultTimelineDays = 30

// Summary aggregates the survey's responses into per-question
// distributions, a dense submission timeline over the trailing windowDays,
// time-of-day and day-of-week demographics, and completion timing stats.
// An empty response set yields a valid zero-filled payload.
func (s *AnalyticsService) Summary(surveyID string, windowDays int) (*SurveySummary, error) {
	questions, err := s.store.ListQuestions(surveyID)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponsesBySurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = DefaultTimelineDays
	}

	qa := make([]QuestionAnalytics, 0, len(questions))
	for _, q := range questions {
		qa = append(qa, s.analyzeQuestion(q, responses))
	}

	timeline := buildTimeline(responses, s.now(), windowDays)
	summary := &SurveySummary{
		SurveyID:       surveyID,
		TotalResponses: len(responses),
		Questions:      qa,
		Timeline:       timeline,
		Demographics:   buildDemographics(responses),
		TimingStats:    buildTimingStats(responses),
		Trend:          timelineTrend(timeline),
		Reliability:    ratingReliability(questions, responses),
	}
	summary.EstimatedViews, summary.CompletionRate = estimateCompletion(len(responses))
	return summary, nil
}

func (s *AnalyticsService) analyzeQuestion(q *Question, responses []*ResponseRecord) QuestionAnalytics {
	qa := QuestionAnalytics{QuestionID: q.ID, Type: q.Type, Text: q.Text}
	answered := make([]any, 0, len(responses))
	for _, resp := range responses {
		if v, ok := resp.Answers[q.ID]; ok && !answerEmpty(v) {
			answered = append(answered, v)
		}
	}
	qa.Responses = len(answered)
	if len(responses) > 0 {
		qa.ResponseRate = float64(len(answered)) / float64(len(responses)) * 100
	}

	switch q.Type {
	case QuestionMultipleChoice, QuestionDropdown:
		qa.Distribution = aggregateChoice(q.Options, answered)
	case QuestionCheckbox:
		qa.Distribution = aggregateCheckbox(q.Options, answered)
	case QuestionRating:
		qa.Distribution, qa.Average = aggregateRating(q, answered)
	case QuestionText, QuestionTextarea:
		qa.AverageLength, qa.Samples = aggregateText(answered)
	case QuestionNumber, QuestionDate, QuestionEmail:
		// count and rate only
	}
	return qa
}

func aggregateChoice(options []string, answered []any) []OptionCount {
	counts := make(map[string]int, len(options))
	for _, v := range answered {
		if str, ok := answerString(v); ok {
			counts[str]++
		}
	}
	return optionCounts(options, counts, len(answered))
}

// aggregateCheckbox flattens every respondent's selections but keeps the
// percentage denominator at the respondent count, so a respondent picking
// three options still counts once.
func aggregateCheckbox(options []string, answered []any) []OptionCount {
	counts := make(map[string]int, len(options))
	for _, v := range answered {
		for _, sel := range answerStrings(v) {
			counts[sel]++
		}
	}
	return optionCounts(options, counts, len(answered))
}

func optionCounts(options []string, counts map[string]int, respondents int) []OptionCount {
	out := make([]OptionCount, 0, len(options))
	for _, opt := range options {
		oc := OptionCount{Option: opt, Count: counts[opt]}
		if respondents > 0 {
			oc.Percentage = float64(oc.Count) / float64(respondents) * 100
		}
		out = append(out, oc)
	}
	return out
}

func aggregateRating(q *Question, answered []any) ([]OptionCount, *float64) {
	lo, hi := q.MinRating, q.MaxRating
	if lo == 0 && hi == 0 {
		lo, hi = 1, 5
	}
	if hi < lo {
		hi = lo
	}
	counts := make(map[string]int, hi-lo+1)
	values := make([]float64, 0, len(answered))
	for _, v := range answered {
		num, ok := answerNumber(v)
		if !ok {
			continue
		}
		values = append(values, num)
		n := int(num)
		if n >= lo && n <= hi {
			counts[fmt.Sprintf("%d", n)]++
		}
	}
	labels := make([]string, 0, hi-lo+1)
	for r := lo; r <= hi; r++ {
		labels = append(labels, fmt.Sprintf("%d", r))
	}
	dist := optionCounts(labels, counts, len(values))
	if len(values) == 0 {
		return dist, nil
	}
	avg := Mean(values)
	return dist, &avg
}

const (
	textSampleLimit    = 5
	textTruncateLength = 100
)

func aggregateText(answered []any) (*float64, []string) {
	var lengths []float64
	var samples []string
	for _, v := range answered {
		str, ok := answerString(v)
		if !ok {
			continue
		}
		lengths = append(lengths, float64(len([]rune(str))))
		if len(samples) < textSampleLimit {
			samples = append(samples, truncateAnswer(str, textTruncateLength))
		}
	}
	if len(lengths) == 0 {
		return nil, nil
	}
	avg := Mean(lengths)
	return &avg, samples
}

func truncateAnswer(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// buildTimeline bins submissions by UTC calendar day over the trailing
// window ending today. Days without submissions appear with count 0.
func buildTimeline(responses []*ResponseRecord, now time.Time, windowDays int) []TimelineBucket {
	countsByDay := map[string]int{}
	for _, resp := range responses {
		day := resp.SubmittedAt.UTC().Format("2006-01-02")
		countsByDay[day]++
	}
	start := now.UTC().AddDate(0, 0, -(windowDays - 1))
	out := make([]TimelineBucket, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, TimelineBucket{Date: day, Count: countsByDay[day]})
	}
	return out
}

var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func buildDemographics(responses []*ResponseRecord) Demographics {
	var hours [24]int
	var weekdays [7]int
	for _, resp := range responses {
		t := resp.SubmittedAt.UTC()
		hours[t.Hour()]++
		weekdays[int(t.Weekday())]++
	}
	d := Demographics{
		ByHour:    make([]HourCount, 0, 24),
		ByWeekday: make([]WeekdayCount, 0, 7),
	}
	for h := 0; h < 24; h++ {
		d.ByHour = append(d.ByHour, HourCount{Hour: h, Count: hours[h]})
	}
	for w := 0; w < 7; w++ {
		d.ByWeekday = append(d.ByWeekday, WeekdayCount{Day: weekdayNames[w], Count: weekdays[w]})
	}
	return d
}

func buildTimingStats(responses []*ResponseRecord) *TimingStats {
	var times []float64
	fastest, slowest := 0, 0
	for _, resp := range responses {
		if resp.CompletionTime <= 0 {
			continue
		}
		times = append(times, float64(resp.CompletionTime))
		if fastest == 0 || resp.CompletionTime < fastest {
			fastest = resp.CompletionTime
		}
		if resp.CompletionTime > slowest {
			slowest = resp.CompletionTime
		}
	}
	if len(times) == 0 {
		return nil
	}
	return &TimingStats{
		Average: Mean(times),
		Median:  Median(times),
		Fastest: fastest,
		Slowest: slowest,
	}
}

// estimateCompletion approximates views without any tracking data:
// estimatedViews = max(3*responses, responses+50).
func estimateCompletion(responses int) (int, float64) {
	views := responses * 3
	if responses+50 > views {
		views = responses + 50
	}
	return views, float64(responses) / float64(views) * 100
}

func timelineTrend(timeline []TimelineBucket) TrendAnalysis {
	points := make([]TimePoint, 0, len(timeline))
	for _, b := range timeline {
		t, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			continue
		}
		points = append(points, TimePoint{Timestamp: t, Value: float64(b.Count)})
	}
	return AnalyzeTimeSeries(points)
}

func answerEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func answerString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	return "", false
}

func answerStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func answerNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
