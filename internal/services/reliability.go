package services

// ReliabilityReport carries the internal-consistency estimate computed over
// a survey's rating questions. N is the number of respondents who answered
// every rating question.
type ReliabilityReport struct {
	Alpha float64 `json:"alpha"`
	N     int     `json:"n"`
}

// CronbachAlpha computes Cronbach's alpha for a matrix of numeric answers
// shaped as [nRespondents][nQuestions]. Population variance (divide by N)
// is used consistently, which yields alpha=1.0 for perfectly correlated
// questions. Degenerate input (no rows, fewer than 2 columns, ragged rows)
// yields 0; the result is clamped to [0,1].
func CronbachAlpha(matrix [][]float64) float64 {
	n := len(matrix)
	if n == 0 {
		return 0
	}
	k := len(matrix[0])
	if k < 2 {
		return 0
	}

	means := make([]float64, k)
	totals := make([]float64, n)
	for i := 0; i < n; i++ {
		row := matrix[i]
		if len(row) != k {
			return 0
		}
		for j := 0; j < k; j++ {
			means[j] += row[j]
			totals[i] += row[j]
		}
	}
	for j := 0; j < k; j++ {
		means[j] /= float64(n)
	}

	var sumItemVars float64
	for j := 0; j < k; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			d := matrix[i][j] - means[j]
			sum += d * d
		}
		sumItemVars += sum / float64(n)
	}

	totalVar := func() float64 {
		var mean float64
		for _, t := range totals {
			mean += t
		}
		mean /= float64(n)
		var sum float64
		for _, t := range totals {
			d := t - mean
			sum += d * d
		}
		return sum / float64(n)
	}()
	if totalVar == 0 {
		return 0
	}

	kf := float64(k)
	alpha := (kf / (kf - 1.0)) * (1.0 - (sumItemVars / totalVar))
	if alpha < 0 {
		return 0
	}
	if alpha > 1 {
		return 1
	}
	return alpha
}

// ratingReliability builds the respondent-by-question matrix over the
// survey's rating questions and scores it. Respondents missing any rating
// answer are excluded. Nil is returned when fewer than two rating questions
// exist, since alpha is undefined for a single item.
func ratingReliability(questions []*Question, responses []*ResponseRecord) *ReliabilityReport {
	var ratingIDs []string
	for _, q := range questions {
		if q.Type == QuestionRating {
			ratingIDs = append(ratingIDs, q.ID)
		}
	}
	if len(ratingIDs) < 2 {
		return nil
	}

	matrix := make([][]float64, 0, len(responses))
	for _, resp := range responses {
		row := make([]float64, 0, len(ratingIDs))
		complete := true
		for _, id := range ratingIDs {
			v, ok := resp.Answers[id]
			if !ok {
				complete = false
				break
			}
			num, ok := answerNumber(v)
			if !ok {
				complete = false
				break
			}
			row = append(row, num)
		}
		if complete {
			matrix = append(matrix, row)
		}
	}
	return &ReliabilityReport{Alpha: CronbachAlpha(matrix), N: len(matrix)}
}
