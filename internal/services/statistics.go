package services

import (
	"math"
	"sort"
	"time"
)

// Mean returns the arithmetic mean of data, or 0 for empty input.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Median returns the middle value of data (average of the two middle values
// for even lengths), or 0 for empty input.
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	s := append([]float64(nil), data...)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// StandardDeviation returns the population standard deviation of data.
// Fewer than 2 points yield 0.
func StandardDeviation(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	mean := Mean(data)
	var sum float64
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// Correlation returns Pearson's r for the paired sequences a and b.
// A length mismatch or fewer than 2 pairs returns 0, which callers cannot
// distinguish from a true zero correlation; treat 0 as "insufficient data
// or uncorrelated".
func Correlation(a, b []float64) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0
	}
	meanA := Mean(a)
	meanB := Mean(b)
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// ChiSquareResult is the outcome of a chi-square goodness-of-fit test.
type ChiSquareResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
}

// ChiSquareTest sums (o-e)^2/e over cells with positive expected counts.
// Mismatched or empty input yields {0, 1}. The p-value comes from a fixed
// critical-value table and is a coarse approximation, not an exact CDF:
// only df=1 thresholds are resolved, everything else maps to 0.5.
func ChiSquareTest(observed, expected []float64) ChiSquareResult {
	n := len(observed)
	if n == 0 || n != len(expected) {
		return ChiSquareResult{Statistic: 0, PValue: 1}
	}
	var stat float64
	for i := 0; i < n; i++ {
		if expected[i] > 0 {
			d := observed[i] - expected[i]
			stat += d * d / expected[i]
		}
	}
	return ChiSquareResult{Statistic: stat, PValue: chiSquarePValue(stat, n-1)}
}

func chiSquarePValue(statistic float64, df int) float64 {
	if df != 1 {
		return 0.5
	}
	switch {
	case statistic >= 10.828:
		return 0.001
	case statistic >= 6.635:
		return 0.01
	case statistic >= 3.841:
		return 0.05
	case statistic >= 2.706:
		return 0.10
	}
	return 0.5
}

// DetectOutliers flags values outside [Q1-1.5*IQR, Q3+1.5*IQR] using
// index-based quartiles over the sorted data. Fewer than 4 points yield no
// outliers.
func DetectOutliers(data []float64) []float64 {
	n := len(data)
	if n < 4 {
		return nil
	}
	s := append([]float64(nil), data...)
	sort.Float64s(s)
	q1 := s[n/4]
	q3 := s[3*n/4]
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr
	var out []float64
	for _, v := range data {
		if v < lower || v > upper {
			out = append(out, v)
		}
	}
	return out
}

// Trend classifications.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// TimePoint is one observation of a metric at a point in time.
type TimePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TrendAnalysis is the result of a linear fit over a time series.
// Confidence is a heuristic in [0,100] scaled by fit quality and sample
// size, not a statistical confidence interval.
type TrendAnalysis struct {
	Trend      string  `json:"trend"`
	Slope      float64 `json:"slope"`
	RSquared   float64 `json:"r_squared"`
	Confidence float64 `json:"confidence"`
}

// AnalyzeTimeSeries fits ordinary least squares over the points, with the
// x-axis in fractional days since the first point. A slope magnitude under
// 0.01 classifies as stable; fewer than 2 points always do.
func AnalyzeTimeSeries(points []TimePoint) TrendAnalysis {
	n := len(points)
	if n < 2 {
		return TrendAnalysis{Trend: TrendStable}
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	first := points[0].Timestamp
	for i, p := range points {
		xs[i] = p.Timestamp.Sub(first).Hours() / 24
		ys[i] = p.Value
	}
	meanX := Mean(xs)
	meanY := Mean(ys)
	var cov, varX float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		cov += dx * (ys[i] - meanY)
		varX += dx * dx
	}
	if varX == 0 {
		return TrendAnalysis{Trend: TrendStable}
	}
	slope := cov / varX
	r := Correlation(xs, ys)
	r2 := r * r
	trend := TrendStable
	if slope >= 0.01 {
		trend = TrendIncreasing
	} else if slope <= -0.01 {
		trend = TrendDecreasing
	}
	confidence := r2 * 100 * math.Log10(float64(n)+1)
	if confidence > 100 {
		confidence = 100
	}
	return TrendAnalysis{Trend: trend, Slope: slope, RSquared: r2, Confidence: confidence}
}

// CalculateSignificance scores an effect by sample size on a 0..100 scale:
// (sampleSize/10) * |effect| * 100, clamped. It is a heuristic substitute
// for a significance test, not inferential statistics.
func CalculateSignificance(sampleSize int, effect float64) float64 {
	score := float64(sampleSize) / 10 * math.Abs(effect) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
