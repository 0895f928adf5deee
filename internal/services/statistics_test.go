package services

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMeanMedianStdDev_Empty(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Fatalf("mean of empty expected 0, got %f", got)
	}
	if got := Median(nil); got != 0 {
		t.Fatalf("median of empty expected 0, got %f", got)
	}
	if got := StandardDeviation([]float64{42}); got != 0 {
		t.Fatalf("stddev of single point expected 0, got %f", got)
	}
}

func TestMedian_EvenOdd(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median expected 2, got %f", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median expected 2.5, got %f", got)
	}
}

func TestStandardDeviation_Population(t *testing.T) {
	// population stddev of {2,4,4,4,5,5,7,9} is exactly 2
	got := StandardDeviation([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !almostEqual(got, 2) {
		t.Fatalf("stddev expected 2, got %f", got)
	}
}

func TestCorrelation_Degenerate(t *testing.T) {
	if got := Correlation([]float64{1, 2}, []float64{1}); got != 0 {
		t.Fatalf("mismatched lengths expected 0, got %f", got)
	}
	if got := Correlation([]float64{1}, []float64{1}); got != 0 {
		t.Fatalf("n<2 expected 0, got %f", got)
	}
	if got := Correlation([]float64{3, 3, 3}, []float64{1, 2, 3}); got != 0 {
		t.Fatalf("constant series expected 0, got %f", got)
	}
}

func TestCorrelation_Perfect(t *testing.T) {
	got := Correlation([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	if !almostEqual(got, 1) {
		t.Fatalf("perfect correlation expected 1, got %f", got)
	}
	got = Correlation([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2})
	if !almostEqual(got, -1) {
		t.Fatalf("perfect inverse correlation expected -1, got %f", got)
	}
}

func TestChiSquareTest_Degenerate(t *testing.T) {
	res := ChiSquareTest(nil, nil)
	if res.Statistic != 0 || res.PValue != 1 {
		t.Fatalf("empty input expected {0,1}, got %+v", res)
	}
	res = ChiSquareTest([]float64{1, 2}, []float64{1})
	if res.Statistic != 0 || res.PValue != 1 {
		t.Fatalf("length mismatch expected {0,1}, got %+v", res)
	}
}

func TestChiSquareTest_DF1Table(t *testing.T) {
	// observed {30,10} vs expected {20,20}: (10^2/20)*2 = 10, df=1 -> p=0.01
	res := ChiSquareTest([]float64{30, 10}, []float64{20, 20})
	if !almostEqual(res.Statistic, 10) {
		t.Fatalf("statistic expected 10, got %f", res.Statistic)
	}
	if res.PValue != 0.01 {
		t.Fatalf("p-value expected 0.01, got %f", res.PValue)
	}
	// below 2.706 resolves to 0.5
	res = ChiSquareTest([]float64{21, 19}, []float64{20, 20})
	if res.PValue != 0.5 {
		t.Fatalf("small statistic expected p 0.5, got %f", res.PValue)
	}
	// df != 1 always resolves to 0.5
	res = ChiSquareTest([]float64{40, 10, 10}, []float64{20, 20, 20})
	if res.PValue != 0.5 {
		t.Fatalf("df=2 expected p 0.5, got %f", res.PValue)
	}
}

func TestChiSquareTest_SkipsZeroExpected(t *testing.T) {
	res := ChiSquareTest([]float64{5, 30}, []float64{0, 20})
	if !almostEqual(res.Statistic, 5) {
		t.Fatalf("zero-expected cell should be skipped, got statistic %f", res.Statistic)
	}
}

func TestDetectOutliers_TooFewPoints(t *testing.T) {
	if got := DetectOutliers([]float64{1, 2, 100}); len(got) != 0 {
		t.Fatalf("fewer than 4 points expected no outliers, got %v", got)
	}
}

func TestDetectOutliers_IQR(t *testing.T) {
	// Q1=2, Q3=4, IQR=2, fences [-1, 7]
	got := DetectOutliers([]float64{1, 2, 3, 4, 100})
	if len(got) != 1 || got[0] != 100 {
		t.Fatalf("expected [100], got %v", got)
	}
}

func TestDetectOutliers_NoOutliers(t *testing.T) {
	if got := DetectOutliers([]float64{1, 2, 3, 4, 5}); len(got) != 0 {
		t.Fatalf("expected no outliers, got %v", got)
	}
}

func TestAnalyzeTimeSeries_TooFewPoints(t *testing.T) {
	got := AnalyzeTimeSeries([]TimePoint{{Timestamp: time.Now(), Value: 5}})
	if got.Trend != TrendStable || got.Confidence != 0 {
		t.Fatalf("single point expected stable/0, got %+v", got)
	}
}

func TestAnalyzeTimeSeries_Increasing(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	points := make([]TimePoint, 0, 10)
	for i := 0; i < 10; i++ {
		points = append(points, TimePoint{Timestamp: start.AddDate(0, 0, i), Value: float64(i * 2)})
	}
	got := AnalyzeTimeSeries(points)
	if got.Trend != TrendIncreasing {
		t.Fatalf("expected increasing, got %+v", got)
	}
	if !almostEqual(got.Slope, 2) {
		t.Fatalf("slope expected 2, got %f", got.Slope)
	}
	if !almostEqual(got.RSquared, 1) {
		t.Fatalf("r-squared expected 1, got %f", got.RSquared)
	}
	want := math.Log10(11) * 100
	if want > 100 {
		want = 100
	}
	if !almostEqual(got.Confidence, want) {
		t.Fatalf("confidence expected %f, got %f", want, got.Confidence)
	}
}

func TestAnalyzeTimeSeries_DecreasingAndStable(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	down := []TimePoint{
		{Timestamp: start, Value: 10},
		{Timestamp: start.AddDate(0, 0, 1), Value: 8},
		{Timestamp: start.AddDate(0, 0, 2), Value: 6},
	}
	if got := AnalyzeTimeSeries(down); got.Trend != TrendDecreasing {
		t.Fatalf("expected decreasing, got %+v", got)
	}
	flat := []TimePoint{
		{Timestamp: start, Value: 5},
		{Timestamp: start.AddDate(0, 0, 1), Value: 5},
		{Timestamp: start.AddDate(0, 0, 2), Value: 5},
	}
	if got := AnalyzeTimeSeries(flat); got.Trend != TrendStable {
		t.Fatalf("expected stable, got %+v", got)
	}
}

func TestCalculateSignificance_Clamps(t *testing.T) {
	if got := CalculateSignificance(0, 0.5); got != 0 {
		t.Fatalf("zero sample expected 0, got %f", got)
	}
	if got := CalculateSignificance(1000, 0.9); got != 100 {
		t.Fatalf("large inputs expected clamp at 100, got %f", got)
	}
	if got := CalculateSignificance(10, -0.2); !almostEqual(got, 20) {
		t.Fatalf("expected 20 from |effect|, got %f", got)
	}
}
