package analytics

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAnalyzeVariance_ComponentsReconcile(t *testing.T) {
	input := VarianceInput{
		MetricName: "net_cash_flow",
		Actual:     dec("70"),
		Forecast:   dec("65"),
		Components: []VarianceComponentInput{
			{Name: "inflow", Actual: dec("50"), Forecast: dec("40")},
			{Name: "outflow", Actual: dec("20"), Forecast: dec("25")},
		},
	}

	record, err := AnalyzeVariance(input, Options{})
	if err != nil {
		t.Fatalf("AnalyzeVariance: %v", err)
	}
	if !record.Variance.Equal(dec("5")) {
		t.Fatalf("variance: expected 5, got %s", record.Variance)
	}
	// 10 + (-5) = 5 = parent variance
	if len(record.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(record.Components))
	}
	if !record.Components[0].Variance.Equal(dec("10")) {
		t.Fatalf("inflow variance: expected 10, got %s", record.Components[0].Variance)
	}
	if !record.Components[1].Variance.Equal(dec("-5")) {
		t.Fatalf("outflow variance: expected -5, got %s", record.Components[1].Variance)
	}
}

func TestAnalyzeVariance_ComponentMismatchFails(t *testing.T) {
	input := VarianceInput{
		MetricName: "net_cash_flow",
		Actual:     dec("70"),
		Forecast:   dec("65"),
		Components: []VarianceComponentInput{
			{Name: "inflow", Actual: dec("50"), Forecast: dec("40")},
			// variance 10 alone, parent is 5: off by 5
		},
	}

	_, err := AnalyzeVariance(input, Options{})
	var recErr *ReconciliationError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected ReconciliationError, got %v", err)
	}
	if recErr.Metric != "net_cash_flow" {
		t.Fatalf("metric: expected net_cash_flow, got %s", recErr.Metric)
	}
}

func TestAnalyzeVariance_SignificanceBands(t *testing.T) {
	cases := []struct {
		actual string
		want   VarianceSignificance
	}{
		{"116", VarianceSignificanceHigh},   // +16%
		{"106", VarianceSignificanceMedium}, // +6%
		{"102", VarianceSignificanceLow},    // +2%
		{"84", VarianceSignificanceHigh},    // -16%, magnitude counts
		{"115", VarianceSignificanceHigh},   // boundary: >= 15 is high
		{"105", VarianceSignificanceMedium}, // boundary: >= 5 is medium
	}
	for _, c := range cases {
		record, err := AnalyzeVariance(VarianceInput{
			MetricName: "inflow",
			Actual:     dec(c.actual),
			Forecast:   dec("100"),
		}, Options{})
		if err != nil {
			t.Fatalf("AnalyzeVariance(%s): %v", c.actual, err)
		}
		if record.Significance != c.want {
			t.Fatalf("actual %s: expected %s, got %s", c.actual, c.want, record.Significance)
		}
	}
}

func TestAnalyzeVariance_ZeroForecastPercentIsUndefined(t *testing.T) {
	record, err := AnalyzeVariance(VarianceInput{
		MetricName: "inflow",
		Actual:     dec("40"),
		Forecast:   decimal.Zero,
	}, Options{})
	if err != nil {
		t.Fatalf("AnalyzeVariance: %v", err)
	}
	if record.VariancePercent != nil {
		t.Fatalf("expected undefined percent, got %s", record.VariancePercent)
	}
	if record.Significance != VarianceSignificanceHigh {
		t.Fatalf("nonzero miss against zero forecast: expected High, got %s", record.Significance)
	}

	record, err = AnalyzeVariance(VarianceInput{
		MetricName: "inflow",
		Actual:     decimal.Zero,
		Forecast:   decimal.Zero,
	}, Options{})
	if err != nil {
		t.Fatalf("AnalyzeVariance: %v", err)
	}
	if record.VariancePercent != nil {
		t.Fatal("expected undefined percent for 0/0")
	}
	if record.Significance != VarianceSignificanceLow {
		t.Fatalf("zero on zero: expected Low, got %s", record.Significance)
	}
}

func TestAnalyzeVariance_Trend(t *testing.T) {
	prior := dec("10")
	cases := []struct {
		actual string
		want   VarianceTrend
	}{
		{"104", VarianceTrendImproving}, // |4| < |10|
		{"120", VarianceTrendDeclining}, // |20| > |10|
		{"110", VarianceTrendStable},
		{"90", VarianceTrendStable}, // |-10| == |10|
	}
	for _, c := range cases {
		record, err := AnalyzeVariance(VarianceInput{
			MetricName:    "inflow",
			Actual:        dec(c.actual),
			Forecast:      dec("100"),
			PriorVariance: &prior,
		}, Options{})
		if err != nil {
			t.Fatalf("AnalyzeVariance(%s): %v", c.actual, err)
		}
		if record.Trend != c.want {
			t.Fatalf("actual %s: expected trend %s, got %s", c.actual, c.want, record.Trend)
		}
	}
}

func TestAnalyzeVariance_CustomThresholds(t *testing.T) {
	record, err := AnalyzeVariance(VarianceInput{
		MetricName: "inflow",
		Actual:     dec("108"),
		Forecast:   dec("100"),
	}, Options{VarianceHighPercent: dec("8"), VarianceMediumPercent: dec("3")})
	if err != nil {
		t.Fatalf("AnalyzeVariance: %v", err)
	}
	if record.Significance != VarianceSignificanceHigh {
		t.Fatalf("expected High with lowered threshold, got %s", record.Significance)
	}
}
