package analytics

import (
	"github.com/shopspring/decimal"
)

type VarianceSignificance string

const (
	VarianceSignificanceLow    VarianceSignificance = "Low"
	VarianceSignificanceMedium VarianceSignificance = "Medium"
	VarianceSignificanceHigh   VarianceSignificance = "High"
)

type VarianceTrend string

const (
	VarianceTrendImproving VarianceTrend = "Improving"
	VarianceTrendDeclining VarianceTrend = "Declining"
	VarianceTrendStable    VarianceTrend = "Stable"
)

type VarianceComponentInput struct {
	Name     string          `json:"name"`
	Actual   decimal.Decimal `json:"actual"`
	Forecast decimal.Decimal `json:"forecast"`
}

type VarianceInput struct {
	MetricName string                   `json:"metric_name"`
	Actual     decimal.Decimal          `json:"actual"`
	Forecast   decimal.Decimal          `json:"forecast"`
	Components []VarianceComponentInput `json:"components"`
	// PriorVariance, when set, is the same metric's variance for the prior
	// period and drives the trend classification.
	PriorVariance *decimal.Decimal `json:"prior_variance"`
}

// VarianceRecord carries actual vs forecast for one metric.
// VariancePercent is nil when forecast is zero — an undefined percentage,
// distinguishable from an actual 0% variance.
type VarianceRecord struct {
	MetricName      string               `json:"metric_name"`
	Actual          decimal.Decimal      `json:"actual"`
	Forecast        decimal.Decimal      `json:"forecast"`
	Variance        decimal.Decimal      `json:"variance"`
	VariancePercent *decimal.Decimal     `json:"variance_percent"`
	Significance    VarianceSignificance `json:"significance"`
	Trend           VarianceTrend        `json:"trend"`
	Components      []VarianceRecord     `json:"components,omitempty"`
}

// AnalyzeVariance computes the actual-vs-forecast delta for the metric and
// each supplied component. Components must partition the parent: their
// variances have to sum to the parent variance within epsilon, otherwise
// the mismatch is surfaced as a ReconciliationError rather than presenting
// totals that do not add up.
func AnalyzeVariance(input VarianceInput, opts Options) (*VarianceRecord, error) {
	opts = opts.withDefaults()

	record := newVarianceRecord(input.MetricName, input.Actual, input.Forecast, opts)

	if input.PriorVariance != nil {
		record.Trend = varianceTrend(record.Variance, *input.PriorVariance, opts.TrendTolerancePercent)
	}

	if len(input.Components) > 0 {
		componentSum := decimal.Zero
		record.Components = make([]VarianceRecord, 0, len(input.Components))
		for _, c := range input.Components {
			comp := newVarianceRecord(c.Name, c.Actual, c.Forecast, opts)
			componentSum = componentSum.Add(comp.Variance)
			record.Components = append(record.Components, *comp)
		}
		if componentSum.Sub(record.Variance).Abs().GreaterThan(opts.ReconcileEpsilon) {
			return nil, &ReconciliationError{
				Metric:   input.MetricName,
				Expected: record.Variance,
				Actual:   componentSum,
				Epsilon:  opts.ReconcileEpsilon,
			}
		}
	}

	return record, nil
}

func newVarianceRecord(name string, actual, forecast decimal.Decimal, opts Options) *VarianceRecord {
	variance := actual.Sub(forecast)
	record := &VarianceRecord{
		MetricName: name,
		Actual:     actual,
		Forecast:   forecast,
		Variance:   variance,
		Trend:      VarianceTrendStable,
	}

	if forecast.IsZero() {
		// Undefined percentage. Any nonzero miss against a zero forecast
		// has no relative scale, so it is flagged at the top band instead
		// of hiding behind an unrepresentable number.
		if variance.IsZero() {
			record.Significance = VarianceSignificanceLow
		} else {
			record.Significance = VarianceSignificanceHigh
		}
		return record
	}

	percent := variance.Div(forecast).Mul(decimal.NewFromInt(100))
	record.VariancePercent = &percent
	record.Significance = classifySignificance(percent.Abs(), opts)
	return record
}

func classifySignificance(absPercent decimal.Decimal, opts Options) VarianceSignificance {
	switch {
	case absPercent.GreaterThanOrEqual(opts.VarianceHighPercent):
		return VarianceSignificanceHigh
	case absPercent.GreaterThanOrEqual(opts.VarianceMediumPercent):
		return VarianceSignificanceMedium
	default:
		return VarianceSignificanceLow
	}
}

// varianceTrend compares the magnitude of the current variance to the
// prior period's, with the same tolerance band used for ratio trends.
// Shrinking variance is improving, growing is declining.
func varianceTrend(current, prior, tolerancePercent decimal.Decimal) VarianceTrend {
	switch classifyTrend(current.Abs(), prior.Abs(), tolerancePercent) {
	case TrendDown:
		return VarianceTrendImproving
	case TrendUp:
		return VarianceTrendDeclining
	default:
		return VarianceTrendStable
	}
}
