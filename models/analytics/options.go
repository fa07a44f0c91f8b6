package analytics

import "github.com/shopspring/decimal"

type CheckpointMode string

const (
	// CheckpointModeCumulative recomputes each total row from the start of
	// the sequence. Composing checkpoints (Operating CF -> Free CF -> Net CF)
	// are cumulative.
	CheckpointModeCumulative CheckpointMode = "Cumulative"
	// CheckpointModeSegment recomputes each total row from the previous
	// checkpoint only. Category subtotals are segment sums.
	CheckpointModeSegment CheckpointMode = "Segment"
)

// Options is the per-call configuration surface. The zero value of any
// field falls back to the documented default, so callers override only
// what they need.
type Options struct {
	// AgingBoundaries are sorted upper bounds in days. Default [30, 60]
	// yields buckets current / 1-30 / 31-60 / 60+.
	AgingBoundaries []int

	// TrendTolerancePercent is the relative-change band inside which a
	// metric is classified as stable. Default 2.
	TrendTolerancePercent decimal.Decimal

	// VarianceHighPercent / VarianceMediumPercent are the significance
	// thresholds on |variance_percent|. Defaults 15 and 5.
	VarianceHighPercent   decimal.Decimal
	VarianceMediumPercent decimal.Decimal

	// CheckpointMode controls how waterfall total rows are recomputed.
	// Default Cumulative.
	CheckpointMode CheckpointMode

	// ForecastHorizonDays bounds the runway estimation window. Default 90.
	ForecastHorizonDays int

	// ReconcileEpsilon is the rounding tolerance for component and
	// checkpoint reconciliation. Default 0.01.
	ReconcileEpsilon decimal.Decimal

	// ApplySeasonal multiplies active seasonal factors into forecast
	// amounts before runway estimation. Default off.
	ApplySeasonal bool

	// SeasonalMetricName selects which seasonal pattern rows apply.
	// Default "forecast".
	SeasonalMetricName string
}

func DefaultOptions() Options {
	return Options{
		AgingBoundaries:       []int{30, 60},
		TrendTolerancePercent: decimal.NewFromInt(2),
		VarianceHighPercent:   decimal.NewFromInt(15),
		VarianceMediumPercent: decimal.NewFromInt(5),
		CheckpointMode:        CheckpointModeCumulative,
		ForecastHorizonDays:   90,
		ReconcileEpsilon:      decimal.NewFromFloat(0.01),
		SeasonalMetricName:    "forecast",
	}
}

// withDefaults fills unset fields so every computation sees a complete
// option set. ApplySeasonal is a plain bool and stays as given.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if len(o.AgingBoundaries) == 0 {
		o.AgingBoundaries = def.AgingBoundaries
	}
	if o.TrendTolerancePercent.IsZero() {
		o.TrendTolerancePercent = def.TrendTolerancePercent
	}
	if o.VarianceHighPercent.IsZero() {
		o.VarianceHighPercent = def.VarianceHighPercent
	}
	if o.VarianceMediumPercent.IsZero() {
		o.VarianceMediumPercent = def.VarianceMediumPercent
	}
	if o.CheckpointMode == "" {
		o.CheckpointMode = def.CheckpointMode
	}
	if o.ForecastHorizonDays <= 0 {
		o.ForecastHorizonDays = def.ForecastHorizonDays
	}
	if o.ReconcileEpsilon.IsZero() {
		o.ReconcileEpsilon = def.ReconcileEpsilon
	}
	if o.SeasonalMetricName == "" {
		o.SeasonalMetricName = def.SeasonalMetricName
	}
	return o
}
