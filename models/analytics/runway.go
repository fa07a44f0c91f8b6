package analytics

import (
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/models"
	"github.com/shopspring/decimal"
)

var thirtyDays = decimal.NewFromInt(30)

// RunwayEstimate projects cash depletion from the forecast window.
// Unbounded is the explicit sentinel for burn <= 0: RunwayDays is 0 and
// EstimatedDepletionDate nil in that state, never a large stand-in number.
type RunwayEstimate struct {
	MonthlyBurnRate        decimal.Decimal `json:"monthly_burn_rate"`
	RunwayDays             int             `json:"runway_days"`
	Unbounded              bool            `json:"unbounded"`
	EstimatedDepletionDate *time.Time      `json:"estimated_depletion_date"`
	TotalInflow            decimal.Decimal `json:"total_inflow"`
	TotalOutflow           decimal.Decimal `json:"total_outflow"`
	WindowStart            time.Time       `json:"window_start"`
	WindowEnd              time.Time       `json:"window_end"`
}

// EstimateRunway sums the live forecast entries inside
// [today, today+horizon], derives the monthly burn rate and projects the
// depletion date. An empty window means zero burn, which is the unbounded
// case, not a division error. Superseded entries never count.
func EstimateRunway(entries []models.ForecastEntry, currentCash decimal.Decimal, today time.Time, opts Options) *RunwayEstimate {
	opts = opts.withDefaults()
	windowEnd := today.AddDate(0, 0, opts.ForecastHorizonDays)

	totalInflow := decimal.Zero
	totalOutflow := decimal.Zero
	for _, e := range entries {
		if e.Superseded {
			continue
		}
		if e.ForecastDate.Before(today) || e.ForecastDate.After(windowEnd) {
			continue
		}
		switch e.Direction {
		case models.FlowDirectionInflow:
			totalInflow = totalInflow.Add(e.Amount)
		case models.FlowDirectionOutflow:
			totalOutflow = totalOutflow.Add(e.Amount)
		}
	}

	monthsInWindow := decimal.NewFromInt(int64(opts.ForecastHorizonDays)).Div(thirtyDays)
	burn := totalOutflow.Sub(totalInflow).Div(monthsInWindow)

	estimate := &RunwayEstimate{
		MonthlyBurnRate: burn,
		TotalInflow:     totalInflow,
		TotalOutflow:    totalOutflow,
		WindowStart:     today,
		WindowEnd:       windowEnd,
	}

	if burn.LessThanOrEqual(decimal.Zero) {
		estimate.Unbounded = true
		return estimate
	}

	// cash * 30 / burn, not (cash / burn) * 30: dividing last keeps exact
	// quotients exact under decimal division precision.
	runwayDays := int(currentCash.Mul(thirtyDays).Div(burn).IntPart())
	if runwayDays < 0 {
		runwayDays = 0
	}
	depletion := today.AddDate(0, 0, runwayDays)
	estimate.RunwayDays = runwayDays
	estimate.EstimatedDepletionDate = &depletion
	return estimate
}
