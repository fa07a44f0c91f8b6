package analytics

import (
	"errors"

	"github.com/shopspring/decimal"
)

type TrendDirection string

const (
	TrendUp     TrendDirection = "Up"
	TrendDown   TrendDirection = "Down"
	TrendStable TrendDirection = "Stable"
)

// RatioMetric is a day-denominated ratio that may be undefined (zero
// denominator). Undefined is a typed state, never a numeric zero: a DSO
// of 0 days and a DSO that cannot be computed are different facts.
type RatioMetric struct {
	Days    decimal.Decimal `json:"days"`
	Defined bool            `json:"defined"`
	Trend   TrendDirection  `json:"trend"`
}

func definedRatio(days decimal.Decimal) RatioMetric {
	return RatioMetric{Days: days, Defined: true, Trend: TrendStable}
}

func undefinedRatio() RatioMetric {
	return RatioMetric{Defined: false, Trend: TrendStable}
}

type ConversionCycleInput struct {
	AvgReceivables decimal.Decimal
	AvgPayables    decimal.Decimal
	AvgInventory   decimal.Decimal
	CreditSales    decimal.Decimal
	COGS           decimal.Decimal
	PeriodDays     int
}

type ConversionCycleMetrics struct {
	DSO RatioMetric `json:"dso"`
	DPO RatioMetric `json:"dpo"`
	DIO RatioMetric `json:"dio"`
	CCC RatioMetric `json:"ccc"`
}

// ComputeConversionCycle derives DSO/DPO/DIO/CCC:
//
//	dso = avg_receivables / credit_sales * period_days
//	dpo = avg_payables / cogs * period_days
//	dio = avg_inventory / cogs * period_days
//	ccc = dso + dio - dpo
//
// A zero denominator makes the affected ratio undefined, and any undefined
// input makes CCC undefined. When prior is non-nil each defined ratio gets
// a trend against the prior period's value.
func ComputeConversionCycle(input ConversionCycleInput, prior *ConversionCycleMetrics, opts Options) (*ConversionCycleMetrics, error) {
	opts = opts.withDefaults()
	if input.PeriodDays <= 0 {
		return nil, errors.New("period days must be positive")
	}
	periodDays := decimal.NewFromInt(int64(input.PeriodDays))

	out := &ConversionCycleMetrics{
		DSO: ratioOrUndefined(input.AvgReceivables, input.CreditSales, periodDays),
		DPO: ratioOrUndefined(input.AvgPayables, input.COGS, periodDays),
		DIO: ratioOrUndefined(input.AvgInventory, input.COGS, periodDays),
	}

	if out.DSO.Defined && out.DPO.Defined && out.DIO.Defined {
		out.CCC = definedRatio(out.DSO.Days.Add(out.DIO.Days).Sub(out.DPO.Days))
	} else {
		out.CCC = undefinedRatio()
	}

	if prior != nil {
		out.DSO.Trend = ratioTrend(out.DSO, prior.DSO, opts.TrendTolerancePercent)
		out.DPO.Trend = ratioTrend(out.DPO, prior.DPO, opts.TrendTolerancePercent)
		out.DIO.Trend = ratioTrend(out.DIO, prior.DIO, opts.TrendTolerancePercent)
		out.CCC.Trend = ratioTrend(out.CCC, prior.CCC, opts.TrendTolerancePercent)
	}

	return out, nil
}

func ratioOrUndefined(numerator, denominator, periodDays decimal.Decimal) RatioMetric {
	if denominator.IsZero() {
		return undefinedRatio()
	}
	return definedRatio(numerator.Div(denominator).Mul(periodDays))
}

func ratioTrend(current, prior RatioMetric, tolerancePercent decimal.Decimal) TrendDirection {
	if !current.Defined || !prior.Defined {
		return TrendStable
	}
	return classifyTrend(current.Days, prior.Days, tolerancePercent)
}

// classifyTrend compares current to prior with a relative tolerance band:
// within +/- tolerancePercent of prior is stable, otherwise up or down by
// the sign of the change. A zero prior has no relative scale, so any
// nonzero change reports by sign.
func classifyTrend(current, prior, tolerancePercent decimal.Decimal) TrendDirection {
	change := current.Sub(prior)
	if prior.IsZero() {
		switch {
		case change.IsPositive():
			return TrendUp
		case change.IsNegative():
			return TrendDown
		default:
			return TrendStable
		}
	}
	changePercent := change.Div(prior.Abs()).Mul(decimal.NewFromInt(100))
	if changePercent.Abs().LessThanOrEqual(tolerancePercent) {
		return TrendStable
	}
	if changePercent.IsPositive() {
		return TrendUp
	}
	return TrendDown
}
