package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type WaterfallCategory string

const (
	WaterfallCategoryOperating WaterfallCategory = "Operating"
	WaterfallCategoryInvesting WaterfallCategory = "Investing"
	WaterfallCategoryFinancing WaterfallCategory = "Financing"
	WaterfallCategoryTotal     WaterfallCategory = "Total"
)

func (c WaterfallCategory) valid() bool {
	switch c {
	case WaterfallCategoryOperating, WaterfallCategoryInvesting, WaterfallCategoryFinancing, WaterfallCategoryTotal:
		return true
	}
	return false
}

type WaterfallItem struct {
	Label    string            `json:"label"`
	Value    decimal.Decimal   `json:"value"`
	Category WaterfallCategory `json:"category"`
}

type WaterfallStep struct {
	Label              string            `json:"label"`
	Category           WaterfallCategory `json:"category"`
	Value              decimal.Decimal   `json:"value"`
	RunningTotalBefore decimal.Decimal   `json:"running_total_before"`
	RunningTotalAfter  decimal.Decimal   `json:"running_total_after"`
}

// ReconcileWaterfall folds the line items into steps with running totals.
// A Total row is a checkpoint: its value is always recomputed — the
// cumulative sum from the start in Cumulative mode, the sum since the last
// checkpoint in Segment mode. A supplied non-zero total that disagrees
// with the recomputed value beyond epsilon is a data-integrity problem and
// surfaces as a ReconciliationError; it is never silently replaced or
// trusted. Checkpoints do not feed the accumulator, so the final
// cumulative total always equals the sum of the non-total items.
func ReconcileWaterfall(items []WaterfallItem, opts Options) ([]WaterfallStep, error) {
	opts = opts.withDefaults()

	steps := make([]WaterfallStep, 0, len(items))
	cumulative := decimal.Zero
	segment := decimal.Zero

	for i, item := range items {
		if !item.Category.valid() {
			return nil, fmt.Errorf("waterfall item %d (%s): invalid category %q", i, item.Label, item.Category)
		}

		if item.Category == WaterfallCategoryTotal {
			recomputed := cumulative
			if opts.CheckpointMode == CheckpointModeSegment {
				recomputed = segment
			}
			if !item.Value.IsZero() && item.Value.Sub(recomputed).Abs().GreaterThan(opts.ReconcileEpsilon) {
				return nil, &ReconciliationError{
					Metric:   item.Label,
					Expected: recomputed,
					Actual:   item.Value,
					Epsilon:  opts.ReconcileEpsilon,
				}
			}
			steps = append(steps, WaterfallStep{
				Label:              item.Label,
				Category:           item.Category,
				Value:              recomputed,
				RunningTotalBefore: cumulative,
				RunningTotalAfter:  cumulative,
			})
			segment = decimal.Zero
			continue
		}

		after := cumulative.Add(item.Value)
		steps = append(steps, WaterfallStep{
			Label:              item.Label,
			Category:           item.Category,
			Value:              item.Value,
			RunningTotalBefore: cumulative,
			RunningTotalAfter:  after,
		})
		cumulative = after
		segment = segment.Add(item.Value)
	}

	return steps, nil
}
