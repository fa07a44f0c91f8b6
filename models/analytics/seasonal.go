package analytics

import (
	"bitbucket.org/mmdatafocus/cashflow_analytics/models"
)

// ApplySeasonalFactors scales forecast amounts by the active month factors.
// Months without an active pattern pass through unchanged. The input slice
// is not mutated; forecasts stay pure inputs.
func ApplySeasonalFactors(entries []models.ForecastEntry, patterns []models.SeasonalPattern) []models.ForecastEntry {
	factorByMonth := make(map[int]models.SeasonalPattern, len(patterns))
	for _, p := range patterns {
		if p.Active {
			factorByMonth[p.Month] = p
		}
	}
	if len(factorByMonth) == 0 {
		return entries
	}

	out := make([]models.ForecastEntry, len(entries))
	copy(out, entries)
	for i := range out {
		if p, ok := factorByMonth[int(out[i].ForecastDate.Month())]; ok {
			out[i].Amount = out[i].Amount.Mul(p.Factor)
		}
	}
	return out
}
