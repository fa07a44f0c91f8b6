package analytics

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Sheet1"

// ExportAgingExcel writes one row per bucket plus the grand total.
// Values are raw numbers; currency formatting stays with the caller.
func ExportAgingExcel(report *AgingReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(exportSheet); err != nil {
		return nil, err
	}

	f.SetCellValue(exportSheet, "A1", "Bucket")
	f.SetCellValue(exportSheet, "B1", "ItemCount")
	f.SetCellValue(exportSheet, "C1", "Total")

	row := 2
	for _, b := range report.Buckets {
		f.SetCellValue(exportSheet, "A"+fmt.Sprint(row), b.Label)
		f.SetCellValue(exportSheet, "B"+fmt.Sprint(row), b.ItemCount)
		f.SetCellValue(exportSheet, "C"+fmt.Sprint(row), b.Total.InexactFloat64())
		row++
	}
	f.SetCellValue(exportSheet, "A"+fmt.Sprint(row), "Grand Total")
	f.SetCellValue(exportSheet, "C"+fmt.Sprint(row), report.GrandTotal.InexactFloat64())
	return f, nil
}

func ExportWaterfallExcel(steps []WaterfallStep) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(exportSheet); err != nil {
		return nil, err
	}

	f.SetCellValue(exportSheet, "A1", "Label")
	f.SetCellValue(exportSheet, "B1", "Category")
	f.SetCellValue(exportSheet, "C1", "Value")
	f.SetCellValue(exportSheet, "D1", "RunningTotalBefore")
	f.SetCellValue(exportSheet, "E1", "RunningTotalAfter")

	for i, s := range steps {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(exportSheet, "A"+row, s.Label)
		f.SetCellValue(exportSheet, "B"+row, string(s.Category))
		f.SetCellValue(exportSheet, "C"+row, s.Value.InexactFloat64())
		f.SetCellValue(exportSheet, "D"+row, s.RunningTotalBefore.InexactFloat64())
		f.SetCellValue(exportSheet, "E"+row, s.RunningTotalAfter.InexactFloat64())
	}
	return f, nil
}

func ExportVarianceExcel(records []*VarianceRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(exportSheet); err != nil {
		return nil, err
	}

	f.SetCellValue(exportSheet, "A1", "Metric")
	f.SetCellValue(exportSheet, "B1", "Actual")
	f.SetCellValue(exportSheet, "C1", "Forecast")
	f.SetCellValue(exportSheet, "D1", "Variance")
	f.SetCellValue(exportSheet, "E1", "VariancePercent")
	f.SetCellValue(exportSheet, "F1", "Significance")
	f.SetCellValue(exportSheet, "G1", "Trend")

	row := 2
	for _, r := range records {
		writeVarianceRow(f, row, "", r)
		row++
		for i := range r.Components {
			writeVarianceRow(f, row, "  ", &r.Components[i])
			row++
		}
	}
	return f, nil
}

func writeVarianceRow(f *excelize.File, row int, indent string, r *VarianceRecord) {
	rs := fmt.Sprint(row)
	f.SetCellValue(exportSheet, "A"+rs, indent+r.MetricName)
	f.SetCellValue(exportSheet, "B"+rs, r.Actual.InexactFloat64())
	f.SetCellValue(exportSheet, "C"+rs, r.Forecast.InexactFloat64())
	f.SetCellValue(exportSheet, "D"+rs, r.Variance.InexactFloat64())
	if r.VariancePercent != nil {
		f.SetCellValue(exportSheet, "E"+rs, r.VariancePercent.InexactFloat64())
	} else {
		f.SetCellValue(exportSheet, "E"+rs, "undefined")
	}
	f.SetCellValue(exportSheet, "F"+rs, string(r.Significance))
	f.SetCellValue(exportSheet, "G"+rs, string(r.Trend))
}
