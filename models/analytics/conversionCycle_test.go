package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeConversionCycle_CCCIdentity(t *testing.T) {
	input := ConversionCycleInput{
		AvgReceivables: dec("50000"),
		AvgPayables:    dec("30000"),
		AvgInventory:   dec("20000"),
		CreditSales:    dec("200000"),
		COGS:           dec("120000"),
		PeriodDays:     90,
	}

	m, err := ComputeConversionCycle(input, nil, Options{})
	if err != nil {
		t.Fatalf("ComputeConversionCycle: %v", err)
	}
	for name, r := range map[string]RatioMetric{"dso": m.DSO, "dpo": m.DPO, "dio": m.DIO, "ccc": m.CCC} {
		if !r.Defined {
			t.Fatalf("%s: expected defined", name)
		}
	}
	// dso = 50000/200000*90 = 22.5, dpo = 30000/120000*90 = 22.5, dio = 20000/120000*90 = 15
	if !m.DSO.Days.Equal(dec("22.5")) {
		t.Fatalf("dso: expected 22.5, got %s", m.DSO.Days)
	}
	if !m.DPO.Days.Equal(dec("22.5")) {
		t.Fatalf("dpo: expected 22.5, got %s", m.DPO.Days)
	}
	if !m.DIO.Days.Equal(dec("15")) {
		t.Fatalf("dio: expected 15, got %s", m.DIO.Days)
	}
	want := m.DSO.Days.Add(m.DIO.Days).Sub(m.DPO.Days)
	if !m.CCC.Days.Equal(want) {
		t.Fatalf("ccc identity violated: ccc=%s, dso+dio-dpo=%s", m.CCC.Days, want)
	}
}

func TestComputeConversionCycle_ZeroDenominatorsAreUndefined(t *testing.T) {
	input := ConversionCycleInput{
		AvgReceivables: dec("50000"),
		AvgPayables:    dec("30000"),
		AvgInventory:   dec("20000"),
		CreditSales:    decimal.Zero,
		COGS:           dec("120000"),
		PeriodDays:     90,
	}

	m, err := ComputeConversionCycle(input, nil, Options{})
	if err != nil {
		t.Fatalf("ComputeConversionCycle: %v", err)
	}
	if m.DSO.Defined {
		t.Fatal("dso: expected undefined with zero credit sales")
	}
	if !m.DSO.Days.IsZero() {
		t.Fatalf("undefined dso must not carry a value, got %s", m.DSO.Days)
	}
	if !m.DPO.Defined || !m.DIO.Defined {
		t.Fatal("dpo/dio: expected defined")
	}
	if m.CCC.Defined {
		t.Fatal("ccc: expected undefined when any input ratio is undefined")
	}
}

func TestComputeConversionCycle_ZeroCOGSUndefinesAll(t *testing.T) {
	input := ConversionCycleInput{
		AvgReceivables: dec("50000"),
		CreditSales:    dec("200000"),
		COGS:           decimal.Zero,
		PeriodDays:     30,
	}
	m, err := ComputeConversionCycle(input, nil, Options{})
	if err != nil {
		t.Fatalf("ComputeConversionCycle: %v", err)
	}
	if m.DPO.Defined || m.DIO.Defined || m.CCC.Defined {
		t.Fatal("dpo/dio/ccc: expected undefined with zero cogs")
	}
	if !m.DSO.Defined {
		t.Fatal("dso: expected defined")
	}
}

func TestComputeConversionCycle_RejectsNonPositivePeriod(t *testing.T) {
	if _, err := ComputeConversionCycle(ConversionCycleInput{PeriodDays: 0}, nil, Options{}); err == nil {
		t.Fatal("expected error for zero period days")
	}
}

func TestComputeConversionCycle_TrendClassification(t *testing.T) {
	prior := &ConversionCycleMetrics{
		DSO: definedRatio(dec("100")),
		DPO: definedRatio(dec("100")),
		DIO: definedRatio(dec("100")),
		CCC: definedRatio(dec("100")),
	}

	// dso 103 (+3% -> up), dpo 98 (-2% -> stable), dio 101 (+1% -> stable)
	input := ConversionCycleInput{
		AvgReceivables: dec("103"),
		AvgPayables:    dec("98"),
		AvgInventory:   dec("101"),
		CreditSales:    dec("100"),
		COGS:           dec("100"),
		PeriodDays:     100,
	}

	m, err := ComputeConversionCycle(input, prior, Options{})
	if err != nil {
		t.Fatalf("ComputeConversionCycle: %v", err)
	}
	if m.DSO.Trend != TrendUp {
		t.Fatalf("dso trend: expected Up, got %s", m.DSO.Trend)
	}
	if m.DPO.Trend != TrendStable {
		t.Fatalf("dpo trend: expected Stable (within band), got %s", m.DPO.Trend)
	}
	if m.DIO.Trend != TrendStable {
		t.Fatalf("dio trend: expected Stable, got %s", m.DIO.Trend)
	}
	// ccc = 103 + 101 - 98 = 106 vs prior 100 -> up
	if m.CCC.Trend != TrendUp {
		t.Fatalf("ccc trend: expected Up, got %s", m.CCC.Trend)
	}
}

func TestClassifyTrend(t *testing.T) {
	tol := decimal.NewFromInt(2)
	cases := []struct {
		current, prior string
		want           TrendDirection
	}{
		{"100", "100", TrendStable},
		{"102", "100", TrendStable},
		{"98", "100", TrendStable},
		{"102.1", "100", TrendUp},
		{"97.9", "100", TrendDown},
		{"5", "0", TrendUp},
		{"-5", "0", TrendDown},
		{"0", "0", TrendStable},
		{"-97", "-100", TrendUp}, // change relative to |prior|
	}
	for _, c := range cases {
		if got := classifyTrend(dec(c.current), dec(c.prior), tol); got != c.want {
			t.Fatalf("classifyTrend(%s, %s): expected %s, got %s", c.current, c.prior, c.want, got)
		}
	}
}
