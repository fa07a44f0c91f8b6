package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/models"
	"gorm.io/gorm"
)

// fakeStore serves canned records and lets a test fail any single fetch.
type fakeStore struct {
	receivables []models.Receivable
	payables    []models.Payable
	snapshot    *models.WorkingCapitalSnapshot
	snapshots   []models.WorkingCapitalSnapshot
	entries     []models.ForecastEntry
	patterns    []models.SeasonalPattern

	receivablesErr error
	payablesErr    error
	snapshotErr    error
	snapshotsErr   error
	entriesErr     error
	patternsErr    error
}

func (f *fakeStore) Receivables(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]models.Receivable, error) {
	if f.receivablesErr != nil {
		return nil, f.receivablesErr
	}
	return f.receivables, nil
}

func (f *fakeStore) Payables(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]models.Payable, error) {
	if f.payablesErr != nil {
		return nil, f.payablesErr
	}
	return f.payables, nil
}

func (f *fakeStore) LatestSnapshot(ctx context.Context, organizationId string, asOf time.Time) (*models.WorkingCapitalSnapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeStore) Snapshots(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]models.WorkingCapitalSnapshot, error) {
	if f.snapshotsErr != nil {
		return nil, f.snapshotsErr
	}
	return f.snapshots, nil
}

func (f *fakeStore) ForecastEntries(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]models.ForecastEntry, error) {
	if f.entriesErr != nil {
		return nil, f.entriesErr
	}
	return f.entries, nil
}

func (f *fakeStore) SeasonalPatterns(ctx context.Context, organizationId string, metricName string) ([]models.SeasonalPattern, error) {
	if f.patternsErr != nil {
		return nil, f.patternsErr
	}
	return f.patterns, nil
}

func baseRequest() ViewRequest {
	return ViewRequest{
		OrganizationId: "org-1",
		AsOfDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		FromDate:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ToDate:         time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestService_RequiresOrganization(t *testing.T) {
	svc := NewService(&fakeStore{})
	req := baseRequest()
	req.OrganizationId = ""

	if _, err := svc.ReceivableAging(context.Background(), req); err == nil {
		t.Fatal("expected scope error for missing organization id")
	}
}

func TestService_ConversionCycle(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		receivables: []models.Receivable{
			{IssueDate: from, AmountDue: dec("50000"), CurrentStatus: models.RecordStatusPending},
		},
		payables: []models.Payable{
			{IssueDate: from, AmountDue: dec("30000"), CurrentStatus: models.RecordStatusPending},
		},
		snapshots: []models.WorkingCapitalSnapshot{
			{Inventory: dec("18000")},
			{Inventory: dec("22000")},
		},
	}
	svc := NewService(store)
	req := baseRequest()
	req.CreditSales = dec("200000")
	req.COGS = dec("120000")

	m, err := svc.ConversionCycle(context.Background(), req)
	if err != nil {
		t.Fatalf("ConversionCycle: %v", err)
	}
	if !m.DSO.Defined || !m.DPO.Defined || !m.DIO.Defined || !m.CCC.Defined {
		t.Fatalf("expected all ratios defined: %+v", m)
	}
	// Same open balance at both window edges: average stays 50000/30000;
	// inventory averages to 20000 over the two snapshots.
	// dso = 50000/200000*89, dio = 20000/120000*89, dpo = 30000/120000*89
	want := m.DSO.Days.Add(m.DIO.Days).Sub(m.DPO.Days)
	if !m.CCC.Days.Equal(want) {
		t.Fatalf("ccc identity violated: %s vs %s", m.CCC.Days, want)
	}
}

// One failed fetch fails the whole view; no partial metrics escape.
func TestService_ConversionCycle_PartialFetchFailureFailsView(t *testing.T) {
	store := &fakeStore{payablesErr: errors.New("connection reset")}
	svc := NewService(store)
	req := baseRequest()
	req.CreditSales = dec("200000")
	req.COGS = dec("120000")

	m, err := svc.ConversionCycle(context.Background(), req)
	if m != nil {
		t.Fatalf("expected no partial result, got %+v", m)
	}
	var fetchErr *ExternalFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected ExternalFetchError, got %v", err)
	}
	if fetchErr.Source != "payables" {
		t.Fatalf("source: expected payables, got %s", fetchErr.Source)
	}
}

func TestService_ConversionCycle_CancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{receivablesErr: context.Canceled}
	svc := NewService(store)

	m, err := svc.ConversionCycle(ctx, baseRequest())
	if m != nil {
		t.Fatalf("expected no partial result, got %+v", m)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var fetchErr *ExternalFetchError
	if errors.As(err, &fetchErr) {
		t.Fatal("cancellation must not be dressed up as a fetch failure")
	}
}

func TestService_Runway(t *testing.T) {
	today := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		snapshot: &models.WorkingCapitalSnapshot{CurrentAssets: dec("1000")},
		entries: []models.ForecastEntry{
			{ForecastDate: today.AddDate(0, 0, 10), Direction: models.FlowDirectionOutflow, Amount: dec("600")},
			{ForecastDate: today.AddDate(0, 0, 20), Direction: models.FlowDirectionInflow, Amount: dec("300")},
		},
	}
	svc := NewService(store)
	req := baseRequest()

	est, err := svc.Runway(context.Background(), req)
	if err != nil {
		t.Fatalf("Runway: %v", err)
	}
	if est.Unbounded {
		t.Fatal("expected bounded runway")
	}
	if est.RunwayDays != 300 {
		t.Fatalf("runway days: expected 300, got %d", est.RunwayDays)
	}
}

// A missing snapshot is insufficient data, not zero cash.
func TestService_Runway_MissingSnapshotFails(t *testing.T) {
	store := &fakeStore{snapshotErr: gorm.ErrRecordNotFound}
	svc := NewService(store)

	est, err := svc.Runway(context.Background(), baseRequest())
	if est != nil {
		t.Fatalf("expected no estimate, got %+v", est)
	}
	var fetchErr *ExternalFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected ExternalFetchError, got %v", err)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected wrapped record-not-found, got %v", err)
	}
}

// A store that hands back (nil, nil) for the latest snapshot violates the
// RecordStore contract; the view must fail as insufficient data rather
// than dereference it.
func TestService_Runway_NilSnapshotFailsNotPanics(t *testing.T) {
	today := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		entries: []models.ForecastEntry{
			{ForecastDate: today.AddDate(0, 0, 10), Direction: models.FlowDirectionOutflow, Amount: dec("300")},
		},
	}
	svc := NewService(store)

	est, err := svc.Runway(context.Background(), baseRequest())
	if est != nil {
		t.Fatalf("expected no estimate, got %+v", est)
	}
	var fetchErr *ExternalFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected ExternalFetchError, got %v", err)
	}
	if fetchErr.Source != "working_capital_snapshot" {
		t.Fatalf("source: expected working_capital_snapshot, got %s", fetchErr.Source)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected wrapped record-not-found, got %v", err)
	}
}

// Every input that can change a computed view must change its cache key;
// otherwise an enabled cache serves one caller's numbers to another.
func TestViewRequestCacheKey_CoversResultAffectingInputs(t *testing.T) {
	base := baseRequest()
	base.CreditSales = dec("200000")
	base.COGS = dec("120000")
	baseKey := viewRequestCacheKey("conversion_cycle", base)

	// Same request, same key: the cache still works at all.
	if viewRequestCacheKey("conversion_cycle", base) != baseKey {
		t.Fatal("identical requests must share a cache key")
	}
	if viewRequestCacheKey("runway", base) == baseKey {
		t.Fatal("different views must not share a cache key")
	}

	variants := map[string]func(r *ViewRequest){
		"credit_sales":       func(r *ViewRequest) { r.CreditSales = dec("400000") },
		"cogs":               func(r *ViewRequest) { r.COGS = dec("1") },
		"prior_credit_sales": func(r *ViewRequest) { r.PriorCreditSales = dec("5") },
		"prior_from_date":    func(r *ViewRequest) { r.PriorFromDate = r.FromDate.AddDate(-1, 0, 0) },
		"as_of_date":         func(r *ViewRequest) { r.AsOfDate = r.AsOfDate.AddDate(0, 0, 1) },
		"organization":       func(r *ViewRequest) { r.OrganizationId = "org-2" },
		"aging_boundaries":   func(r *ViewRequest) { r.Options.AgingBoundaries = []int{15, 30, 45} },
		"checkpoint_mode":    func(r *ViewRequest) { r.Options.CheckpointMode = CheckpointModeSegment },
		"horizon_days":       func(r *ViewRequest) { r.Options.ForecastHorizonDays = 30 },
		"trend_tolerance":    func(r *ViewRequest) { r.Options.TrendTolerancePercent = dec("5") },
		"high_threshold":     func(r *ViewRequest) { r.Options.VarianceHighPercent = dec("8") },
		"medium_threshold":   func(r *ViewRequest) { r.Options.VarianceMediumPercent = dec("3") },
		"reconcile_epsilon":  func(r *ViewRequest) { r.Options.ReconcileEpsilon = dec("0.5") },
		"seasonal":           func(r *ViewRequest) { r.Options.ApplySeasonal = true },
		"seasonal_metric":    func(r *ViewRequest) { r.Options.SeasonalMetricName = "inflow" },
	}
	for name, mutate := range variants {
		req := base
		mutate(&req)
		if viewRequestCacheKey("conversion_cycle", req) == baseKey {
			t.Fatalf("%s changed but cache key did not", name)
		}
	}
}

func TestService_Runway_SeasonalAdjustment(t *testing.T) {
	today := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		snapshot: &models.WorkingCapitalSnapshot{CurrentAssets: dec("1000")},
		entries: []models.ForecastEntry{
			{ForecastDate: today.AddDate(0, 0, 10), Direction: models.FlowDirectionOutflow, Amount: dec("300")},
		},
		patterns: []models.SeasonalPattern{
			{Month: 4, Factor: dec("2"), Active: true},
		},
	}
	svc := NewService(store)
	req := baseRequest()
	req.Options = Options{ApplySeasonal: true}

	est, err := svc.Runway(context.Background(), req)
	if err != nil {
		t.Fatalf("Runway: %v", err)
	}
	// Outflow doubled by the April factor: burn 200/month, 1000*30/200 = 150.
	if !est.MonthlyBurnRate.Equal(dec("200")) {
		t.Fatalf("burn rate: expected 200, got %s", est.MonthlyBurnRate)
	}
	if est.RunwayDays != 150 {
		t.Fatalf("runway days: expected 150, got %d", est.RunwayDays)
	}
}

func TestService_CashFlowWaterfall(t *testing.T) {
	from := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		entries: []models.ForecastEntry{
			{ForecastDate: from, Direction: models.FlowDirectionInflow, Amount: dec("100"), Category: "Sales Collections"},
			{ForecastDate: from, Direction: models.FlowDirectionOutflow, Amount: dec("40"), Category: "Payroll"},
			{ForecastDate: from, Direction: models.FlowDirectionOutflow, Amount: dec("30"), Category: "Equipment Purchase"},
			{ForecastDate: from, Direction: models.FlowDirectionInflow, Amount: dec("25"), Category: "Loan Drawdown"},
		},
	}
	svc := NewService(store)

	steps, err := svc.CashFlowWaterfall(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("CashFlowWaterfall: %v", err)
	}

	byLabel := map[string]WaterfallStep{}
	for _, s := range steps {
		byLabel[s.Label] = s
	}
	if got := byLabel["Operating Cash Flow"].Value; !got.Equal(dec("60")) {
		t.Fatalf("operating checkpoint: expected 60, got %s", got)
	}
	if got := byLabel["Free Cash Flow"].Value; !got.Equal(dec("30")) {
		t.Fatalf("free cash flow checkpoint: expected 30, got %s", got)
	}
	if got := byLabel["Net Cash Flow"].Value; !got.Equal(dec("55")) {
		t.Fatalf("net checkpoint: expected 55, got %s", got)
	}
	if got := byLabel["Equipment Purchase"].Category; got != WaterfallCategoryInvesting {
		t.Fatalf("equipment purchase: expected Investing, got %s", got)
	}
	if got := byLabel["Loan Drawdown"].Category; got != WaterfallCategoryFinancing {
		t.Fatalf("loan drawdown: expected Financing, got %s", got)
	}
}

func TestService_CashFlowVariance(t *testing.T) {
	from := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		receivables: []models.Receivable{
			{IssueDate: from, AmountDue: dec("100"), AmountPaid: dec("80"), CurrentStatus: models.RecordStatusPartial},
			{IssueDate: from, AmountDue: dec("40"), AmountPaid: dec("40"), CurrentStatus: models.RecordStatusPaid},
		},
		payables: []models.Payable{
			{IssueDate: from, AmountDue: dec("50"), AmountPaid: dec("50"), CurrentStatus: models.RecordStatusPaid},
		},
		entries: []models.ForecastEntry{
			{ForecastDate: from, Direction: models.FlowDirectionInflow, Amount: dec("100")},
			{ForecastDate: from, Direction: models.FlowDirectionOutflow, Amount: dec("60")},
		},
	}
	svc := NewService(store)

	records, err := svc.CashFlowVariance(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("CashFlowVariance: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected inflow and outflow records, got %d", len(records))
	}

	inflow := records[0]
	// Collected 120 against a 100 forecast: +20%, high band.
	if !inflow.Variance.Equal(dec("20")) {
		t.Fatalf("inflow variance: expected 20, got %s", inflow.Variance)
	}
	if inflow.Significance != VarianceSignificanceHigh {
		t.Fatalf("inflow significance: expected High, got %s", inflow.Significance)
	}

	outflow := records[1]
	// Paid 50 against a 60 forecast: -16.67%, high band.
	if !outflow.Variance.Equal(dec("-10")) {
		t.Fatalf("outflow variance: expected -10, got %s", outflow.Variance)
	}
	if outflow.Significance != VarianceSignificanceHigh {
		t.Fatalf("outflow significance: expected High, got %s", outflow.Significance)
	}
}

func TestService_ReceivableAging(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		receivables: []models.Receivable{
			{DueDate: asOf.AddDate(0, 0, -10), AmountDue: dec("100"), CurrentStatus: models.RecordStatusOverdue},
			{DueDate: asOf.AddDate(0, 0, -40), AmountDue: dec("200"), CurrentStatus: models.RecordStatusOverdue},
			{DueDate: asOf.AddDate(0, 0, -70), AmountDue: dec("50"), CurrentStatus: models.RecordStatusOverdue},
			{DueDate: asOf.AddDate(0, 0, -70), AmountDue: dec("999"), AmountPaid: dec("999"), CurrentStatus: models.RecordStatusPaid},
		},
	}
	svc := NewService(store)
	req := baseRequest()
	req.AsOfDate = asOf

	report, err := svc.ReceivableAging(context.Background(), req)
	if err != nil {
		t.Fatalf("ReceivableAging: %v", err)
	}
	if !report.GrandTotal.Equal(dec("350")) {
		t.Fatalf("grand total: expected 350, got %s", report.GrandTotal)
	}
	if got := bucketByLabel(t, report, "31-60").Total; !got.Equal(dec("200")) {
		t.Fatalf("31-60 bucket: expected 200, got %s", got)
	}
}
