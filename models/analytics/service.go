package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Service is the engine's entry point for the presentation layer. It owns
// no state beyond the store handle: every view is a pure function of the
// fetched records and the request, so concurrent requests need no locking.
type Service struct {
	store models.RecordStore
}

func NewService(store models.RecordStore) *Service {
	return &Service{store: store}
}

// ViewRequest carries the scope and point-in-time context for a computed
// view. Zero prior-period dates mean "no period-over-period comparison".
type ViewRequest struct {
	OrganizationId   string          `json:"organization_id"`
	AsOfDate         time.Time       `json:"as_of_date"`
	FromDate         time.Time       `json:"from_date"`
	ToDate           time.Time       `json:"to_date"`
	CreditSales      decimal.Decimal `json:"credit_sales"`
	COGS             decimal.Decimal `json:"cogs"`
	PriorFromDate    time.Time       `json:"prior_from_date"`
	PriorToDate      time.Time       `json:"prior_to_date"`
	PriorCreditSales decimal.Decimal `json:"prior_credit_sales"`
	PriorCOGS        decimal.Decimal `json:"prior_cogs"`
	Options          Options         `json:"options"`
}

func (r ViewRequest) hasPriorPeriod() bool {
	return !r.PriorFromDate.IsZero() && !r.PriorToDate.IsZero()
}

var errOrganizationRequired = errors.New("organization id is required")

func (r ViewRequest) validateScope() error {
	if r.OrganizationId == "" {
		return errOrganizationRequired
	}
	return nil
}

// viewRequestCacheKey folds every result-affecting input into the key —
// dates, caller-supplied figures, and the full option set. Two requests
// that could compute different views never share a cache entry.
func viewRequestCacheKey(name string, req ViewRequest) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(payload)
	return viewCacheKey(name, req.OrganizationId, hex.EncodeToString(sum[:16]))
}

// fetchFailed wraps a store failure unless the context itself was
// cancelled — cancellation propagates as the caller's error, not a fetch
// problem, and no partial result escapes either way.
func fetchFailed(ctx context.Context, source string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &ExternalFetchError{Source: source, Err: err}
}

func (s *Service) ReceivableAging(ctx context.Context, req ViewRequest) (*AgingReport, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}
	key := viewRequestCacheKey("receivable_aging", req)
	return computeCached(ctx, "receivable_aging", key, func() (*AgingReport, error) {
		records, err := s.store.Receivables(ctx, req.OrganizationId, req.FromDate, req.AsOfDate)
		if err != nil {
			return nil, fetchFailed(ctx, "receivables", err)
		}
		return ClassifyAging(AgingItemsFromReceivables(records), req.AsOfDate, req.Options)
	})
}

func (s *Service) PayableAging(ctx context.Context, req ViewRequest) (*AgingReport, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}
	key := viewRequestCacheKey("payable_aging", req)
	return computeCached(ctx, "payable_aging", key, func() (*AgingReport, error) {
		records, err := s.store.Payables(ctx, req.OrganizationId, req.FromDate, req.AsOfDate)
		if err != nil {
			return nil, fetchFailed(ctx, "payables", err)
		}
		return ClassifyAging(AgingItemsFromPayables(records), req.AsOfDate, req.Options)
	})
}

// ConversionCycle fetches the period's receivables, payables and
// snapshots in parallel (a join: one failed fetch fails the view — the
// engine never computes around missing record sets), then derives the
// cycle metrics. With a prior period configured the prior window is
// fetched the same way and drives the trend classification.
func (s *Service) ConversionCycle(ctx context.Context, req ViewRequest) (*ConversionCycleMetrics, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}

	key := viewRequestCacheKey("conversion_cycle", req)
	return computeCached(ctx, "conversion_cycle", key, func() (*ConversionCycleMetrics, error) {
		input, err := s.conversionInput(ctx, req.OrganizationId, req.FromDate, req.ToDate, req.CreditSales, req.COGS)
		if err != nil {
			return nil, err
		}

		var prior *ConversionCycleMetrics
		if req.hasPriorPeriod() {
			priorInput, err := s.conversionInput(ctx, req.OrganizationId, req.PriorFromDate, req.PriorToDate, req.PriorCreditSales, req.PriorCOGS)
			if err != nil {
				return nil, err
			}
			prior, err = ComputeConversionCycle(*priorInput, nil, req.Options)
			if err != nil {
				return nil, err
			}
		}

		return ComputeConversionCycle(*input, prior, req.Options)
	})
}

func (s *Service) conversionInput(ctx context.Context, organizationId string, fromDate, toDate time.Time, creditSales, cogs decimal.Decimal) (*ConversionCycleInput, error) {
	var (
		receivables []models.Receivable
		payables    []models.Payable
		snapshots   []models.WorkingCapitalSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.store.Receivables(gctx, organizationId, fromDate, toDate)
		if err != nil {
			return fetchFailed(gctx, "receivables", err)
		}
		receivables = r
		return nil
	})
	g.Go(func() error {
		p, err := s.store.Payables(gctx, organizationId, fromDate, toDate)
		if err != nil {
			return fetchFailed(gctx, "payables", err)
		}
		payables = p
		return nil
	})
	g.Go(func() error {
		sn, err := s.store.Snapshots(gctx, organizationId, fromDate, toDate)
		if err != nil {
			return fetchFailed(gctx, "working_capital_snapshots", err)
		}
		snapshots = sn
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	periodDays := daysBetween(fromDate, toDate)
	if periodDays <= 0 {
		periodDays = 1
	}

	return &ConversionCycleInput{
		AvgReceivables: averageBalance(receivableOutstandingAt(receivables, fromDate), receivableOutstandingAt(receivables, toDate)),
		AvgPayables:    averageBalance(payableOutstandingAt(payables, fromDate), payableOutstandingAt(payables, toDate)),
		AvgInventory:   averageInventory(snapshots),
		CreditSales:    creditSales,
		COGS:           cogs,
		PeriodDays:     periodDays,
	}, nil
}

func receivableOutstandingAt(records []models.Receivable, at time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.IssueDate.After(at) || !r.CurrentStatus.IsOpen() {
			continue
		}
		total = total.Add(r.Outstanding())
	}
	return total
}

func payableOutstandingAt(records []models.Payable, at time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, p := range records {
		if p.IssueDate.After(at) || !p.CurrentStatus.IsOpen() {
			continue
		}
		total = total.Add(p.Outstanding())
	}
	return total
}

func averageBalance(opening, closing decimal.Decimal) decimal.Decimal {
	return opening.Add(closing).Div(decimal.NewFromInt(2))
}

func averageInventory(snapshots []models.WorkingCapitalSnapshot) decimal.Decimal {
	if len(snapshots) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, s := range snapshots {
		total = total.Add(s.Inventory)
	}
	return total.Div(decimal.NewFromInt(int64(len(snapshots))))
}

// Runway joins the forecast window with the latest snapshot (and the
// seasonal patterns when enabled). A missing snapshot is insufficient
// data, not zero cash.
func (s *Service) Runway(ctx context.Context, req ViewRequest) (*RunwayEstimate, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}
	opts := req.Options.withDefaults()
	today := req.AsOfDate
	windowEnd := today.AddDate(0, 0, opts.ForecastHorizonDays)

	key := viewRequestCacheKey("runway", req)
	return computeCached(ctx, "runway", key, func() (*RunwayEstimate, error) {
		return s.runway(ctx, req, opts, today, windowEnd)
	})
}

func (s *Service) runway(ctx context.Context, req ViewRequest, opts Options, today, windowEnd time.Time) (*RunwayEstimate, error) {
	var (
		entries  []models.ForecastEntry
		snapshot *models.WorkingCapitalSnapshot
		patterns []models.SeasonalPattern
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.store.ForecastEntries(gctx, req.OrganizationId, today, windowEnd)
		if err != nil {
			return fetchFailed(gctx, "forecast_entries", err)
		}
		entries = e
		return nil
	})
	g.Go(func() error {
		sn, err := s.store.LatestSnapshot(gctx, req.OrganizationId, today)
		if err != nil {
			return fetchFailed(gctx, "working_capital_snapshot", err)
		}
		snapshot = sn
		return nil
	})
	if opts.ApplySeasonal {
		g.Go(func() error {
			p, err := s.store.SeasonalPatterns(gctx, req.OrganizationId, opts.SeasonalMetricName)
			if err != nil {
				return fetchFailed(gctx, "seasonal_patterns", err)
			}
			patterns = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	// The store contract is an error when no snapshot exists, but guard the
	// nil anyway: a missing snapshot is insufficient data, never zero cash.
	if snapshot == nil {
		return nil, fetchFailed(ctx, "working_capital_snapshot", gorm.ErrRecordNotFound)
	}

	if opts.ApplySeasonal {
		entries = ApplySeasonalFactors(entries, patterns)
	}
	return EstimateRunway(entries, snapshot.CurrentAssets, today, opts), nil
}

// CashFlowWaterfall builds the categorized line items from the live
// forecast entries in the window and folds them with recomputed
// checkpoints: category subtotals per activity, then the closing net
// total. Which activity a category belongs to follows the category name,
// the way the chart-of-accounts detail type drives activity grouping in a
// cash flow statement.
func (s *Service) CashFlowWaterfall(ctx context.Context, req ViewRequest) ([]WaterfallStep, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}
	key := viewRequestCacheKey("waterfall", req)
	return computeCached(ctx, "waterfall", key, func() ([]WaterfallStep, error) {
		entries, err := s.store.ForecastEntries(ctx, req.OrganizationId, req.FromDate, req.ToDate)
		if err != nil {
			return nil, fetchFailed(ctx, "forecast_entries", err)
		}
		return ReconcileWaterfall(buildWaterfallItems(entries), req.Options)
	})
}

func buildWaterfallItems(entries []models.ForecastEntry) []WaterfallItem {
	type key struct {
		activity WaterfallCategory
		category string
	}
	sums := map[key]decimal.Decimal{}
	for _, e := range entries {
		if e.Superseded {
			continue
		}
		amount := e.Amount
		if e.Direction == models.FlowDirectionOutflow {
			amount = amount.Neg()
		}
		k := key{activity: classifyActivity(e.Category), category: e.Category}
		sums[k] = sums[k].Add(amount)
	}

	items := make([]WaterfallItem, 0, len(sums)+3)
	checkpoints := map[WaterfallCategory]string{
		WaterfallCategoryOperating: "Operating Cash Flow",
		WaterfallCategoryInvesting: "Free Cash Flow",
		WaterfallCategoryFinancing: "Net Cash Flow",
	}
	for _, activity := range []WaterfallCategory{WaterfallCategoryOperating, WaterfallCategoryInvesting, WaterfallCategoryFinancing} {
		var categories []string
		for k := range sums {
			if k.activity == activity {
				categories = append(categories, k.category)
			}
		}
		sort.Strings(categories)
		for _, c := range categories {
			items = append(items, WaterfallItem{
				Label:    c,
				Value:    sums[key{activity: activity, category: c}],
				Category: activity,
			})
		}
		items = append(items, WaterfallItem{Label: checkpoints[activity], Category: WaterfallCategoryTotal})
	}
	return items
}

func classifyActivity(category string) WaterfallCategory {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "capex"), strings.Contains(c, "equipment"), strings.Contains(c, "investment"), strings.Contains(c, "asset"):
		return WaterfallCategoryInvesting
	case strings.Contains(c, "loan"), strings.Contains(c, "financing"), strings.Contains(c, "equity"), strings.Contains(c, "dividend"):
		return WaterfallCategoryFinancing
	default:
		return WaterfallCategoryOperating
	}
}

// CashFlowVariance compares realized collections and payments against the
// forecast for the same window. The three record sets are independent and
// fetched in parallel; any failed fetch fails the whole view.
func (s *Service) CashFlowVariance(ctx context.Context, req ViewRequest) ([]*VarianceRecord, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}
	key := viewRequestCacheKey("cash_flow_variance", req)
	return computeCached(ctx, "cash_flow_variance", key, func() ([]*VarianceRecord, error) {
		return s.cashFlowVariance(ctx, req)
	})
}

func (s *Service) cashFlowVariance(ctx context.Context, req ViewRequest) ([]*VarianceRecord, error) {
	var (
		receivables []models.Receivable
		payables    []models.Payable
		entries     []models.ForecastEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.store.Receivables(gctx, req.OrganizationId, req.FromDate, req.ToDate)
		if err != nil {
			return fetchFailed(gctx, "receivables", err)
		}
		receivables = r
		return nil
	})
	g.Go(func() error {
		p, err := s.store.Payables(gctx, req.OrganizationId, req.FromDate, req.ToDate)
		if err != nil {
			return fetchFailed(gctx, "payables", err)
		}
		payables = p
		return nil
	})
	g.Go(func() error {
		e, err := s.store.ForecastEntries(gctx, req.OrganizationId, req.FromDate, req.ToDate)
		if err != nil {
			return fetchFailed(gctx, "forecast_entries", err)
		}
		entries = e
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	actualInflow := decimal.Zero
	for _, r := range receivables {
		actualInflow = actualInflow.Add(r.AmountPaid)
	}
	actualOutflow := decimal.Zero
	for _, p := range payables {
		actualOutflow = actualOutflow.Add(p.AmountPaid)
	}

	forecastInflow := decimal.Zero
	forecastOutflow := decimal.Zero
	for _, e := range entries {
		if e.Superseded {
			continue
		}
		switch e.Direction {
		case models.FlowDirectionInflow:
			forecastInflow = forecastInflow.Add(e.Amount)
		case models.FlowDirectionOutflow:
			forecastOutflow = forecastOutflow.Add(e.Amount)
		}
	}

	inflow, err := AnalyzeVariance(VarianceInput{
		MetricName: "cash_inflow",
		Actual:     actualInflow,
		Forecast:   forecastInflow,
	}, req.Options)
	if err != nil {
		return nil, err
	}
	outflow, err := AnalyzeVariance(VarianceInput{
		MetricName: "cash_outflow",
		Actual:     actualOutflow,
		Forecast:   forecastOutflow,
	}, req.Options)
	if err != nil {
		return nil, err
	}
	return []*VarianceRecord{inflow, outflow}, nil
}
