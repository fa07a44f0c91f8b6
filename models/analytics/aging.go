package analytics

import (
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/models"
	"github.com/shopspring/decimal"
)

// AgingItem is the minimal slice of a receivable or payable the classifier
// needs. Both record kinds reduce to it.
type AgingItem struct {
	DueDate     time.Time
	Outstanding decimal.Decimal
	Status      models.RecordStatus
}

type AgingBucket struct {
	Label     string          `json:"label"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

type AgingReport struct {
	AsOfDate   time.Time       `json:"as_of_date"`
	Buckets    []AgingBucket   `json:"buckets"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

func AgingItemsFromReceivables(records []models.Receivable) []AgingItem {
	items := make([]AgingItem, 0, len(records))
	for _, r := range records {
		items = append(items, AgingItem{DueDate: r.DueDate, Outstanding: r.Outstanding(), Status: r.CurrentStatus})
	}
	return items
}

func AgingItemsFromPayables(records []models.Payable) []AgingItem {
	items := make([]AgingItem, 0, len(records))
	for _, p := range records {
		items = append(items, AgingItem{DueDate: p.DueDate, Outstanding: p.Outstanding(), Status: p.CurrentStatus})
	}
	return items
}

// ClassifyAging buckets every open item by days outstanding at asOf.
// Bucket assignment is a pure function of due date and as-of date; it is
// not a data-quality check, so calendar-insane records bucket as-is.
// Every configured bucket is emitted even when empty, and the bucket
// totals always close to the grand total of outstanding amounts.
func ClassifyAging(items []AgingItem, asOf time.Time, opts Options) (*AgingReport, error) {
	opts = opts.withDefaults()
	if err := validateBoundaries(opts.AgingBoundaries); err != nil {
		return nil, err
	}

	labels := bucketLabels(opts.AgingBoundaries)
	buckets := make([]AgingBucket, len(labels))
	for i, label := range labels {
		buckets[i] = AgingBucket{Label: label, Total: decimal.Zero}
	}

	grandTotal := decimal.Zero
	for _, item := range items {
		if !item.Status.IsOpen() {
			continue
		}
		days := daysBetween(item.DueDate, asOf)
		idx := bucketIndex(days, opts.AgingBoundaries)
		buckets[idx].ItemCount++
		buckets[idx].Total = buckets[idx].Total.Add(item.Outstanding)
		grandTotal = grandTotal.Add(item.Outstanding)
	}

	return &AgingReport{
		AsOfDate:   asOf,
		Buckets:    buckets,
		GrandTotal: grandTotal,
	}, nil
}

func validateBoundaries(boundaries []int) error {
	prev := 0
	for _, b := range boundaries {
		if b <= prev {
			return errors.New("aging boundaries must be positive and strictly increasing")
		}
		prev = b
	}
	return nil
}

// bucketLabels derives labels from the boundaries: "current", then one
// range per boundary, then an open-ended "<last>+". Defaults produce
// current / 1-30 / 31-60 / 60+.
func bucketLabels(boundaries []int) []string {
	labels := make([]string, 0, len(boundaries)+2)
	labels = append(labels, "current")
	prev := 0
	for _, b := range boundaries {
		labels = append(labels, fmt.Sprintf("%d-%d", prev+1, b))
		prev = b
	}
	labels = append(labels, fmt.Sprintf("%d+", prev))
	return labels
}

func bucketIndex(days int, boundaries []int) int {
	if days <= 0 {
		return 0
	}
	for i, b := range boundaries {
		if days <= b {
			return i + 1
		}
	}
	return len(boundaries) + 1
}

// daysBetween is the calendar-day difference to - from, ignoring clock time.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
