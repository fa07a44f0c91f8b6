package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReconciliationError reports totals that fail to reconcile within the
// configured epsilon. It aborts the computation: a view is never returned
// around a total that does not add up.
type ReconciliationError struct {
	Metric   string
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Epsilon  decimal.Decimal
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed for %s: expected %s, got %s (epsilon %s)",
		e.Metric, e.Expected.String(), e.Actual.String(), e.Epsilon.String())
}

// ExternalFetchError wraps a record-store failure unchanged. The engine
// does not retry and never substitutes defaults for missing records.
type ExternalFetchError struct {
	Source string
	Err    error
}

func (e *ExternalFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *ExternalFetchError) Unwrap() error {
	return e.Err
}
