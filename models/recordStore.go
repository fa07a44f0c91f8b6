package models

import (
	"context"
	"time"
)

// RecordStore is the engine's read contract. The analytics package never
// touches gorm directly; it asks for records matching a filter and works
// with whatever comes back. All reads are bounded by the caller's ctx.
//
// LatestSnapshot must return a non-nil snapshot or an error (the gorm
// implementation returns gorm.ErrRecordNotFound); (nil, nil) is a contract
// violation.
type RecordStore interface {
	Receivables(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]Receivable, error)
	Payables(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]Payable, error)
	LatestSnapshot(ctx context.Context, organizationId string, asOf time.Time) (*WorkingCapitalSnapshot, error)
	Snapshots(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]WorkingCapitalSnapshot, error)
	ForecastEntries(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]ForecastEntry, error)
	SeasonalPatterns(ctx context.Context, organizationId string, metricName string) ([]SeasonalPattern, error)
}

// DBRecordStore serves records from the shared gorm handle.
type DBRecordStore struct{}

func NewDBRecordStore() *DBRecordStore {
	return &DBRecordStore{}
}

func (s *DBRecordStore) Receivables(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]Receivable, error) {
	return GetReceivables(ctx, organizationId, fromDate, toDate)
}

func (s *DBRecordStore) Payables(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]Payable, error) {
	return GetPayables(ctx, organizationId, fromDate, toDate)
}

func (s *DBRecordStore) LatestSnapshot(ctx context.Context, organizationId string, asOf time.Time) (*WorkingCapitalSnapshot, error) {
	return GetLatestWorkingCapitalSnapshot(ctx, organizationId, asOf)
}

func (s *DBRecordStore) Snapshots(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]WorkingCapitalSnapshot, error) {
	return GetWorkingCapitalSnapshots(ctx, organizationId, fromDate, toDate)
}

func (s *DBRecordStore) ForecastEntries(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]ForecastEntry, error) {
	return GetForecastEntries(ctx, organizationId, fromDate, toDate)
}

func (s *DBRecordStore) SeasonalPatterns(ctx context.Context, organizationId string, metricName string) ([]SeasonalPattern, error) {
	return GetSeasonalPatterns(ctx, organizationId, metricName)
}
