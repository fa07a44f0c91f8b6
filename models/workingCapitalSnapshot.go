package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/config"
	"github.com/shopspring/decimal"
)

// WorkingCapitalSnapshot is a point-in-time balance record. One row per
// (organization, date); immutable once written — corrections are a new
// snapshot on a new date, never an update in place.
type WorkingCapitalSnapshot struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	OrganizationId     string          `gorm:"uniqueIndex:idx_org_snapshot_date;not null" json:"organization_id" validate:"required"`
	SnapshotDate       time.Time       `gorm:"uniqueIndex:idx_org_snapshot_date;not null" json:"snapshot_date"`
	CurrentAssets      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_assets"`
	CurrentLiabilities decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_liabilities"`
	Inventory          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"inventory"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

var ErrorSnapshotExists = errors.New("a snapshot already exists for this organization and date")

func (s *WorkingCapitalSnapshot) Validate() error {
	if err := validate.Struct(s); err != nil {
		return NewValidationError("working_capital_snapshot", err.Error())
	}
	if s.SnapshotDate.IsZero() {
		return NewValidationError("snapshot_date", "is required")
	}
	return nil
}

func CreateWorkingCapitalSnapshot(ctx context.Context, input *WorkingCapitalSnapshot) (*WorkingCapitalSnapshot, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&WorkingCapitalSnapshot{}).
		Where("organization_id = ? AND snapshot_date = ?", input.OrganizationId, input.SnapshotDate).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrorSnapshotExists
	}
	if err := db.WithContext(ctx).Create(input).Error; err != nil {
		return nil, err
	}
	return input, nil
}

// GetLatestWorkingCapitalSnapshot returns the most recent snapshot on or
// before asOf, or gorm.ErrRecordNotFound when none exists yet.
func GetLatestWorkingCapitalSnapshot(ctx context.Context, organizationId string, asOf time.Time) (*WorkingCapitalSnapshot, error) {
	var record WorkingCapitalSnapshot
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Where("snapshot_date <= ?", asOf).
		Order("snapshot_date DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func GetWorkingCapitalSnapshots(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]WorkingCapitalSnapshot, error) {
	var records []WorkingCapitalSnapshot
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Where("snapshot_date BETWEEN ? AND ?", fromDate, toDate).
		Order("snapshot_date ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
