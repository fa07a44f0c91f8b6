package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/config"
	"github.com/shopspring/decimal"
)

// SeasonalPattern is a per-month multiplicative factor for a named metric
// (e.g. forecast inflows that reliably spike in December).
type SeasonalPattern struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrganizationId string          `gorm:"index;not null" json:"organization_id" validate:"required"`
	MetricName     string          `gorm:"size:255;not null" json:"metric_name" validate:"required"`
	Month          int             `gorm:"not null" json:"month"`
	Factor         decimal.Decimal `gorm:"type:decimal(10,4);default:1" json:"factor"`
	Active         bool            `gorm:"default:true" json:"active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *SeasonalPattern) Validate() error {
	if err := validate.Struct(p); err != nil {
		return NewValidationError("seasonal_pattern", err.Error())
	}
	if p.Month < 1 || p.Month > 12 {
		return NewValidationError("month", "must be between 1 and 12")
	}
	if !p.Factor.IsPositive() {
		return NewValidationError("factor", "must be positive")
	}
	return nil
}

func CreateSeasonalPattern(ctx context.Context, input *SeasonalPattern) (*SeasonalPattern, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(input).Error; err != nil {
		return nil, err
	}
	return input, nil
}

func GetSeasonalPatterns(ctx context.Context, organizationId string, metricName string) ([]SeasonalPattern, error) {
	var records []SeasonalPattern
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Where("metric_name = ?", metricName).
		Where("active = ?", true).
		Order("month ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
