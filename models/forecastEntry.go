package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/config"
	"bitbucket.org/mmdatafocus/cashflow_analytics/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ForecastEntry rows are append/update only. A revised forecast supersedes
// the old row via the Superseded flag; nothing is deleted, so the forecast
// history stays auditable.
type ForecastEntry struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrganizationId string          `gorm:"index;not null" json:"organization_id" validate:"required"`
	ForecastDate   time.Time       `gorm:"index;not null" json:"forecast_date"`
	Direction      FlowDirection   `gorm:"type:enum('Inflow','Outflow');not null" json:"direction"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Category       string          `gorm:"size:255;not null" json:"category" validate:"required"`
	Superseded     bool            `gorm:"default:false;index" json:"superseded"`
	SupersededById *int            `gorm:"default:null" json:"superseded_by_id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (f *ForecastEntry) Validate() error {
	if err := validate.Struct(f); err != nil {
		return NewValidationError("forecast_entry", err.Error())
	}
	if f.Direction != FlowDirectionInflow && f.Direction != FlowDirectionOutflow {
		return NewValidationError("direction", "must be Inflow or Outflow")
	}
	if f.Amount.IsNegative() {
		return NewValidationError("amount", "must not be negative")
	}
	if f.ForecastDate.IsZero() {
		return NewValidationError("forecast_date", "is required")
	}
	return nil
}

func CreateForecastEntry(ctx context.Context, input *ForecastEntry) (*ForecastEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(input).Error; err != nil {
		return nil, err
	}
	return input, nil
}

// SupersedeForecastEntry writes the replacement and flags the old row in
// one transaction. The old row survives for audit.
func SupersedeForecastEntry(ctx context.Context, oldId int, replacement *ForecastEntry) (*ForecastEntry, error) {
	if err := replacement.Validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old ForecastEntry
		if err := tx.Where("id = ? AND organization_id = ?", oldId, replacement.OrganizationId).
			First(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		if old.Superseded {
			return NewValidationError("forecast_entry", "already superseded")
		}
		if err := tx.Create(replacement).Error; err != nil {
			return err
		}
		return tx.Model(&ForecastEntry{}).
			Where("id = ?", old.ID).
			Updates(map[string]interface{}{
				"superseded":       true,
				"superseded_by_id": replacement.ID,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return replacement, nil
}

// GetForecastEntries returns the live (non-superseded) entries in the window.
func GetForecastEntries(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]ForecastEntry, error) {
	var records []ForecastEntry
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Where("forecast_date BETWEEN ? AND ?", fromDate, toDate).
		Where("superseded = ?", false).
		Order("forecast_date ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
