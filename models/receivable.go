package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/config"
	"bitbucket.org/mmdatafocus/cashflow_analytics/utils"
	"github.com/shopspring/decimal"
)

type Receivable struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrganizationId  string          `gorm:"index;not null" json:"organization_id" validate:"required"`
	CounterpartName string          `gorm:"size:255;not null" json:"counterpart_name" validate:"required"`
	ReferenceNumber string          `gorm:"size:255;default:null" json:"reference_number"`
	IssueDate       time.Time       `gorm:"not null" json:"issue_date"`
	DueDate         time.Time       `gorm:"index;not null" json:"due_date"`
	AmountDue       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_due"`
	AmountPaid      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	CurrentStatus   RecordStatus    `gorm:"type:enum('Pending','Partial','Paid','Overdue');default:Pending" json:"current_status"`
	ContactName     *string         `gorm:"size:255;default:null" json:"contact_name"`
	ContactEmail    *string         `gorm:"size:255;default:null" json:"contact_email"`
	ContactPhone    *string         `gorm:"size:100;default:null" json:"contact_phone"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Validate enforces the money invariants at the write boundary.
// Bucket assignment downstream assumes these hold; a record that fails
// here is rejected, never clamped.
func (r *Receivable) Validate() error {
	if err := validate.Struct(r); err != nil {
		return NewValidationError("receivable", err.Error())
	}
	return validateOpenItemAmounts("receivable", r.AmountDue, r.AmountPaid, r.CurrentStatus)
}

func (r *Receivable) validateContact() error {
	if r.ContactEmail != nil && *r.ContactEmail != "" && !utils.IsValidEmail(*r.ContactEmail) {
		return NewValidationError("contact_email", "invalid email address")
	}
	if r.ContactPhone != nil && *r.ContactPhone != "" {
		if err := utils.ValidatePhoneNumber(*r.ContactPhone, utils.CountryCode); err != nil {
			return NewValidationError("contact_phone", err.Error())
		}
	}
	return nil
}

// validateOpenItemAmounts is shared with Payable; the two record kinds
// carry identical money invariants.
func validateOpenItemAmounts(kind string, amountDue, amountPaid decimal.Decimal, status RecordStatus) error {
	if amountDue.IsNegative() {
		return NewValidationError(kind+".amount_due", "must not be negative")
	}
	if amountPaid.IsNegative() {
		return NewValidationError(kind+".amount_paid", "must not be negative")
	}
	if amountPaid.GreaterThan(amountDue) {
		return NewValidationError(kind+".amount_paid", "must not exceed amount_due")
	}
	if status == RecordStatusPaid && !amountPaid.Equal(amountDue) {
		return NewValidationError(kind+".current_status", "Paid requires amount_paid equal to amount_due")
	}
	return nil
}

// Outstanding is the unpaid remainder used for aging totals.
func (r *Receivable) Outstanding() decimal.Decimal {
	return r.AmountDue.Sub(r.AmountPaid)
}

func CreateReceivable(ctx context.Context, input *Receivable) (*Receivable, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := input.validateContact(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(input).Error; err != nil {
		return nil, err
	}
	return input, nil
}

func UpdateReceivable(ctx context.Context, input *Receivable) (*Receivable, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := input.validateContact(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	var existing Receivable
	if err := db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", input.ID, input.OrganizationId).
		First(&existing).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := db.WithContext(ctx).Save(input).Error; err != nil {
		return nil, err
	}
	return input, nil
}

func GetReceivables(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]Receivable, error) {
	var records []Receivable
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Where("issue_date BETWEEN ? AND ?", fromDate, toDate).
		Order("due_date ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
