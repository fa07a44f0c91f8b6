package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/config"
	"bitbucket.org/mmdatafocus/cashflow_analytics/utils"
	"github.com/shopspring/decimal"
)

type Payable struct {
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

func (p *Payable) Validate() error {
	if err := validate.Struct(p); err != nil {
		return NewValidationError("payable", err.Error())
	}
	return validateOpenItemAmounts("payable", p.AmountDue, p.AmountPaid, p.CurrentStatus)
}

func (p *Payable) validateContact() error {
	if p.ContactEmail != nil && *p.ContactEmail != "" && !utils.IsValidEmail(*p.ContactEmail) {
		return NewValidationError("contact_email", "invalid email address")
	}
	if p.ContactPhone != nil && *p.ContactPhone != "" {
		if err := utils.ValidatePhoneNumber(*p.ContactPhone, utils.CountryCode); err != nil {
			return NewValidationError("contact_phone", err.Error())
		}
	}
	return nil
}

func (p *Payable) Outstanding() decimal.Decimal {
	return p.AmountDue.Sub(p.AmountPaid)
}

func CreatePayable(ctx context.Context, input *Payable) (*Payable, error) {
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

func UpdatePayable(ctx context.Context, input *Payable) (*Payable, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := input.validateContact(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	var existing Payable
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

func GetPayables(ctx context.Context, organizationId string, fromDate, toDate time.Time) ([]Payable, error) {
	var records []Payable
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
