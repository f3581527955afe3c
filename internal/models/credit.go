package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductType identifies a credit product.
type ProductType string

const (
	// ProductQuick is the short-term product; terms are expressed in days.
	ProductQuick ProductType = "quick"
	// ProductNormal is the medium-term product; terms are expressed in months.
	ProductNormal ProductType = "normal"
)

// CreditStatus is the lifecycle state of a credit.
type CreditStatus string

const (
	CreditPreApproved CreditStatus = "pre_approved"
	CreditInProgress  CreditStatus = "in_progress"
	CreditPaid        CreditStatus = "paid"
	CreditDefault     CreditStatus = "default"
	CreditCanceled    CreditStatus = "canceled"
)

// Credit represents a credit in the system
type Credit struct {
	ID               int64           `json:"id"`
	AccountID        int64           `json:"account_id"`
	ProductType      ProductType     `json:"product_type"`
	Principal        decimal.Decimal `json:"principal"`
	TotalPayable     decimal.Decimal `json:"total_payable"`
	TermUnits        int             `json:"term_units"`
	TEARate          decimal.Decimal `json:"tea_rate"`
	CFTRate          decimal.Decimal `json:"cft_rate"`
	Status           CreditStatus    `json:"status"`
	InstallmentCount int             `json:"installment_count"`
	DisbursedAt      *time.Time      `json:"disbursed_at,omitempty"`
	DueAt            time.Time       `json:"due_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Active reports whether the credit still represents outstanding debt.
func (c *Credit) Active() bool {
	return c.Status == CreditInProgress
}
