package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYCStatus is the identity-verification status of an account.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCInReview KYCStatus = "in_review"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// Transfer-limit tiers. Accounts start at the base tier and move to the
// verified tier when KYC is approved; anything else is admin-set.
var (
	BaseTierLimit     = decimal.NewFromInt(10000)
	VerifiedTierLimit = decimal.NewFromInt(50000)
)

// Account represents a wallet account in the system
type Account struct {
	ID             int64           `json:"id"`
	Email          string          `json:"email"`
	Username       string          `json:"username"`
	PasswordHash   string          `json:"-"` // Not serialized
	Balance        decimal.Decimal `json:"balance"`
	KYCStatus      KYCStatus       `json:"kyc_status"`
	TransferLimit  decimal.Decimal `json:"transfer_limit"`
	DeclaredIncome decimal.Decimal `json:"declared_income"`
	FailedAttempts int             `json:"-"`
	LockedUntil    *time.Time      `json:"locked_until,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AgeDays returns the account age in whole days at the given instant.
func (a *Account) AgeDays(now time.Time) int {
	return int(now.Sub(a.CreatedAt).Hours() / 24)
}

// LockedAt reports whether the account is locked at the given instant.
func (a *Account) LockedAt(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
