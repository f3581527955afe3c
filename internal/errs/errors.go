// Package errs defines the error taxonomy of the financial operations
// core. Business denials are structured values carrying a machine-readable
// code; repository faults only ever leave the core wrapped in StoreError.
package errs

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors for simple conditions.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("operation not valid in current state")
	ErrInvalidTerm       = errors.New("term not offered for product")
	ErrInvalidToken      = errors.New("invalid or expired token")
)

// Denial codes carried by DeniedError.
const (
	CodeKYCNotApproved       = "KYC_NOT_APPROVED"
	CodeAccountTooNew        = "ACCOUNT_TOO_NEW"
	CodeDefaultHistory       = "DEFAULT_HISTORY"
	CodeDebtRatioExceeded    = "DEBT_RATIO_EXCEEDED"
	CodeNoDeclaredIncome     = "NO_DECLARED_INCOME"
	CodeActiveCreditExists   = "ACTIVE_CREDIT_EXISTS"
	CodeScoreTooLow          = "SCORE_TOO_LOW"
	CodeAmountOverCeiling    = "AMOUNT_OVER_CEILING"
	CodeVerificationRequired = "VERIFICATION_REQUIRED"
	CodeMissingDocuments     = "MISSING_DOCUMENTS"
)

// External-account failure codes.
const (
	CodeInvalidAccountFormat = "INVALID_ACCOUNT_FORMAT"
	CodeInactiveAccount      = "INACTIVE_ACCOUNT"
)

// ValidationError reports malformed input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UnauthorizedError reports a credential or lock failure. LockedUntil is
// set when the account is currently locked.
type UnauthorizedError struct {
	Reason      string
	LockedUntil *time.Time
}

func (e *UnauthorizedError) Error() string {
	if e.LockedUntil != nil {
		return fmt.Sprintf("%s (locked until %s)", e.Reason, e.LockedUntil.Format(time.RFC3339))
	}
	return e.Reason
}

// DeniedError is a business-rule denial: a machine-readable code, a human
// message and remediation context. It is an expected outcome, not a fault.
type DeniedError struct {
	Code        string
	Message     string
	Remediation string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Denied builds a DeniedError.
func Denied(code, message, remediation string) *DeniedError {
	return &DeniedError{Code: code, Message: message, Remediation: remediation}
}

// LimitExceededError reports a transfer over the remaining daily limit.
type LimitExceededError struct {
	Limit      decimal.Decimal
	Used       decimal.Decimal
	ExceededBy decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("daily transfer limit exceeded: limit=%s used=%s exceeded_by=%s",
		e.Limit, e.Used, e.ExceededBy)
}

// ExternalAccountError reports an invalid or unusable external destination.
type ExternalAccountError struct {
	Code   string
	Reason string
}

func (e *ExternalAccountError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// StoreError wraps any repository fault. The core never retries it and
// never lets the underlying error escape unwrapped.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a StoreError for the named operation.
func Store(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsDenied reports whether err is a business-rule denial with the given
// code.
func IsDenied(err error, code string) bool {
	var d *DeniedError
	return errors.As(err, &d) && d.Code == code
}
