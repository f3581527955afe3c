package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is the payment state of a single installment.
type InstallmentStatus string

const (
	InstallmentPending  InstallmentStatus = "pending"
	InstallmentPaid     InstallmentStatus = "paid"
	InstallmentUnpaid   InstallmentStatus = "unpaid"
	InstallmentRetrying InstallmentStatus = "retrying"
)

// Installment represents one scheduled payment of a credit. Installments
// are created as a full set at disbursement; sequence numbers are
// contiguous starting at 1 and the amounts sum to the credit's total.
type Installment struct {
	ID         int64             `json:"id"`
	CreditID   int64             `json:"credit_id"`
	SequenceNo int               `json:"sequence_no"`
	Amount     decimal.Decimal   `json:"amount"`
	DueAt      time.Time         `json:"due_at"`
	Status     InstallmentStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}

// InstallmentReminder is a pending installment joined with the holder's
// contact details, used by the reminder job.
type InstallmentReminder struct {
	InstallmentID int64           `json:"installment_id"`
	CreditID      int64           `json:"credit_id"`
	SequenceNo    int             `json:"sequence_no"`
	Amount        decimal.Decimal `json:"amount"`
	DueAt         time.Time       `json:"due_at"`
	Email         string          `json:"email"`
	Username      string          `json:"username"`
}
