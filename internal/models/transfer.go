package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the settlement state of a transfer.
type TransferStatus string

const (
	TransferPending    TransferStatus = "pending"
	TransferProcessing TransferStatus = "processing"
	TransferSettled    TransferStatus = "settled"
	TransferFailed     TransferStatus = "failed"
)

// DestinationKind discriminates internal wallet destinations from external
// bank-style destinations.
type DestinationKind string

const (
	DestinationInternal DestinationKind = "internal"
	DestinationExternal DestinationKind = "external"
)

// Destination is where a transfer sends funds: either another wallet
// account or an external CBU/CVU identifier.
type Destination struct {
	Kind      DestinationKind `json:"kind"`
	AccountID int64           `json:"account_id,omitempty"` // internal only
	Code      string          `json:"code,omitempty"`       // external CBU/CVU
}

// Transfer represents a money movement originated by a wallet account.
type Transfer struct {
	ID              int64           `json:"id"`
	OriginAccountID int64           `json:"origin_account_id"`
	Destination     Destination     `json:"destination"`
	Amount          decimal.Decimal `json:"amount"`
	Status          TransferStatus  `json:"status"`
	Reference       string          `json:"reference"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Receipt is the rendered summary attached to a settled transfer.
type Receipt struct {
	BankName    string `json:"bank_name,omitempty"`
	Destination string `json:"destination"`
}

// SettlementResult is the immutable outcome of one settlement call.
type SettlementResult struct {
	Status               TransferStatus  `json:"status"`
	TransactionReference string          `json:"transaction_reference"`
	Timestamp            time.Time       `json:"timestamp"`
	ResultingBalance     decimal.Decimal `json:"resulting_balance"`
	Receipt              *Receipt        `json:"receipt,omitempty"`
}
