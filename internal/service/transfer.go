package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

const (
	cbuLength = 22
	cvuLength = 10

	fraudNewAccountDays   = 30
	fraudDailyVelocityMax = 10
)

// fraudAmountThreshold flags large transfers from young accounts.
var fraudAmountThreshold = decimal.NewFromInt(5000)

// UnknownBank is the sentinel name for destinations whose prefix is not in
// the registry; they are still considered valid.
const UnknownBank = "UnknownBank"

// bankRegistry maps the first three digits of an external code to an
// institution name.
var bankRegistry = map[string]string{
	"007": "Banco Galicia",
	"011": "Banco Nacion",
	"014": "Banco Provincia",
	"015": "ICBC",
	"017": "BBVA",
	"027": "Banco Supervielle",
	"034": "Banco Patagonia",
	"072": "Banco Santander",
	"285": "Banco Macro",
}

// destinationBlocklist holds external codes that must not receive funds.
var destinationBlocklist = map[string]struct{}{
	"9999999999":             {},
	"0000000000000000000000": {},
}

// TransferInput is a settlement request.
type TransferInput struct {
	OriginAccountID int64              `json:"origin_account_id"`
	Destination     models.Destination `json:"destination"`
	Amount          decimal.Decimal    `json:"amount"`
}

// Settle runs the full settlement pipeline: input validation, lock check,
// daily limit, fraud scoring, destination validation and execution with a
// compensating rollback. Stages short-circuit on the first failure; no
// balance is touched before execution.
func (s *Service) Settle(ctx context.Context, in TransferInput) (*models.SettlementResult, error) {
	if err := validateTransferInput(in); err != nil {
		return nil, err
	}

	origin, err := s.accountStatus(ctx, in.OriginAccountID)
	if err != nil {
		return nil, err
	}
	if origin.LockedAt(time.Now().UTC()) {
		return nil, &errs.UnauthorizedError{Reason: "origin account is locked", LockedUntil: origin.LockedUntil}
	}

	settledToday, err := s.repo.ListSettledTransfers(ctx, origin.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	used := decimal.Zero
	for _, t := range settledToday {
		used = used.Add(t.Amount)
	}
	remaining := origin.TransferLimit.Sub(used)
	if in.Amount.GreaterThan(remaining) {
		return nil, &errs.LimitExceededError{
			Limit:      origin.TransferLimit,
			Used:       used,
			ExceededBy: in.Amount.Sub(remaining),
		}
	}

	assessment, err := s.scoreTransfer(ctx, origin, in.Amount, len(settledToday))
	if err != nil {
		return nil, err
	}
	if assessment.RequiresVerification {
		return nil, errs.Denied(errs.CodeVerificationRequired,
			"transfer requires manual verification",
			"contact support to verify this transfer")
	}

	var bankName string
	if in.Destination.Kind == models.DestinationExternal {
		bankName, err = ValidateExternalDestination(in.Destination.Code)
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := s.repo.GetAccount(ctx, in.Destination.AccountID); err != nil {
			return nil, err
		}
	}

	return s.execute(ctx, origin, in, bankName)
}

// execute moves the money: debit origin first, then credit the destination
// or submit to the clearing gateway. Any post-debit failure re-credits the
// origin for the exact amount before returning.
func (s *Service) execute(ctx context.Context, origin *models.Account, in TransferInput, bankName string) (*models.SettlementResult, error) {
	transfer := &models.Transfer{
		OriginAccountID: origin.ID,
		Destination:     in.Destination,
		Amount:          in.Amount,
		Status:          models.TransferPending,
		Reference:       uuid.NewString(),
	}
	if err := s.repo.CreateTransfer(ctx, transfer); err != nil {
		return nil, err
	}

	resultingBalance, err := s.repo.AdjustBalance(ctx, origin.ID, in.Amount.Neg())
	if err != nil {
		s.markFailed(ctx, transfer.ID)
		return nil, err
	}

	switch in.Destination.Kind {
	case models.DestinationInternal:
		_, err = s.repo.AdjustBalance(ctx, in.Destination.AccountID, in.Amount)
	case models.DestinationExternal:
		_, err = s.clearing.Submit(ctx, in.Destination.Code, bankName, transfer.Reference, in.Amount)
	}
	if err != nil {
		if cerr := s.compensate(ctx, origin.ID, in.Amount, transfer.Reference); cerr != nil {
			return nil, cerr
		}
		s.markFailed(ctx, transfer.ID)
		return nil, err
	}

	if err := s.repo.UpdateTransferStatus(ctx, transfer.ID, models.TransferSettled); err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"transfer_id": transfer.ID,
		"reference":   transfer.Reference,
		"origin":      origin.ID,
		"amount":      in.Amount,
	}).Info("Transfer settled")

	return &models.SettlementResult{
		Status:               models.TransferSettled,
		TransactionReference: transfer.Reference,
		Timestamp:            time.Now().UTC(),
		ResultingBalance:     resultingBalance,
		Receipt:              buildReceipt(in.Destination, bankName),
	}, nil
}

// compensate re-credits the origin after a post-debit failure. A failed
// compensation leaves money unaccounted for and is surfaced as a fault.
func (s *Service) compensate(ctx context.Context, accountID int64, amount decimal.Decimal, reference string) error {
	if _, err := s.repo.AdjustBalance(ctx, accountID, amount); err != nil {
		s.log.WithFields(map[string]interface{}{
			"account_id": accountID,
			"amount":     amount,
			"reference":  reference,
		}).WithError(err).Error("Settlement compensation failed, funds unaccounted for")
		return errs.Store("settlement compensation", err)
	}
	return nil
}

func (s *Service) markFailed(ctx context.Context, transferID int64) {
	if err := s.repo.UpdateTransferStatus(ctx, transferID, models.TransferFailed); err != nil {
		s.log.WithError(err).WithField("transfer_id", transferID).Warn("Could not mark transfer failed")
	}
}

// ScoreTransfer exposes the advisory fraud assessment without settling.
func (s *Service) ScoreTransfer(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.FraudAssessment, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	settledToday, err := s.repo.ListSettledTransfers(ctx, accountID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return s.scoreTransfer(ctx, account, amount, len(settledToday))
}

// scoreTransfer evaluates the independent fraud signals. It never mutates
// state; RequiresVerification is true iff a high-severity signal fired.
func (s *Service) scoreTransfer(ctx context.Context, account *models.Account, amount decimal.Decimal, settledToday int) (*models.FraudAssessment, error) {
	var signals []models.FraudSignal

	if account.AgeDays(time.Now().UTC()) < fraudNewAccountDays && amount.GreaterThan(fraudAmountThreshold) {
		signals = append(signals, models.FraudSignal{
			Kind:        models.SignalNewAccountHighAmount,
			Severity:    models.SeverityMedium,
			Description: "high amount from an account younger than 30 days",
		})
	}
	if settledToday > fraudDailyVelocityMax {
		signals = append(signals, models.FraudSignal{
			Kind:        models.SignalHighDailyVelocity,
			Severity:    models.SeverityHigh,
			Description: "more than 10 transfers settled today",
		})
	}
	defaulted, err := s.repo.HasDefaultedCredit(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if defaulted {
		signals = append(signals, models.FraudSignal{
			Kind:        models.SignalDefaultHistory,
			Severity:    models.SeverityHigh,
			Description: "account has a defaulted credit",
		})
	}

	requires := false
	for _, sig := range signals {
		if sig.Severity == models.SeverityHigh {
			requires = true
			break
		}
	}
	return &models.FraudAssessment{Signals: signals, RequiresVerification: requires}, nil
}

// ValidateExternalDestination checks the shape of an external code (CBU:
// exactly 22 digits, CVU: exactly 10 digits), rejects blocklisted
// destinations and resolves the institution name from the first three
// digits. Unknown prefixes resolve to UnknownBank and remain valid.
func ValidateExternalDestination(code string) (string, error) {
	if !allDigits(code) || (len(code) != cbuLength && len(code) != cvuLength) {
		return "", &errs.ExternalAccountError{
			Code:   errs.CodeInvalidAccountFormat,
			Reason: "destination must be a 22-digit CBU or a 10-digit CVU",
		}
	}
	if _, blocked := destinationBlocklist[code]; blocked {
		return "", &errs.ExternalAccountError{
			Code:   errs.CodeInactiveAccount,
			Reason: "destination account is inactive",
		}
	}
	if name, ok := bankRegistry[code[:3]]; ok {
		return name, nil
	}
	return UnknownBank, nil
}

func validateTransferInput(in TransferInput) error {
	if !in.Amount.IsPositive() {
		return errs.NewValidation("amount", "must be greater than zero")
	}
	if in.OriginAccountID == 0 {
		return errs.NewValidation("origin_account_id", "is required")
	}
	switch in.Destination.Kind {
	case models.DestinationInternal:
		if in.Destination.AccountID == 0 {
			return errs.NewValidation("destination.account_id", "is required")
		}
	case models.DestinationExternal:
		if in.Destination.Code == "" {
			return errs.NewValidation("destination.code", "is required")
		}
	default:
		return errs.NewValidation("destination.kind", "must be internal or external")
	}
	return nil
}

func buildReceipt(dest models.Destination, bankName string) *models.Receipt {
	if dest.Kind == models.DestinationInternal {
		return &models.Receipt{Destination: "wallet account"}
	}
	return &models.Receipt{BankName: bankName, Destination: maskCode(dest.Code)}
}

// maskCode hides all but the last four digits of an external code.
func maskCode(code string) string {
	if len(code) <= 4 {
		return code
	}
	return strings.Repeat("*", len(code)-4) + code[len(code)-4:]
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
