package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

// creditTransitions are the allowed non-override status moves. PreApproved
// reaches InProgress only through ApproveAndDisburse.
var creditTransitions = map[models.CreditStatus][]models.CreditStatus{
	models.CreditPreApproved: {models.CreditCanceled},
	models.CreditInProgress:  {models.CreditPaid, models.CreditDefault, models.CreditCanceled},
}

// SimulateCredit prices a credit request without persisting anything.
func (s *Service) SimulateCredit(ctx context.Context, product models.ProductType, principal decimal.Decimal, termUnits int) (*Quote, error) {
	quote, err := BuildQuote(product, principal, termUnits, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if principal.GreaterThan(ceilingFor(product)) {
		return nil, errs.Denied(errs.CodeAmountOverCeiling,
			"requested amount exceeds the product ceiling",
			"request an amount at or below the product ceiling")
	}
	return quote, nil
}

// CreateCredit runs eligibility, prices the request and persists a
// pre-approved credit. No funds move until ApproveAndDisburse.
func (s *Service) CreateCredit(ctx context.Context, accountID int64, product models.ProductType, principal decimal.Decimal, termUnits int) (*models.Credit, error) {
	quote, err := BuildQuote(product, principal, termUnits, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.CheckEligibility(ctx, accountID, product, principal); err != nil {
		return nil, err
	}

	credit := &models.Credit{
		AccountID:        accountID,
		ProductType:      product,
		Principal:        principal,
		TotalPayable:     quote.Total,
		TermUnits:        termUnits,
		TEARate:          quote.TEARate,
		CFTRate:          quote.CFTRate,
		Status:           models.CreditPreApproved,
		InstallmentCount: quote.InstallmentCount,
		DueAt:            quote.DueAt,
	}
	if err := s.repo.CreateCredit(ctx, credit); err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"credit_id":  credit.ID,
		"account_id": accountID,
		"product":    product,
		"principal":  principal,
	}).Info("Credit pre-approved")
	return credit, nil
}

// ApproveAndDisburse debits the account by exactly the principal and, in
// the same logical step, persists the installment plan and moves the credit
// to in-progress. Valid only from PreApproved; a second call fails with
// ErrInvalidState and never double-debits. If the plan cannot be persisted
// after the debit, the debit is compensated before returning.
func (s *Service) ApproveAndDisburse(ctx context.Context, creditID int64) (*models.Credit, error) {
	credit, err := s.repo.GetCredit(ctx, creditID)
	if err != nil {
		return nil, err
	}
	if credit.Status != models.CreditPreApproved {
		return nil, errs.ErrInvalidState
	}

	now := time.Now().UTC()
	plan := splitInstallments(credit.TotalPayable, credit.InstallmentCount, now)
	for i := range plan {
		plan[i].CreditID = credit.ID
	}

	if _, err := s.repo.AdjustBalance(ctx, credit.AccountID, credit.Principal.Neg()); err != nil {
		return nil, err
	}

	if err := s.repo.DisburseCredit(ctx, credit.ID, now, plan); err != nil {
		// The account was already debited; put the money back before
		// surfacing the failure.
		if _, cerr := s.repo.AdjustBalance(ctx, credit.AccountID, credit.Principal); cerr != nil {
			s.log.WithFields(map[string]interface{}{
				"credit_id":  credit.ID,
				"account_id": credit.AccountID,
				"amount":     credit.Principal,
			}).WithError(cerr).Error("Disbursement compensation failed, funds unaccounted for")
			return nil, errs.Store("disbursement compensation", cerr)
		}
		return nil, err
	}

	credit.Status = models.CreditInProgress
	credit.DisbursedAt = &now
	credit.DueAt = plan[len(plan)-1].DueAt

	s.log.WithFields(map[string]interface{}{
		"credit_id":  credit.ID,
		"account_id": credit.AccountID,
		"principal":  credit.Principal,
	}).Info("Credit disbursed")
	return credit, nil
}

// CancelCredit cancels a credit before disbursement.
func (s *Service) CancelCredit(ctx context.Context, creditID int64) error {
	return s.SetCreditStatus(ctx, creditID, models.CreditCanceled, false)
}

// SetCreditStatus moves a credit along the lifecycle. Transitions are
// monotonic unless override is set (admin use).
func (s *Service) SetCreditStatus(ctx context.Context, creditID int64, status models.CreditStatus, override bool) error {
	credit, err := s.repo.GetCredit(ctx, creditID)
	if err != nil {
		return err
	}

	if !override && !transitionAllowed(credit.Status, status) {
		return errs.ErrInvalidState
	}
	if err := s.repo.UpdateCreditStatus(ctx, creditID, status); err != nil {
		return err
	}

	s.log.WithFields(map[string]interface{}{
		"credit_id": creditID,
		"from":      credit.Status,
		"to":        status,
		"override":  override,
	}).Info("Credit status changed")
	return nil
}

func transitionAllowed(from, to models.CreditStatus) bool {
	for _, allowed := range creditTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
