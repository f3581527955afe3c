package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

const (
	minAccountAgeDays = 30
	maxDebtRatio      = 40
	minExternalScore  = 50
)

// CheckEligibility evaluates an account against the acceptance rules of a
// credit product and the requested amount against the product ceiling. A
// failed rule returns a DeniedError with a specific remediation; only a
// missing account is a fault.
func (s *Service) CheckEligibility(ctx context.Context, accountID int64, product models.ProductType, amount decimal.Decimal) error {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	ceiling := ceilingFor(product)
	if amount.GreaterThan(ceiling) {
		return errs.Denied(errs.CodeAmountOverCeiling,
			fmt.Sprintf("requested amount %s exceeds the %s product ceiling of %s", amount, product, ceiling),
			"request an amount at or below the product ceiling")
	}

	if account.KYCStatus != models.KYCApproved {
		return errs.Denied(errs.CodeKYCNotApproved,
			"identity verification is not approved",
			"complete the KYC process before requesting a credit")
	}

	defaulted, err := s.repo.HasDefaultedCredit(ctx, accountID)
	if err != nil {
		return err
	}
	if defaulted {
		return errs.Denied(errs.CodeDefaultHistory,
			"account has a defaulted credit on record",
			"settle the defaulted credit to regain eligibility")
	}

	switch product {
	case models.ProductQuick:
		return s.checkQuickRules(ctx, account)
	case models.ProductNormal:
		return s.checkNormalRules(ctx, account)
	default:
		return errs.NewValidation("product_type", "unknown product")
	}
}

func (s *Service) checkQuickRules(ctx context.Context, account *models.Account) error {
	if account.AgeDays(time.Now().UTC()) < minAccountAgeDays {
		return errs.Denied(errs.CodeAccountTooNew,
			fmt.Sprintf("account must be at least %d days old", minAccountAgeDays),
			"retry once the account has the required age")
	}

	ratio, err := s.debtToIncomeRatio(ctx, account)
	if err != nil {
		return err
	}
	if ratio.GreaterThan(decimal.NewFromInt(maxDebtRatio)) {
		return errs.Denied(errs.CodeDebtRatioExceeded,
			fmt.Sprintf("debt-to-income ratio %s%% exceeds the %d%% maximum", ratio.Round(2), maxDebtRatio),
			"reduce outstanding installments or declare a higher income")
	}
	return nil
}

func (s *Service) checkNormalRules(ctx context.Context, account *models.Account) error {
	if !account.DeclaredIncome.IsPositive() {
		return errs.Denied(errs.CodeNoDeclaredIncome,
			"a declared monthly income is required",
			"declare a monthly income on the account profile")
	}

	credits, err := s.repo.ListCreditsByAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	for _, c := range credits {
		if c.Status == models.CreditInProgress || c.Status == models.CreditDefault {
			return errs.Denied(errs.CodeActiveCreditExists,
				"an active or defaulted credit already exists",
				"finish paying the current credit before requesting a new one")
		}
	}

	if s.scores != nil && s.scores.Enabled() {
		score, err := s.scores.Score(ctx, account.ID)
		if err != nil {
			return errs.Store("external score lookup", err)
		}
		if score < minExternalScore {
			return errs.Denied(errs.CodeScoreTooLow,
				fmt.Sprintf("external score %d is below the %d minimum", score, minExternalScore),
				"improve the external credit score before reapplying")
		}
	}
	return nil
}

// debtToIncomeRatio is the sum of active credits' per-installment burden
// over the declared monthly income, as a percentage. A zero income yields a
// zero ratio.
func (s *Service) debtToIncomeRatio(ctx context.Context, account *models.Account) (decimal.Decimal, error) {
	if !account.DeclaredIncome.IsPositive() {
		return decimal.Zero, nil
	}

	credits, err := s.repo.ListCreditsByAccount(ctx, account.ID)
	if err != nil {
		return decimal.Zero, err
	}

	monthly := decimal.Zero
	for _, c := range credits {
		if !c.Active() || c.InstallmentCount == 0 {
			continue
		}
		monthly = monthly.Add(c.TotalPayable.Div(decimal.NewFromInt(int64(c.InstallmentCount))))
	}
	return monthly.Div(account.DeclaredIncome).Mul(hundred), nil
}
