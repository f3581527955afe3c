package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

// Fixed TEA rate tables per product, keyed by term. Quick terms are days,
// normal terms are months. Loaded once as immutable package data.
var (
	quickRates = map[int]decimal.Decimal{
		30: decimal.NewFromInt(110),
		60: decimal.NewFromInt(115),
		90: decimal.NewFromInt(120),
	}
	normalRates = map[int]decimal.Decimal{
		3:  decimal.NewFromInt(85),
		6:  decimal.NewFromInt(90),
		12: decimal.NewFromInt(95),
	}

	cftFactor    = decimal.NewFromFloat(1.15)
	adminFeeRate = decimal.NewFromFloat(0.02)
	daysPerYear  = decimal.NewFromInt(365)
	hundred      = decimal.NewFromInt(100)
)

// Per-product ceilings for requested amounts.
var (
	quickCeiling  = decimal.NewFromInt(50000)
	normalCeiling = decimal.NewFromInt(250000)
)

const installmentPeriodDays = 30

// Quote is the full pricing of a credit request: rates, totals and the
// installment schedule.
type Quote struct {
	ProductType      models.ProductType   `json:"product_type"`
	Principal        decimal.Decimal      `json:"principal"`
	TermUnits        int                  `json:"term_units"`
	TermDays         int                  `json:"term_days"`
	TEARate          decimal.Decimal      `json:"tea_rate"`
	CFTRate          decimal.Decimal      `json:"cft_rate"`
	Interest         decimal.Decimal      `json:"interest"`
	AdminFee         decimal.Decimal      `json:"admin_fee"`
	Total            decimal.Decimal      `json:"total"`
	InstallmentCount int                  `json:"installment_count"`
	Schedule         []models.Installment `json:"schedule"`
	DueAt            time.Time            `json:"due_at"`
}

// rateFor looks up the TEA for a (product, term) pair and the term length
// in days. Terms outside the product's table fail with ErrInvalidTerm.
func rateFor(product models.ProductType, termUnits int) (decimal.Decimal, int, error) {
	switch product {
	case models.ProductQuick:
		tea, ok := quickRates[termUnits]
		if !ok {
			return decimal.Decimal{}, 0, errs.ErrInvalidTerm
		}
		return tea, termUnits, nil
	case models.ProductNormal:
		tea, ok := normalRates[termUnits]
		if !ok {
			return decimal.Decimal{}, 0, errs.ErrInvalidTerm
		}
		return tea, termUnits * 30, nil
	default:
		return decimal.Decimal{}, 0, errs.NewValidation("product_type", "unknown product")
	}
}

// ceilingFor returns the maximum requestable principal for a product.
func ceilingFor(product models.ProductType) decimal.Decimal {
	if product == models.ProductQuick {
		return quickCeiling
	}
	return normalCeiling
}

// BuildQuote prices a credit request: TEA/CFT lookup, simple interest over
// the term, a 2% administrative fee and a schedule of equal installments 30
// days apart where the last one absorbs the rounding remainder so the
// amounts sum exactly to the total.
func BuildQuote(product models.ProductType, principal decimal.Decimal, termUnits int, issuedAt time.Time) (*Quote, error) {
	if !principal.IsPositive() {
		return nil, errs.NewValidation("principal", "must be greater than zero")
	}

	tea, termDays, err := rateFor(product, termUnits)
	if err != nil {
		return nil, err
	}
	cft := tea.Mul(cftFactor).Round(0)

	days := decimal.NewFromInt(int64(termDays))
	interest := principal.Mul(tea).Div(hundred).Mul(days).Div(daysPerYear).Round(2)
	adminFee := principal.Mul(adminFeeRate).Round(2)
	total := principal.Add(interest).Add(adminFee).Round(2)

	count := termDays / installmentPeriodDays
	if product == models.ProductQuick && termDays%installmentPeriodDays != 0 {
		count++
	}
	if count < 1 {
		count = 1
	}

	schedule := splitInstallments(total, count, issuedAt)

	return &Quote{
		ProductType:      product,
		Principal:        principal,
		TermUnits:        termUnits,
		TermDays:         termDays,
		TEARate:          tea,
		CFTRate:          cft,
		Interest:         interest,
		AdminFee:         adminFee,
		Total:            total,
		InstallmentCount: count,
		Schedule:         schedule,
		DueAt:            schedule[count-1].DueAt,
	}, nil
}

// splitInstallments divides a total into count equal installments due 30
// days apart from issuance. The last installment absorbs the rounding
// remainder so the amounts sum exactly to the total.
func splitInstallments(total decimal.Decimal, count int, issuedAt time.Time) []models.Installment {
	base := total.Div(decimal.NewFromInt(int64(count))).Round(2)
	schedule := make([]models.Installment, 0, count)
	for i := 1; i <= count; i++ {
		amount := base
		if i == count {
			amount = total.Sub(base.Mul(decimal.NewFromInt(int64(count - 1))))
		}
		schedule = append(schedule, models.Installment{
			SequenceNo: i,
			Amount:     amount,
			DueAt:      issuedAt.AddDate(0, 0, i*installmentPeriodDays),
			Status:     models.InstallmentPending,
		})
	}
	return schedule
}
