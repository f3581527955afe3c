package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

const validCBU = "2850590940090418135201"

func externalInput(origin int64, amount int64, code string) TransferInput {
	return TransferInput{
		OriginAccountID: origin,
		Destination:     models.Destination{Kind: models.DestinationExternal, Code: code},
		Amount:          decimal.NewFromInt(amount),
	}
}

func TestSettleInternalTransfer(t *testing.T) {
	repo := newFakeRepo()
	origin := eligibleAccount(repo, 10000)
	dest := repo.addAccount(&models.Account{
		Email:     "dest@example.com",
		Balance:   decimal.Zero,
		KYCStatus: models.KYCApproved,
		CreatedAt: time.Now().UTC().AddDate(0, -2, 0),
	})
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)

	result, err := svc.Settle(context.Background(), TransferInput{
		OriginAccountID: origin.ID,
		Destination:     models.Destination{Kind: models.DestinationInternal, AccountID: dest.ID},
		Amount:          decimal.NewFromInt(3000),
	})
	require.NoError(t, err)

	assert.Equal(t, models.TransferSettled, result.Status)
	assert.NotEmpty(t, result.TransactionReference)
	assert.True(t, result.ResultingBalance.Equal(decimal.NewFromInt(7000)))
	assert.True(t, repo.accounts[origin.ID].Balance.Equal(decimal.NewFromInt(7000)))
	assert.True(t, repo.accounts[dest.ID].Balance.Equal(decimal.NewFromInt(3000)))
}

func TestSettleExternalTransfer(t *testing.T) {
	repo := newFakeRepo()
	origin := eligibleAccount(repo, 10000)
	clearing := &fakeClearing{}
	svc := newTestService(repo, clearing, &fakeScores{}, nil)

	result, err := svc.Settle(context.Background(), externalInput(origin.ID, 4000, validCBU))
	require.NoError(t, err)

	assert.Equal(t, models.TransferSettled, result.Status)
	assert.Equal(t, 1, clearing.submitted)
	require.NotNil(t, result.Receipt)
	assert.Equal(t, "Banco Macro", result.Receipt.BankName)
	assert.True(t, strings.HasSuffix(result.Receipt.Destination, "5201"))
	assert.True(t, strings.HasPrefix(result.Receipt.Destination, "*"))
}

func TestSettleLimitExceededNoMutation(t *testing.T) {
	repo := newFakeRepo()
	origin := eligibleAccount(repo, 100000)
	origin.TransferLimit = decimal.NewFromInt(10000)
	// 7000 already settled today.
	repo.transfers[999] = &models.Transfer{
		ID:              999,
		OriginAccountID: origin.ID,
		Amount:          decimal.NewFromInt(7000),
		Status:          models.TransferSettled,
		CreatedAt:       time.Now().UTC(),
	}
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)

	_, err := svc.Settle(context.Background(), externalInput(origin.ID, 5000, validCBU))
	var lerr *errs.LimitExceededError
	require.ErrorAs(t, err, &lerr)
	assert.True(t, lerr.Limit.Equal(decimal.NewFromInt(10000)))
	assert.True(t, lerr.Used.Equal(decimal.NewFromInt(7000)))
	assert.True(t, lerr.ExceededBy.Equal(decimal.NewFromInt(2000)))

	assert.True(t, repo.accounts[origin.ID].Balance.Equal(decimal.NewFromInt(100000)), "no balance mutation")
}

func TestSettleInvalidExternalFormatBeforeAnyMutation(t *testing.T) {
	repo := newFakeRepo()
	origin := eligibleAccount(repo, 10000)
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)

	for _, code := range []string{
		"123",                     // too short
		"28505909400904181352019", // 23 digits
		"285059094009041813520a",  // non-numeric CBU
		"12345678901",             // 11 digits, neither CBU nor CVU
	} {
		_, err := svc.Settle(context.Background(), externalInput(origin.ID, 100, code))
		var eerr *errs.ExternalAccountError
		require.ErrorAs(t, err, &eerr, "code %q", code)
		assert.Equal(t, errs.CodeInvalidAccountFormat, eerr.Code)
	}
	assert.True(t, repo.accounts[origin.ID].Balance.Equal(decimal.NewFromInt(10000)))
	assert.Empty(t, repo.adjustments)
}

func TestSettleBlocklistedDestination(t *testing.T) {
	repo := newFakeRepo()
	origin := eligibleAccount(repo, 10000)
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)

	_, err := svc.Settle(context.Background(), externalInput(origin.ID, 100, "9999999999"))
	var eerr *errs.ExternalAccountError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, errs.CodeInactiveAccount, eerr.Code)
}

func TestSettleCompensatesOnClearingFailure(t *testing.T) {
	repo := newFakeRepo()
	origin := eligibleAccount(repo, 10000)
	clearing := &fakeClearing{err: errors.New("clearing house unavailable")}
	svc := newTestService(repo, clearing, &fakeScores{}, nil)

	_, err := svc.Settle(context.Background(), externalInput(origin.ID, 4000, validCBU))
	require.Error(t, err)

	// Exact re-credit of the debited amount.
	assert.True(t, repo.accounts[origin.ID].Balance.Equal(decimal.NewFromInt(10000)), "balance %s", repo.accounts[origin.ID].Balance)

	var failed bool
	for _, tr := range repo.transfers {
		if tr.Status == models.TransferFailed {
			failed = true
		}
	}
	assert.True(t, failed, "transfer marked failed")
}

func TestSettleCompensationFailureIsFault(t *testing.T) {
	repo := newFakeRepo()
	origin := eligibleAccount(repo, 10000)
	clearing := &fakeClearing{err: errors.New("clearing house unavailable")}
	svc := newTestService(repo, clearing, &fakeScores{}, nil)

	repo.failCompensate = true
	_, err := svc.Settle(context.Background(), externalInput(origin.ID, 4000, validCBU))
	var serr *errs.StoreError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Op, "compensation")
}

func TestSettleLockedOrigin(t *testing.T) {
	repo := newFakeRepo()
	origin := eligibleAccount(repo, 10000)
	until := time.Now().UTC().Add(30 * time.Minute)
	origin.LockedUntil = &until
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)

	_, err := svc.Settle(context.Background(), externalInput(origin.ID, 100, validCBU))
	var uerr *errs.UnauthorizedError
	require.ErrorAs(t, err, &uerr)
}

func TestSettleValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)

	var verr *errs.ValidationError
	_, err := svc.Settle(context.Background(), externalInput(1, 0, validCBU))
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Settle(context.Background(), externalInput(0, 100, validCBU))
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Settle(context.Background(), externalInput(1, 100, ""))
	assert.ErrorAs(t, err, &verr)
}

func TestScoreTransferSignals(t *testing.T) {
	repo := newFakeRepo()
	// Account 10 days old, balance 1000.
	account := repo.addAccount(&models.Account{
		Email:     "young@example.com",
		Balance:   decimal.NewFromInt(1000),
		KYCStatus: models.KYCApproved,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -10),
	})
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)

	// 6000 from a 10-day-old account: medium signal only, no verification.
	assessment, err := svc.ScoreTransfer(context.Background(), account.ID, decimal.NewFromInt(6000))
	require.NoError(t, err)
	require.Len(t, assessment.Signals, 1)
	assert.Equal(t, models.SignalNewAccountHighAmount, assessment.Signals[0].Kind)
	assert.Equal(t, models.SeverityMedium, assessment.Signals[0].Severity)
	assert.False(t, assessment.RequiresVerification)

	// Default history raises a high signal and requires verification.
	repo.defaulted[account.ID] = true
	assessment, err = svc.ScoreTransfer(context.Background(), account.ID, decimal.NewFromInt(6000))
	require.NoError(t, err)
	assert.True(t, assessment.RequiresVerification)

	repo.defaulted[account.ID] = false
	// More than 10 settled transfers today is high severity.
	for i := 0; i < 11; i++ {
		repo.transfers[int64(1000+i)] = &models.Transfer{
			ID:              int64(1000 + i),
			OriginAccountID: account.ID,
			Amount:          decimal.NewFromInt(10),
			Status:          models.TransferSettled,
			CreatedAt:       time.Now().UTC(),
		}
	}
	assessment, err = svc.ScoreTransfer(context.Background(), account.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, assessment.RequiresVerification)
}

func TestSettleBlocksOnHighSeveritySignal(t *testing.T) {
	repo := newFakeRepo()
	origin := eligibleAccount(repo, 10000)
	repo.defaulted[origin.ID] = true
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)

	_, err := svc.Settle(context.Background(), externalInput(origin.ID, 100, validCBU))
	assert.True(t, errs.IsDenied(err, errs.CodeVerificationRequired), "got %v", err)
	assert.True(t, repo.accounts[origin.ID].Balance.Equal(decimal.NewFromInt(10000)))
}

func TestValidateExternalDestinationRegistry(t *testing.T) {
	// Known prefix.
	bank, err := ValidateExternalDestination(validCBU)
	require.NoError(t, err)
	assert.Equal(t, "Banco Macro", bank)

	// Unknown prefix still valid, sentinel name.
	bank, err = ValidateExternalDestination("9990000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, UnknownBank, bank)

	// 10-digit CVU accepted.
	bank, err = ValidateExternalDestination("0170000001")
	require.NoError(t, err)
	assert.Equal(t, "BBVA", bank)
}
