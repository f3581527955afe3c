package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lucasvidela94/wallet-service/internal/config"
	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

// fakeRepo is an in-memory Repository for tests.
type fakeRepo struct {
	accounts     map[int64]*models.Account
	credits      map[int64]*models.Credit
	installments map[int64][]models.Installment
	transfers    map[int64]*models.Transfer
	docs         map[int64][]models.KYCDocument
	tokens       map[string]*models.PasswordResetToken
	defaulted    map[int64]bool
	nextID       int64

	failDisburse   bool
	failCompensate bool
	adjustments    []decimal.Decimal
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts:     make(map[int64]*models.Account),
		credits:      make(map[int64]*models.Credit),
		installments: make(map[int64][]models.Installment),
		transfers:    make(map[int64]*models.Transfer),
		docs:         make(map[int64][]models.KYCDocument),
		tokens:       make(map[string]*models.PasswordResetToken),
		defaulted:    make(map[int64]bool),
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) addAccount(a *models.Account) *models.Account {
	if a.ID == 0 {
		a.ID = f.id()
	}
	if a.TransferLimit.IsZero() {
		a.TransferLimit = models.BaseTierLimit
	}
	f.accounts[a.ID] = a
	return a
}

func (f *fakeRepo) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeRepo) CreateAccount(_ context.Context, a *models.Account) error {
	a.ID = f.id()
	a.CreatedAt = time.Now().UTC()
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeRepo) AdjustBalance(_ context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return decimal.Zero, errs.ErrNotFound
	}
	if f.failCompensate && delta.IsPositive() {
		return decimal.Zero, errs.Store("adjust balance", errors.New("connection lost"))
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, errs.ErrInsufficientFunds
	}
	a.Balance = next
	f.adjustments = append(f.adjustments, delta)
	return next, nil
}

func (f *fakeRepo) ListSettledTransfers(_ context.Context, accountID int64, day time.Time) ([]models.Transfer, error) {
	var out []models.Transfer
	for _, t := range f.transfers {
		if t.OriginAccountID == accountID && t.Status == models.TransferSettled &&
			t.CreatedAt.Truncate(24*time.Hour).Equal(day.Truncate(24*time.Hour)) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateTransfer(_ context.Context, t *models.Transfer) error {
	t.ID = f.id()
	t.CreatedAt = time.Now().UTC()
	f.transfers[t.ID] = t
	return nil
}

func (f *fakeRepo) UpdateTransferStatus(_ context.Context, id int64, status models.TransferStatus) error {
	t, ok := f.transfers[id]
	if !ok {
		return errs.ErrNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeRepo) CreateCredit(_ context.Context, c *models.Credit) error {
	c.ID = f.id()
	c.CreatedAt = time.Now().UTC()
	f.credits[c.ID] = c
	return nil
}

func (f *fakeRepo) GetCredit(_ context.Context, id int64) (*models.Credit, error) {
	c, ok := f.credits[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) ListCreditsByAccount(_ context.Context, accountID int64) ([]models.Credit, error) {
	var out []models.Credit
	for _, c := range f.credits {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) HasDefaultedCredit(_ context.Context, accountID int64) (bool, error) {
	if f.defaulted[accountID] {
		return true, nil
	}
	for _, c := range f.credits {
		if c.AccountID == accountID && c.Status == models.CreditDefault {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) DisburseCredit(_ context.Context, creditID int64, disbursedAt time.Time, plan []models.Installment) error {
	if f.failDisburse {
		return errs.Store("disburse credit", errors.New("connection lost"))
	}
	c, ok := f.credits[creditID]
	if !ok {
		return errs.ErrNotFound
	}
	c.Status = models.CreditInProgress
	c.DisbursedAt = &disbursedAt
	f.installments[creditID] = plan
	return nil
}

func (f *fakeRepo) UpdateCreditStatus(_ context.Context, creditID int64, status models.CreditStatus) error {
	c, ok := f.credits[creditID]
	if !ok {
		return errs.ErrNotFound
	}
	c.Status = status
	return nil
}

func (f *fakeRepo) StoreKYCDocument(_ context.Context, d *models.KYCDocument) error {
	d.ID = f.id()
	d.UploadedAt = time.Now().UTC()
	f.docs[d.AccountID] = append(f.docs[d.AccountID], *d)
	return nil
}

func (f *fakeRepo) ListKYCDocuments(_ context.Context, accountID int64) ([]models.KYCDocument, error) {
	return f.docs[accountID], nil
}

func (f *fakeRepo) UpdateKYCStatus(_ context.Context, accountID int64, status models.KYCStatus, limit *decimal.Decimal) error {
	a, ok := f.accounts[accountID]
	if !ok {
		return errs.ErrNotFound
	}
	a.KYCStatus = status
	if limit != nil {
		a.TransferLimit = *limit
	}
	return nil
}

func (f *fakeRepo) UpdateDocumentValidation(_ context.Context, docID int64, validation models.DocumentValidation, reason string) error {
	for accountID, docs := range f.docs {
		for i := range docs {
			if docs[i].ID == docID {
				f.docs[accountID][i].Validation = validation
				f.docs[accountID][i].RejectionReason = reason
				return nil
			}
		}
	}
	return errs.ErrNotFound
}

func (f *fakeRepo) SetTransferLimit(_ context.Context, accountID int64, limit decimal.Decimal) error {
	a, ok := f.accounts[accountID]
	if !ok {
		return errs.ErrNotFound
	}
	a.TransferLimit = limit
	return nil
}

func (f *fakeRepo) StorePasswordHash(_ context.Context, accountID int64, hash string) error {
	a, ok := f.accounts[accountID]
	if !ok {
		return errs.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeRepo) RecordFailedLogin(_ context.Context, accountID int64, attempts int) error {
	a, ok := f.accounts[accountID]
	if !ok {
		return errs.ErrNotFound
	}
	a.FailedAttempts = attempts
	return nil
}

func (f *fakeRepo) ResetFailedLogins(_ context.Context, accountID int64) error {
	a, ok := f.accounts[accountID]
	if !ok {
		return errs.ErrNotFound
	}
	a.FailedAttempts = 0
	a.LockedUntil = nil
	return nil
}

func (f *fakeRepo) LockAccount(_ context.Context, accountID int64, until time.Time) error {
	a, ok := f.accounts[accountID]
	if !ok {
		return errs.ErrNotFound
	}
	a.LockedUntil = &until
	return nil
}

func (f *fakeRepo) UnlockAccount(_ context.Context, accountID int64) error {
	a, ok := f.accounts[accountID]
	if !ok {
		return errs.ErrNotFound
	}
	a.LockedUntil = nil
	a.FailedAttempts = 0
	return nil
}

func (f *fakeRepo) CreateResetToken(_ context.Context, t *models.PasswordResetToken) error {
	f.tokens[t.Token] = t
	return nil
}

func (f *fakeRepo) GetResetToken(_ context.Context, token string) (*models.PasswordResetToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRepo) MarkResetTokenUsed(_ context.Context, token string) error {
	t, ok := f.tokens[token]
	if !ok {
		return errs.ErrNotFound
	}
	t.Used = true
	return nil
}

// fakeClearing is a scriptable ClearingGateway.
type fakeClearing struct {
	err       error
	submitted int
}

func (f *fakeClearing) Submit(_ context.Context, _, _, reference string, _ decimal.Decimal) (string, error) {
	f.submitted++
	if f.err != nil {
		return "", f.err
	}
	return "clr-" + reference, nil
}

// fakeScores is a scriptable ScoreProvider.
type fakeScores struct {
	enabled bool
	score   int
	err     error
}

func (f *fakeScores) Enabled() bool { return f.enabled }

func (f *fakeScores) Score(_ context.Context, _ int64) (int, error) {
	return f.score, f.err
}

// fakeMailer records mail instead of sending it.
type fakeMailer struct {
	resets []string
}

func (f *fakeMailer) SendPasswordReset(to, _, token string) error {
	f.resets = append(f.resets, token)
	return nil
}

func newTestService(repo *fakeRepo, clearing ClearingGateway, scores ScoreProvider, mailer Mailer) *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{JWTSecret: "test-secret"}
	return NewService(repo, clearing, scores, mailer, log, cfg)
}
