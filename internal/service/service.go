package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lucasvidela94/wallet-service/internal/config"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

// Repository is the narrow persistence interface the core consumes. The
// concrete implementation owns atomicity: AdjustBalance must be a single
// atomic operation and DisburseCredit / UpdateKYCStatus must be
// transactional.
type Repository interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) error

	// AdjustBalance applies a signed delta atomically and returns the
	// resulting balance. It fails with errs.ErrInsufficientFunds when the
	// delta would drive the balance negative.
	AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error)

	ListSettledTransfers(ctx context.Context, accountID int64, day time.Time) ([]models.Transfer, error)
	CreateTransfer(ctx context.Context, transfer *models.Transfer) error
	UpdateTransferStatus(ctx context.Context, id int64, status models.TransferStatus) error

	CreateCredit(ctx context.Context, credit *models.Credit) error
	GetCredit(ctx context.Context, id int64) (*models.Credit, error)
	ListCreditsByAccount(ctx context.Context, accountID int64) ([]models.Credit, error)
	HasDefaultedCredit(ctx context.Context, accountID int64) (bool, error)
	// DisburseCredit persists the installment plan and the status flip to
	// in-progress as one transaction.
	DisburseCredit(ctx context.Context, creditID int64, disbursedAt time.Time, plan []models.Installment) error
	UpdateCreditStatus(ctx context.Context, creditID int64, status models.CreditStatus) error

	StoreKYCDocument(ctx context.Context, doc *models.KYCDocument) error
	ListKYCDocuments(ctx context.Context, accountID int64) ([]models.KYCDocument, error)
	// UpdateKYCStatus sets the verification status and, when limit is
	// non-nil, the transfer limit in the same transaction.
	UpdateKYCStatus(ctx context.Context, accountID int64, status models.KYCStatus, limit *decimal.Decimal) error
	UpdateDocumentValidation(ctx context.Context, docID int64, validation models.DocumentValidation, reason string) error
	SetTransferLimit(ctx context.Context, accountID int64, limit decimal.Decimal) error

	StorePasswordHash(ctx context.Context, accountID int64, hash string) error
	RecordFailedLogin(ctx context.Context, accountID int64, attempts int) error
	ResetFailedLogins(ctx context.Context, accountID int64) error
	LockAccount(ctx context.Context, accountID int64, until time.Time) error
	UnlockAccount(ctx context.Context, accountID int64) error

	CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error
	GetResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, token string) error
}

// ClearingGateway submits external transfers to the clearing house.
type ClearingGateway interface {
	Submit(ctx context.Context, destination, bank, reference string, amount decimal.Decimal) (string, error)
}

// ScoreProvider supplies external credit scores. When Enabled returns
// false the score rule is skipped entirely.
type ScoreProvider interface {
	Enabled() bool
	Score(ctx context.Context, accountID int64) (int, error)
}

// Mailer sends account mail. Failures are logged, never surfaced to the
// caller.
type Mailer interface {
	SendPasswordReset(to, username, token string) error
}

// Service handles business logic
type Service struct {
	repo     Repository
	clearing ClearingGateway
	scores   ScoreProvider
	mailer   Mailer
	log      *logrus.Logger
	config   *config.Config
}

// NewService initializes a new service
func NewService(repo Repository, clearing ClearingGateway, scores ScoreProvider, mailer Mailer, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:     repo,
		clearing: clearing,
		scores:   scores,
		mailer:   mailer,
		log:      log,
		config:   cfg,
	}
}
