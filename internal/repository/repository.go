package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const accountColumns = `id, email, username, password_hash, balance, kyc_status, transfer_limit,
		declared_income, failed_attempts, locked_until, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(&account.ID, &account.Email, &account.Username, &account.PasswordHash,
		&account.Balance, &account.KYCStatus, &account.TransferLimit, &account.DeclaredIncome,
		&account.FailedAttempts, &account.LockedUntil, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Store("scan account", err)
	}
	return account, nil
}

// GetAccount retrieves an account by id
func (r *Repository) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM wallet.accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// GetAccountByEmail retrieves an account by email
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM wallet.accounts WHERE email = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// CreateAccount creates a new account in the database
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO wallet.accounts (email, username, password_hash, balance, kyc_status,
			transfer_limit, declared_income, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, account.Email, account.Username, account.PasswordHash,
		account.Balance, account.KYCStatus, account.TransferLimit, account.DeclaredIncome).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return errs.Store("create account", err)
	}
	return nil
}

// AdjustBalance applies a signed delta as a single conditional update so
// concurrent movements on one account cannot interleave a stale read. The
// balance never goes negative.
func (r *Repository) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE wallet.accounts
		SET balance = balance + $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance`
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, accountID, delta).Scan(&balance)
	if err == sql.ErrNoRows {
		// Either the account does not exist or the delta would overdraw it.
		var exists bool
		if cerr := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM wallet.accounts WHERE id = $1)`, accountID).Scan(&exists); cerr != nil {
			return decimal.Zero, errs.Store("adjust balance", cerr)
		}
		if !exists {
			return decimal.Zero, errs.ErrNotFound
		}
		return decimal.Zero, errs.ErrInsufficientFunds
	}
	if err != nil {
		return decimal.Zero, errs.Store("adjust balance", err)
	}
	return balance, nil
}

// ListSettledTransfers returns the transfers settled by an account within
// the given calendar day (UTC).
func (r *Repository) ListSettledTransfers(ctx context.Context, accountID int64, day time.Time) ([]models.Transfer, error) {
	from := day.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)
	query := `
		SELECT id, origin_account_id, destination_kind, destination_account_id,
			destination_code, amount, status, reference, created_at
		FROM wallet.transfers
		WHERE origin_account_id = $1 AND status = $2 AND created_at >= $3 AND created_at < $4`
	rows, err := r.db.QueryContext(ctx, query, accountID, models.TransferSettled, from, to)
	if err != nil {
		return nil, errs.Store("list settled transfers", err)
	}
	defer rows.Close()

	var out []models.Transfer
	for rows.Next() {
		var t models.Transfer
		var destAccountID sql.NullInt64
		var destCode sql.NullString
		if err := rows.Scan(&t.ID, &t.OriginAccountID, &t.Destination.Kind, &destAccountID,
			&destCode, &t.Amount, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return nil, errs.Store("scan transfer", err)
		}
		t.Destination.AccountID = destAccountID.Int64
		t.Destination.Code = destCode.String
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store("list settled transfers", err)
	}
	return out, nil
}

// CreateTransfer inserts a new transfer record
func (r *Repository) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	query := `
		INSERT INTO wallet.transfers (origin_account_id, destination_kind, destination_account_id,
			destination_code, amount, status, reference, created_at)
		VALUES ($1, $2, NULLIF($3, 0), NULLIF($4, ''), $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, transfer.OriginAccountID, transfer.Destination.Kind,
		transfer.Destination.AccountID, transfer.Destination.Code, transfer.Amount,
		transfer.Status, transfer.Reference).
		Scan(&transfer.ID, &transfer.CreatedAt)
	if err != nil {
		return errs.Store("create transfer", err)
	}
	return nil
}

// UpdateTransferStatus sets the settlement status of a transfer
func (r *Repository) UpdateTransferStatus(ctx context.Context, id int64, status models.TransferStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE wallet.transfers SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return errs.Store("update transfer status", err)
	}
	return checkAffected(res, "update transfer status")
}

// CreateCredit inserts a pre-approved credit
func (r *Repository) CreateCredit(ctx context.Context, credit *models.Credit) error {
	query := `
		INSERT INTO wallet.credits (account_id, product_type, principal, total_payable, term_units,
			tea_rate, cft_rate, status, installment_count, due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, credit.AccountID, credit.ProductType, credit.Principal,
		credit.TotalPayable, credit.TermUnits, credit.TEARate, credit.CFTRate, credit.Status,
		credit.InstallmentCount, credit.DueAt).
		Scan(&credit.ID, &credit.CreatedAt, &credit.UpdatedAt)
	if err != nil {
		return errs.Store("create credit", err)
	}
	return nil
}

// GetCredit retrieves a credit by id
func (r *Repository) GetCredit(ctx context.Context, id int64) (*models.Credit, error) {
	query := `
		SELECT id, account_id, product_type, principal, total_payable, term_units, tea_rate,
			cft_rate, status, installment_count, disbursed_at, due_at, created_at, updated_at
		FROM wallet.credits WHERE id = $1`
	credit := &models.Credit{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&credit.ID, &credit.AccountID,
		&credit.ProductType, &credit.Principal, &credit.TotalPayable, &credit.TermUnits,
		&credit.TEARate, &credit.CFTRate, &credit.Status, &credit.InstallmentCount,
		&credit.DisbursedAt, &credit.DueAt, &credit.CreatedAt, &credit.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Store("get credit", err)
	}
	return credit, nil
}

// ListCreditsByAccount returns all credits of an account
func (r *Repository) ListCreditsByAccount(ctx context.Context, accountID int64) ([]models.Credit, error) {
	query := `
		SELECT id, account_id, product_type, principal, total_payable, term_units, tea_rate,
			cft_rate, status, installment_count, disbursed_at, due_at, created_at, updated_at
		FROM wallet.credits WHERE account_id = $1`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, errs.Store("list credits", err)
	}
	defer rows.Close()

	var out []models.Credit
	for rows.Next() {
		var c models.Credit
		if err := rows.Scan(&c.ID, &c.AccountID, &c.ProductType, &c.Principal, &c.TotalPayable,
			&c.TermUnits, &c.TEARate, &c.CFTRate, &c.Status, &c.InstallmentCount,
			&c.DisbursedAt, &c.DueAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, errs.Store("scan credit", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store("list credits", err)
	}
	return out, nil
}

// HasDefaultedCredit reports whether the account ever defaulted on a credit
func (r *Repository) HasDefaultedCredit(ctx context.Context, accountID int64) (bool, error) {
	var defaulted bool
	query := `SELECT EXISTS(SELECT 1 FROM wallet.credits WHERE account_id = $1 AND status = $2)`
	if err := r.db.QueryRowContext(ctx, query, accountID, models.CreditDefault).Scan(&defaulted); err != nil {
		return false, errs.Store("check default history", err)
	}
	return defaulted, nil
}

// DisburseCredit persists the installment plan and flips the credit to
// in-progress in one transaction, so no partial state is ever visible.
func (r *Repository) DisburseCredit(ctx context.Context, creditID int64, disbursedAt time.Time, plan []models.Installment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Store("disburse credit", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE wallet.credits
		SET status = $2, disbursed_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $4`,
		creditID, models.CreditInProgress, disbursedAt, models.CreditPreApproved)
	if err != nil {
		return errs.Store("disburse credit", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errs.Store("disburse credit", err)
	}
	if affected == 0 {
		return errs.ErrInvalidState
	}

	for _, inst := range plan {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wallet.installments (credit_id, sequence_no, amount, due_at, status, created_at)
			VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)`,
			creditID, inst.SequenceNo, inst.Amount, inst.DueAt, inst.Status); err != nil {
			return errs.Store("create installments", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Store("disburse credit", err)
	}
	return nil
}

// UpdateCreditStatus sets the lifecycle status of a credit
func (r *Repository) UpdateCreditStatus(ctx context.Context, creditID int64, status models.CreditStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallet.credits SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		creditID, status)
	if err != nil {
		return errs.Store("update credit status", err)
	}
	return checkAffected(res, "update credit status")
}

// StoreKYCDocument inserts an uploaded document
func (r *Repository) StoreKYCDocument(ctx context.Context, doc *models.KYCDocument) error {
	query := `
		INSERT INTO wallet.kyc_documents (account_id, kind, file_ref, validation, uploaded_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING id, uploaded_at`
	err := r.db.QueryRowContext(ctx, query, doc.AccountID, doc.Kind, doc.FileRef, doc.Validation).
		Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		return errs.Store("store kyc document", err)
	}
	return nil
}

// ListKYCDocuments returns all documents uploaded by an account
func (r *Repository) ListKYCDocuments(ctx context.Context, accountID int64) ([]models.KYCDocument, error) {
	query := `
		SELECT id, account_id, kind, file_ref, validation, COALESCE(rejection_reason, ''), uploaded_at
		FROM wallet.kyc_documents WHERE account_id = $1 ORDER BY uploaded_at`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, errs.Store("list kyc documents", err)
	}
	defer rows.Close()

	var out []models.KYCDocument
	for rows.Next() {
		var d models.KYCDocument
		if err := rows.Scan(&d.ID, &d.AccountID, &d.Kind, &d.FileRef, &d.Validation,
			&d.RejectionReason, &d.UploadedAt); err != nil {
			return nil, errs.Store("scan kyc document", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store("list kyc documents", err)
	}
	return out, nil
}

// UpdateKYCStatus sets the verification status and, when limit is non-nil,
// the transfer limit in the same statement so both take effect together.
func (r *Repository) UpdateKYCStatus(ctx context.Context, accountID int64, status models.KYCStatus, limit *decimal.Decimal) error {
	var res sql.Result
	var err error
	if limit != nil {
		res, err = r.db.ExecContext(ctx, `
			UPDATE wallet.accounts
			SET kyc_status = $2, transfer_limit = $3, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`, accountID, status, *limit)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE wallet.accounts SET kyc_status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
			accountID, status)
	}
	if err != nil {
		return errs.Store("update kyc status", err)
	}
	return checkAffected(res, "update kyc status")
}

// UpdateDocumentValidation sets the review state of a single document
func (r *Repository) UpdateDocumentValidation(ctx context.Context, docID int64, validation models.DocumentValidation, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallet.kyc_documents SET validation = $2, rejection_reason = NULLIF($3, '') WHERE id = $1`,
		docID, validation, reason)
	if err != nil {
		return errs.Store("update document validation", err)
	}
	return checkAffected(res, "update document validation")
}

// SetTransferLimit applies an admin-defined limit
func (r *Repository) SetTransferLimit(ctx context.Context, accountID int64, limit decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallet.accounts SET transfer_limit = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		accountID, limit)
	if err != nil {
		return errs.Store("set transfer limit", err)
	}
	return checkAffected(res, "set transfer limit")
}

// StorePasswordHash replaces the stored password hash
func (r *Repository) StorePasswordHash(ctx context.Context, accountID int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallet.accounts SET password_hash = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		accountID, hash)
	if err != nil {
		return errs.Store("store password hash", err)
	}
	return checkAffected(res, "store password hash")
}

// RecordFailedLogin stores the running failed-attempt count
func (r *Repository) RecordFailedLogin(ctx context.Context, accountID int64, attempts int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallet.accounts SET failed_attempts = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		accountID, attempts)
	if err != nil {
		return errs.Store("record failed login", err)
	}
	return checkAffected(res, "record failed login")
}

// ResetFailedLogins clears the counter and any lock
func (r *Repository) ResetFailedLogins(ctx context.Context, accountID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallet.accounts
		SET failed_attempts = 0, locked_until = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, accountID)
	if err != nil {
		return errs.Store("reset failed logins", err)
	}
	return checkAffected(res, "reset failed logins")
}

// LockAccount locks an account until the given instant
func (r *Repository) LockAccount(ctx context.Context, accountID int64, until time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallet.accounts SET locked_until = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		accountID, until)
	if err != nil {
		return errs.Store("lock account", err)
	}
	return checkAffected(res, "lock account")
}

// UnlockAccount clears an expired lock and the attempt counter
func (r *Repository) UnlockAccount(ctx context.Context, accountID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallet.accounts
		SET locked_until = NULL, failed_attempts = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, accountID)
	if err != nil {
		return errs.Store("unlock account", err)
	}
	return checkAffected(res, "unlock account")
}

// CreateResetToken stores a password reset token
func (r *Repository) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet.reset_tokens (token, account_id, issued_at, expires_at, used)
		VALUES ($1, $2, $3, $4, FALSE)`,
		token.Token, token.AccountID, token.IssuedAt, token.ExpiresAt)
	if err != nil {
		return errs.Store("create reset token", err)
	}
	return nil
}

// GetResetToken retrieves a reset token by value
func (r *Repository) GetResetToken(ctx context.Context, value string) (*models.PasswordResetToken, error) {
	token := &models.PasswordResetToken{}
	query := `SELECT token, account_id, issued_at, expires_at, used FROM wallet.reset_tokens WHERE token = $1`
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&token.Token, &token.AccountID, &token.IssuedAt, &token.ExpiresAt, &token.Used)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Store("get reset token", err)
	}
	return token, nil
}

// MarkResetTokenUsed burns a token after a successful reset
func (r *Repository) MarkResetTokenUsed(ctx context.Context, value string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE wallet.reset_tokens SET used = TRUE WHERE token = $1`, value)
	if err != nil {
		return errs.Store("mark reset token used", err)
	}
	return checkAffected(res, "mark reset token used")
}

// ListInstallmentsDueBetween returns pending installments due in a window,
// joined with the holder's contact details for reminder mail.
func (r *Repository) ListInstallmentsDueBetween(ctx context.Context, from, to time.Time) ([]models.InstallmentReminder, error) {
	query := `
		SELECT i.id, i.credit_id, i.sequence_no, i.amount, i.due_at, a.email, a.username
		FROM wallet.installments i
		JOIN wallet.credits c ON c.id = i.credit_id
		JOIN wallet.accounts a ON a.id = c.account_id
		WHERE i.status = $1 AND i.due_at >= $2 AND i.due_at < $3`
	rows, err := r.db.QueryContext(ctx, query, models.InstallmentPending, from, to)
	if err != nil {
		return nil, errs.Store("list due installments", err)
	}
	defer rows.Close()

	var out []models.InstallmentReminder
	for rows.Next() {
		var rem models.InstallmentReminder
		if err := rows.Scan(&rem.InstallmentID, &rem.CreditID, &rem.SequenceNo, &rem.Amount,
			&rem.DueAt, &rem.Email, &rem.Username); err != nil {
			return nil, errs.Store("scan due installment", err)
		}
		out = append(out, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store("list due installments", err)
	}
	return out, nil
}

func checkAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return errs.Store(op, err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
