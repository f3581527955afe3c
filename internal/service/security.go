package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
	"github.com/lucasvidela94/wallet-service/internal/utils"
)

const (
	maxFailedAttempts = 5
	lockoutDuration   = time.Hour
	minPasswordLength = 8
)

// Register creates a new wallet account with a hashed password. Accounts
// start unverified at the base transfer-limit tier.
func (s *Service) Register(ctx context.Context, email, username, password string, declaredIncome decimal.Decimal) (*models.Account, error) {
	if email == "" {
		return nil, errs.NewValidation("email", "is required")
	}
	if len(password) < minPasswordLength {
		return nil, errs.NewValidation("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if declaredIncome.IsNegative() {
		return nil, errs.NewValidation("declared_income", "must not be negative")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Email:          email,
		Username:       username,
		PasswordHash:   hash,
		Balance:        decimal.Zero,
		KYCStatus:      models.KYCPending,
		TransferLimit:  models.BaseTierLimit,
		DeclaredIncome: declaredIncome,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Infof("Account registered: %s", account.Email)
	return account, nil
}

// Login authenticates an account and returns a JWT. A mismatch increments
// the failed-attempt counter; the fifth failure locks the account for one
// hour. Attempts against a locked account are rejected without extending
// the lock. A success resets the counter.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if err == errs.ErrNotFound {
			return "", &errs.UnauthorizedError{Reason: "invalid credentials"}
		}
		return "", err
	}

	now := time.Now().UTC()
	if account.LockedAt(now) {
		return "", &errs.UnauthorizedError{Reason: "account is locked", LockedUntil: account.LockedUntil}
	}
	if account.LockedUntil != nil {
		// Lock window has passed; clear it before counting this attempt.
		if err := s.repo.UnlockAccount(ctx, account.ID); err != nil {
			return "", err
		}
		account.FailedAttempts = 0
		account.LockedUntil = nil
	}

	if !utils.VerifyPassword(password, account.PasswordHash) {
		attempts := account.FailedAttempts + 1
		if err := s.repo.RecordFailedLogin(ctx, account.ID, attempts); err != nil {
			return "", err
		}
		if attempts >= maxFailedAttempts {
			until := now.Add(lockoutDuration)
			if err := s.repo.LockAccount(ctx, account.ID, until); err != nil {
				return "", err
			}
			s.log.Warnf("Account %d locked until %s after %d failed attempts", account.ID, until.Format(time.RFC3339), attempts)
			return "", &errs.UnauthorizedError{Reason: "account is locked", LockedUntil: &until}
		}
		return "", &errs.UnauthorizedError{Reason: "invalid credentials"}
	}

	if account.FailedAttempts > 0 {
		if err := s.repo.ResetFailedLogins(ctx, account.ID); err != nil {
			return "", err
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", account.ID),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("Account logged in: %s", account.Email)
	return tokenString, nil
}

// AccountStatus returns the account with its lock state settled: an
// expired lock is cleared on any status check, not only on the next login.
func (s *Service) AccountStatus(ctx context.Context, accountID int64) (*models.Account, error) {
	return s.accountStatus(ctx, accountID)
}

func (s *Service) accountStatus(ctx context.Context, accountID int64) (*models.Account, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if account.LockedUntil != nil && !account.LockedAt(now) {
		if err := s.repo.UnlockAccount(ctx, accountID); err != nil {
			return nil, err
		}
		account.LockedUntil = nil
		account.FailedAttempts = 0
	}
	return account, nil
}

// RequestPasswordReset issues a 24h single-use reset token and mails it to
// the account holder. An unknown email is not revealed to the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if err == errs.ErrNotFound {
			s.log.Debugf("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	value, err := utils.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	now := time.Now().UTC()
	token := &models.PasswordResetToken{
		Token:     value,
		AccountID: account.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(models.ResetTokenTTL),
	}
	if err := s.repo.CreateResetToken(ctx, token); err != nil {
		return err
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(account.Email, account.Username, value); err != nil {
			s.log.WithError(err).Warnf("Failed to send reset mail to account %d", account.ID)
		}
	}
	s.log.Infof("Password reset token issued for account %d", account.ID)
	return nil
}

// ConfirmPasswordReset consumes a reset token and stores a new password
// hash. Token validity is checked before the new password's format: an
// expired or already-used token fails with ErrInvalidToken regardless of
// the password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, tokenValue, newPassword string) error {
	token, err := s.repo.GetResetToken(ctx, tokenValue)
	if err != nil {
		if err == errs.ErrNotFound {
			return errs.ErrInvalidToken
		}
		return err
	}
	if !token.ValidAt(time.Now().UTC()) {
		return errs.ErrInvalidToken
	}

	if len(newPassword) < minPasswordLength {
		return errs.NewValidation("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.StorePasswordHash(ctx, token.AccountID, hash); err != nil {
		return err
	}
	if err := s.repo.MarkResetTokenUsed(ctx, tokenValue); err != nil {
		return err
	}

	s.log.Infof("Password reset for account %d", token.AccountID)
	return nil
}
