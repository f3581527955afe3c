package models

import "time"

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = 24 * time.Hour

// PasswordResetToken is a single-use credential for resetting a password.
type PasswordResetToken struct {
	Token     string    `json:"-"`
	AccountID int64     `json:"account_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

// ValidAt reports whether the token can still be consumed at the given
// instant.
func (t *PasswordResetToken) ValidAt(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
