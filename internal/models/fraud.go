package models

// FraudSeverity grades a fraud signal.
type FraudSeverity string

const (
	SeverityMedium FraudSeverity = "medium"
	SeverityHigh   FraudSeverity = "high"
)

// Fraud signal kinds.
const (
	SignalNewAccountHighAmount = "new_account_high_amount"
	SignalHighDailyVelocity    = "high_daily_velocity"
	SignalDefaultHistory       = "default_history"
)

// FraudSignal is one independent indicator raised by the scoring stage.
type FraudSignal struct {
	Kind        string        `json:"kind"`
	Severity    FraudSeverity `json:"severity"`
	Description string        `json:"description"`
}

// FraudAssessment is the advisory result of scoring a transfer. Scoring
// never mutates state; RequiresVerification is true iff any high-severity
// signal fired.
type FraudAssessment struct {
	Signals              []FraudSignal `json:"signals"`
	RequiresVerification bool          `json:"requires_verification"`
}
