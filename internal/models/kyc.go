package models

import "time"

// DocumentKind is the type of an uploaded KYC document.
type DocumentKind string

const (
	DocumentID             DocumentKind = "id"
	DocumentSelfie         DocumentKind = "selfie"
	DocumentProofOfAddress DocumentKind = "proof_of_address"
)

// DocumentValidation is the review state of a single document.
type DocumentValidation string

const (
	DocumentPending  DocumentValidation = "pending"
	DocumentInReview DocumentValidation = "in_review"
	DocumentApproved DocumentValidation = "approved"
	DocumentRejected DocumentValidation = "rejected"
)

// KYCDocument represents one document uploaded for identity verification.
type KYCDocument struct {
	ID              int64              `json:"id"`
	AccountID       int64              `json:"account_id"`
	Kind            DocumentKind       `json:"kind"`
	FileRef         string             `json:"file_ref"`
	Validation      DocumentValidation `json:"validation"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	UploadedAt      time.Time          `json:"uploaded_at"`
}
