package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

var validDocumentKinds = map[models.DocumentKind]struct{}{
	models.DocumentID:             {},
	models.DocumentSelfie:         {},
	models.DocumentProofOfAddress: {},
}

// SubmitKYCDocument stores an uploaded identity document pending review.
func (s *Service) SubmitKYCDocument(ctx context.Context, accountID int64, kind models.DocumentKind, fileRef string) (*models.KYCDocument, error) {
	if _, ok := validDocumentKinds[kind]; !ok {
		return nil, errs.NewValidation("kind", "must be id, selfie or proof_of_address")
	}
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	doc := &models.KYCDocument{
		AccountID:  accountID,
		Kind:       kind,
		FileRef:    fileRef,
		Validation: models.DocumentPending,
	}
	if err := s.repo.StoreKYCDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.log.Infof("KYC document %s stored for account %d", kind, accountID)
	return doc, nil
}

// ApproveKYC approves an account's identity verification. It requires at
// least one ID and one Selfie document on file and sets the approved status
// together with the verified-tier transfer limit as one logical operation.
func (s *Service) ApproveKYC(ctx context.Context, accountID int64) error {
	docs, err := s.repo.ListKYCDocuments(ctx, accountID)
	if err != nil {
		return err
	}

	var hasID, hasSelfie bool
	for _, d := range docs {
		switch d.Kind {
		case models.DocumentID:
			hasID = true
		case models.DocumentSelfie:
			hasSelfie = true
		}
	}
	if !hasID || !hasSelfie {
		return errs.Denied(errs.CodeMissingDocuments,
			"approval requires at least one ID and one selfie document",
			"upload the missing documents and retry")
	}

	limit := models.VerifiedTierLimit
	if err := s.repo.UpdateKYCStatus(ctx, accountID, models.KYCApproved, &limit); err != nil {
		return err
	}

	s.log.Infof("KYC approved for account %d, transfer limit raised to %s", accountID, limit)
	return nil
}

// RejectKYC rejects an account's verification with a mandatory reason. The
// transfer limit keeps its current unverified-tier value.
func (s *Service) RejectKYC(ctx context.Context, accountID int64, reason string) error {
	if reason == "" {
		return errs.NewValidation("reason", "is required")
	}
	if err := s.repo.UpdateKYCStatus(ctx, accountID, models.KYCRejected, nil); err != nil {
		return err
	}

	s.log.Infof("KYC rejected for account %d: %s", accountID, reason)
	return nil
}

// ReviewKYCDocument updates the validation state of a single document. A
// rejection requires a reason.
func (s *Service) ReviewKYCDocument(ctx context.Context, docID int64, validation models.DocumentValidation, reason string) error {
	switch validation {
	case models.DocumentInReview, models.DocumentApproved:
	case models.DocumentRejected:
		if reason == "" {
			return errs.NewValidation("reason", "is required when rejecting a document")
		}
	default:
		return errs.NewValidation("validation", "unknown document state")
	}
	return s.repo.UpdateDocumentValidation(ctx, docID, validation, reason)
}

// SetTransferLimit sets an admin-defined transfer limit tier.
func (s *Service) SetTransferLimit(ctx context.Context, accountID int64, limit decimal.Decimal) error {
	if !limit.IsPositive() {
		return errs.NewValidation("limit", "must be greater than zero")
	}
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return err
	}
	if err := s.repo.SetTransferLimit(ctx, accountID, limit); err != nil {
		return err
	}
	s.log.Infof("Transfer limit for account %d set to %s", accountID, limit)
	return nil
}
