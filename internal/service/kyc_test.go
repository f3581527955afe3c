package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
)

func TestSubmitKYCDocument(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)
	account := registeredAccount(t, repo, svc)

	doc, err := svc.SubmitKYCDocument(context.Background(), account.ID, models.DocumentID, "s3://docs/id-front.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentPending, doc.Validation)

	_, err = svc.SubmitKYCDocument(context.Background(), account.ID, models.DocumentKind("passport"), "x")
	var verr *errs.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.SubmitKYCDocument(context.Background(), 404, models.DocumentID, "x")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestApproveKYCRequiresIDAndSelfie(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)
	account := registeredAccount(t, repo, svc)

	// No documents at all.
	err := svc.ApproveKYC(context.Background(), account.ID)
	assert.True(t, errs.IsDenied(err, errs.CodeMissingDocuments))

	// Only an ID.
	_, err = svc.SubmitKYCDocument(context.Background(), account.ID, models.DocumentID, "id.jpg")
	require.NoError(t, err)
	err = svc.ApproveKYC(context.Background(), account.ID)
	assert.True(t, errs.IsDenied(err, errs.CodeMissingDocuments))
	assert.Equal(t, models.KYCPending, repo.accounts[account.ID].KYCStatus)

	// ID plus selfie: approval flips status and limit together.
	_, err = svc.SubmitKYCDocument(context.Background(), account.ID, models.DocumentSelfie, "selfie.jpg")
	require.NoError(t, err)
	require.NoError(t, svc.ApproveKYC(context.Background(), account.ID))

	stored := repo.accounts[account.ID]
	assert.Equal(t, models.KYCApproved, stored.KYCStatus)
	assert.True(t, stored.TransferLimit.Equal(decimal.NewFromInt(50000)))
}

func TestApproveKYCIgnoresDocumentValidationState(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)
	account := registeredAccount(t, repo, svc)

	id, err := svc.SubmitKYCDocument(context.Background(), account.ID, models.DocumentID, "id.jpg")
	require.NoError(t, err)
	_, err = svc.SubmitKYCDocument(context.Background(), account.ID, models.DocumentSelfie, "selfie.jpg")
	require.NoError(t, err)

	// Even a rejected ID still counts as present for the approval gate.
	require.NoError(t, svc.ReviewKYCDocument(context.Background(), id.ID, models.DocumentRejected, "blurry"))
	require.NoError(t, svc.ApproveKYC(context.Background(), account.ID))
	assert.Equal(t, models.KYCApproved, repo.accounts[account.ID].KYCStatus)
}

func TestRejectKYC(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)
	account := registeredAccount(t, repo, svc)

	err := svc.RejectKYC(context.Background(), account.ID, "")
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, svc.RejectKYC(context.Background(), account.ID, "document mismatch"))
	stored := repo.accounts[account.ID]
	assert.Equal(t, models.KYCRejected, stored.KYCStatus)
	assert.True(t, stored.TransferLimit.Equal(models.BaseTierLimit), "limit keeps the unverified tier")
}

func TestReviewKYCDocument(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)
	account := registeredAccount(t, repo, svc)

	doc, err := svc.SubmitKYCDocument(context.Background(), account.ID, models.DocumentID, "id.jpg")
	require.NoError(t, err)

	err = svc.ReviewKYCDocument(context.Background(), doc.ID, models.DocumentRejected, "")
	var verr *errs.ValidationError
	assert.ErrorAs(t, err, &verr)

	require.NoError(t, svc.ReviewKYCDocument(context.Background(), doc.ID, models.DocumentApproved, ""))
	docs, err := svc.repo.ListKYCDocuments(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentApproved, docs[0].Validation)
}

func TestSetTransferLimit(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeClearing{}, &fakeScores{}, nil)
	account := registeredAccount(t, repo, svc)

	require.NoError(t, svc.SetTransferLimit(context.Background(), account.ID, decimal.NewFromInt(120000)))
	assert.True(t, repo.accounts[account.ID].TransferLimit.Equal(decimal.NewFromInt(120000)))

	err := svc.SetTransferLimit(context.Background(), account.ID, decimal.Zero)
	var verr *errs.ValidationError
	assert.ErrorAs(t, err, &verr)
}
