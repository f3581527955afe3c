package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lucasvidela94/wallet-service/internal/errs"
	"github.com/lucasvidela94/wallet-service/internal/models"
	"github.com/lucasvidela94/wallet-service/internal/service"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register handles account registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email          string          `json:"email"`
		Username       string          `json:"username"`
		Password       string          `json:"password"`
		DeclaredIncome decimal.Decimal `json:"declared_income"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.svc.Register(r.Context(), req.Email, req.Username, req.Password, req.DeclaredIncome)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

// Login handles account authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// RequestPasswordReset issues a reset token
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// ConfirmPasswordReset consumes a reset token
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// AccountStatus returns an account with its lock state settled
func (h *Handler) AccountStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.svc.AccountStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// SimulateCredit prices a credit without persisting it
func (h *Handler) SimulateCredit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductType models.ProductType `json:"product_type"`
		Principal   decimal.Decimal    `json:"principal"`
		TermUnits   int                `json:"term_units"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	quote, err := h.svc.SimulateCredit(r.Context(), req.ProductType, req.Principal, req.TermUnits)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quote)
}

// CreateCredit creates a pre-approved credit
func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   int64              `json:"account_id"`
		ProductType models.ProductType `json:"product_type"`
		Principal   decimal.Decimal    `json:"principal"`
		TermUnits   int                `json:"term_units"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	credit, err := h.svc.CreateCredit(r.Context(), req.AccountID, req.ProductType, req.Principal, req.TermUnits)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, credit)
}

// DisburseCredit approves and disburses a pre-approved credit
func (h *Handler) DisburseCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	credit, err := h.svc.ApproveAndDisburse(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, credit)
}

// CancelCredit cancels a credit before disbursement
func (h *Handler) CancelCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.CancelCredit(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

// OverrideCreditStatus is the admin status override
func (h *Handler) OverrideCreditStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.CreditStatus `json:"status"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.SetCreditStatus(r.Context(), id, req.Status, true); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

// Settle runs the transfer settlement pipeline
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	var req service.TransferInput
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.Settle(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ScoreTransfer returns the advisory fraud assessment for a prospective
// transfer
func (h *Handler) ScoreTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID int64           `json:"account_id"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	assessment, err := h.svc.ScoreTransfer(r.Context(), req.AccountID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, assessment)
}

// SubmitKYCDocument stores an identity document
func (h *Handler) SubmitKYCDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID int64               `json:"account_id"`
		Kind      models.DocumentKind `json:"kind"`
		FileRef   string              `json:"file_ref"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	doc, err := h.svc.SubmitKYCDocument(r.Context(), req.AccountID, req.Kind, req.FileRef)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, doc)
}

// ApproveKYC approves an account's verification
func (h *Handler) ApproveKYC(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	if err := h.svc.ApproveKYC(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// RejectKYC rejects an account's verification with a reason
func (h *Handler) RejectKYC(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.RejectKYC(r.Context(), id, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ReviewKYCDocument updates the review state of a single document
func (h *Handler) ReviewKYCDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Validation models.DocumentValidation `json:"validation"`
		Reason     string                    `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ReviewKYCDocument(r.Context(), id, req.Validation, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Validation)})
}

// SetTransferLimit applies an admin-defined limit tier
func (h *Handler) SetTransferLimit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Limit decimal.Decimal `json:"limit"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.SetTransferLimit(r.Context(), id, req.Limit); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, errs.NewValidation("body", "malformed JSON"))
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		h.writeError(w, errs.NewValidation(name, "must be a numeric id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("Failed to encode response")
	}
}

// errorBody is the wire shape of every failure.
type errorBody struct {
	Code        string      `json:"code"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     interface{} `json:"details,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := mapError(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("Request failed")
	}
	h.writeJSON(w, status, map[string]errorBody{"error": body})
}

func mapError(err error) (int, errorBody) {
	var verr *errs.ValidationError
	var uerr *errs.UnauthorizedError
	var derr *errs.DeniedError
	var lerr *errs.LimitExceededError
	var eerr *errs.ExternalAccountError
	var serr *errs.StoreError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Code: "VALIDATION_ERROR", Message: verr.Error()}
	case errors.As(err, &uerr):
		body := errorBody{Code: "UNAUTHORIZED", Message: uerr.Reason}
		if uerr.LockedUntil != nil {
			body.Details = map[string]interface{}{"locked_until": uerr.LockedUntil}
		}
		return http.StatusUnauthorized, body
	case errors.As(err, &derr):
		return http.StatusUnprocessableEntity, errorBody{Code: derr.Code, Message: derr.Message, Remediation: derr.Remediation}
	case errors.As(err, &lerr):
		return http.StatusUnprocessableEntity, errorBody{
			Code:    "LIMIT_EXCEEDED",
			Message: lerr.Error(),
			Details: map[string]interface{}{
				"limit":       lerr.Limit,
				"used":        lerr.Used,
				"exceeded_by": lerr.ExceededBy,
			},
		}
	case errors.As(err, &eerr):
		return http.StatusBadRequest, errorBody{Code: eerr.Code, Message: eerr.Reason}
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, errorBody{Code: "NOT_FOUND", Message: "resource not found"}
	case errors.Is(err, errs.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, errorBody{Code: "INSUFFICIENT_FUNDS", Message: err.Error()}
	case errors.Is(err, errs.ErrInvalidState):
		return http.StatusConflict, errorBody{Code: "INVALID_STATE", Message: err.Error()}
	case errors.Is(err, errs.ErrInvalidTerm):
		return http.StatusBadRequest, errorBody{Code: "INVALID_TERM", Message: err.Error()}
	case errors.Is(err, errs.ErrInvalidToken):
		return http.StatusUnauthorized, errorBody{Code: "INVALID_TOKEN", Message: err.Error()}
	case errors.As(err, &serr):
		return http.StatusInternalServerError, errorBody{Code: "STORE_FAILURE", Message: "internal storage failure"}
	default:
		return http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"}
	}
}
