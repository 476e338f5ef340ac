package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lendaworks/paybridge/internal/services/reconcile"
	"github.com/rs/zerolog"
)

// C2B validation result codes. Validation answers before any money moves;
// rejecting an unknown reference here spares the payer a misdirected
// payment, but confirmation still records whatever arrives.
const (
	validationAccepted = "0"
	validationRejected = "C2B00012"
)

// Reconciler is the slice of the reconciliation engine the handler needs.
type Reconciler interface {
	Reconcile(ctx context.Context, req reconcile.ConfirmationRequest) (reconcile.ConfirmationResult, error)
}

// C2BHandler serves the provider's customer-to-business callbacks.
type C2BHandler struct {
	engine   Reconciler
	accounts reconcile.AccountResolver
	log      zerolog.Logger
}

// NewC2BHandler creates the callback handler.
func NewC2BHandler(engine Reconciler, accounts reconcile.AccountResolver, log zerolog.Logger) *C2BHandler {
	return &C2BHandler{engine: engine, accounts: accounts, log: log}
}

// ValidationRequest is the pre-payment check the provider sends before
// completing a customer payment.
type ValidationRequest struct {
	TransID       string `json:"transID" binding:"required,max=40"`
	BillRefNumber string `json:"billRefNumber" binding:"required,max=12"`
	MSISDN        string `json:"msisdn" binding:"omitempty,max=20"`
}

// ValidationResult is the accept/reject answer to a validation callback.
type ValidationResult struct {
	ResultCode  string `json:"resultCode"`
	Description string `json:"description"`
}

// Confirmation handles the payment confirmation callback. The reply is the
// engine's acknowledgement: resultCode "0" whenever the notification was
// durably recorded, a failure code only for malformed input or when no
// audit record could be written (the provider should retry those).
func (h *C2BHandler) Confirmation(c *gin.Context) {
	var req reconcile.ConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, reconcile.ConfirmationResult{
			ResultCode:  reconcile.ResultCodeRejected,
			Description: "invalid payload: " + err.Error(),
		})
		return
	}

	result, err := h.engine.Reconcile(c.Request.Context(), req)
	switch {
	case errors.Is(err, reconcile.ErrMalformedTransTime):
		c.JSON(http.StatusBadRequest, reconcile.ConfirmationResult{
			ResultCode:  reconcile.ResultCodeRejected,
			Description: err.Error(),
		})
	case err != nil:
		h.log.Error().Err(err).
			Str("trans_id", req.TransID).
			Msg("payment confirmation failed without audit record")
		c.JSON(http.StatusInternalServerError, reconcile.ConfirmationResult{
			ResultCode:  reconcile.ResultCodeRejected,
			Description: "confirmation could not be recorded, retry",
		})
	default:
		c.JSON(http.StatusOK, result)
	}
}

// Validation handles the pre-payment validation callback. Lookup failures
// other than a definite miss fail open: a payment we cannot validate is
// still worth receiving and reconciling later.
func (h *C2BHandler) Validation(c *gin.Context) {
	var req ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ValidationResult{
			ResultCode:  validationRejected,
			Description: "invalid payload: " + err.Error(),
		})
		return
	}

	_, err := h.accounts.FindAccountIDByExternalReference(c.Request.Context(), req.BillRefNumber)
	switch {
	case errors.Is(err, reconcile.ErrAccountNotFound):
		c.JSON(http.StatusOK, ValidationResult{
			ResultCode:  validationRejected,
			Description: "Rejected - unknown billing reference",
		})
	case err != nil:
		h.log.Error().Err(err).
			Str("bill_ref_number", req.BillRefNumber).
			Msg("validation lookup failed, accepting")
		c.JSON(http.StatusOK, ValidationResult{
			ResultCode:  validationAccepted,
			Description: "Accepted",
		})
	default:
		c.JSON(http.StatusOK, ValidationResult{
			ResultCode:  validationAccepted,
			Description: "Accepted",
		})
	}
}
