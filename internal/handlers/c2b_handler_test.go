package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lendaworks/paybridge/internal/services/reconcile"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReconciler struct {
	result reconcile.ConfirmationResult
	err    error
	calls  int
}

func (s *stubReconciler) Reconcile(ctx context.Context, req reconcile.ConfirmationRequest) (reconcile.ConfirmationResult, error) {
	s.calls++
	return s.result, s.err
}

type stubAccountResolver struct {
	id  uint
	err error
}

func (s *stubAccountResolver) FindAccountIDByExternalReference(ctx context.Context, ref string) (uint, error) {
	return s.id, s.err
}

func setupRouter(engine Reconciler, accounts reconcile.AccountResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewC2BHandler(engine, accounts, zerolog.Nop())
	router.POST("/api/v1/c2b/confirmation", h.Confirmation)
	router.POST("/api/v1/c2b/validation", h.Validation)
	return router
}

func confirmationBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"transactionType":   "Pay Bill",
		"transID":           "RKTQDM7W6S",
		"transTime":         "20240131143022",
		"transAmount":       "1500.00",
		"businessShortCode": "600638",
		"billRefNumber":     "ACC-001",
		"msisdn":            "254708374149",
		"firstName":         "John",
	})
	require.NoError(t, err)
	return body
}

func postJSON(router *gin.Engine, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestConfirmationAcknowledged(t *testing.T) {
	engine := &stubReconciler{result: reconcile.ConfirmationResult{
		Reference:   "7001",
		ResultCode:  reconcile.ResultCodeAccepted,
		Description: "Accepted",
	}}
	router := setupRouter(engine, &stubAccountResolver{})

	w := postJSON(router, "/api/v1/c2b/confirmation", confirmationBody(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var result reconcile.ConfirmationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "7001", result.Reference)
	assert.Equal(t, "0", result.ResultCode)
	assert.Equal(t, 1, engine.calls)
}

func TestConfirmationMalformedTransTime(t *testing.T) {
	engine := &stubReconciler{
		err: fmt.Errorf("%w: %q", reconcile.ErrMalformedTransTime, "31/01/2024"),
	}
	router := setupRouter(engine, &stubAccountResolver{})

	w := postJSON(router, "/api/v1/c2b/confirmation", confirmationBody(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var result reconcile.ConfirmationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, reconcile.ResultCodeRejected, result.ResultCode)
}

func TestConfirmationPersistFailureIsRetryable(t *testing.T) {
	engine := &stubReconciler{err: fmt.Errorf("persist payment notification: connection reset")}
	router := setupRouter(engine, &stubAccountResolver{})

	w := postJSON(router, "/api/v1/c2b/confirmation", confirmationBody(t))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var result reconcile.ConfirmationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, reconcile.ResultCodeRejected, result.ResultCode)
}

func TestConfirmationRejectsInvalidPayload(t *testing.T) {
	engine := &stubReconciler{}
	router := setupRouter(engine, &stubAccountResolver{})

	// transID missing
	body, _ := json.Marshal(map[string]interface{}{
		"transactionType":   "Pay Bill",
		"transTime":         "20240131143022",
		"businessShortCode": "600638",
		"billRefNumber":     "ACC-001",
	})
	w := postJSON(router, "/api/v1/c2b/confirmation", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, engine.calls)
}

func TestConfirmationRejectsMissingAmount(t *testing.T) {
	engine := &stubReconciler{}
	router := setupRouter(engine, &stubAccountResolver{})

	// transAmount missing
	body, _ := json.Marshal(map[string]interface{}{
		"transactionType":   "Pay Bill",
		"transID":           "RKTQDM7W6S",
		"transTime":         "20240131143022",
		"businessShortCode": "600638",
		"billRefNumber":     "ACC-001",
	})
	w := postJSON(router, "/api/v1/c2b/confirmation", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, engine.calls)
	var result reconcile.ConfirmationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, reconcile.ResultCodeRejected, result.ResultCode)
}

func TestValidationAcceptsKnownReference(t *testing.T) {
	router := setupRouter(&stubReconciler{}, &stubAccountResolver{id: 42})

	body, _ := json.Marshal(map[string]string{
		"transID":       "RKTQDM7W6S",
		"billRefNumber": "ACC-001",
	})
	w := postJSON(router, "/api/v1/c2b/validation", body)

	assert.Equal(t, http.StatusOK, w.Code)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "0", result.ResultCode)
}

func TestValidationRejectsUnknownReference(t *testing.T) {
	router := setupRouter(&stubReconciler{}, &stubAccountResolver{err: reconcile.ErrAccountNotFound})

	body, _ := json.Marshal(map[string]string{
		"transID":       "RKTQDM7W6S",
		"billRefNumber": "ACC-404",
	})
	w := postJSON(router, "/api/v1/c2b/validation", body)

	assert.Equal(t, http.StatusOK, w.Code)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "C2B00012", result.ResultCode)
}

func TestValidationFailsOpenOnLookupFault(t *testing.T) {
	router := setupRouter(&stubReconciler{}, &stubAccountResolver{err: fmt.Errorf("dial tcp: connection refused")})

	body, _ := json.Marshal(map[string]string{
		"transID":       "RKTQDM7W6S",
		"billRefNumber": "ACC-001",
	})
	w := postJSON(router, "/api/v1/c2b/validation", body)

	assert.Equal(t, http.StatusOK, w.Code)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "0", result.ResultCode)
}
