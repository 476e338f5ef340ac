package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lendaworks/paybridge/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransTimeLayout is the fixed format providers report transaction times in
// (yyyyMMddHHmmss, e.g. "20240131143022").
const TransTimeLayout = "20060102150405"

const (
	// ResultCodeAccepted acknowledges a well-formed, durably recorded
	// notification, whether or not it could be applied to a loan.
	ResultCodeAccepted = "0"
	// ResultCodeRejected is returned for malformed input or when no audit
	// record could be written; the provider should retry.
	ResultCodeRejected = "1"
)

// repaymentType is the transaction kind applied against the loan ledger.
const repaymentType = "repayment"

// amountScale is the fixed fractional precision of monetary values.
// Anything beyond it is rounded half away from zero on ingest.
const amountScale = 6

// ConfirmationRequest is one inbound payment confirmation from the
// provider. References and provider ids are opaque strings and are not
// re-validated for format beyond the length caps.
type ConfirmationRequest struct {
	TransactionType   string              `json:"transactionType" binding:"required,max=40"`
	TransID           string              `json:"transID" binding:"required,max=40"`
	TransTime         string              `json:"transTime" binding:"required"`
	TransAmount       decimal.Decimal     `json:"transAmount" binding:"required"`
	BusinessShortCode string              `json:"businessShortCode" binding:"required,max=12"`
	BillRefNumber     string              `json:"billRefNumber" binding:"required,max=12"`
	InvoiceNumber     string              `json:"invoiceNumber" binding:"omitempty,max=100"`
	OrgAccountBalance decimal.NullDecimal `json:"orgAccountBalance"`
	ThirdPartyTransID string              `json:"thirdPartyTransID" binding:"omitempty,max=20"`
	MSISDN            string              `json:"msisdn" binding:"omitempty,max=20"`
	FirstName         string              `json:"firstName" binding:"omitempty,max=50"`
}

// ConfirmationResult is the synchronous acknowledgement returned to the
// provider. When the payment was applied, Reference is the ledger
// transaction id; otherwise it is a freshly generated token so the
// provider's retry detection still sees a stable-looking value. The result
// code stays "0" for every recorded notification: operators detect
// reconciliation gaps from the persisted null pattern, not from this reply.
type ConfirmationResult struct {
	Reference   string `json:"reference"`
	ResultCode  string `json:"resultCode"`
	Description string `json:"description"`
}

// Engine resolves inbound payment confirmations to accounts and open loans,
// applies them against the ledger at most once per call, and records every
// notification exactly once regardless of how far resolution got. It holds
// no state across calls and is safe for unbounded concurrent use.
type Engine struct {
	accounts AccountResolver
	loans    ObligationResolver
	applier  TransactionApplier
	store    NotificationStore
	gaps     GapReporter
	log      zerolog.Logger
}

// NewEngine wires the engine to its collaborators. gaps may be nil when no
// replay scheduling is wanted.
func NewEngine(accounts AccountResolver, loans ObligationResolver, applier TransactionApplier,
	store NotificationStore, gaps GapReporter, log zerolog.Logger) *Engine {
	return &Engine{
		accounts: accounts,
		loans:    loans,
		applier:  applier,
		store:    store,
		gaps:     gaps,
		log:      log,
	}
}

// Reconcile handles one inbound confirmation. It returns an error only when
// the call produced no usable audit record: a malformed transaction time, a
// failed persist, or an applier failure outside the recoverable kinds.
// Every other internal failure degrades to a recorded, acknowledged
// outcome.
func (e *Engine) Reconcile(ctx context.Context, req ConfirmationRequest) (ConfirmationResult, error) {
	return e.reconcile(ctx, req, false)
}

// Replay re-submits a previously recorded confirmation. It behaves like
// Reconcile except that a still-unavailable ledger comes back as an error
// instead of scheduling yet another replay; the caller's retry budget owns
// the chain and terminates it.
func (e *Engine) Replay(ctx context.Context, req ConfirmationRequest) (ConfirmationResult, error) {
	return e.reconcile(ctx, req, true)
}

func (e *Engine) reconcile(ctx context.Context, req ConfirmationRequest, replay bool) (ConfirmationResult, error) {
	txTime, err := time.ParseInLocation(TransTimeLayout, req.TransTime, time.Local)
	if err != nil {
		return ConfirmationResult{}, fmt.Errorf("%w: %q", ErrMalformedTransTime, req.TransTime)
	}

	record := &models.PaymentNotification{
		Reference:         uuid.NewString(),
		TransactionType:   req.TransactionType,
		TransactionID:     req.TransID,
		TransactionTime:   txTime,
		Amount:            req.TransAmount.Round(amountScale),
		BusinessShortCode: req.BusinessShortCode,
		BillRefNumber:     req.BillRefNumber,
		InvoiceNumber:     req.InvoiceNumber,
		OrgAccountBalance: roundBalance(req.OrgAccountBalance),
		ThirdPartyTransID: req.ThirdPartyTransID,
		MSISDN:            req.MSISDN,
		FirstName:         req.FirstName,
	}

	reference := record.Reference
	description, err := e.resolveAndApply(ctx, req, record, &reference, replay)
	if err != nil {
		return ConfirmationResult{}, err
	}

	if err := e.store.Save(ctx, record); err != nil {
		return ConfirmationResult{}, fmt.Errorf("persist payment notification %s: %w", record.Reference, err)
	}

	return ConfirmationResult{
		Reference:   reference,
		ResultCode:  ResultCodeAccepted,
		Description: description,
	}, nil
}

// resolveAndApply walks the account -> loan -> ledger pipeline, filling the
// record's correlation fields as each step succeeds, and returns the
// outcome description for the acknowledgement. Recoverable outcomes are
// logged and absorbed; only an applier failure outside the two recoverable
// kinds comes back as an error.
func (e *Engine) resolveAndApply(ctx context.Context, req ConfirmationRequest, record *models.PaymentNotification, reference *string, replay bool) (string, error) {
	accountID, err := e.accounts.FindAccountIDByExternalReference(ctx, req.BillRefNumber)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		e.log.Warn().
			Str("bill_ref_number", req.BillRefNumber).
			Str("trans_id", req.TransID).
			Msg("unmatched payment: no account for billing reference")
		return "Accepted - no matching account", nil
	case err != nil:
		e.log.Error().Err(err).
			Str("bill_ref_number", req.BillRefNumber).
			Str("trans_id", req.TransID).
			Msg("account lookup failed; recording unresolved notification")
		return "Accepted - resolution deferred", nil
	}
	record.AccountID = &accountID

	loanID, err := e.loans.FindOpenLoanIDForAccount(ctx, accountID)
	switch {
	case errors.Is(err, ErrNoOpenLoan):
		e.log.Warn().
			Uint("account_id", accountID).
			Str("bill_ref_number", req.BillRefNumber).
			Msg("payment for account with no open loan")
		return "Accepted - no open loan", nil
	case err != nil:
		e.log.Error().Err(err).
			Uint("account_id", accountID).
			Str("trans_id", req.TransID).
			Msg("loan lookup failed; recording unresolved notification")
		return "Accepted - resolution deferred", nil
	}
	record.LoanID = &loanID

	txnID, err := e.applier.Apply(ctx, RepaymentRequest{
		LoanID:          loanID,
		Type:            repaymentType,
		Amount:          record.Amount,
		ExternalID:      req.TransID,
		PayerRef:        req.MSISDN,
		Note:            req.TransactionType + " " + req.TransID,
		TransactionDate: dateOf(record.TransactionTime),
		IsRecovery:      false,
	})
	switch {
	case err == nil:
		record.LoanTransactionID = &txnID
		*reference = strconv.FormatUint(uint64(txnID), 10)
		return "Accepted", nil
	case errors.Is(err, ErrDuplicateApplication):
		e.log.Warn().
			Str("trans_id", req.TransID).
			Uint("loan_id", loanID).
			Msg("repayment already applied; recording duplicate delivery")
		return "Accepted - duplicate transaction", nil
	case errors.Is(err, ErrLedgerUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		if replay {
			return "", fmt.Errorf("apply repayment for loan %d: %w", loanID, err)
		}
		e.log.Error().Err(err).
			Str("notification_ref", record.Reference).
			Uint("loan_id", loanID).
			Msg("reconciliation gap: repayment not applied")
		if e.gaps != nil {
			e.gaps.ReportGap(ctx, record.Reference, err.Error())
		}
		return "Accepted - application deferred", nil
	default:
		return "", fmt.Errorf("apply repayment for loan %d: %w", loanID, err)
	}
}

// dateOf strips the time-of-day: repayments post against the value date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func roundBalance(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Round(amountScale))
}
