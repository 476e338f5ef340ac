package reconcile

import "errors"

// Error taxonomy for the reconciliation pipeline. Adapters translate their
// backing-store failures into these sentinels so the engine can decide which
// outcomes are recoverable without knowing anything about Postgres.
var (
	// ErrAccountNotFound means the billing reference matches no account.
	ErrAccountNotFound = errors.New("no account matches billing reference")

	// ErrNoOpenLoan means the account exists but has no active loan to
	// apply the payment against.
	ErrNoOpenLoan = errors.New("account has no open loan")

	// ErrDuplicateApplication means a ledger transaction with the same
	// provider transaction id already exists. The payment was applied by an
	// earlier delivery; the current one must not be applied again.
	ErrDuplicateApplication = errors.New("ledger transaction already applied")

	// ErrLedgerUnavailable marks a transient backing-store fault during
	// application. The notification is still recorded and acknowledged, but
	// the gap must be replayed.
	ErrLedgerUnavailable = errors.New("ledger temporarily unavailable")

	// ErrMalformedTransTime means the provider transaction time could not
	// be parsed. Fatal: nothing is persisted and the caller must answer
	// with a failure code.
	ErrMalformedTransTime = errors.New("malformed transaction time")
)
