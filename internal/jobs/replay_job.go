package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lendaworks/paybridge/internal/models"
	"github.com/lendaworks/paybridge/internal/queue"
	"github.com/lendaworks/paybridge/internal/services/loanbook"
	"github.com/lendaworks/paybridge/internal/services/reconcile"
	"github.com/rs/zerolog"
)

// QueueReconcileReplay is the queue carrying reconciliation-gap replays.
const QueueReconcileReplay = "reconcile_replay"

// ReplayPayload identifies the gap record to replay.
type ReplayPayload struct {
	NotificationRef string `json:"notification_ref"`
	Reason          string `json:"reason"`
}

// Reconciler is the slice of the engine the replay job needs. Replay does
// not report a fresh gap when the ledger is still down; the failure comes
// back as an error so the worker's retry budget bounds the chain.
type Reconciler interface {
	Replay(ctx context.Context, req reconcile.ConfirmationRequest) (reconcile.ConfirmationResult, error)
}

// NotificationSource loads persisted notifications for replay.
type NotificationSource interface {
	FindByReference(ctx context.Context, ref string) (*models.PaymentNotification, error)
}

// QueueGapReporter implements reconcile.GapReporter by scheduling a delayed
// replay job. Reporting never fails the reconciliation call: if the enqueue
// itself fails, the gap is still visible in the audit table and the
// scheduled gap scan.
type QueueGapReporter struct {
	queue      *queue.RedisQueue
	delay      time.Duration
	maxRetries int
	log        zerolog.Logger
}

// NewQueueGapReporter creates a reporter that schedules replays after the
// given delay.
func NewQueueGapReporter(q *queue.RedisQueue, delay time.Duration, maxRetries int, log zerolog.Logger) *QueueGapReporter {
	return &QueueGapReporter{queue: q, delay: delay, maxRetries: maxRetries, log: log}
}

// ReportGap logs the gap for alerting and schedules a replay.
func (r *QueueGapReporter) ReportGap(ctx context.Context, notificationRef, reason string) {
	r.log.Warn().
		Str("notification_ref", notificationRef).
		Str("reason", reason).
		Msg("reconciliation gap reported, scheduling replay")

	payload := ReplayPayload{NotificationRef: notificationRef, Reason: reason}
	_, err := r.queue.EnqueueIn(ctx, QueueReconcileReplay, payload, r.delay,
		queue.WithMaxRetries(r.maxRetries))
	if err != nil {
		r.log.Error().Err(err).
			Str("notification_ref", notificationRef).
			Msg("failed to schedule gap replay; record remains for manual replay")
	}
}

// ReplayJob re-submits a gap record through the reconciliation engine. A
// successful replay produces a second, append-only audit row; a repayment
// that was applied between fault and replay is absorbed as a duplicate by
// the applier, so the ledger is touched at most once overall. A ledger that
// is still unavailable fails the job, and the queue retries it with backoff
// until the job's retry budget moves it to the dead-letter list.
type ReplayJob struct {
	source NotificationSource
	engine Reconciler
	log    zerolog.Logger
}

// NewReplayJob creates the replay handler.
func NewReplayJob(source NotificationSource, engine Reconciler, log zerolog.Logger) *ReplayJob {
	return &ReplayJob{source: source, engine: engine, log: log}
}

// Handle processes one replay job.
func (j *ReplayJob) Handle(ctx context.Context, job queue.Job) error {
	var payload ReplayPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal replay payload: %w", err)
	}

	record, err := j.source.FindByReference(ctx, payload.NotificationRef)
	if errors.Is(err, loanbook.ErrNotificationNotFound) {
		// The original persist failed after the gap was reported; there is
		// nothing to replay and the provider will retry the whole call.
		j.log.Warn().
			Str("notification_ref", payload.NotificationRef).
			Msg("replay skipped: notification record does not exist")
		return nil
	}
	if err != nil {
		return err
	}

	if record.LoanTransactionID != nil {
		j.log.Info().
			Str("notification_ref", record.Reference).
			Uint("loan_transaction_id", *record.LoanTransactionID).
			Msg("replay skipped: repayment already applied")
		return nil
	}

	result, err := j.engine.Replay(ctx, requestFromRecord(record))
	if err != nil {
		return fmt.Errorf("replay notification %s: %w", record.Reference, err)
	}

	j.log.Info().
		Str("notification_ref", record.Reference).
		Str("replay_reference", result.Reference).
		Str("description", result.Description).
		Msg("gap replay completed")
	return nil
}

// requestFromRecord rebuilds the original confirmation from the audit row.
func requestFromRecord(n *models.PaymentNotification) reconcile.ConfirmationRequest {
	return reconcile.ConfirmationRequest{
		TransactionType:   n.TransactionType,
		TransID:           n.TransactionID,
		TransTime:         n.TransactionTime.Format(reconcile.TransTimeLayout),
		TransAmount:       n.Amount,
		BusinessShortCode: n.BusinessShortCode,
		BillRefNumber:     n.BillRefNumber,
		InvoiceNumber:     n.InvoiceNumber,
		OrgAccountBalance: n.OrgAccountBalance,
		ThirdPartyTransID: n.ThirdPartyTransID,
		MSISDN:            n.MSISDN,
		FirstName:         n.FirstName,
	}
}
