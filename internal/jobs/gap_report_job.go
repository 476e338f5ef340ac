package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/lendaworks/paybridge/internal/queue"
	"github.com/lendaworks/paybridge/internal/services/loanbook"
	"github.com/rs/zerolog"
)

// GapReportJob periodically counts reconciliation gaps in the audit table
// and surfaces them as structured warnings. The acknowledgement contract
// hides gaps from the provider, so this scan is the operator's signal.
type GapReportJob struct {
	store *loanbook.NotificationStore
	queue *queue.RedisQueue
	log   zerolog.Logger
}

// NewGapReportJob creates the scheduled gap reporter.
func NewGapReportJob(store *loanbook.NotificationStore, q *queue.RedisQueue, log zerolog.Logger) *GapReportJob {
	return &GapReportJob{store: store, queue: q, log: log}
}

// Schedule registers the scan with the scheduler.
func (j *GapReportJob) Schedule(s *gocron.Scheduler, interval time.Duration) error {
	_, err := s.Every(interval).Do(j.Run)
	return err
}

// Run performs one scan.
func (j *GapReportJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	unmatched, unapplied, err := j.store.CountGaps(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("gap scan failed")
		return
	}

	dead, err := j.queue.DeadCount(ctx, QueueReconcileReplay)
	if err != nil {
		j.log.Error().Err(err).Msg("dead-letter count failed")
	}

	evt := j.log.Info()
	if unmatched > 0 || unapplied > 0 || dead > 0 {
		evt = j.log.Warn()
	}
	evt.
		Int64("unmatched_notifications", unmatched).
		Int64("unapplied_notifications", unapplied).
		Int64("dead_replay_jobs", dead).
		Msg("reconciliation gap scan")
}
