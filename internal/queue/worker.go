package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler processes one job. A returned error triggers the queue's retry
// policy.
type Handler func(ctx context.Context, job Job) error

// Worker runs a pool of goroutines draining one queue.
type Worker struct {
	queue      *RedisQueue
	name       string
	handler    Handler
	numWorkers int
	wg         sync.WaitGroup
	quit       chan struct{}
	log        zerolog.Logger
}

// NewWorker creates a worker pool for the named queue.
func NewWorker(queue *RedisQueue, name string, handler Handler, numWorkers int, log zerolog.Logger) *Worker {
	return &Worker{
		queue:      queue,
		name:       name,
		handler:    handler,
		numWorkers: numWorkers,
		quit:       make(chan struct{}),
		log:        log.With().Str("queue", name).Logger(),
	}
}

// Start launches the worker goroutines.
func (w *Worker) Start() {
	w.log.Info().Int("workers", w.numWorkers).Msg("starting queue workers")
	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.run(i)
	}
}

// Stop signals the workers and waits for them to drain.
func (w *Worker) Stop() {
	close(w.quit)
	w.wg.Wait()
	w.log.Info().Msg("queue workers stopped")
}

func (w *Worker) run(workerID int) {
	defer w.wg.Done()

	ctx := context.Background()
	for {
		select {
		case <-w.quit:
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, w.name, 1*time.Second)
		if err != nil {
			w.log.Error().Err(err).Int("worker", workerID).Msg("dequeue failed")
			time.Sleep(1 * time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := w.handler(ctx, *job); err != nil {
			retried, retryErr := w.queue.Retry(ctx, job, err)
			if retryErr != nil {
				w.log.Error().Err(retryErr).Str("job_id", job.ID).Msg("retry scheduling failed")
				continue
			}
			if retried {
				w.log.Warn().Err(err).Str("job_id", job.ID).Int("retry", job.RetryCount).Msg("job failed, retry scheduled")
			} else {
				w.log.Error().Err(err).Str("job_id", job.ID).Msg("job failed permanently, dead-lettered")
			}
		}
	}
}
