package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	// DefaultMaxRetries bounds how often a failed job is retried before it
	// lands on the dead-letter list.
	DefaultMaxRetries = 3

	pendingKeyFmt = "paybridge:queue:%s"
	delayedKeyFmt = "paybridge:queue:%s:delayed"
	deadKeyFmt    = "paybridge:queue:%s:dead"
)

// Job is one unit of queued work.
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// EnqueueOption modifies a job before it is pushed.
type EnqueueOption func(*Job)

// WithMaxRetries sets the maximum number of retries for a job
func WithMaxRetries(maxRetries int) EnqueueOption {
	return func(j *Job) {
		j.MaxRetries = maxRetries
	}
}

// RedisQueue is a small Redis-backed job queue: a list per queue for
// pending jobs plus a sorted set for delayed ones, scored by run-at time.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a queue on the given Redis client.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Enqueue pushes a job for immediate processing and returns its id.
func (q *RedisQueue) Enqueue(ctx context.Context, queueName string, payload interface{}, opts ...EnqueueOption) (string, error) {
	job, err := q.newJob(queueName, payload, opts...)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, fmt.Sprintf(pendingKeyFmt, queueName), data).Err(); err != nil {
		return "", fmt.Errorf("enqueue job on %s: %w", queueName, err)
	}
	return job.ID, nil
}

// EnqueueIn schedules a job to become runnable after the given delay.
func (q *RedisQueue) EnqueueIn(ctx context.Context, queueName string, payload interface{}, delay time.Duration, opts ...EnqueueOption) (string, error) {
	job, err := q.newJob(queueName, payload, opts...)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	runAt := time.Now().Add(delay)
	err = q.client.ZAdd(ctx, fmt.Sprintf(delayedKeyFmt, queueName), &redis.Z{
		Score:  float64(runAt.UnixNano()),
		Member: data,
	}).Err()
	if err != nil {
		return "", fmt.Errorf("schedule job on %s: %w", queueName, err)
	}
	return job.ID, nil
}

// Dequeue promotes due delayed jobs, then blocks up to timeout waiting for
// a pending job. Returns nil when nothing arrived.
func (q *RedisQueue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	if err := q.promoteDue(ctx, queueName); err != nil {
		return nil, err
	}

	res, err := q.client.BRPop(ctx, timeout, fmt.Sprintf(pendingKeyFmt, queueName)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue from %s: %w", queueName, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job from %s: %w", queueName, err)
	}
	return &job, nil
}

// Retry requeues a failed job with backoff, or moves it to the dead-letter
// list once its retry budget is exhausted. Returns whether a retry was
// scheduled.
func (q *RedisQueue) Retry(ctx context.Context, job *Job, cause error) (bool, error) {
	job.RetryCount++
	job.LastError = cause.Error()

	if job.RetryCount > job.MaxRetries {
		data, err := json.Marshal(job)
		if err != nil {
			return false, fmt.Errorf("marshal dead job: %w", err)
		}
		if err := q.client.LPush(ctx, fmt.Sprintf(deadKeyFmt, job.Queue), data).Err(); err != nil {
			return false, fmt.Errorf("dead-letter job %s: %w", job.ID, err)
		}
		return false, nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("marshal retry job: %w", err)
	}
	runAt := time.Now().Add(Backoff(job.RetryCount))
	err = q.client.ZAdd(ctx, fmt.Sprintf(delayedKeyFmt, job.Queue), &redis.Z{
		Score:  float64(runAt.UnixNano()),
		Member: data,
	}).Err()
	if err != nil {
		return false, fmt.Errorf("requeue job %s: %w", job.ID, err)
	}
	return true, nil
}

// DeadCount reports how many jobs are parked on the dead-letter list.
func (q *RedisQueue) DeadCount(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, fmt.Sprintf(deadKeyFmt, queueName)).Result()
}

func (q *RedisQueue) newJob(queueName string, payload interface{}, opts ...EnqueueOption) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:         uuid.NewString(),
		Queue:      queueName,
		Payload:    data,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(job)
	}
	return job, nil
}

// promoteDue moves delayed jobs whose run-at time has passed onto the
// pending list.
func (q *RedisQueue) promoteDue(ctx context.Context, queueName string) error {
	delayedKey := fmt.Sprintf(delayedKeyFmt, queueName)
	now := strconv.FormatInt(time.Now().UnixNano(), 10)

	members, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("scan delayed jobs on %s: %w", queueName, err)
	}

	for _, member := range members {
		removed, err := q.client.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return fmt.Errorf("promote delayed job on %s: %w", queueName, err)
		}
		// Another worker may have promoted it between the scan and the
		// remove; only the one that removed it gets to push.
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, fmt.Sprintf(pendingKeyFmt, queueName), member).Err(); err != nil {
			return fmt.Errorf("push promoted job on %s: %w", queueName, err)
		}
	}
	return nil
}
