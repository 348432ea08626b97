package service

import (
	"bitwise74/career-api/internal/metrics"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const mailTimeout = 30 * time.Second

// MailDispatcher hands a mail off to be sent in the background. The
// caller never waits for delivery.
type MailDispatcher interface {
	DispatchVerification(ctx context.Context, to, code string) error
}

type MailJob struct {
	ID   string
	To   string
	Code string
}

// MailQueue is an in-process worker pool used when no redis is configured.
// Jobs still queued when the process exits are lost.
type MailQueue struct {
	mailer  Mailer
	jobs    chan *MailJob
	running atomic.Int32
	workers int
	wg      sync.WaitGroup
	closed  atomic.Bool
	mu      sync.RWMutex
}

// NewMailQueue initializes a new queue that holds at most capacity
// pending mails
func NewMailQueue(m Mailer, workers, capacity int) *MailQueue {
	zap.L().Debug("Initializing mail queue", zap.Int("workers", workers), zap.Int("capacity", capacity))

	return &MailQueue{
		mailer:  m,
		jobs:    make(chan *MailJob, capacity),
		workers: workers,
	}
}

func (q *MailQueue) StartWorkerPool() {
	for range q.workers {
		q.wg.Add(1)
		go q.worker()
	}
}

func (q *MailQueue) worker() {
	defer q.wg.Done()

	for job := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		err := q.mailer.SendVerificationCode(ctx, job.To, job.Code)
		cancel()

		q.running.Add(-1)

		if err != nil {
			metrics.MailSent.WithLabelValues("failed").Inc()
			zap.L().Error("Mail job finished with an error",
				zap.String("job_id", job.ID),
				zap.Error(err))
			continue
		}

		metrics.MailSent.WithLabelValues("sent").Inc()
		zap.L().Debug("Mail job finished successfully", zap.String("job_id", job.ID))
	}
}

func (q *MailQueue) Enqueue(job *MailJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed.Load() {
		return ErrMailQueueClosed
	}

	n := q.running.Add(1)

	select {
	case q.jobs <- job:
		zap.L().Debug("New mail job enqueued", zap.Int32("enqueued", n), zap.String("job_id", job.ID))
		return nil
	default:
		q.running.Add(-1)
		return ErrMailQueueFull
	}
}

// Pending returns how many jobs are queued or being sent
func (q *MailQueue) Pending() int32 {
	return q.running.Load()
}

func (q *MailQueue) DispatchVerification(_ context.Context, to, code string) error {
	return q.Enqueue(&MailJob{
		ID:   uuid.NewString(),
		To:   to,
		Code: code,
	})
}

// Stop refuses new jobs and waits for the queued ones to be sent
func (q *MailQueue) Stop() {
	q.mu.Lock()
	if q.closed.Swap(true) {
		q.mu.Unlock()
		return
	}
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}
