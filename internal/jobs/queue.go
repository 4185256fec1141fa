// Package jobs runs background work handed off by the operator surfaces.
// Each job gets an id that can be polled for status; failed jobs are retried
// a bounded number of times.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
)

const (
	DefaultWorkers     = 1
	DefaultCapacity    = 16
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultRetention   = 200
)

// ErrQueueFull is returned by Enqueue when no more jobs can be buffered.
var ErrQueueFull = errors.New("job queue full")

// Status of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Func is the work performed by a job. Its result is exposed on the job once it succeeds.
type Func func(ctx context.Context) (interface{}, error)

// Job is a snapshot of one unit of background work.
type Job struct {
	ID          string      `json:"id"`
	Kind        string      `json:"kind"`
	Status      Status      `json:"status"`
	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"maxAttempts"`
	Error       string      `json:"error,omitempty"`
	Result      interface{} `json:"result,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type entry struct {
	job Job
	fn  Func
}

// Queue is a bounded in-process job queue.
type Queue struct {
	ch          chan *entry
	workers     int
	maxAttempts int
	retryDelay  time.Duration
	retention   int
	retryable   func(error) bool
	log         logrus.FieldLogger
	now         func() time.Time

	mu       sync.Mutex
	jobs     map[string]*entry
	finished []string // ids of finished jobs, oldest first
}

// Options for creating Queue.
type Options struct {
	Workers     int
	Capacity    int           // buffered jobs not yet picked up
	MaxAttempts int           // attempts per job, including the first
	RetryDelay  time.Duration // wait between attempts
	Retention   int           // finished jobs kept for polling
	Retryable   func(error) bool
	Logger      logrus.FieldLogger
}

// NewQueue creates a new Queue. Call Run to start processing.
func NewQueue(opts Options) *Queue {
	q := &Queue{
		workers:     opts.Workers,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		retention:   opts.Retention,
		retryable:   opts.Retryable,
		log:         observability.OrNop(opts.Logger),
		now:         time.Now,
		jobs:        make(map[string]*entry),
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q.ch = make(chan *entry, capacity)
	if q.workers <= 0 {
		q.workers = DefaultWorkers
	}
	if q.maxAttempts <= 0 {
		q.maxAttempts = DefaultMaxAttempts
	}
	if q.retryDelay < 0 {
		q.retryDelay = 0
	}
	if q.retention <= 0 {
		q.retention = DefaultRetention
	}
	if q.retryable == nil {
		q.retryable = DefaultRetryable
	}
	return q
}

// DefaultRetryable retries everything except rate-limit rejections and cancellation.
func DefaultRetryable(err error) bool {
	return !errors.Is(err, domain.ErrRateLimited) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Enqueue hands fn off to the workers and returns the queued job.
func (q *Queue) Enqueue(kind string, fn Func) (Job, error) {
	now := q.now()
	e := &entry{
		job: Job{
			ID:          uuid.New().String(),
			Kind:        kind,
			Status:      StatusQueued,
			MaxAttempts: q.maxAttempts,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		fn: fn,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	select {
	case q.ch <- e:
	default:
		return Job{}, ErrQueueFull
	}
	q.jobs[e.job.ID] = e
	observability.RecordJobEnqueued(len(q.ch))
	q.log.WithFields(logrus.Fields{"job_id": e.job.ID, "kind": kind}).Debug("job enqueued")
	return e.job, nil
}

// Get returns a snapshot of the job with the given id.
func (q *Queue) Get(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// Depth returns the number of jobs waiting for a worker.
func (q *Queue) Depth() int {
	return len(q.ch)
}

// Run processes jobs until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	q.log.WithField("workers", q.workers).Info("job queue started")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			return q.worker(gctx)
		})
	}
	err := g.Wait()
	q.log.Info("job queue stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (q *Queue) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-q.ch:
			q.process(ctx, e)
		}
	}
}

func (q *Queue) process(ctx context.Context, e *entry) {
	log := q.log.WithFields(logrus.Fields{"job_id": e.job.ID, "kind": e.job.Kind})

	for {
		attempt := q.update(e, func(j *Job) {
			j.Status = StatusRunning
			j.Attempts++
		})

		result, err := q.invoke(ctx, e.fn)
		if err == nil {
			q.finish(e, func(j *Job) {
				j.Status = StatusSucceeded
				j.Result = result
				j.Error = ""
			})
			observability.RecordJobOutcome(e.job.Kind, string(StatusSucceeded), q.Depth())
			log.WithField("attempt", attempt).Info("job succeeded")
			return
		}

		retry := attempt < q.maxAttempts && q.retryable(err) && ctx.Err() == nil
		log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "retry": retry}).Warn("job attempt failed")
		if retry {
			q.update(e, func(j *Job) {
				j.Status = StatusQueued
				j.Error = err.Error()
			})
			observability.RecordJobOutcome(e.job.Kind, "retried", q.Depth())
			if werr := governor.Pace(ctx, q.retryDelay); werr == nil {
				continue
			}
		}

		q.finish(e, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
		})
		observability.RecordJobOutcome(e.job.Kind, string(StatusFailed), q.Depth())
		return
	}
}

// invoke runs fn, converting a panic into an error so one job cannot stop a worker.
func (q *Queue) invoke(ctx context.Context, fn Func) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// update mutates the job under lock and returns the attempt count.
func (q *Queue) update(e *entry, mutate func(*Job)) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	mutate(&e.job)
	e.job.UpdatedAt = q.now()
	return e.job.Attempts
}

// finish records a terminal state and evicts the oldest finished jobs beyond retention.
func (q *Queue) finish(e *entry, mutate func(*Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	mutate(&e.job)
	e.job.UpdatedAt = q.now()
	e.fn = nil

	q.finished = append(q.finished, e.job.ID)
	for len(q.finished) > q.retention {
		delete(q.jobs, q.finished[0])
		q.finished = q.finished[1:]
	}
}
