// Package writequeue serializes every mutation of the store through a single
// goroutine. Reads go to the store directly.
package writequeue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/sirupsen/logrus"
)

// ErrStopped is returned for jobs submitted after Stop.
var ErrStopped = errors.New("write queue stopped")

// Job runs inside one storage transaction; returning an error rolls it back.
type Job func(ctx context.Context, store repository.Store) (any, error)

type request struct {
	name string
	job  Job
	done chan result
}

type result struct {
	value any
	err   error
}

type Queue struct {
	store   repository.Store
	logger  *logrus.Entry
	timeout time.Duration

	requests chan request
	quit     chan struct{}
	wg       sync.WaitGroup
	start    sync.Once
	stop     sync.Once
}

// New returns a stopped queue. timeout bounds each job; zero means none.
func New(store repository.Store, logger *logrus.Logger, timeout time.Duration) *Queue {
	return &Queue{
		store:    store,
		logger:   logger.WithField("component", "writequeue"),
		timeout:  timeout,
		requests: make(chan request),
		quit:     make(chan struct{}),
	}
}

func (q *Queue) Start() {
	q.start.Do(func() {
		q.wg.Add(1)
		go q.loop()
	})
}

// Stop lets the running job finish and rejects anything queued after it.
func (q *Queue) Stop() {
	q.stop.Do(func() { close(q.quit) })
	q.wg.Wait()
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for {
		select {
		case <-q.quit:
			return
		case req := <-q.requests:
			req.done <- q.run(req)
		}
	}
}

func (q *Queue) run(req request) (res result) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	started := time.Now()
	defer func() {
		entry := q.logger.WithFields(logrus.Fields{"job": req.name, "duration": time.Since(started).String()})
		if res.err != nil {
			entry.WithError(res.err).Warn("write job failed")
			return
		}
		entry.Debug("write job committed")
	}()

	err := q.store.InTx(ctx, func(st repository.Store) (err error) {
		// a panicking job must still roll its transaction back
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("write job %s panicked: %v", req.name, r)
			}
		}()
		res.value, err = req.job(ctx, st)
		return err
	})
	if err != nil {
		return result{err: err}
	}
	return res
}

// Submit enqueues job and waits for its outcome. Cancelling ctx stops the
// wait; a job already accepted still runs to completion.
func (q *Queue) Submit(ctx context.Context, name string, job Job) (any, error) {
	req := request{name: name, job: job, done: make(chan result, 1)}
	select {
	case q.requests <- req:
	case <-q.quit:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do is Submit with a typed result.
func Do[T any](ctx context.Context, q *Queue, name string, job func(ctx context.Context, store repository.Store) (T, error)) (T, error) {
	var zero T
	v, err := q.Submit(ctx, name, func(ctx context.Context, st repository.Store) (any, error) {
		return job(ctx, st)
	})
	if err != nil {
		return zero, err
	}
	return typedResult[T](name, v)
}

// typedResult converts a job's result back to T. A nil result is the zero
// value of an interface T; anything else that is not a T is an error.
func typedResult[T any](name string, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("write job %s returned %T", name, v)
	}
	return typed, nil
}
