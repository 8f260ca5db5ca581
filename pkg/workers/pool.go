// Package workers provides an asynchronous worker pool for publishing drift
// events using the provided eventstream.Publisher.
//
// The pool decouples event delivery from the tracking hot path so that a slow
// or unavailable broker never stalls message processing.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/drift/pkg/eventstream"
	"github.com/papercomputeco/drift/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against. Exactly one
// event field should be set.
type Job struct {
	Transition *eventstream.TransitionEvent
	Degraded   *eventstream.DegradedEvent
}

// eventType reports the envelope type of whichever event the job carries.
func (j Job) eventType() string {
	switch {
	case j.Transition != nil:
		return j.Transition.EventType
	case j.Degraded != nil:
		return j.Degraded.EventType
	default:
		return ""
	}
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher delivers events to the configured backend.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger.
	Logger *slog.Logger
}

// Pool publishes drift events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"event_type", job.eventType(),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"event_type", job.eventType(),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("publish worker stopped", "worker_id", id)
}

// processJob publishes whichever event the job carries. Errors are logged
// but not surfaced; event delivery is best effort.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	switch {
	case job.Transition != nil:
		if err := p.config.Publisher.PublishTransition(ctx, job.Transition); err != nil {
			p.logger.Error("async transition publish failed",
				"conversation_id", job.Transition.ConversationID,
				"error", err,
			)
			return
		}

		p.logger.Debug("transition published",
			"conversation_id", job.Transition.ConversationID,
			"from", job.Transition.From,
			"to", job.Transition.To,
		)
	case job.Degraded != nil:
		if err := p.config.Publisher.PublishDegraded(ctx, job.Degraded); err != nil {
			p.logger.Error("async degradation publish failed",
				"conversation_id", job.Degraded.ConversationID,
				"error", err,
			)
			return
		}

		p.logger.Debug("degradation published",
			"conversation_id", job.Degraded.ConversationID,
			"operation", job.Degraded.Operation,
		)
	default:
		p.logger.Warn("empty job discarded")
	}
}
