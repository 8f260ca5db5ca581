package workers

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/drift/pkg/eventstream"
)

// recordingPublisher captures every event it receives for later assertions.
type recordingPublisher struct {
	mu          sync.Mutex
	transitions []*eventstream.TransitionEvent
	degraded    []*eventstream.DegradedEvent
}

func (r *recordingPublisher) PublishTransition(_ context.Context, event *eventstream.TransitionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, event)
	return nil
}

func (r *recordingPublisher) PublishDegraded(_ context.Context, event *eventstream.DegradedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

// blockingPublisher parks every publish call until released, and signals
// started when a worker picks a job up.
type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingPublisher) PublishTransition(_ context.Context, _ *eventstream.TransitionEvent) error {
	b.started <- struct{}{}
	<-b.release
	return nil
}

func (b *blockingPublisher) PublishDegraded(_ context.Context, _ *eventstream.DegradedEvent) error {
	b.started <- struct{}{}
	<-b.release
	return nil
}

func (b *blockingPublisher) Close() error { return nil }

func transitionJob(conversationID string) Job {
	return Job{
		Transition: &eventstream.TransitionEvent{
			Envelope:       eventstream.NewEnvelope(eventstream.EventTypeTransitionRecorded),
			ConversationID: conversationID,
			From:           "admission",
			To:             "financial",
		},
	}
}

var _ = Describe("Worker Pool", func() {
	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			pub := &recordingPublisher{}
			wp, err := NewPool(&Config{Publisher: pub})
			Expect(err).NotTo(HaveOccurred())

			ok := wp.Enqueue(transitionJob("conv_1"))
			Expect(ok).To(BeTrue())
			wp.Close()
		})

		It("returns false and drops the job when the queue is full", func() {
			pub := &blockingPublisher{
				started: make(chan struct{}),
				release: make(chan struct{}),
			}
			wp, err := NewPool(&Config{
				Publisher:  pub,
				NumWorkers: 1,
				QueueSize:  1,
			})
			Expect(err).NotTo(HaveOccurred())

			// First job is picked up by the lone worker and parks inside
			// the publisher, leaving the queue empty.
			Expect(wp.Enqueue(transitionJob("conv_1"))).To(BeTrue())
			<-pub.started

			// Second job fills the queue, third has nowhere to go.
			Expect(wp.Enqueue(transitionJob("conv_2"))).To(BeTrue())
			Expect(wp.Enqueue(transitionJob("conv_3"))).To(BeFalse())

			close(pub.release)
			wp.Close()
		})
	})

	Describe("Async Publishing", func() {
		It("delivers enqueued events before Close returns", func() {
			pub := &recordingPublisher{}
			wp, err := NewPool(&Config{Publisher: pub})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(transitionJob("conv_1"))).To(BeTrue())
			Expect(wp.Enqueue(Job{
				Degraded: &eventstream.DegradedEvent{
					Envelope:       eventstream.NewEnvelope(eventstream.EventTypeContextDegraded),
					ConversationID: "conv_1",
					Operation:      "update",
					Reason:         "connection refused",
				},
			})).To(BeTrue())

			// Close drains in-flight jobs, so afterwards both events
			// must have reached the publisher.
			wp.Close()

			pub.mu.Lock()
			defer pub.mu.Unlock()
			Expect(pub.transitions).To(HaveLen(1))
			Expect(pub.transitions[0].ConversationID).To(Equal("conv_1"))
			Expect(pub.transitions[0].To).To(Equal("financial"))
			Expect(pub.degraded).To(HaveLen(1))
			Expect(pub.degraded[0].Operation).To(Equal("update"))
		})

		It("discards empty jobs without publishing", func() {
			pub := &recordingPublisher{}
			wp, err := NewPool(&Config{Publisher: pub})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(Job{})).To(BeTrue())
			wp.Close()

			pub.mu.Lock()
			defer pub.mu.Unlock()
			Expect(pub.transitions).To(BeEmpty())
			Expect(pub.degraded).To(BeEmpty())
		})
	})
})
