package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/drift/pkg/eventstream"
	"github.com/papercomputeco/drift/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("creates a non-nil publisher", func() {
		p := nop.NewPublisher()
		Expect(p).NotTo(BeNil())
	})

	It("returns ErrNilEvent for nil transition events", func() {
		p := nop.NewPublisher()
		err := p.PublishTransition(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilEvent))
	})

	It("returns ErrNilEvent for nil degradation events", func() {
		p := nop.NewPublisher()
		err := p.PublishDegraded(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()

		transition := &eventstream.TransitionEvent{
			Envelope: eventstream.NewEnvelope(eventstream.EventTypeTransitionRecorded),
		}
		Expect(p.PublishTransition(context.Background(), transition)).To(Succeed())

		degraded := &eventstream.DegradedEvent{
			Envelope: eventstream.NewEnvelope(eventstream.EventTypeContextDegraded),
		}
		Expect(p.PublishDegraded(context.Background(), degraded)).To(Succeed())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
