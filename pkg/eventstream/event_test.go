package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/drift/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals TransitionEvent with a flattened envelope", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.TransitionEvent{
			Envelope: eventstream.Envelope{
				SchemaVersion: eventstream.SchemaVersionV1,
				EventType:     eventstream.EventTypeTransitionRecorded,
				EventID:       "evt_123",
				EmittedAt:     now,
				Source:        "drift",
			},
			ConversationID:  "conv_abc",
			From:            "admission",
			To:              "financial",
			Explicit:        false,
			ConfidenceDelta: -0.25,
			At:              now,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("conversation_id"))
		Expect(got).To(HaveKey("from"))
		Expect(got).To(HaveKey("to"))
		Expect(got).To(HaveKey("explicit"))
		Expect(got).To(HaveKey("confidence_delta"))
		Expect(got).To(HaveKey("at"))
	})

	It("marshals DegradedEvent with a flattened envelope", func() {
		event := eventstream.DegradedEvent{
			Envelope:       eventstream.NewEnvelope(eventstream.EventTypeContextDegraded),
			ConversationID: "conv_abc",
			Operation:      "update",
			Reason:         "connection refused",
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("conversation_id"))
		Expect(got).To(HaveKey("operation"))
		Expect(got).To(HaveKey("reason"))
	})

	It("stamps envelopes with a fresh id and the configured type", func() {
		env := eventstream.NewEnvelope(eventstream.EventTypeTransitionRecorded)

		Expect(env.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(env.EventType).To(Equal(eventstream.EventTypeTransitionRecorded))
		Expect(env.EventID).NotTo(BeEmpty())
		Expect(env.EmittedAt).To(BeTemporally("~", time.Now().UTC(), time.Minute))
		Expect(env.Source).To(Equal("drift"))

		other := eventstream.NewEnvelope(eventstream.EventTypeTransitionRecorded)
		Expect(other.EventID).NotTo(Equal(env.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeTransitionRecorded).To(Equal("drift.transition.recorded"))
		Expect(eventstream.EventTypeContextDegraded).To(Equal("drift.context.degraded"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
