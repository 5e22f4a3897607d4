package mqtt

import (
	"context"

	"envirogram/internal/derived"
)

// RecordPublisher is implemented by Subscriber.
type RecordPublisher interface {
	PublishRecord(topic string, rec derived.OutputRecord) error
}

// OutputSink forwards derived records to a topic.
type OutputSink struct {
	pub   RecordPublisher
	topic string
}

func NewOutputSink(pub RecordPublisher, topic string) *OutputSink {
	return &OutputSink{pub: pub, topic: topic}
}

func (s *OutputSink) Name() string { return "mqtt" }

func (s *OutputSink) Consume(ctx context.Context, rec derived.OutputRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.pub.PublishRecord(s.topic, rec)
}
