package kafka

import (
	"context"

	"github.com/interestconnect/realtime/internal/domain"
)

// MessageProducer publishes persisted chat messages to the event stream.
type MessageProducer interface {
	PublishMessage(ctx context.Context, msg *domain.ChatMessage) error
	Close() error
}

// NopProducer is used when the stream is disabled.
type NopProducer struct{}

func (NopProducer) PublishMessage(context.Context, *domain.ChatMessage) error { return nil }
func (NopProducer) Close() error                                              { return nil }
