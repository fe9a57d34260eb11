package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/pulselabs/pulse/internal/domain"
)

// Publisher publishes delivery messages to a work queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg DeliveryMessage) error
	Close() error
}

// MessageHandler handles one consumed delivery message.
type MessageHandler func(ctx context.Context, msg DeliveryMessage) error

// Consumer consumes delivery messages from a work queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

var supportedChannels = []domain.Channel{
	domain.ChannelEmail,
	domain.ChannelSMS,
	domain.ChannelPush,
}

// queueMaxPriority bounds the broker-side priority levels of a work
// queue. The publisher maps the record's Priority onto this range, so
// urgent messages are delivered ahead of standard ones from the same
// queue.
const queueMaxPriority int32 = 3

// WorkQueue returns the channel work queue name, e.g. email.
func WorkQueue(channel domain.Channel) string {
	return strings.ToLower(channel.String())
}

// DeadLetterQueue returns the DLQ name for a channel, e.g. dlq.email.
func DeadLetterQueue(channel domain.Channel) string {
	return fmt.Sprintf("dlq.%s", WorkQueue(channel))
}

// WorkQueues returns all channel work queues.
func WorkQueues() []string {
	queues := make([]string, 0, len(supportedChannels))
	for _, channel := range supportedChannels {
		queues = append(queues, WorkQueue(channel))
	}
	return queues
}

// DeadLetterQueues returns all dead-letter queues.
func DeadLetterQueues() []string {
	queues := make([]string, 0, len(supportedChannels))
	for _, channel := range supportedChannels {
		queues = append(queues, DeadLetterQueue(channel))
	}
	return queues
}

// PriorityValue maps the record priority to a broker message priority.
func PriorityValue(priority domain.Priority) uint8 {
	switch priority {
	case domain.PriorityHigh:
		return 3
	case domain.PriorityNormal:
		return 2
	case domain.PriorityLow:
		return 1
	default:
		return 0
	}
}
