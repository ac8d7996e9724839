package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"myth-quiz-service/internal/logging"
)

// Publisher types accepted by NewNotifier.
const (
	PublisherNone      = "none"
	PublisherGoChannel = "gochannel"
	PublisherKafka     = "kafka"
)

// Options configures the notifier.
type Options struct {
	Publisher    string
	Topic        string
	KafkaBrokers []string
	Buffer       int
}

// PublisherNotifier queues events and publishes them from a background
// goroutine through a Watermill publisher. A full queue drops the event.
type PublisherNotifier struct {
	publisher message.Publisher
	topic     string
	logger    logging.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

func NewPublisherNotifier(publisher message.Publisher, topic string, buffer int, logger logging.Logger) *PublisherNotifier {
	if buffer <= 0 {
		buffer = 64
	}
	n := &PublisherNotifier{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
		queue:     make(chan Event, buffer),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *PublisherNotifier) Notify(_ context.Context, event Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("event queue full, dropping event", "event_type", event.Type, "event_id", event.ID)
	}
}

func (n *PublisherNotifier) run() {
	defer n.wg.Done()
	for event := range n.queue {
		payload, err := json.Marshal(event)
		if err != nil {
			n.logger.Warn("failed to marshal event", "event_id", event.ID, "error", err)
			continue
		}
		msg := message.NewMessage(event.ID, payload)
		msg.Metadata.Set("event_type", string(event.Type))
		msg.Metadata.Set("session_id", event.SessionID)
		msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

		if err := n.publisher.Publish(n.topic, msg); err != nil {
			n.logger.Warn("failed to publish event", "event_id", event.ID, "event_type", event.Type, "error", err)
		}
	}
}

// Close drains queued events and closes the publisher.
func (n *PublisherNotifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	n.wg.Wait()
	return n.publisher.Close()
}

// NewNotifier builds the notifier selected by opts. The returned close
// function flushes pending events; it is never nil.
func NewNotifier(ctx context.Context, opts Options, logger logging.Logger) (Notifier, func() error, error) {
	wmLogger := watermill.NewSlogLogger(logging.ToSlog(logger))
	topic := opts.Topic
	if topic == "" {
		topic = "quiz-events"
	}

	switch opts.Publisher {
	case "", PublisherNone:
		logger.Info("event publishing disabled")
		return NopNotifier{}, func() error { return nil }, nil
	case PublisherGoChannel:
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		if err := RunLogSink(ctx, pubSub, topic, logger); err != nil {
			_ = pubSub.Close()
			return nil, nil, err
		}
		logger.Info("publishing events in-process", "topic", topic)
		n := NewPublisherNotifier(pubSub, topic, opts.Buffer, logger)
		return n, n.Close, nil
	case PublisherKafka:
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   opts.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		logger.Info("publishing events to kafka", "brokers", opts.KafkaBrokers, "topic", topic)
		n := NewPublisherNotifier(publisher, topic, opts.Buffer, logger)
		return n, n.Close, nil
	default:
		logger.Warn("unknown event publisher, falling back to none", "publisher", opts.Publisher)
		return NopNotifier{}, func() error { return nil }, nil
	}
}

// RunLogSink subscribes to topic and writes every event to the log. It stops
// when ctx is done or the subscriber is closed.
func RunLogSink(ctx context.Context, subscriber message.Subscriber, topic string, logger logging.Logger) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	go func() {
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logger.Warn("undecodable event", "message_uuid", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			logger.Info("log entry",
				"event_id", event.ID,
				"event_type", event.Type,
				"session_id", event.SessionID,
				"timestamp", event.Timestamp,
				"data", event.Data)
			msg.Ack()
		}
	}()
	return nil
}
