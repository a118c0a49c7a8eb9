package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"
)

// Publisher sends correction events.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Config selects and configures a publisher backend.
type Config struct {
	// Backend is "kafka", "gochannel" or "none".
	Backend string
	Brokers []string
	Topic   string
}

// New builds the publisher named by cfg.Backend. Unknown backends fall back
// to NopPublisher with a warning.
func New(cfg Config, logger logrus.FieldLogger) (Publisher, error) {
	log := logger.WithFields(logrus.Fields{"backend": cfg.Backend, "topic": cfg.Topic})
	switch cfg.Backend {
	case "kafka":
		log.WithField("brokers", cfg.Brokers).Info("Creating Kafka event publisher")
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic, logger)
	case "gochannel":
		log.Info("Using in-process event publisher")
		return NewGoChannelPublisher(cfg.Topic, logger), nil
	case "none", "":
		log.Info("Event publishing disabled")
		return NopPublisher{}, nil
	default:
		log.Warn("Unknown event publisher, events disabled")
		return NopPublisher{}, nil
	}
}

// WatermillPublisher publishes JSON envelopes on one topic of any Watermill
// publisher.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    logrus.FieldLogger
}

// NewKafkaPublisher connects to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger logrus.FieldLogger) (*WatermillPublisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, NewLoggerAdapter(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}
	return &WatermillPublisher{publisher: pub, topic: topic, logger: logger}, nil
}

// GoChannelPublisher publishes to in-process subscribers.
type GoChannelPublisher struct {
	*WatermillPublisher
	channel *gochannel.GoChannel
}

// NewGoChannelPublisher creates an in-memory pub/sub.
func NewGoChannelPublisher(topic string, logger logrus.FieldLogger) *GoChannelPublisher {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewLoggerAdapter(logger))
	return &GoChannelPublisher{
		WatermillPublisher: &WatermillPublisher{publisher: ch, topic: topic, logger: logger},
		channel:            ch,
	}
}

// Subscribe returns the messages published after the call.
func (g *GoChannelPublisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return g.channel.Subscribe(ctx, g.topic)
}

// Publish marshals event and sends it with its type and id as metadata.
func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, body)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Error("Failed to publish event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"topic":      p.topic,
	}).Debug("Published event")
	return nil
}

// Close releases the underlying publisher.
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }
func (NopPublisher) Close() error                          { return nil }

// MockPublisher records events in memory for tests.
type MockPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMockPublisher creates an empty recorder.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Events returns a copy of the recorded events.
func (m *MockPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// OfType returns the recorded events of one type.
func (m *MockPublisher) OfType(t EventType) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
