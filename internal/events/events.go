package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/polkiloo/paygate/internal/domain/model"
)

// Event types.
const (
	TypeCreated    = "purchase.created"
	TypeTransition = "purchase.transitioned"
)

// Event describes purchase creation or status change.
type Event struct {
	ID          string               `json:"eventId"`
	Type        string               `json:"type"`
	PurchaseID  string               `json:"purchaseId"`
	OrderID     string               `json:"orderId"`
	ProductType model.ProductType    `json:"productType"`
	Amount      string               `json:"amount"`
	Currency    string               `json:"currency"`
	From        model.PurchaseStatus `json:"from,omitempty"`
	To          model.PurchaseStatus `json:"to"`
	OccurredAt  time.Time            `json:"occurredAt"`
}

// NewEvent builds event for purchase moving from one status to another. Empty from means creation.
func NewEvent(p *model.Purchase, from model.PurchaseStatus) Event {
	eventType := TypeTransition
	if from == "" {
		eventType = TypeCreated
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		PurchaseID:  p.ID,
		OrderID:     p.OrderID,
		ProductType: p.ProductType,
		Amount:      p.AmountString(),
		Currency:    p.Currency,
		From:        from,
		To:          p.Status,
		OccurredAt:  time.Now().UTC(),
	}
}

// Publisher delivers purchase events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by purchase id.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafkaPublisher creates publisher for brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes single event.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.PurchaseID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	p.logger.Debug("event published", slog.String("event_id", event.ID), slog.String("purchase_id", event.PurchaseID))
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
