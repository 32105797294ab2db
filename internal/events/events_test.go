package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx/fxtest"

	"github.com/polkiloo/paygate/internal/config"
	"github.com/polkiloo/paygate/internal/domain/model"
)

type writerStub struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *writerStub) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *writerStub) Close() error {
	w.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func samplePurchase() *model.Purchase {
	amount, _ := model.PriceOf(model.ProductSingle)
	return &model.Purchase{
		ID:          "p-1",
		OrderID:     "O-1",
		ProductType: model.ProductSingle,
		Amount:      amount,
		Currency:    "USD",
		Status:      model.PurchaseStatusPaid,
	}
}

func TestNewEvent(t *testing.T) {
	created := NewEvent(samplePurchase(), "")
	if created.Type != TypeCreated || created.From != "" {
		t.Fatalf("unexpected creation event %+v", created)
	}
	moved := NewEvent(samplePurchase(), model.PurchaseStatusPending)
	if moved.Type != TypeTransition || moved.From != model.PurchaseStatusPending || moved.To != model.PurchaseStatusPaid {
		t.Fatalf("unexpected transition event %+v", moved)
	}
	if moved.ID == "" || moved.ID == created.ID {
		t.Fatal("expected unique event ids")
	}
	if moved.Amount != "2.50" || time.Since(moved.OccurredAt) > time.Minute {
		t.Fatalf("unexpected event fields %+v", moved)
	}
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	writer := &writerStub{}
	pub := &KafkaPublisher{writer: writer, logger: testLogger()}
	event := NewEvent(samplePurchase(), model.PurchaseStatusCreated)

	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "p-1" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded["eventId"] != event.ID || decoded["from"] != "created" || decoded["to"] != "paid" {
		t.Fatalf("unexpected payload %v", decoded)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != TypeTransition {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}

	if err := pub.Close(); err != nil || !writer.closed {
		t.Fatalf("expected writer to be closed, err=%v", err)
	}
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	pub := &KafkaPublisher{writer: &writerStub{err: boom}, logger: testLogger()}
	if err := pub.Publish(context.Background(), NewEvent(samplePurchase(), "")); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewPublisher(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	pub := newPublisher(publisherParams{Lifecycle: lc, Config: &config.Config{}, Logger: testLogger()})
	if _, ok := pub.(NoopPublisher); !ok {
		t.Fatalf("expected noop publisher, got %T", pub)
	}
	if err := pub.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "purchase-events"}
	pub = newPublisher(publisherParams{Lifecycle: lc, Config: cfg, Logger: testLogger()})
	kp, ok := pub.(*KafkaPublisher)
	if !ok {
		t.Fatalf("expected kafka publisher, got %T", pub)
	}
	if w, ok := kp.writer.(*kafka.Writer); !ok || w.Topic != "purchase-events" {
		t.Fatalf("unexpected writer %+v", kp.writer)
	}
	lc.RequireStart()
	lc.RequireStop()
}
