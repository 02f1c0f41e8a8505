package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

type mockWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func testEvent() domain.StockEvent {
	return domain.StockEvent{
		Type:          domain.EventStockMoved,
		TransactionID: "tx-1",
		ProductID:     "flour",
		OwnerID:       "owner-1",
		Direction:     domain.DirectionOut,
		Quantity:      decimal.NewFromInt(3),
		NewStock:      decimal.NewFromInt(7),
		Timestamp:     time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
	}
}

func TestPublishStockEvent(t *testing.T) {
	writer := &mockWriter{}
	publisher := &KafkaPublisher{writer: writer}

	if err := publisher.PublishStockEvent(context.Background(), testEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "flour" {
		t.Errorf("expected key flour, got %s", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != domain.EventStockMoved {
		t.Errorf("unexpected headers: %+v", msg.Headers)
	}

	var body map[string]any
	if err := json.Unmarshal(msg.Value, &body); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if body["new_stock"] != "7" || body["direction"] != "out" {
		t.Errorf("unexpected payload: %v", body)
	}

	publisher.Close()
	if !writer.closed {
		t.Error("expected writer to be closed")
	}
}

func TestPublishStockEvent_WriteError(t *testing.T) {
	errBroker := errors.New("broker unreachable")
	publisher := &KafkaPublisher{writer: &mockWriter{err: errBroker}}

	if err := publisher.PublishStockEvent(context.Background(), testEvent()); !errors.Is(err, errBroker) {
		t.Errorf("expected wrapped broker error, got: %v", err)
	}
}
