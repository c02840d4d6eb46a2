package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.uber.org/zap"
)

func TestNoopPublisher(t *testing.T) {
	publisher := NoopPublisher{}

	err := publisher.PublishSyncEvent(context.Background(), SyncEvent{
		SessionID: "sess-1",
		Status:    "synced",
	})
	if err != nil {
		t.Errorf("Expected no error from NoopPublisher, got: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Errorf("Expected no error on close, got: %v", err)
	}
}

func TestKafkaPublisher_PublishSyncEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	publisher := &KafkaPublisher{
		producer: producer,
		topic:    "quote.price-sync",
		logger:   zap.NewNop(),
	}
	defer publisher.Close()

	var captured SyncEvent
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "sess-1" {
			t.Errorf("Expected message keyed by session id, got %q", key)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		return json.Unmarshal(value, &captured)
	})

	event := SyncEvent{
		SessionID:  "sess-1",
		PackageID:  "pkg-9",
		Status:     "out_of_sync",
		TotalPrice: "45000",
		Sequence:   7,
	}
	if err := publisher.PublishSyncEvent(context.Background(), event); err != nil {
		t.Fatalf("Expected successful publish, got: %v", err)
	}

	if captured.ID == "" {
		t.Error("Expected an event id to be assigned")
	}
	if captured.OccurredAt.IsZero() {
		t.Error("Expected occurred_at to be stamped")
	}
	if captured.Status != "out_of_sync" || captured.Sequence != 7 {
		t.Errorf("Payload mismatch: %+v", captured)
	}
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	publisher := &KafkaPublisher{
		producer: producer,
		topic:    "quote.price-sync",
		logger:   zap.NewNop(),
	}
	defer publisher.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := publisher.PublishSyncEvent(context.Background(), SyncEvent{SessionID: "sess-2", Status: "error"})
	if err == nil {
		t.Fatal("Expected publish error")
	}
}

func TestSyncEventJSON(t *testing.T) {
	event := SyncEvent{
		ID:         "evt-1",
		SessionID:  "sess-1",
		Status:     "synced",
		Sequence:   3,
		OccurredAt: time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// Empty optional fields stay off the wire.
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := raw["package_id"]; ok {
		t.Error("Expected empty package_id to be omitted")
	}
	if _, ok := raw["reason_code"]; ok {
		t.Error("Expected empty reason_code to be omitted")
	}
	if raw["session_id"] != "sess-1" {
		t.Errorf("Expected session_id sess-1, got %v", raw["session_id"])
	}
}
