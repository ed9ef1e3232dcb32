package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/config"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	responseID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.PlacementResponseEvent{
		ResponseID:         responseID,
		PlacementRequestID: uuid.New(),
		OwnerUserID:        uuid.New(),
		HelperUserID:       uuid.New(),
		RequestType:        enums.PlacementTypePermanent,
		Status:             enums.ResponseStatusAccepted,
	})

	event := models.OutboxEvent{
		EventType:     enums.EventPlacementResponseAccepted,
		AggregateType: enums.AggregatePlacementResponse,
		AggregateID:   responseID,
		Payload:       mustEnvelope(t, enums.EventPlacementResponseAccepted, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "workflow-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.PlacementResponseEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.ResponseID != responseID || payload.Status != enums.ResponseStatusAccepted {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryCoversEveryEventType(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, eventType := range validEventTypesForTest() {
		if _, ok := reg.Descriptor(eventType); !ok {
			t.Fatalf("event type %s has no descriptor", eventType)
		}
	}
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventHandoverCompleted,
		AggregateType: enums.AggregatePlacementRequest,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, enums.EventHandoverCompleted, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventTransferAccepted,
		AggregateType: enums.AggregateTransferRequest,
		AggregateID:   uuid.Nil,
		Payload:       mustEnvelope(t, enums.EventTransferAccepted, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryResolveNullPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventTransferAccepted,
		AggregateType: enums.AggregateTransferRequest,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, enums.EventTransferAccepted, []byte("null")),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestDecodePayloadRoundTripsEmittedEvent(t *testing.T) {
	reg := newTestEventRegistry(t)
	handoverID := uuid.New()
	row, envelope, err := outbox.BuildRow(outbox.DomainEvent{
		EventType:     enums.EventHandoverCompleted,
		AggregateType: enums.AggregateTransferHandover,
		AggregateID:   handoverID,
		Data:          payloads.HandoverEvent{HandoverID: handoverID, Status: enums.HandoverStatusCompleted},
	})
	if err != nil {
		t.Fatalf("build row: %v", err)
	}
	if row.AggregateID != handoverID {
		t.Fatalf("unexpected aggregate id")
	}

	decoded, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if decoded.EventID != envelope.EventID || decoded.EventType != enums.EventHandoverCompleted {
		t.Fatalf("envelope mismatch %+v", decoded)
	}
	payload, err := reg.DecodePayload(decoded)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.(*payloads.HandoverEvent).HandoverID != handoverID {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatal("expected missing topic to fail")
	}
}

func validEventTypesForTest() []enums.OutboxEventType {
	return []enums.OutboxEventType{
		enums.EventPlacementResponseCreated,
		enums.EventPlacementResponseAccepted,
		enums.EventPlacementResponseRejected,
		enums.EventPlacementResponseCancelled,
		enums.EventPlacementRequestCancelled,
		enums.EventPlacementRequestFulfilled,
		enums.EventTransferAccepted,
		enums.EventTransferRejected,
		enums.EventTransferCanceled,
		enums.EventHandoverConfirmed,
		enums.EventHandoverCompleted,
		enums.EventHandoverDisputed,
		enums.EventFosterReturnInitiated,
		enums.EventFosterReturnCompleted,
		enums.EventInvitationAccepted,
		enums.EventNotificationRequested,
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{WorkflowTopic: "workflow-topic"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, eventType enums.OutboxEventType, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
