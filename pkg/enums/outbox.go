package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregatePlacementRequest       OutboxAggregateType = "placement_request"
	AggregatePlacementResponse      OutboxAggregateType = "placement_request_response"
	AggregateTransferRequest        OutboxAggregateType = "transfer_request"
	AggregateTransferHandover       OutboxAggregateType = "transfer_handover"
	AggregateFosterReturnHandover   OutboxAggregateType = "foster_return_handover"
	AggregateRelationshipInvitation OutboxAggregateType = "relationship_invitation"
	AggregateNotification           OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePlacementRequest,
	AggregatePlacementResponse,
	AggregateTransferRequest,
	AggregateTransferHandover,
	AggregateFosterReturnHandover,
	AggregateRelationshipInvitation,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventPlacementResponseCreated   OutboxEventType = "placement_response_created"
	EventPlacementResponseAccepted  OutboxEventType = "placement_response_accepted"
	EventPlacementResponseRejected  OutboxEventType = "placement_response_rejected"
	EventPlacementResponseCancelled OutboxEventType = "placement_response_cancelled"
	EventPlacementRequestCancelled  OutboxEventType = "placement_request_cancelled"
	EventPlacementRequestFulfilled  OutboxEventType = "placement_request_fulfilled"
	EventTransferAccepted           OutboxEventType = "transfer_accepted"
	EventTransferRejected           OutboxEventType = "transfer_rejected"
	EventTransferCanceled           OutboxEventType = "transfer_canceled"
	EventHandoverConfirmed          OutboxEventType = "handover_confirmed"
	EventHandoverCompleted          OutboxEventType = "handover_completed"
	EventHandoverDisputed           OutboxEventType = "handover_disputed"
	EventFosterReturnInitiated      OutboxEventType = "foster_return_initiated"
	EventFosterReturnCompleted      OutboxEventType = "foster_return_completed"
	EventInvitationAccepted         OutboxEventType = "relationship_invitation_accepted"
	EventNotificationRequested      OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPlacementResponseCreated,
	EventPlacementResponseAccepted,
	EventPlacementResponseRejected,
	EventPlacementResponseCancelled,
	EventPlacementRequestCancelled,
	EventPlacementRequestFulfilled,
	EventTransferAccepted,
	EventTransferRejected,
	EventTransferCanceled,
	EventHandoverConfirmed,
	EventHandoverCompleted,
	EventHandoverDisputed,
	EventFosterReturnInitiated,
	EventFosterReturnCompleted,
	EventInvitationAccepted,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
