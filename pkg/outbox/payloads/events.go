package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// PlacementResponseEvent covers every response transition. Recipients are
// derived from OwnerUserID and HelperUserID by the notification consumer.
type PlacementResponseEvent struct {
	ResponseID         uuid.UUID                     `json:"response_id"`
	PlacementRequestID uuid.UUID                     `json:"placement_request_id"`
	PetID              uuid.UUID                     `json:"pet_id"`
	PetName            string                        `json:"pet_name,omitempty"`
	OwnerUserID        uuid.UUID                     `json:"owner_user_id"`
	HelperUserID       uuid.UUID                     `json:"helper_user_id"`
	RequestType        enums.PlacementRequestType    `json:"request_type"`
	Status             enums.PlacementResponseStatus `json:"status"`
	TransferRequestID  *uuid.UUID                    `json:"transfer_request_id,omitempty"`
}

// PlacementRequestEvent is emitted when an owner closes a request.
type PlacementRequestEvent struct {
	PlacementRequestID uuid.UUID                    `json:"placement_request_id"`
	PetID              uuid.UUID                    `json:"pet_id"`
	OwnerUserID        uuid.UUID                    `json:"owner_user_id"`
	RequestType        enums.PlacementRequestType   `json:"request_type"`
	Status             enums.PlacementRequestStatus `json:"status"`
	AffectedUserIDs    []uuid.UUID                  `json:"affected_user_ids,omitempty"`
}

// TransferEvent covers transfer request decisions.
type TransferEvent struct {
	TransferRequestID  uuid.UUID                   `json:"transfer_request_id"`
	PlacementRequestID uuid.UUID                   `json:"placement_request_id"`
	PetID              uuid.UUID                   `json:"pet_id"`
	FromUserID         uuid.UUID                   `json:"from_user_id"`
	ToUserID           uuid.UUID                   `json:"to_user_id"`
	Status             enums.TransferRequestStatus `json:"status"`
	HandoverID         *uuid.UUID                  `json:"handover_id,omitempty"`
}

// HandoverEvent covers transfer and foster return handovers.
type HandoverEvent struct {
	HandoverID   uuid.UUID            `json:"handover_id"`
	PetID        uuid.UUID            `json:"pet_id"`
	OwnerUserID  uuid.UUID            `json:"owner_user_id"`
	HelperUserID uuid.UUID            `json:"helper_user_id"`
	ActorUserID  uuid.UUID            `json:"actor_user_id"`
	Status       enums.HandoverStatus `json:"status"`
	NewHolderID  *uuid.UUID           `json:"new_holder_id,omitempty"`
	OccurredAt   time.Time            `json:"occurred_at"`
}

// InvitationAcceptedEvent tells the inviter their invitation was used.
type InvitationAcceptedEvent struct {
	InvitationID     uuid.UUID              `json:"invitation_id"`
	PetID            uuid.UUID              `json:"pet_id"`
	InviterUserID    uuid.UUID              `json:"inviter_user_id"`
	AcceptedByUserID uuid.UUID              `json:"accepted_by_user_id"`
	RelationshipType enums.RelationshipType `json:"relationship_type"`
}

// NotificationRequestedEvent asks the notification worker to deliver a
// message to an explicit list of users.
type NotificationRequestedEvent struct {
	UserIDs []uuid.UUID            `json:"user_ids"`
	Type    enums.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Link    *string                `json:"link,omitempty"`
}
