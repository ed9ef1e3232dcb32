package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox/payloads"
)

// delivery is one notification a workflow event produces.
type delivery struct {
	Recipients []uuid.UUID
	Type       enums.NotificationType
	Payload    Payload
}

func renderEmail(appURL string, payload Payload) (string, string) {
	var body strings.Builder
	body.WriteString(payload.Message)
	if payload.Link != nil && *payload.Link != "" {
		link := *payload.Link
		if strings.HasPrefix(link, "/") && appURL != "" {
			link = appURL + link
		}
		body.WriteString("\n\n")
		body.WriteString(link)
	}
	return "[PawFinderz] " + payload.Title, body.String()
}

// deliveriesFor maps a decoded workflow event to the notifications it causes.
// Unhandled events return nil.
func deliveriesFor(envelope outbox.PayloadEnvelope, payload any) []delivery {
	var actor uuid.UUID
	if envelope.Actor != nil {
		actor = envelope.Actor.UserID
	}

	switch p := payload.(type) {
	case *payloads.PlacementResponseEvent:
		link := fmt.Sprintf("/placement-requests/%s", p.PlacementRequestID)
		notifType, title := responseTemplate(envelope.EventType)
		if notifType == "" {
			return nil
		}
		return []delivery{{
			Recipients: others(actor, p.OwnerUserID, p.HelperUserID),
			Type:       notifType,
			Payload: Payload{
				Title:   title,
				Message: fmt.Sprintf("The %s response for %s is now %s.", humanize(string(p.RequestType)), petLabel(p.PetName), p.Status),
				Link:    &link,
				Data:    p,
			},
		}}
	case *payloads.PlacementRequestEvent:
		if envelope.EventType != enums.EventPlacementRequestCancelled {
			return nil
		}
		link := fmt.Sprintf("/placement-requests/%s", p.PlacementRequestID)
		return []delivery{{
			Recipients: others(actor, p.AffectedUserIDs...),
			Type:       enums.NotificationPlacementResponseCancelled,
			Payload: Payload{
				Title:   "Placement request cancelled",
				Message: fmt.Sprintf("The owner cancelled their %s request.", humanize(string(p.RequestType))),
				Link:    &link,
				Data:    p,
			},
		}}
	case *payloads.TransferEvent:
		notifType, title := transferTemplate(envelope.EventType)
		if notifType == "" {
			return nil
		}
		link := fmt.Sprintf("/transfer-requests/%s", p.TransferRequestID)
		if p.HandoverID != nil {
			link = fmt.Sprintf("/transfer-handovers/%s", *p.HandoverID)
		}
		return []delivery{{
			Recipients: others(actor, p.FromUserID, p.ToUserID),
			Type:       notifType,
			Payload:    Payload{Title: title, Message: fmt.Sprintf("Transfer status: %s.", p.Status), Link: &link, Data: p},
		}}
	case *payloads.HandoverEvent:
		notifType, title, prefix := handoverTemplate(envelope.EventType)
		if notifType == "" {
			return nil
		}
		link := fmt.Sprintf("/%s/%s", prefix, p.HandoverID)
		return []delivery{{
			Recipients: others(actor, p.OwnerUserID, p.HelperUserID),
			Type:       notifType,
			Payload:    Payload{Title: title, Message: fmt.Sprintf("Handover status: %s.", p.Status), Link: &link, Data: p},
		}}
	case *payloads.InvitationAcceptedEvent:
		link := fmt.Sprintf("/pets/%s/relationships", p.PetID)
		return []delivery{{
			Recipients: others(actor, p.InviterUserID),
			Type:       enums.NotificationInvitationAccepted,
			Payload: Payload{
				Title:   "Invitation accepted",
				Message: fmt.Sprintf("Your %s invitation was accepted.", p.RelationshipType),
				Link:    &link,
				Data:    p,
			},
		}}
	case *payloads.NotificationRequestedEvent:
		notifType := p.Type
		if !notifType.IsValid() {
			notifType = enums.NotificationSystemAnnouncement
		}
		return []delivery{{
			Recipients: others(uuid.Nil, p.UserIDs...),
			Type:       notifType,
			Payload:    Payload{Title: p.Title, Message: p.Message, Link: p.Link},
		}}
	}
	return nil
}

func responseTemplate(eventType enums.OutboxEventType) (enums.NotificationType, string) {
	switch eventType {
	case enums.EventPlacementResponseCreated:
		return enums.NotificationPlacementResponseReceived, "New response to your placement request"
	case enums.EventPlacementResponseAccepted:
		return enums.NotificationPlacementResponseAccepted, "Your response was accepted"
	case enums.EventPlacementResponseRejected:
		return enums.NotificationPlacementResponseRejected, "Your response was declined"
	case enums.EventPlacementResponseCancelled:
		return enums.NotificationPlacementResponseCancelled, "A response was cancelled"
	}
	return "", ""
}

func transferTemplate(eventType enums.OutboxEventType) (enums.NotificationType, string) {
	switch eventType {
	case enums.EventTransferAccepted:
		return enums.NotificationTransferAccepted, "Transfer accepted"
	case enums.EventTransferRejected:
		return enums.NotificationTransferRejected, "Transfer rejected"
	case enums.EventTransferCanceled:
		return enums.NotificationTransferCanceled, "Transfer canceled"
	}
	return "", ""
}

func handoverTemplate(eventType enums.OutboxEventType) (enums.NotificationType, string, string) {
	switch eventType {
	case enums.EventHandoverConfirmed:
		return enums.NotificationHandoverConfirmed, "Handover confirmed", "transfer-handovers"
	case enums.EventHandoverCompleted:
		return enums.NotificationHandoverCompleted, "Handover completed", "transfer-handovers"
	case enums.EventHandoverDisputed:
		return enums.NotificationHandoverDisputed, "Handover disputed", "transfer-handovers"
	case enums.EventFosterReturnInitiated:
		return enums.NotificationFosterReturnInitiated, "Foster return scheduled", "foster-return-handovers"
	case enums.EventFosterReturnCompleted:
		return enums.NotificationFosterReturnCompleted, "Foster return completed", "foster-return-handovers"
	}
	return "", "", ""
}

// others returns the distinct non-nil ids that are not the actor.
func others(actor uuid.UUID, ids ...uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || id == actor {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func humanize(value string) string {
	return strings.ReplaceAll(value, "_", " ")
}

func petLabel(name string) string {
	if name == "" {
		return "your pet"
	}
	return name
}
