package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

type NotificationDTO struct {
	ID          uuid.UUID              `json:"id"`
	Type        enums.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Link        *string                `json:"link,omitempty"`
	Data        json.RawMessage        `json:"data,omitempty"`
	DeliveredAt *time.Time             `json:"delivered_at,omitempty"`
	ReadAt      *time.Time             `json:"read_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

type PreferenceDTO struct {
	Type         enums.NotificationType `json:"type"`
	EmailEnabled bool                   `json:"email_enabled"`
	InAppEnabled bool                   `json:"in_app_enabled"`
}

// UpdatePreferenceInput is the body of PUT /api/notification-preferences.
type UpdatePreferenceInput struct {
	Type         string `json:"type" validate:"required"`
	EmailEnabled *bool  `json:"email_enabled"`
	InAppEnabled *bool  `json:"in_app_enabled"`
}

func toNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:          n.ID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Link:        n.Link,
		Data:        n.Data,
		DeliveredAt: n.DeliveredAt,
		ReadAt:      n.ReadAt,
		CreatedAt:   n.CreatedAt,
	}
}
