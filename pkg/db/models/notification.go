package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type        enums.NotificationType `gorm:"type:notification_type;not null"`
	Title       string                 `gorm:"type:text;not null"`
	Message     string                 `gorm:"type:text;not null"`
	Link        *string                `gorm:"type:text"`
	Data        json.RawMessage        `gorm:"type:jsonb"`
	DeliveredAt *time.Time             `gorm:"column:delivered_at"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

// NotificationPreference gates channels per user and type. A missing row
// means both channels are enabled.
type NotificationPreference struct {
	ID               uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_notification_preferences_user_type"`
	NotificationType enums.NotificationType `gorm:"column:notification_type;type:notification_type;not null;uniqueIndex:ux_notification_preferences_user_type"`
	EmailEnabled     bool                   `gorm:"column:email_enabled;not null"`
	InAppEnabled     bool                   `gorm:"column:in_app_enabled;not null"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (n *NotificationPreference) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

// NotificationEmailJob is a queued email with its retry bookkeeping.
type NotificationEmailJob struct {
	ID               uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	NotificationType enums.NotificationType `gorm:"column:notification_type;type:notification_type;not null"`
	Recipient        string                 `gorm:"type:text;not null"`
	Subject          string                 `gorm:"type:text;not null"`
	Body             string                 `gorm:"type:text;not null"`
	Link             *string                `gorm:"type:text"`
	Data             json.RawMessage        `gorm:"type:jsonb"`
	Status           enums.EmailJobStatus   `gorm:"type:email_job_status;not null;default:pending"`
	Attempts         int                    `gorm:"not null;default:0"`
	MaxAttempts      int                    `gorm:"column:max_attempts;not null;default:3"`
	AvailableAt      time.Time              `gorm:"column:available_at;not null;index"`
	LastError        *string                `gorm:"column:last_error"`
	SentAt           *time.Time             `gorm:"column:sent_at"`
	FailedAt         *time.Time             `gorm:"column:failed_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (n *NotificationEmailJob) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
