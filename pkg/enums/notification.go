package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres. Preferences
// are stored per user and per type.
type NotificationType string

const (
	NotificationPlacementResponseReceived  NotificationType = "placement_response_received"
	NotificationPlacementResponseAccepted  NotificationType = "placement_response_accepted"
	NotificationPlacementResponseRejected  NotificationType = "placement_response_rejected"
	NotificationPlacementResponseCancelled NotificationType = "placement_response_cancelled"
	NotificationTransferAccepted           NotificationType = "transfer_accepted"
	NotificationTransferRejected           NotificationType = "transfer_rejected"
	NotificationTransferCanceled           NotificationType = "transfer_canceled"
	NotificationHandoverConfirmed          NotificationType = "handover_confirmed"
	NotificationHandoverCompleted          NotificationType = "handover_completed"
	NotificationHandoverDisputed           NotificationType = "handover_disputed"
	NotificationFosterReturnInitiated      NotificationType = "foster_return_initiated"
	NotificationFosterReturnCompleted      NotificationType = "foster_return_completed"
	NotificationInvitationAccepted         NotificationType = "relationship_invitation_accepted"
	NotificationSystemAnnouncement         NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationPlacementResponseReceived,
	NotificationPlacementResponseAccepted,
	NotificationPlacementResponseRejected,
	NotificationPlacementResponseCancelled,
	NotificationTransferAccepted,
	NotificationTransferRejected,
	NotificationTransferCanceled,
	NotificationHandoverConfirmed,
	NotificationHandoverCompleted,
	NotificationHandoverDisputed,
	NotificationFosterReturnInitiated,
	NotificationFosterReturnCompleted,
	NotificationInvitationAccepted,
	NotificationSystemAnnouncement,
}

// NotificationTypes returns every known type in declaration order.
func NotificationTypes() []NotificationType {
	out := make([]NotificationType, len(validNotificationTypes))
	copy(out, validNotificationTypes)
	return out
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationChannel identifies where a notification was delivered.
type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
)

// EmailJobStatus tracks a queued notification email.
type EmailJobStatus string

const (
	EmailJobPending    EmailJobStatus = "pending"
	EmailJobProcessing EmailJobStatus = "processing"
	EmailJobSent       EmailJobStatus = "sent"
	EmailJobFailed     EmailJobStatus = "failed"
)

// IsTerminal reports whether the job will not be attempted again.
func (s EmailJobStatus) IsTerminal() bool {
	return s == EmailJobSent || s == EmailJobFailed
}
