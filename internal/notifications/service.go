package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/pagination"
)

// DefaultEmailMaxAttempts bounds delivery attempts before the in-app fallback.
const DefaultEmailMaxAttempts = 3

type recipientLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type notificationMetrics interface {
	IncNotification(channel string)
	IncEmailJob(outcome string)
}

// ServiceParams groups notification service dependencies.
type ServiceParams struct {
	Repo    Repository
	Users   recipientLookup
	AppURL  string
	Metrics notificationMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service fans notifications out to the channels each user has enabled.
type Service struct {
	repo    Repository
	users   recipientLookup
	appURL  string
	metrics notificationMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// Payload is the channel-independent content of one notification.
type Payload struct {
	Title   string
	Message string
	Link    *string
	Data    any
}

// SendResult reports which channels produced rows.
type SendResult struct {
	Notification *models.Notification
	EmailJob     *models.NotificationEmailJob
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("notifications repository required")
	case params.Users == nil:
		return nil, errors.New("recipient lookup required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    params.Repo,
		users:   params.Users,
		appURL:  strings.TrimRight(params.AppURL, "/"),
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     func() time.Time { return now().UTC() },
	}, nil
}

// Send delivers payload to userID on every enabled channel. In-app rows are
// written as delivered; email is queued for the dispatcher.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, payload Payload) (*SendResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !notifType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	if strings.TrimSpace(payload.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification title required")
	}
	data, err := encodeData(payload.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode notification data")
	}

	pref, err := s.preference(ctx, userID, notifType)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &SendResult{}
	if pref.InAppEnabled {
		n := &models.Notification{
			UserID:      userID,
			Type:        notifType,
			Title:       payload.Title,
			Message:     payload.Message,
			Link:        payload.Link,
			Data:        data,
			DeliveredAt: &now,
			CreatedAt:   now,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
		}
		result.Notification = n
		s.recordChannel(enums.ChannelInApp)
	}

	if pref.EmailEnabled {
		job, err := s.enqueueEmail(ctx, userID, notifType, payload, data, now)
		if err != nil {
			return nil, err
		}
		result.EmailJob = job
	}
	return result, nil
}

func (s *Service) enqueueEmail(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, payload Payload, data json.RawMessage, now time.Time) (*models.NotificationEmailJob, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.warn(ctx, userID, "email skipped: recipient not found")
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipient")
	}
	if strings.TrimSpace(user.Email) == "" {
		s.warn(ctx, userID, "email skipped: recipient has no address")
		return nil, nil
	}

	subject, body := renderEmail(s.appURL, payload)
	job := &models.NotificationEmailJob{
		UserID:           userID,
		NotificationType: notifType,
		Recipient:        user.Email,
		Subject:          subject,
		Body:             body,
		Link:             payload.Link,
		Data:             data,
		Status:           enums.EmailJobPending,
		MaxAttempts:      DefaultEmailMaxAttempts,
		AvailableAt:      now,
	}
	if err := s.repo.CreateEmailJob(ctx, job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue notification email")
	}
	s.recordChannel(enums.ChannelEmail)
	return job, nil
}

// List returns the caller's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, params ListParams) (*pagination.Page[NotificationDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listNotificationsParams{
		UserID:     userID,
		Limit:      params.Limit,
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	dtos := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toNotificationDTO(row))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(n NotificationDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return &page, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result, err := s.repo.MarkRead(ctx, userID, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

// GetPreferences returns one entry per notification type, filling in the
// both-enabled default for types the user never changed.
func (s *Service) GetPreferences(ctx context.Context, userID uuid.UUID) ([]PreferenceDTO, error) {
	rows, err := s.repo.ListPreferences(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notification preferences")
	}
	stored := make(map[enums.NotificationType]models.NotificationPreference, len(rows))
	for _, row := range rows {
		stored[row.NotificationType] = row
	}
	out := make([]PreferenceDTO, 0, len(enums.NotificationTypes()))
	for _, t := range enums.NotificationTypes() {
		dto := PreferenceDTO{Type: t, EmailEnabled: true, InAppEnabled: true}
		if row, ok := stored[t]; ok {
			dto.EmailEnabled = row.EmailEnabled
			dto.InAppEnabled = row.InAppEnabled
		}
		out = append(out, dto)
	}
	return out, nil
}

// UpdatePreference changes the channels for one type. Nil fields keep their
// current value.
func (s *Service) UpdatePreference(ctx context.Context, userID uuid.UUID, input UpdatePreferenceInput) (*PreferenceDTO, error) {
	notifType, err := enums.ParseNotificationType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type")
	}
	current, err := s.preference(ctx, userID, notifType)
	if err != nil {
		return nil, err
	}
	if input.EmailEnabled != nil {
		current.EmailEnabled = *input.EmailEnabled
	}
	if input.InAppEnabled != nil {
		current.InAppEnabled = *input.InAppEnabled
	}
	row := &models.NotificationPreference{
		UserID:           userID,
		NotificationType: notifType,
		EmailEnabled:     current.EmailEnabled,
		InAppEnabled:     current.InAppEnabled,
	}
	if err := s.repo.UpsertPreference(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save notification preference")
	}
	return &PreferenceDTO{Type: notifType, EmailEnabled: row.EmailEnabled, InAppEnabled: row.InAppEnabled}, nil
}

func (s *Service) preference(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType) (PreferenceDTO, error) {
	pref := PreferenceDTO{Type: notifType, EmailEnabled: true, InAppEnabled: true}
	row, err := s.repo.FindPreference(ctx, userID, notifType)
	switch {
	case err == nil:
		pref.EmailEnabled = row.EmailEnabled
		pref.InAppEnabled = row.InAppEnabled
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return pref, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification preference")
	}
	return pref, nil
}

func (s *Service) recordChannel(channel enums.NotificationChannel) {
	if s.metrics != nil {
		s.metrics.IncNotification(string(channel))
	}
}

func (s *Service) warn(ctx context.Context, userID uuid.UUID, msg string) {
	if s.logg != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), msg)
	}
}

func encodeData(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	}
	return json.Marshal(data)
}
