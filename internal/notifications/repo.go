package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications, preferences and
// queued emails.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)

	ListPreferences(ctx context.Context, userID uuid.UUID) ([]models.NotificationPreference, error)
	FindPreference(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType) (*models.NotificationPreference, error)
	UpsertPreference(ctx context.Context, pref *models.NotificationPreference) error

	CreateEmailJob(ctx context.Context, job *models.NotificationEmailJob) error
	ListDueEmailJobs(ctx context.Context, now time.Time, limit int) ([]models.NotificationEmailJob, error)
	UpdateEmailJob(ctx context.Context, id uuid.UUID, from enums.EmailJobStatus, updates map[string]any) (int64, error)
	ReleaseStaleEmailJobs(ctx context.Context, claimedBefore, now time.Time) (int64, error)
	DeleteTerminalEmailJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", params.UserID)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var rows []models.Notification
	err := pagination.Apply(query, "notifications", params.Cursor, params.Limit).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return notificationMarkResult{}, result.Error
	}
	if result.RowsAffected > 0 {
		return notificationMarkResult{Updated: true, Found: true}, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Count(&count).Error; err != nil {
		return notificationMarkResult{}, err
	}
	return notificationMarkResult{Found: count > 0}, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		UpdateColumn("read_at", now)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListPreferences(ctx context.Context, userID uuid.UUID) ([]models.NotificationPreference, error) {
	var rows []models.NotificationPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) FindPreference(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType) (*models.NotificationPreference, error) {
	var row models.NotificationPreference
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND notification_type = ?", userID, notifType).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) UpsertPreference(ctx context.Context, pref *models.NotificationPreference) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "notification_type"}},
		DoUpdates: clause.Assignments(map[string]any{
			"email_enabled":  pref.EmailEnabled,
			"in_app_enabled": pref.InAppEnabled,
			"updated_at":     time.Now().UTC(),
		}),
	}).Create(pref).Error
}

func (r *repositoryImpl) CreateEmailJob(ctx context.Context, job *models.NotificationEmailJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repositoryImpl) ListDueEmailJobs(ctx context.Context, now time.Time, limit int) ([]models.NotificationEmailJob, error) {
	var rows []models.NotificationEmailJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND available_at <= ?", enums.EmailJobPending, now).
		Order("available_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// UpdateEmailJob applies updates only while the job is still in status from,
// so concurrent dispatchers never process the same job twice.
func (r *repositoryImpl) UpdateEmailJob(ctx context.Context, id uuid.UUID, from enums.EmailJobStatus, updates map[string]any) (int64, error) {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.NotificationEmailJob{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// ReleaseStaleEmailJobs returns jobs claimed before claimedBefore to pending
// so a dispatcher that died mid-attempt does not strand them.
func (r *repositoryImpl) ReleaseStaleEmailJobs(ctx context.Context, claimedBefore, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.NotificationEmailJob{}).
		Where("status = ? AND updated_at < ?", enums.EmailJobProcessing, claimedBefore).
		Updates(map[string]any{
			"status":       enums.EmailJobPending,
			"available_at": now,
			"updated_at":   now,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) DeleteTerminalEmailJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []enums.EmailJobStatus{enums.EmailJobSent, enums.EmailJobFailed}, cutoff).
		Delete(&models.NotificationEmailJob{})
	return result.RowsAffected, result.Error
}
