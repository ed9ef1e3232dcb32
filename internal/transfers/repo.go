package transfers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// Repository persists transfer requests, handovers, foster assignments and
// foster return handovers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindTransfer(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.TransferRequest, error)
	UpdateTransfer(ctx context.Context, id uuid.UUID, from enums.TransferRequestStatus, updates map[string]any) (int64, error)

	CreateHandover(ctx context.Context, h *models.TransferHandover) error
	FindHandover(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.TransferHandover, error)
	UpdateHandover(ctx context.Context, id uuid.UUID, from enums.HandoverStatus, updates map[string]any) (int64, error)

	CreateAssignment(ctx context.Context, a *models.FosterAssignment) error
	FindAssignment(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.FosterAssignment, error)
	UpdateAssignment(ctx context.Context, id uuid.UUID, from enums.FosterAssignmentStatus, updates map[string]any) (int64, error)

	CreateReturnHandover(ctx context.Context, h *models.FosterReturnHandover) error
	FindReturnHandover(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.FosterReturnHandover, error)
	UpdateReturnHandover(ctx context.Context, id uuid.UUID, from enums.HandoverStatus, updates map[string]any) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed transfers repository.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) query(ctx context.Context, forUpdate bool) *gorm.DB {
	q := r.db.WithContext(ctx)
	if forUpdate {
		q = db.ForUpdate(q)
	}
	return q
}

func (r *repository) FindTransfer(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.TransferRequest, error) {
	var row models.TransferRequest
	if err := r.query(ctx, forUpdate).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateTransfer(ctx context.Context, id uuid.UUID, from enums.TransferRequestStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.TransferRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) CreateHandover(ctx context.Context, h *models.TransferHandover) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *repository) FindHandover(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.TransferHandover, error) {
	var row models.TransferHandover
	if err := r.query(ctx, forUpdate).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateHandover(ctx context.Context, id uuid.UUID, from enums.HandoverStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.TransferHandover{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) CreateAssignment(ctx context.Context, a *models.FosterAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) FindAssignment(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.FosterAssignment, error) {
	var row models.FosterAssignment
	if err := r.query(ctx, forUpdate).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateAssignment(ctx context.Context, id uuid.UUID, from enums.FosterAssignmentStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.FosterAssignment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) CreateReturnHandover(ctx context.Context, h *models.FosterReturnHandover) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *repository) FindReturnHandover(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.FosterReturnHandover, error) {
	var row models.FosterReturnHandover
	if err := r.query(ctx, forUpdate).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateReturnHandover(ctx context.Context, id uuid.UUID, from enums.HandoverStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.FosterReturnHandover{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}
