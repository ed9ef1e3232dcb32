package placements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/pagination"
)

var liveRequestStatuses = []enums.PlacementRequestStatus{
	enums.PlacementStatusOpen,
	enums.PlacementStatusPendingTransfer,
	enums.PlacementStatusActive,
}

var openHandoverStatuses = []enums.HandoverStatus{
	enums.HandoverStatusPending,
	enums.HandoverStatusConfirmed,
	enums.HandoverStatusDisputed,
}

// Repository persists placement requests, their responses and the transfer
// requests spawned when a response is accepted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRequest(ctx context.Context, req *models.PlacementRequest) error
	FindRequest(ctx context.Context, id uuid.UUID) (*models.PlacementRequest, error)
	FindRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.PlacementRequest, error)
	FindLiveRequest(ctx context.Context, petID uuid.UUID, requestType enums.PlacementRequestType) (*models.PlacementRequest, error)
	ListOpenRequests(ctx context.Context, requestType *enums.PlacementRequestType, cursor *pagination.Cursor, limit int) ([]models.PlacementRequest, error)
	UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error

	CreateResponse(ctx context.Context, resp *models.PlacementRequestResponse) error
	FindResponse(ctx context.Context, id uuid.UUID) (*models.PlacementRequestResponse, error)
	FindResponseForUpdate(ctx context.Context, id uuid.UUID) (*models.PlacementRequestResponse, error)
	FindResponseByHelper(ctx context.Context, requestID, helperProfileID uuid.UUID) (*models.PlacementRequestResponse, error)
	FindAcceptedResponse(ctx context.Context, requestID uuid.UUID) (*models.PlacementRequestResponse, error)
	ListResponses(ctx context.Context, requestID uuid.UUID, userID *uuid.UUID) ([]models.PlacementRequestResponse, error)
	ListResponsesByStatus(ctx context.Context, requestID uuid.UUID, statuses ...enums.PlacementResponseStatus) ([]models.PlacementRequestResponse, error)
	UpdateResponse(ctx context.Context, id uuid.UUID, from enums.PlacementResponseStatus, updates map[string]any) (int64, error)

	CreateTransfer(ctx context.Context, transfer *models.TransferRequest) error
	ListTransfers(ctx context.Context, placementRequestID uuid.UUID, responseID *uuid.UUID, statuses ...enums.TransferRequestStatus) ([]models.TransferRequest, error)
	UpdateTransfer(ctx context.Context, id uuid.UUID, from enums.TransferRequestStatus, updates map[string]any) (int64, error)
	CancelOpenHandovers(ctx context.Context, transferID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed placements repository.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRequest(ctx context.Context, req *models.PlacementRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.PlacementRequest, error) {
	var req models.PlacementRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.PlacementRequest, error) {
	var req models.PlacementRequest
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindLiveRequest(ctx context.Context, petID uuid.UUID, requestType enums.PlacementRequestType) (*models.PlacementRequest, error) {
	var req models.PlacementRequest
	err := r.db.WithContext(ctx).
		Where("pet_id = ? AND request_type = ? AND status IN ?", petID, requestType, liveRequestStatuses).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListOpenRequests(ctx context.Context, requestType *enums.PlacementRequestType, cursor *pagination.Cursor, limit int) ([]models.PlacementRequest, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PlacementRequest{}).
		Where("placement_requests.status = ?", enums.PlacementStatusOpen)
	if requestType != nil {
		query = query.Where("placement_requests.request_type = ?", *requestType)
	}
	var rows []models.PlacementRequest
	err := pagination.Apply(query, "placement_requests", cursor, limit).Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.PlacementRequest{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) CreateResponse(ctx context.Context, resp *models.PlacementRequestResponse) error {
	return r.db.WithContext(ctx).Create(resp).Error
}

func (r *repository) FindResponse(ctx context.Context, id uuid.UUID) (*models.PlacementRequestResponse, error) {
	var resp models.PlacementRequestResponse
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&resp).Error; err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *repository) FindResponseForUpdate(ctx context.Context, id uuid.UUID) (*models.PlacementRequestResponse, error) {
	var resp models.PlacementRequestResponse
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&resp).Error; err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *repository) FindResponseByHelper(ctx context.Context, requestID, helperProfileID uuid.UUID) (*models.PlacementRequestResponse, error) {
	var resp models.PlacementRequestResponse
	err := r.db.WithContext(ctx).
		Where("placement_request_id = ? AND helper_profile_id = ?", requestID, helperProfileID).
		First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *repository) FindAcceptedResponse(ctx context.Context, requestID uuid.UUID) (*models.PlacementRequestResponse, error) {
	var resp models.PlacementRequestResponse
	err := r.db.WithContext(ctx).
		Where("placement_request_id = ? AND status = ?", requestID, enums.ResponseStatusAccepted).
		First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *repository) ListResponses(ctx context.Context, requestID uuid.UUID, userID *uuid.UUID) ([]models.PlacementRequestResponse, error) {
	query := r.db.WithContext(ctx).Where("placement_request_id = ?", requestID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var rows []models.PlacementRequestResponse
	err := query.Order("responded_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) ListResponsesByStatus(ctx context.Context, requestID uuid.UUID, statuses ...enums.PlacementResponseStatus) ([]models.PlacementRequestResponse, error) {
	var rows []models.PlacementRequestResponse
	err := r.db.WithContext(ctx).
		Where("placement_request_id = ? AND status IN ?", requestID, statuses).
		Order("responded_at ASC").
		Find(&rows).Error
	return rows, err
}

// UpdateResponse applies updates only while the response is still in from.
func (r *repository) UpdateResponse(ctx context.Context, id uuid.UUID, from enums.PlacementResponseStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PlacementRequestResponse{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) CreateTransfer(ctx context.Context, transfer *models.TransferRequest) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *repository) ListTransfers(ctx context.Context, placementRequestID uuid.UUID, responseID *uuid.UUID, statuses ...enums.TransferRequestStatus) ([]models.TransferRequest, error) {
	query := r.db.WithContext(ctx).Where("placement_request_id = ?", placementRequestID)
	if responseID != nil {
		query = query.Where("placement_request_response_id = ?", *responseID)
	}
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.TransferRequest
	err := query.Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateTransfer(ctx context.Context, id uuid.UUID, from enums.TransferRequestStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TransferRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) CancelOpenHandovers(ctx context.Context, transferID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TransferHandover{}).
		Where("transfer_request_id = ? AND status IN ?", transferID, openHandoverStatuses).
		Updates(map[string]any{
			"status":      enums.HandoverStatusCanceled,
			"canceled_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}
