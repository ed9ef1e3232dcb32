package emailconfig

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/types"
)

// CreateInput is the admin payload for a new provider configuration.
type CreateInput struct {
	Provider    string          `json:"provider" validate:"required,oneof=smtp log"`
	FromAddress string          `json:"from_address" validate:"required,email"`
	FromName    *string         `json:"from_name,omitempty" validate:"omitempty,max=200"`
	Config      json.RawMessage `json:"config,omitempty"`
	IsActive    bool            `json:"is_active"`
}

// UpdateInput patches a configuration. Omitted fields are left alone; an
// explicit null from_name clears it.
type UpdateInput struct {
	FromAddress *string              `json:"from_address,omitempty" validate:"omitempty,email"`
	FromName    types.NullableString `json:"from_name"`
	Config      json.RawMessage      `json:"config,omitempty"`
	IsActive    *bool                `json:"is_active,omitempty"`
}

// ConfigDTO exposes status as a boolean. Provider secrets are never returned.
type ConfigDTO struct {
	ID          uuid.UUID           `json:"id"`
	Provider    enums.EmailProvider `json:"provider"`
	IsActive    bool                `json:"is_active"`
	FromAddress string              `json:"from_address"`
	FromName    *string             `json:"from_name,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func ToDTO(cfg models.EmailConfiguration) ConfigDTO {
	return ConfigDTO{
		ID:          cfg.ID,
		Provider:    cfg.Provider,
		IsActive:    cfg.Status == enums.EmailConfigActive,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
		CreatedAt:   cfg.CreatedAt,
		UpdatedAt:   cfg.UpdatedAt,
	}
}

func statusFor(active bool) enums.EmailConfigStatus {
	if active {
		return enums.EmailConfigActive
	}
	return enums.EmailConfigInactive
}
