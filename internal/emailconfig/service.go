package emailconfig

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/mailer"
)

const (
	activeIndex    = "ux_email_configurations_one_active"
	maxFromNameLen = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Delivery is the mailer and sender identity used for outgoing email.
type Delivery struct {
	Mailer   mailer.Mailer
	From     string
	FromName string
}

// Service manages email provider configurations. At most one is active.
type Service struct {
	repo        Repository
	tx          txRunner
	logg        *logger.Logger
	defaultFrom string
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger, defaultFrom string) (*Service, error) {
	if repo == nil {
		return nil, errors.New("email configuration repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &Service{repo: repo, tx: tx, logg: logg, defaultFrom: defaultFrom}, nil
}

func (s *Service) List(ctx context.Context) ([]ConfigDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list email configurations")
	}
	out := make([]ConfigDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*ConfigDTO, error) {
	provider, err := enums.ParseEmailProvider(strings.TrimSpace(input.Provider))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider")
	}
	if err := validateProviderConfig(provider, input.Config); err != nil {
		return nil, err
	}
	cfg := &models.EmailConfiguration{
		Provider:    provider,
		Status:      statusFor(input.IsActive),
		FromAddress: strings.TrimSpace(input.FromAddress),
		FromName:    input.FromName,
		Config:      input.Config,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.IsActive {
			if err := repo.DeactivateAll(ctx, cfg.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate email configurations")
			}
		}
		if err := repo.Create(ctx, cfg); err != nil {
			if db.IsUniqueViolation(err, activeIndex) {
				return pkgerrors.New(pkgerrors.CodeConflict, "another email configuration is active")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create email configuration")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*cfg)
	return &dto, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ConfigDTO, error) {
	var result *models.EmailConfiguration
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if input.FromAddress != nil {
			updates["from_address"] = strings.TrimSpace(*input.FromAddress)
		}
		if input.FromName.Valid {
			if input.FromName.Value != nil && len(*input.FromName.Value) > maxFromNameLen {
				return pkgerrors.New(pkgerrors.CodeValidation, "from_name is too long").
					WithDetails(map[string]any{"field": "from_name"})
			}
			// explicit null clears the display name
			updates["from_name"] = input.FromName.Value
		}
		if len(input.Config) > 0 {
			if err := validateProviderConfig(current.Provider, input.Config); err != nil {
				return err
			}
			updates["config"] = input.Config
		}
		if input.IsActive != nil {
			if *input.IsActive {
				if err := repo.DeactivateAll(ctx, id); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate email configurations")
				}
			}
			updates["status"] = statusFor(*input.IsActive)
		}
		if len(updates) > 0 {
			if err := repo.Update(ctx, id, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update email configuration")
			}
		}
		result, err = s.load(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*result)
	return &dto, nil
}

// Activate makes id the only active configuration.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*ConfigDTO, error) {
	active := true
	return s.Update(ctx, id, UpdateInput{IsActive: &active})
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*ConfigDTO, error) {
	active := false
	return s.Update(ctx, id, UpdateInput{IsActive: &active})
}

// ActiveDelivery resolves the active configuration into a mailer. With no
// active configuration mail is written to the log from the default address.
func (s *Service) ActiveDelivery(ctx context.Context) (*Delivery, error) {
	cfg, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Delivery{Mailer: mailer.NewLogMailer(s.logg), From: s.defaultFrom}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active email configuration")
	}
	delivery := &Delivery{From: cfg.FromAddress}
	if cfg.FromName != nil {
		delivery.FromName = *cfg.FromName
	}
	switch cfg.Provider {
	case enums.EmailProviderSMTP:
		smtpCfg, err := mailer.ParseSMTPConfig(cfg.Config)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "active smtp configuration is invalid")
		}
		delivery.Mailer = mailer.NewSMTPMailer(smtpCfg)
	default:
		delivery.Mailer = mailer.NewLogMailer(s.logg)
	}
	return delivery, nil
}

func (s *Service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.EmailConfiguration, error) {
	cfg, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "email configuration not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load email configuration")
	}
	return cfg, nil
}

func validateProviderConfig(provider enums.EmailProvider, raw json.RawMessage) error {
	if provider != enums.EmailProviderSMTP {
		return nil
	}
	if _, err := mailer.ParseSMTPConfig(raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid smtp config").
			WithDetails(map[string]any{"field": "config"})
	}
	return nil
}
