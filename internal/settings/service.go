package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
)

const defaultCacheTTL = 5 * time.Minute

// SettingDTO is the API view of one setting.
type SettingDTO struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	IsPublic  bool      `json:"is_public"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetInput is the admin payload for PUT /api/admin/settings/{key}.
type SetInput struct {
	Value    string `json:"value" validate:"max=10000"`
	IsPublic bool   `json:"is_public"`
}

// Service is a read-through cache over the settings table.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewService(repo Repository, cache Cache, ttl time.Duration, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("settings repository required")
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

// Get returns the raw value for key, consulting the cache first.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	key = normalizeKey(key)
	if val, err := s.cache.Get(ctx, key); err == nil {
		return val, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		s.warn(ctx, key, "settings cache read failed", err)
	}
	row, err := s.find(ctx, key)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, row.Value, s.ttl); err != nil {
		s.warn(ctx, key, "settings cache write failed", err)
	}
	return row.Value, nil
}

// GetPublic returns a setting only when it is flagged public.
func (s *Service) GetPublic(ctx context.Context, key string) (*SettingDTO, error) {
	row, err := s.find(ctx, normalizeKey(key))
	if err != nil {
		return nil, err
	}
	if !row.IsPublic {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "setting not found")
	}
	dto := toDTO(*row)
	return &dto, nil
}

// Set upserts key and drops its cache entry.
func (s *Service) Set(ctx context.Context, key string, input SetInput) (*SettingDTO, error) {
	key = normalizeKey(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	row := &models.Setting{Key: key, Value: input.Value, IsPublic: input.IsPublic}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save setting")
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.warn(ctx, key, "settings cache invalidation failed", err)
	}
	dto := toDTO(*row)
	return &dto, nil
}

// All lists every setting ordered by key.
func (s *Service) All(ctx context.Context) ([]SettingDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settings")
	}
	out := make([]SettingDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

// Bool reads key as a boolean, returning fallback when it is unset or unparsable.
func (s *Service) Bool(ctx context.Context, key string, fallback bool) bool {
	val, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return parsed
}

// Int reads key as an integer, returning fallback when it is unset or unparsable.
func (s *Service) Int(ctx context.Context, key string, fallback int) int {
	val, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *Service) find(ctx context.Context, key string) (*models.Setting, error) {
	row, err := s.repo.Find(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "setting not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load setting")
	}
	return row, nil
}

func (s *Service) warn(ctx context.Context, key, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "setting_key", key), msg, err)
}

func toDTO(row models.Setting) SettingDTO {
	return SettingDTO{Key: row.Key, Value: row.Value, IsPublic: row.IsPublic, UpdatedAt: row.UpdatedAt}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
