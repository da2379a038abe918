package platform

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Well-known config keys.
const (
	KeyServiceFeeRate  = "service_fee_rate"
	KeyMaintenanceMode = "maintenance_mode"
)

const (
	configCachePrefix = "sysconfig:"
	configCacheTTL    = 10 * time.Minute
)

// Service exposes runtime platform settings, cache-aside through Redis.
type Service struct {
	repo   *Repository
	redis  *redis.Client
	logger logger.Logger
	now    func() time.Time
}

func NewService(repo *Repository, rdb *redis.Client, log logger.Logger) *Service {
	return &Service{repo: repo, redis: rdb, logger: log, now: time.Now}
}

func (s *Service) fetch(ctx context.Context, key string) (*models.SystemConfig, error) {
	if cached, err := s.redis.Get(ctx, configCachePrefix+key).Result(); err == nil {
		var c models.SystemConfig
		if err := json.Unmarshal([]byte(cached), &c); err == nil {
			return &c, nil
		}
	}

	c, err := s.repo.GetConfig(ctx, key)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(c); err == nil {
		if err := s.redis.Set(ctx, configCachePrefix+key, data, configCacheTTL).Err(); err != nil {
			s.logger.WithError(err).Warn("config cache write failed", map[string]interface{}{"key": key})
		}
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, key string) (*models.SystemConfig, error) {
	c, err := s.fetch(ctx, key)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("SystemConfig", "key: "+key)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]*models.SystemConfig, error) {
	out, err := s.repo.ListConfigs(ctx)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

type ConfigInput struct {
	Key         string `json:"key" binding:"required"`
	Value       string `json:"value" binding:"required"`
	Description string `json:"description"`
}

func (s *Service) Set(ctx context.Context, in ConfigInput) (*models.SystemConfig, error) {
	c := &models.SystemConfig{
		Key:         in.Key,
		Value:       in.Value,
		Description: in.Description,
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.repo.UpsertConfig(ctx, c, c.UpdatedAt); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	if err := s.redis.Del(ctx, configCachePrefix+in.Key).Err(); err != nil {
		s.logger.WithError(err).Warn("config cache invalidation failed", map[string]interface{}{"key": in.Key})
	}
	s.logger.Info("system config updated", map[string]interface{}{"key": in.Key})
	return c, nil
}

// FloatValue reads a numeric setting, falling back to def when the key is
// absent or malformed.
func (s *Service) FloatValue(ctx context.Context, key string, def float64) float64 {
	c, err := s.fetch(ctx, key)
	if err != nil {
		return def
	}
	v, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		s.logger.Warn("malformed numeric config", map[string]interface{}{"key": key, "value": c.Value})
		return def
	}
	return v
}
