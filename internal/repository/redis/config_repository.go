package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/denportal/wagate/internal/models"
	"github.com/denportal/wagate/pkg/logger"
)

type redisConfigRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisConfigRepository(cli *redis.Client, l logger.Logger) ConfigRepository {
	return &redisConfigRepository{
		cli: cli,
		l:   l,
	}
}

func (r *redisConfigRepository) GetStudent(ctx context.Context, badgeID string) (*models.StudentRecord, error) {
	var rec models.StudentRecord
	if err := r.getJSON(ctx, r.studentKey(badgeID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *redisConfigRepository) GetTenantConfig(ctx context.Context, tenantKey string) (*models.TenantConfig, error) {
	var cfg models.TenantConfig
	if err := r.getJSON(ctx, r.tenantKey(tenantKey), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetTemplates returns the tenant's custom templates. A missing key means
// the tenant uses the built-in defaults, so it is not an error.
func (r *redisConfigRepository) GetTemplates(ctx context.Context, tenantKey string) ([]models.MessageTemplate, error) {
	var tmpls []models.MessageTemplate
	err := r.getJSON(ctx, r.templatesKey(tenantKey), &tmpls)
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return tmpls, nil
}

func (r *redisConfigRepository) getJSON(ctx context.Context, key string, dst any) error {
	data, err := r.cli.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		r.l.Errorf(ctx, "redisConfigRepository.getJSON %s: %v", key, err)
		return err
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *redisConfigRepository) studentKey(badgeID string) string {
	return fmt.Sprintf("wagate:student:%s", badgeID)
}

func (r *redisConfigRepository) tenantKey(key string) string {
	return fmt.Sprintf("wagate:tenant:%s", key)
}

func (r *redisConfigRepository) templatesKey(key string) string {
	return fmt.Sprintf("wagate:templates:%s", key)
}
