package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/denportal/wagate/pkg/logger"
)

type redisAttendanceQueueRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisAttendanceQueueRepository(cli *redis.Client, l logger.Logger) AttendanceQueueRepository {
	return &redisAttendanceQueueRepository{
		cli: cli,
		l:   l,
	}
}

func (r *redisAttendanceQueueRepository) Push(ctx context.Context, tenantID string, raw string) error {
	if err := r.cli.RPush(ctx, r.queueKey(tenantID), raw).Err(); err != nil {
		r.l.Errorf(ctx, "redisAttendanceQueueRepository.Push: %v", err)
		return err
	}
	return nil
}

// Pop removes and returns the oldest entry. The second return value is
// false when the queue is empty.
func (r *redisAttendanceQueueRepository) Pop(ctx context.Context, tenantID string) (string, bool, error) {
	raw, err := r.cli.LPop(ctx, r.queueKey(tenantID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		r.l.Errorf(ctx, "redisAttendanceQueueRepository.Pop: %v", err)
		return "", false, err
	}
	return raw, true, nil
}

func (r *redisAttendanceQueueRepository) Length(ctx context.Context, tenantID string) (int64, error) {
	n, err := r.cli.LLen(ctx, r.queueKey(tenantID)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisAttendanceQueueRepository.Length: %v", err)
		return 0, err
	}
	return n, nil
}

func (r *redisAttendanceQueueRepository) queueKey(tenantID string) string {
	return fmt.Sprintf("wagate:%s:attendance", tenantID)
}
