package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/denportal/wagate/internal/models"
	"github.com/denportal/wagate/pkg/logger"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cli.Close() })

	return mr, cli
}

func TestAttendanceQueuePushPopOrder(t *testing.T) {
	_, cli := setupRedis(t)
	repo := NewRedisAttendanceQueueRepository(cli, logger.InitializeTestZapLogger())
	ctx := context.Background()

	require.NoError(t, repo.Push(ctx, "school1", `{"badgeId":"b1"}`))
	require.NoError(t, repo.Push(ctx, "school1", `{"badgeId":"b2"}`))

	n, err := repo.Length(ctx, "school1")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	raw, ok, err := repo.Pop(ctx, "school1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"badgeId":"b1"}`, raw)

	raw, ok, err = repo.Pop(ctx, "school1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"badgeId":"b2"}`, raw)

	_, ok, err = repo.Pop(ctx, "school1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAttendanceQueueIsTenantScoped(t *testing.T) {
	_, cli := setupRedis(t)
	repo := NewRedisAttendanceQueueRepository(cli, logger.InitializeTestZapLogger())
	ctx := context.Background()

	require.NoError(t, repo.Push(ctx, "school1", "a"))

	_, ok, err := repo.Pop(ctx, "school2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConfigRepositoryRoundTrip(t *testing.T) {
	mr, cli := setupRedis(t)
	repo := NewRedisConfigRepository(cli, logger.InitializeTestZapLogger())
	ctx := context.Background()

	mr.Set("wagate:student:b-17", `{"badgeId":"b-17","name":"Ali","standardName":"Grade 4","guardianName":"Ahmed","guardianContact":"923001234567"}`)
	mr.Set("wagate:tenant:school1", `{"name":"Sunrise School","checkinStart":"07:50:00","checkinEnd":"08:10:00","checkoutStart":"13:30:00","checkoutEnd":"14:00:00","bufferMinutes":5}`)
	mr.Set("wagate:templates:school1", `[{"kind":"arrival","body":"{student_name} arrived at {date_time}"}]`)

	student, err := repo.GetStudent(ctx, "b-17")
	require.NoError(t, err)
	require.Equal(t, "Ali", student.Name)
	require.Equal(t, "923001234567", student.GuardianContact)

	cfg, err := repo.GetTenantConfig(ctx, "school1")
	require.NoError(t, err)
	require.Equal(t, "Sunrise School", cfg.Name)
	require.Equal(t, 5, cfg.BufferMinutes)

	tmpls, err := repo.GetTemplates(ctx, "school1")
	require.NoError(t, err)
	require.Len(t, tmpls, 1)
	require.Equal(t, models.TemplateArrival, tmpls[0].Kind)
}

func TestConfigRepositoryMissingRecords(t *testing.T) {
	_, cli := setupRedis(t)
	repo := NewRedisConfigRepository(cli, logger.InitializeTestZapLogger())
	ctx := context.Background()

	_, err := repo.GetStudent(ctx, "unknown")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetTenantConfig(ctx, "unknown")
	require.ErrorIs(t, err, ErrNotFound)

	// missing templates are not an error
	tmpls, err := repo.GetTemplates(ctx, "unknown")
	require.NoError(t, err)
	require.Nil(t, tmpls)
}

func TestConfigRepositoryMalformedJSON(t *testing.T) {
	mr, cli := setupRedis(t)
	repo := NewRedisConfigRepository(cli, logger.InitializeTestZapLogger())

	mr.Set("wagate:student:bad", `{not json`)

	_, err := repo.GetStudent(context.Background(), "bad")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
