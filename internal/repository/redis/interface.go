package repository

import (
	"context"
	"errors"

	"github.com/denportal/wagate/internal/models"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// AttendanceQueueRepository is the per-tenant badge event queue. Entries
// are opaque JSON strings pushed by the reader integration; Pop consumes
// exactly one entry.
type AttendanceQueueRepository interface {
	Push(ctx context.Context, tenantID string, raw string) error
	Pop(ctx context.Context, tenantID string) (string, bool, error)
	Length(ctx context.Context, tenantID string) (int64, error)
}

// ConfigRepository reads the portal-maintained configuration cache:
// student records keyed by badge id, tenant window configs and message
// templates keyed by tenant key.
type ConfigRepository interface {
	GetStudent(ctx context.Context, badgeID string) (*models.StudentRecord, error)
	GetTenantConfig(ctx context.Context, tenantKey string) (*models.TenantConfig, error)
	GetTemplates(ctx context.Context, tenantKey string) ([]models.MessageTemplate, error)
}
