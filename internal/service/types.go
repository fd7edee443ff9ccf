package service

import (
	"context"

	"github.com/denportal/wagate/internal/models"
)

// StartStatus is the best-known outcome of a start request.
type StartStatus string

const (
	StartConnected  StartStatus = "connected"
	StartQR         StartStatus = "qr"
	StartConnecting StartStatus = "connecting"
	StartError      StartStatus = "error"
)

type StartResult struct {
	Status   StartStatus      `json:"status"`
	QR       string           `json:"qr,omitempty"`
	Identity *models.Identity `json:"identity,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// SessionStatus is the externally visible connection status of a tenant.
type SessionStatus string

const (
	StatusConnected      SessionStatus = "connected"
	StatusDisconnected   SessionStatus = "disconnected"
	StatusNotInitialized SessionStatus = "not_initialized"
)

type StatusResult struct {
	Status   SessionStatus    `json:"status"`
	Identity *models.Identity `json:"identity,omitempty"`
	LastQR   string           `json:"last_qr,omitempty"`
}

// TextSender is the outbound send path components deliver through.
type TextSender interface {
	SendText(ctx context.Context, tenantID, recipient, text string) error
	IsConnected(tenantID string) bool
}

// TenantLister supplies the set of registered tenant ids.
type TenantLister interface {
	List() ([]string, error)
}
