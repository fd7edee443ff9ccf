package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/denportal/wagate/internal/media"
	"github.com/denportal/wagate/internal/models"
	"github.com/denportal/wagate/internal/service"
	"github.com/denportal/wagate/pkg/logger"
)

// APIKeyHeader guards the bulk attendance endpoint.
const APIKeyHeader = "x-den-api-key"

// TenantEnsurer appends a tenant id to the persistent registry.
type TenantEnsurer interface {
	Ensure(id string) error
}

// BulkSender hands a batch off for throttled background delivery.
type BulkSender interface {
	Dispatch(tenantID string, msgs []models.BulkMessage)
}

// ImageFetcher downloads an image referenced by URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*media.Image, error)
}

type HTTPHandler struct {
	sessions  service.SessionService
	registry  TenantEnsurer
	bulk      BulkSender
	images    ImageFetcher
	apiKey    string
	logger    logger.Logger
	validator *validator.Validate
}

func NewHTTPHandler(
	sessions service.SessionService,
	registry TenantEnsurer,
	bulk BulkSender,
	images ImageFetcher,
	apiKey string,
	l logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		sessions:  sessions,
		registry:  registry,
		bulk:      bulk,
		images:    images,
		apiKey:    apiKey,
		logger:    l,
		validator: validator.New(),
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "wagate",
	})
}

// StartSession registers the tenant and opens (or reports) its connection.
func (h *HTTPHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !models.ValidTenantID(tenantID) {
		h.respondError(w, http.StatusBadRequest, "Invalid tenant id", nil)
		return
	}

	if err := h.registry.Ensure(tenantID); err != nil {
		h.logger.Errorf(r.Context(), "failed to register tenant %s: %v", tenantID, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to register tenant", err)
		return
	}

	res, err := h.sessions.Start(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTenantID) {
			h.respondError(w, http.StatusBadRequest, "Invalid tenant id", err)
			return
		}
		h.logger.Errorf(r.Context(), "failed to start session %s: %v", tenantID, err)
		h.respondJSON(w, http.StatusBadGateway, &service.StartResult{
			Status:  service.StartError,
			Message: "Failed to start session",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !models.ValidTenantID(tenantID) {
		h.respondError(w, http.StatusBadRequest, "Invalid tenant id", nil)
		return
	}

	h.respondJSON(w, http.StatusOK, h.sessions.Status(tenantID))
}

// DestroySession logs the tenant out and forgets its credentials. Always
// reports success; partial failures are logged server-side.
func (h *HTTPHandler) DestroySession(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !models.ValidTenantID(tenantID) {
		h.respondError(w, http.StatusBadRequest, "Invalid tenant id", nil)
		return
	}

	if err := h.sessions.Destroy(r.Context(), tenantID); err != nil {
		h.logger.Errorf(r.Context(), "destroy of %s reported error: %v", tenantID, err)
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Session destroyed",
	})
}

type sendRequest struct {
	Number   string `json:"number" validate:"required"`
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
}

// SendMessage delivers one text or image message on the tenant's
// connection.
func (h *HTTPHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !models.ValidTenantID(tenantID) {
		h.respondError(w, http.StatusBadRequest, "Invalid tenant id", nil)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}
	if req.Message == "" && req.ImageURL == "" {
		h.respondError(w, http.StatusBadRequest, "Either message or imageUrl is required", nil)
		return
	}

	var err error
	if req.ImageURL != "" {
		var img *media.Image
		img, err = h.images.Fetch(r.Context(), req.ImageURL)
		if err != nil {
			h.respondError(w, http.StatusBadGateway, "Failed to fetch image", err)
			return
		}
		err = h.sessions.SendImage(r.Context(), tenantID, req.Number, img.Data, req.Message, img.MimeType)
	} else {
		err = h.sessions.SendText(r.Context(), tenantID, req.Number, req.Message)
	}

	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			h.respondError(w, http.StatusNotFound, "Session not found", err)
		case errors.Is(err, service.ErrNotConnected):
			h.respondError(w, http.StatusConflict, "Session is not connected", err)
		default:
			h.logger.Errorf(r.Context(), "send via %s failed: %v", tenantID, err)
			h.respondError(w, http.StatusInternalServerError, "Failed to send message", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type bulkRequest struct {
	Messages []models.BulkMessage `json:"messages" validate:"required,min=1"`
}

// SendAttendanceMessages accepts a batch for throttled background
// delivery. Guarded by the shared api key header.
func (h *HTTPHandler) SendAttendanceMessages(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" || r.Header.Get(APIKeyHeader) != h.apiKey {
		h.respondError(w, http.StatusForbidden, "Forbidden", nil)
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if !models.ValidTenantID(tenantID) {
		h.respondError(w, http.StatusBadRequest, "Invalid tenant id", nil)
		return
	}

	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	h.bulk.Dispatch(tenantID, req.Messages)

	h.respondJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"count":    len(req.Messages),
	})
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorf(context.Background(), "failed to encode JSON response: %v", err)
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		h.logger.Debugf(context.Background(), "error response %d: %s: %v", statusCode, message, err)
	}
	h.respondJSON(w, statusCode, map[string]any{
		"error": message,
		"code":  statusCode,
	})
}
