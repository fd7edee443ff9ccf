// Package portal talks to the school administration backend: subscription
// updates triggered by inbound messages, periodic admin alert kicks and
// cache refreshes.
package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/denportal/wagate/config"
	"github.com/denportal/wagate/pkg/logger"
)

const tokenIssuer = "wagate"

type Client interface {
	UpdateSubscription(ctx context.Context, sender, action string) error
	SendAdminAlerts(ctx context.Context) error
	RefreshCache(ctx context.Context) error
}

type client struct {
	baseURL   string
	jwtSecret []byte
	tokenTTL  time.Duration
	http      *http.Client
	l         logger.Logger
}

func NewClient(cfg config.PortalConfig, l logger.Logger) Client {
	return &client{
		baseURL:   cfg.BaseURL,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.TokenTTL,
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		l:         l,
	}
}

func (c *client) UpdateSubscription(ctx context.Context, sender, action string) error {
	path := fmt.Sprintf("/update-is-on-whatsapp/%s/%s", url.PathEscape(sender), url.PathEscape(action))
	return c.get(ctx, path)
}

func (c *client) SendAdminAlerts(ctx context.Context) error {
	return c.get(ctx, "/admin-alerts/send-alerts")
}

func (c *client) RefreshCache(ctx context.Context) error {
	return c.get(ctx, "/update-redis-cache")
}

func (c *client) get(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build portal request: %w", err)
	}

	token, err := c.signToken()
	if err != nil {
		return fmt.Errorf("sign portal token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("portal request %s: %w", path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("portal request %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *client) signToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.jwtSecret)
}
