package kafka

import "time"

const (
	TopicSessionConnected = "session.connected"
	TopicSessionTerminal  = "session.terminal"
	TopicNotificationSent = "notification.sent"
)

// Events published by the gateway for downstream consumers (portal
// dashboards, audit).

type SessionConnectedEvent struct {
	TenantID   string    `json:"tenant_id"`
	JID        string    `json:"jid"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
}

type SessionTerminalEvent struct {
	TenantID          string    `json:"tenant_id"`
	Code              int       `json:"code"`
	Reason            string    `json:"reason"`
	CredentialsPurged bool      `json:"credentials_purged"`
	Timestamp         time.Time `json:"timestamp"`
}

type NotificationSentEvent struct {
	MessageID string    `json:"message_id"`
	TenantID  string    `json:"tenant_id"`
	BadgeID   string    `json:"badge_id"`
	Kind      string    `json:"kind"` // checkin or checkout
	Recipient string    `json:"recipient"`
	Timestamp time.Time `json:"timestamp"`
}
