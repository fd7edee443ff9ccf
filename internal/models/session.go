package models

import "regexp"

// ConnectionState tracks the lifecycle of a tenant's transport connection.
type ConnectionState string

const (
	StateUninitialized ConnectionState = "uninitialized"
	StateConnecting    ConnectionState = "connecting"
	StateConnected     ConnectionState = "connected"
	StateDisconnected  ConnectionState = "disconnected"
	StateTerminal      ConnectionState = "terminal"
)

func (s ConnectionState) IsActive() bool {
	return s == StateConnecting || s == StateConnected
}

// Identity is the transport-level account a connected session is bound to.
type Identity struct {
	JID  string `json:"jid"`
	Name string `json:"name,omitempty"`
}

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidTenantID reports whether id is safe to use as a tenant identifier
// (registry file lines, credential directory names, URL segments).
func ValidTenantID(id string) bool {
	return tenantIDPattern.MatchString(id)
}
