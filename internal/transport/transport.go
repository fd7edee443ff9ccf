// Package transport models the external messaging provider as a capability:
// a connection per tenant that emits lifecycle and inbound-message events
// and performs sends. The wire protocol itself lives outside this service.
package transport

import (
	"context"

	"github.com/denportal/wagate/internal/models"
)

type EventType string

const (
	EventQR      EventType = "qr"
	EventOpen    EventType = "open"
	EventClose   EventType = "close"
	EventMessage EventType = "message"
)

// Event is one item of a connection's lifecycle stream. Exactly one of the
// payload fields is set, according to Type.
type Event struct {
	Type     EventType
	QR       string
	Identity *models.Identity
	Close    *CloseInfo
	Message  *models.InboundMessage
}

// Close status codes with defined reconnect semantics. Any other code is
// treated as a transient disconnect.
const (
	CodeLoggedOut = 401 // credentials invalidated by the remote end
	CodeReplaced  = 440 // another connection took over this account
)

const (
	CloseTypeReplaced = "replaced"
	CloseTypeConflict = "conflict"
)

// CloseInfo describes why a connection ended.
type CloseInfo struct {
	Code int
	Type string
	Err  error
}

// LoggedOut reports whether the stored credentials are no longer valid and
// must be purged.
func (c *CloseInfo) LoggedOut() bool {
	return c != nil && c.Code == CodeLoggedOut
}

// Superseded reports whether the account was taken over elsewhere. The
// session must not reconnect, but credentials stay usable.
func (c *CloseInfo) Superseded() bool {
	if c == nil {
		return false
	}
	return c.Code == CodeReplaced || c.Type == CloseTypeReplaced || c.Type == CloseTypeConflict
}

// Message is an outbound payload. Image bytes with an optional caption, or
// plain text.
type Message struct {
	Text     string
	Image    []byte
	Caption  string
	MimeType string
}

// Provider opens transport connections on behalf of tenants.
type Provider interface {
	Connect(ctx context.Context, tenantID string) (Conn, error)
}

// Conn is a live connection owned by exactly one session generation. The
// Events channel is closed when the underlying socket goes away; a close
// event is delivered first when the reason is known.
type Conn interface {
	Events() <-chan Event
	Send(ctx context.Context, recipientJID string, msg Message) error
	MarkRead(ctx context.Context, messageID, chatJID string) error
	Logout(ctx context.Context) error
	Close() error
}
