package models

import "github.com/denportal/wagate/pkg/util"

// AttendanceEvent is one queue entry produced by a badge reader. Consumed
// exactly once per pop.
type AttendanceEvent struct {
	BadgeID    string `json:"badgeId"`
	TenantKey  string `json:"tenantKey"`
	OccurredAt int64  `json:"occurredAtEpochSeconds"`
}

// StudentRecord maps a badge to the student and the guardian contact the
// notification goes to. Supplied by the portal, read-only per tick.
type StudentRecord struct {
	BadgeID         string `json:"badgeId"`
	Name            string `json:"name"`
	StandardName    string `json:"standardName"`
	GuardianName    string `json:"guardianName"`
	GuardianContact string `json:"guardianContact"`
}

// TenantConfig holds a tenant's display name and attendance windows.
// Window times are "HH:MM:SS" local clock strings.
type TenantConfig struct {
	Name          string `json:"name"`
	CheckinStart  string `json:"checkinStart"`
	CheckinEnd    string `json:"checkinEnd"`
	CheckoutStart string `json:"checkoutStart"`
	CheckoutEnd   string `json:"checkoutEnd"`
	BufferMinutes int    `json:"bufferMinutes"`
}

type TemplateKind string

const (
	TemplateArrival   TemplateKind = "arrival"
	TemplateDeparture TemplateKind = "departure"
)

type MessageTemplate struct {
	Kind TemplateKind `json:"kind"`
	Body string       `json:"body"`
}

// AttendanceKind is the window classification of an event.
type AttendanceKind string

const (
	AttendanceCheckin  AttendanceKind = "checkin"
	AttendanceCheckout AttendanceKind = "checkout"
	AttendanceOutside  AttendanceKind = "outside"
)

// TemplateKind maps a classification to the template kind used to render it.
func (k AttendanceKind) TemplateKind() TemplateKind {
	if k == AttendanceCheckout {
		return TemplateDeparture
	}
	return TemplateArrival
}

// Classify places a local seconds-since-midnight value into the tenant's
// checkin or checkout window. Both window edges are widened by the buffer
// and are inclusive. Checkin wins when the widened windows overlap.
func (c *TenantConfig) Classify(localSeconds int) AttendanceKind {
	buf := c.BufferMinutes * 60

	ciLo := util.TimeStrToSeconds(c.CheckinStart) - buf
	ciHi := util.TimeStrToSeconds(c.CheckinEnd) + buf
	if localSeconds >= ciLo && localSeconds <= ciHi {
		return AttendanceCheckin
	}

	coLo := util.TimeStrToSeconds(c.CheckoutStart) - buf
	coHi := util.TimeStrToSeconds(c.CheckoutEnd) + buf
	if localSeconds >= coLo && localSeconds <= coHi {
		return AttendanceCheckout
	}

	return AttendanceOutside
}
