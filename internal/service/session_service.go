package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/denportal/wagate/config"
	kafka "github.com/denportal/wagate/internal/delivery/kafka"
	"github.com/denportal/wagate/internal/delivery/kafka/producer"
	"github.com/denportal/wagate/internal/models"
	"github.com/denportal/wagate/internal/transport"
	"github.com/denportal/wagate/pkg/logger"
)

type SessionService interface {
	TextSender

	Start(ctx context.Context, tenantID string) (*StartResult, error)
	Status(tenantID string) *StatusResult
	Destroy(ctx context.Context, tenantID string) error
	SendImage(ctx context.Context, tenantID, recipient string, image []byte, caption, mimeType string) error
	AutoStart(ctx context.Context)
	SetInboundHandler(h InboundHandler)
	Shutdown()
}

// InboundHandler receives inbound text messages that passed the freshness
// and self-message filters. The conn belongs to the generation that
// produced the message and may be used for read receipts.
type InboundHandler interface {
	HandleInbound(ctx context.Context, tenantID string, msg *models.InboundMessage, conn transport.Conn)
}

// session is a tenant's in-memory connection state. Mutated only by the
// event loop owning its current generation and by Start/Destroy under the
// registry lock.
type session struct {
	state      models.ConnectionState
	generation uint64
	conn       transport.Conn
	lastQR     string
	identity   *models.Identity
}

type sessionService struct {
	provider transport.Provider
	creds    transport.CredentialStore
	tenants  TenantLister
	prod     producer.Producer
	cfg      config.TransportConfig
	l        logger.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	inbound  InboundHandler

	genCtr   atomic.Uint64
	startGrp singleflight.Group
	sup      *ReconnectSupervisor
	wg       sync.WaitGroup
}

func NewSessionService(
	provider transport.Provider,
	creds transport.CredentialStore,
	tenants TenantLister,
	prod producer.Producer,
	cfg config.TransportConfig,
	l logger.Logger,
) SessionService {
	s := &sessionService{
		provider: provider,
		creds:    creds,
		tenants:  tenants,
		prod:     prod,
		cfg:      cfg,
		l:        l,
		sessions: make(map[string]*session),
	}

	s.sup = NewReconnectSupervisor(cfg.ReconnectDelay, s.ownsGeneration, s.restart, l)
	s.sup.Start(context.Background())

	return s
}

func (s *sessionService) SetInboundHandler(h InboundHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = h
}

// Start opens (or reports) the tenant's transport connection. Concurrent
// callers for the same tenant collapse into one underlying connect
// attempt; everyone receives the shared result.
func (s *sessionService) Start(ctx context.Context, tenantID string) (*StartResult, error) {
	if !models.ValidTenantID(tenantID) {
		return nil, ErrInvalidTenantID
	}

	if res := s.activeStatus(tenantID); res != nil {
		return res, nil
	}

	v, err, _ := s.startGrp.Do(tenantID, func() (any, error) {
		return s.connect(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*StartResult), nil
}

// activeStatus returns the current status when a start would be a no-op
// (session already connected or connecting), nil otherwise.
func (s *sessionService) activeStatus(tenantID string) *StartResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ses := s.sessions[tenantID]
	if ses == nil || !ses.state.IsActive() {
		return nil
	}
	return startResultOf(ses)
}

func startResultOf(ses *session) *StartResult {
	switch {
	case ses.state == models.StateConnected:
		return &StartResult{Status: StartConnected, Identity: ses.identity}
	case ses.lastQR != "":
		return &StartResult{Status: StartQR, QR: ses.lastQR}
	default:
		return &StartResult{Status: StartConnecting}
	}
}

func (s *sessionService) connect(ctx context.Context, tenantID string) (*StartResult, error) {
	// a concurrent start may have finished while this caller waited on the
	// flight group
	if res := s.activeStatus(tenantID); res != nil {
		return res, nil
	}

	gen := s.genCtr.Add(1)

	conn, err := s.provider.Connect(ctx, tenantID)
	if err != nil {
		s.l.Errorf(ctx, "sessionService.connect %s: %v", tenantID, err)
		return nil, fmt.Errorf("transport connect failed: %w", err)
	}

	s.mu.Lock()
	ses := s.sessions[tenantID]
	if ses == nil {
		ses = &session{}
		s.sessions[tenantID] = ses
	}
	if ses.conn != nil {
		// superseded handle; generation fencing discards its remaining events
		_ = ses.conn.Close()
	}
	ses.conn = conn
	ses.generation = gen
	ses.state = models.StateConnecting
	ses.identity = nil
	ses.lastQR = ""
	res := startResultOf(ses)
	s.mu.Unlock()

	// the start lock is released once the event loop is registered, not
	// once the connection completes
	s.wg.Add(1)
	go s.consumeEvents(tenantID, gen, conn)

	s.l.Infof(ctx, "start attempt for %s registered (generation %d)", tenantID, gen)
	return res, nil
}

// ownsGeneration reports whether gen is still the session's current
// generation. Every event handler checks this first; a mismatch means the
// underlying connection has been superseded and its events are discarded.
func (s *sessionService) ownsGeneration(tenantID string, gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ses := s.sessions[tenantID]
	return ses != nil && ses.generation == gen
}

func (s *sessionService) restart(tenantID string) {
	if _, err := s.Start(context.Background(), tenantID); err != nil {
		s.l.Errorf(context.Background(), "reconnect of %s failed: %v", tenantID, err)
	}
}

func (s *sessionService) consumeEvents(tenantID string, gen uint64, conn transport.Conn) {
	defer s.wg.Done()
	ctx := context.Background()

	for ev := range conn.Events() {
		if !s.ownsGeneration(tenantID, gen) {
			s.l.Debugf(ctx, "discarding stale %s event for %s (generation %d)", ev.Type, tenantID, gen)
			return
		}

		switch ev.Type {
		case transport.EventQR:
			s.storeQR(tenantID, gen, ev.QR)
			s.l.Infof(ctx, "[%s] QR generated", tenantID)

		case transport.EventOpen:
			s.markConnected(ctx, tenantID, gen, ev.Identity)

		case transport.EventClose:
			s.handleClose(ctx, tenantID, gen, ev.Close)

		case transport.EventMessage:
			s.dispatchInbound(ctx, tenantID, ev.Message, conn)
		}
	}
}

// storeQR and the other mutators below take the caller's generation and
// re-check it under the write lock: the loop's own ownsGeneration check
// happens before the lock is taken, so a reconnect can slip in between and
// install a newer generation that a stale mutation must not touch.
func (s *sessionService) storeQR(tenantID string, gen uint64, qr string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ses := s.sessions[tenantID]; ses != nil && ses.generation == gen {
		ses.lastQR = qr
	}
}

func (s *sessionService) markConnected(ctx context.Context, tenantID string, gen uint64, identity *models.Identity) {
	s.mu.Lock()
	ses := s.sessions[tenantID]
	if ses == nil || ses.generation != gen {
		s.mu.Unlock()
		return
	}
	ses.state = models.StateConnected
	ses.identity = identity
	ses.lastQR = ""
	s.mu.Unlock()

	jid := ""
	if identity != nil {
		jid = identity.JID
	}
	s.l.Infof(ctx, "[%s] connected as %s", tenantID, jid)

	if s.prod != nil {
		if err := s.prod.PublishSessionConnected(ctx, kafka.SessionConnectedEvent{
			TenantID:   tenantID,
			JID:        jid,
			Generation: gen,
		}); err != nil {
			s.l.Errorf(ctx, "failed to publish session connected event: %v", err)
		}
	}
}

// handleClose applies the reconnect policy for a same-generation close:
// invalidated credentials are purged and the session parked terminal, a
// superseded connection parks terminal keeping credentials, anything else
// is treated as transient and handed to the supervisor.
func (s *sessionService) handleClose(ctx context.Context, tenantID string, gen uint64, info *transport.CloseInfo) {
	code, reason := 0, ""
	if info != nil {
		code, reason = info.Code, info.Type
	}

	switch {
	case info.LoggedOut():
		if !s.setState(tenantID, gen, models.StateTerminal) {
			return
		}
		purged := true
		if err := s.creds.Purge(tenantID); err != nil {
			purged = false
			s.l.Errorf(ctx, "[%s] failed to purge credentials: %v", tenantID, err)
		}
		s.l.Warnf(ctx, "[%s] logged out (code=%d), credentials purged, not reconnecting", tenantID, code)
		s.publishTerminal(ctx, tenantID, code, reason, purged)

	case info.Superseded():
		if !s.setState(tenantID, gen, models.StateTerminal) {
			return
		}
		s.l.Warnf(ctx, "[%s] connection superseded (code=%d type=%s), keeping credentials, not reconnecting", tenantID, code, reason)
		s.publishTerminal(ctx, tenantID, code, reason, false)

	default:
		if !s.setState(tenantID, gen, models.StateDisconnected) {
			return
		}
		s.l.Infof(ctx, "[%s] disconnected (code=%d), scheduling reconnect", tenantID, code)
		s.sup.Schedule(tenantID, gen)
	}
}

func (s *sessionService) publishTerminal(ctx context.Context, tenantID string, code int, reason string, purged bool) {
	if s.prod == nil {
		return
	}
	if err := s.prod.PublishSessionTerminal(ctx, kafka.SessionTerminalEvent{
		TenantID:          tenantID,
		Code:              code,
		Reason:            reason,
		CredentialsPurged: purged,
	}); err != nil {
		s.l.Errorf(ctx, "failed to publish session terminal event: %v", err)
	}
}

// setState reports whether the transition was applied; false means the
// caller's generation has been superseded and its close handling must stop.
func (s *sessionService) setState(tenantID string, gen uint64, state models.ConnectionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ses := s.sessions[tenantID]
	if ses == nil || ses.generation != gen {
		return false
	}
	ses.state = state
	if state != models.StateConnected {
		ses.identity = nil
	}
	return true
}

func (s *sessionService) dispatchInbound(ctx context.Context, tenantID string, msg *models.InboundMessage, conn transport.Conn) {
	if msg == nil || msg.FromMe || msg.Text == "" {
		return
	}
	if s.cfg.MaxInboundAge > 0 && time.Since(msg.Timestamp) > s.cfg.MaxInboundAge {
		s.l.Debugf(ctx, "[%s] ignoring stale inbound message from %s", tenantID, msg.ChatJID)
		return
	}

	s.mu.RLock()
	handler := s.inbound
	s.mu.RUnlock()

	if handler == nil {
		return
	}
	handler.HandleInbound(ctx, tenantID, msg, conn)
}

func (s *sessionService) Status(tenantID string) *StatusResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ses := s.sessions[tenantID]
	if ses == nil {
		return &StatusResult{Status: StatusNotInitialized}
	}
	if ses.state == models.StateConnected {
		return &StatusResult{Status: StatusConnected, Identity: ses.identity}
	}
	return &StatusResult{Status: StatusDisconnected, LastQR: ses.lastQR}
}

func (s *sessionService) IsConnected(tenantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ses := s.sessions[tenantID]
	return ses != nil && ses.state == models.StateConnected
}

// Destroy tears the tenant down: best-effort logout, close the handle,
// drop registry state, purge credentials. Always succeeds from the
// caller's perspective; individual failures are logged.
func (s *sessionService) Destroy(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	ses := s.sessions[tenantID]
	delete(s.sessions, tenantID)
	s.mu.Unlock()

	if ses != nil && ses.conn != nil {
		if ses.state == models.StateConnected {
			lctx, cancel := context.WithTimeout(ctx, s.cfg.LogoutTimeout)
			if err := ses.conn.Logout(lctx); err != nil {
				s.l.Warnf(ctx, "[%s] logout failed: %v", tenantID, err)
			}
			cancel()
		}
		if err := ses.conn.Close(); err != nil {
			s.l.Warnf(ctx, "[%s] close failed: %v", tenantID, err)
		}
	}

	if err := s.creds.Purge(tenantID); err != nil {
		s.l.Errorf(ctx, "[%s] failed to purge credentials: %v", tenantID, err)
	}

	s.l.Infof(ctx, "[%s] session destroyed", tenantID)
	return nil
}

func (s *sessionService) SendText(ctx context.Context, tenantID, recipient, text string) error {
	conn, err := s.liveConn(tenantID)
	if err != nil {
		return err
	}
	return conn.Send(ctx, transport.NormalizeJID(recipient), transport.Message{Text: text})
}

func (s *sessionService) SendImage(ctx context.Context, tenantID, recipient string, image []byte, caption, mimeType string) error {
	conn, err := s.liveConn(tenantID)
	if err != nil {
		return err
	}
	return conn.Send(ctx, transport.NormalizeJID(recipient), transport.Message{
		Image:    image,
		Caption:  caption,
		MimeType: mimeType,
	})
}

func (s *sessionService) liveConn(tenantID string) (transport.Conn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ses := s.sessions[tenantID]
	if ses == nil {
		return nil, ErrSessionNotFound
	}
	if ses.state != models.StateConnected || ses.conn == nil {
		return nil, ErrNotConnected
	}
	return ses.conn, nil
}

// AutoStart resumes every registered tenant that still has credentials on
// disk. Used at boot; failures are logged per tenant.
func (s *sessionService) AutoStart(ctx context.Context) {
	ids, err := s.tenants.List()
	if err != nil {
		s.l.Errorf(ctx, "auto-start: failed to list tenants: %v", err)
		return
	}

	for _, tenantID := range ids {
		if !s.creds.Exists(tenantID) {
			s.l.Infof(ctx, "[%s] no stored credentials, waiting for QR request", tenantID)
			continue
		}
		s.l.Infof(ctx, "[%s] existing credentials found, attempting to resume", tenantID)
		go func(id string) {
			if _, err := s.Start(ctx, id); err != nil {
				s.l.Errorf(ctx, "[%s] auto-start failed: %v", id, err)
			}
		}(tenantID)
	}
}

func (s *sessionService) Shutdown() {
	s.sup.Stop()

	s.mu.Lock()
	for _, ses := range s.sessions {
		if ses.conn != nil {
			_ = ses.conn.Close()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}
