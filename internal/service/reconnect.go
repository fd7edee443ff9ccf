package service

import (
	"context"
	"sync"
	"time"

	"github.com/denportal/wagate/pkg/logger"
)

type reconnectRequest struct {
	tenantID   string
	generation uint64
}

// ReconnectSupervisor retries transient disconnects. Each request carries
// the generation that observed the close; at fire time the retry is
// suppressed unless that generation is still the session's current one, so
// a reconnect scheduled by a superseded socket can never race a newer
// successful start.
type ReconnectSupervisor struct {
	delay   time.Duration
	sameGen func(tenantID string, generation uint64) bool
	restart func(tenantID string)
	l       logger.Logger

	mu        sync.Mutex
	isRunning bool
	requests  chan reconnectRequest
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewReconnectSupervisor(
	delay time.Duration,
	sameGen func(tenantID string, generation uint64) bool,
	restart func(tenantID string),
	l logger.Logger,
) *ReconnectSupervisor {
	return &ReconnectSupervisor{
		delay:    delay,
		sameGen:  sameGen,
		restart:  restart,
		l:        l,
		requests: make(chan reconnectRequest, 64),
		stopCh:   make(chan struct{}),
	}
}

func (rs *ReconnectSupervisor) Start(ctx context.Context) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.isRunning {
		return
	}
	rs.isRunning = true

	rs.wg.Add(1)
	go rs.loop(ctx)
}

func (rs *ReconnectSupervisor) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.isRunning {
		return
	}
	rs.isRunning = false

	close(rs.stopCh)
	rs.wg.Wait()
}

// Schedule queues a fenced retry. Fire-and-forget: when the supervisor is
// stopped or saturated the request is dropped with a log line.
func (rs *ReconnectSupervisor) Schedule(tenantID string, generation uint64) {
	select {
	case rs.requests <- reconnectRequest{tenantID: tenantID, generation: generation}:
	default:
		rs.l.Warnf(context.Background(), "reconnect queue full, dropping retry for %s", tenantID)
	}
}

func (rs *ReconnectSupervisor) loop(ctx context.Context) {
	defer rs.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rs.stopCh:
			return
		case req := <-rs.requests:
			rs.wg.Add(1)
			go rs.fire(ctx, req)
		}
	}
}

func (rs *ReconnectSupervisor) fire(ctx context.Context, req reconnectRequest) {
	defer rs.wg.Done()

	timer := time.NewTimer(rs.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-rs.stopCh:
		return
	case <-timer.C:
	}

	if !rs.sameGen(req.tenantID, req.generation) {
		rs.l.Debugf(ctx, "reconnect for %s suppressed: generation %d superseded", req.tenantID, req.generation)
		return
	}

	rs.l.Infof(ctx, "reconnecting %s (generation %d)", req.tenantID, req.generation)
	rs.restart(req.tenantID)
}
