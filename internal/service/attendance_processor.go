package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/denportal/wagate/config"
	kafka "github.com/denportal/wagate/internal/delivery/kafka"
	"github.com/denportal/wagate/internal/delivery/kafka/producer"
	"github.com/denportal/wagate/internal/models"
	repository "github.com/denportal/wagate/internal/repository/redis"
	"github.com/denportal/wagate/pkg/logger"
	"github.com/denportal/wagate/pkg/util"
)

type AttendanceProcessor interface {
	Start(ctx context.Context) error
	Stop() error
	ProcessTenantQueue(ctx context.Context, tenantID string) error
	GetStatus() ProcessorStatus
}

type ProcessorStatus struct {
	IsRunning     bool      `json:"is_running"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	LastProcessed time.Time `json:"last_processed,omitempty"`
	TotalSent     int64     `json:"total_sent"`
	TotalSkipped  int64     `json:"total_skipped"`
	TicksSkipped  int64     `json:"ticks_skipped"`
	ErrorCount    int64     `json:"error_count"`
}

type attendanceProcessor struct {
	queue    repository.AttendanceQueueRepository
	configs  repository.ConfigRepository
	sender   TextSender
	tenants  TenantLister
	producer producer.Producer
	l        logger.Logger

	interval time.Duration
	loc      *time.Location

	mu        sync.RWMutex
	isRunning bool
	startedAt time.Time
	stopCh    chan struct{}
	ticker    *time.Ticker
	wg        sync.WaitGroup

	// drainMu keeps ticks from overlapping; a tick that finds the previous
	// one still draining is skipped wholesale.
	drainMu sync.Mutex

	lastProcessed time.Time
	totalSent     int64
	totalSkipped  int64
	ticksSkipped  int64
	errorCount    int64
}

func NewAttendanceProcessor(
	queue repository.AttendanceQueueRepository,
	configs repository.ConfigRepository,
	sender TextSender,
	tenants TenantLister,
	producer producer.Producer,
	cfg config.AttendanceConfig,
	l logger.Logger,
) (AttendanceProcessor, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid attendance timezone %q: %w", cfg.Timezone, err)
	}

	return &attendanceProcessor{
		queue:    queue,
		configs:  configs,
		sender:   sender,
		tenants:  tenants,
		producer: producer,
		l:        l,
		interval: cfg.TickInterval,
		loc:      loc,
		stopCh:   make(chan struct{}),
	}, nil
}

func (ap *attendanceProcessor) Start(ctx context.Context) error {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	if ap.isRunning {
		return errors.New("attendance processor is already running")
	}

	ap.l.Infof(ctx, "starting attendance processor (interval %v, timezone %s)", ap.interval, ap.loc)

	ap.isRunning = true
	ap.startedAt = time.Now()
	ap.ticker = time.NewTicker(ap.interval)

	ap.wg.Add(1)
	go ap.processLoop(ctx)

	return nil
}

func (ap *attendanceProcessor) Stop() error {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	if !ap.isRunning {
		return errors.New("attendance processor is not running")
	}

	close(ap.stopCh)
	if ap.ticker != nil {
		ap.ticker.Stop()
	}
	ap.wg.Wait()
	ap.isRunning = false

	ap.l.Infof(context.Background(), "attendance processor stopped")
	return nil
}

func (ap *attendanceProcessor) processLoop(ctx context.Context) {
	defer ap.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ap.stopCh:
			return
		case <-ap.ticker.C:
			ap.tick(ctx)
		}
	}
}

// tick drains every tenant queue once. Skipped entirely when the previous
// tick is still draining, so a slow send path never stacks concurrent
// drains of the same queues.
func (ap *attendanceProcessor) tick(ctx context.Context) {
	if !ap.drainMu.TryLock() {
		ap.mu.Lock()
		ap.ticksSkipped++
		ap.mu.Unlock()
		ap.l.Warnf(ctx, "previous attendance drain still in progress, skipping tick")
		return
	}
	defer ap.drainMu.Unlock()

	defer func() {
		ap.mu.Lock()
		ap.lastProcessed = time.Now()
		ap.mu.Unlock()
	}()

	ids, err := ap.tenants.List()
	if err != nil {
		ap.incrementErrorCount()
		ap.l.Errorf(ctx, "failed to list tenants: %v", err)
		return
	}

	for _, tenantID := range ids {
		if err := ap.ProcessTenantQueue(ctx, tenantID); err != nil {
			ap.incrementErrorCount()
			ap.l.Errorf(ctx, "[%s] attendance drain failed: %v", tenantID, err)
		}
	}
}

// ProcessTenantQueue drains one tenant's queue to empty. Badge ids already
// handled within this drain are deduplicated; later duplicates are
// consumed and dropped.
func (ap *attendanceProcessor) ProcessTenantQueue(ctx context.Context, tenantID string) error {
	if !ap.sender.IsConnected(tenantID) {
		n, err := ap.queue.Length(ctx, tenantID)
		if err == nil && n > 0 {
			ap.l.Debugf(ctx, "[%s] not connected, leaving %d queued attendance entries", tenantID, n)
		}
		return nil
	}

	seen := make(map[string]struct{})
	for {
		raw, ok, err := ap.queue.Pop(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("queue pop: %w", err)
		}
		if !ok {
			return nil
		}
		ap.processEntry(ctx, tenantID, raw, seen)
	}
}

func (ap *attendanceProcessor) processEntry(ctx context.Context, tenantID, raw string, seen map[string]struct{}) {
	var ev models.AttendanceEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		ap.incrementErrorCount()
		ap.l.Errorf(ctx, "[%s] malformed attendance entry dropped: %v", tenantID, err)
		return
	}

	if _, dup := seen[ev.BadgeID]; dup {
		ap.skip(ctx, "[%s] duplicate badge %s within drain, skipping", tenantID, ev.BadgeID)
		return
	}
	seen[ev.BadgeID] = struct{}{}

	student, err := ap.configs.GetStudent(ctx, ev.BadgeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ap.skip(ctx, "[%s] no student record for badge %s, skipping", tenantID, ev.BadgeID)
		} else {
			ap.incrementErrorCount()
			ap.l.Errorf(ctx, "[%s] student lookup for badge %s: %v", tenantID, ev.BadgeID, err)
		}
		return
	}

	tenantCfg, err := ap.configs.GetTenantConfig(ctx, ev.TenantKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ap.skip(ctx, "[%s] no tenant config for key %s, skipping badge %s", tenantID, ev.TenantKey, ev.BadgeID)
		} else {
			ap.incrementErrorCount()
			ap.l.Errorf(ctx, "[%s] tenant config lookup for %s: %v", tenantID, ev.TenantKey, err)
		}
		return
	}

	localSeconds := util.SecondsSinceMidnight(ev.OccurredAt, ap.loc)
	kind := tenantCfg.Classify(localSeconds)
	if kind == models.AttendanceOutside {
		ap.skip(ctx, "[%s] badge %s at %s outside attendance windows, skipping",
			tenantID, ev.BadgeID, util.FormatSecondsOfDay(localSeconds))
		return
	}

	templates, err := ap.configs.GetTemplates(ctx, ev.TenantKey)
	if err != nil {
		ap.l.Warnf(ctx, "[%s] template lookup for %s failed, using defaults: %v", tenantID, ev.TenantKey, err)
		templates = nil
	}

	body := selectTemplateBody(templates, kind.TemplateKind())
	text := RenderTemplate(body, TemplateFields{
		StudentName:  student.Name,
		GuardianName: student.GuardianName,
		Time:         util.PrettyClockTime(ev.OccurredAt, ap.loc),
		ClassName:    student.StandardName,
		TenantName:   tenantCfg.Name,
	})

	if err := ap.sender.SendText(ctx, tenantID, student.GuardianContact, text); err != nil {
		ap.incrementErrorCount()
		ap.l.Errorf(ctx, "[%s] failed to notify guardian of badge %s: %v", tenantID, ev.BadgeID, err)
		return
	}

	ap.mu.Lock()
	ap.totalSent++
	ap.mu.Unlock()

	ap.l.Infof(ctx, "[%s] %s notification sent for badge %s", tenantID, kind, ev.BadgeID)

	if ap.producer != nil {
		if err := ap.producer.PublishNotificationSent(ctx, kafka.NotificationSentEvent{
			MessageID: uuid.NewString(),
			TenantID:  tenantID,
			BadgeID:   ev.BadgeID,
			Kind:      string(kind),
			Recipient: student.GuardianContact,
		}); err != nil {
			ap.l.Errorf(ctx, "failed to publish notification sent event: %v", err)
		}
	}
}

func (ap *attendanceProcessor) skip(ctx context.Context, format string, args ...any) {
	ap.mu.Lock()
	ap.totalSkipped++
	ap.mu.Unlock()
	ap.l.Debugf(ctx, format, args...)
}

func (ap *attendanceProcessor) incrementErrorCount() {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	ap.errorCount++
}

func (ap *attendanceProcessor) GetStatus() ProcessorStatus {
	ap.mu.RLock()
	defer ap.mu.RUnlock()

	return ProcessorStatus{
		IsRunning:     ap.isRunning,
		StartedAt:     ap.startedAt,
		LastProcessed: ap.lastProcessed,
		TotalSent:     ap.totalSent,
		TotalSkipped:  ap.totalSkipped,
		TicksSkipped:  ap.ticksSkipped,
		ErrorCount:    ap.errorCount,
	}
}
