package portal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/denportal/wagate/config"
	"github.com/denportal/wagate/pkg/logger"
)

// Scheduler runs the portal's periodic jobs: admin alert kicks and full
// cache refreshes. Failures are logged and retried on the next tick.
type Scheduler struct {
	client Client
	l      logger.Logger

	alertInterval time.Duration
	cacheInterval time.Duration

	mu        sync.Mutex
	isRunning bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewScheduler(client Client, cfg config.PortalConfig, l logger.Logger) *Scheduler {
	return &Scheduler{
		client:        client,
		l:             l,
		alertInterval: cfg.AdminAlertInterval,
		cacheInterval: cfg.CacheSyncInterval,
		stopCh:        make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return errors.New("portal scheduler is already running")
	}
	s.isRunning = true

	s.l.Infof(ctx, "starting portal scheduler (alerts every %v, cache sync every %v)", s.alertInterval, s.cacheInterval)

	s.wg.Add(2)
	go s.runJob(ctx, s.alertInterval, "admin alerts", s.client.SendAdminAlerts)
	go s.runJob(ctx, s.cacheInterval, "cache refresh", s.client.RefreshCache)

	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.isRunning = false

	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, interval time.Duration, name string, job func(context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := job(ctx); err != nil {
				s.l.Errorf(ctx, "portal %s job failed: %v", name, err)
			} else {
				s.l.Debugf(ctx, "portal %s job completed", name)
			}
		}
	}
}
