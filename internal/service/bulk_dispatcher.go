package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/denportal/wagate/config"
	"github.com/denportal/wagate/internal/models"
	"github.com/denportal/wagate/pkg/logger"
)

// BulkDispatcher delivers batches of pre-rendered messages sequentially,
// spacing sends with a random delay to stay under the transport's rate
// heuristics. One batch runs at a time per Dispatch call; a failed item
// never aborts the rest of its batch.
type BulkDispatcher struct {
	sender   TextSender
	l        logger.Logger
	minDelay time.Duration
	maxDelay time.Duration

	wg sync.WaitGroup

	// injection points for tests
	sleep   func(time.Duration)
	randInt func(n int64) int64
}

func NewBulkDispatcher(sender TextSender, cfg config.BulkConfig, l logger.Logger) *BulkDispatcher {
	return &BulkDispatcher{
		sender:   sender,
		l:        l,
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		sleep:    time.Sleep,
		randInt:  rand.Int63n,
	}
}

// Dispatch starts delivering the batch in the background and returns
// immediately. Callers that need completion (tests, shutdown) use Wait.
func (d *BulkDispatcher) Dispatch(tenantID string, msgs []models.BulkMessage) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(context.Background(), tenantID, msgs)
	}()
}

func (d *BulkDispatcher) Wait() {
	d.wg.Wait()
}

func (d *BulkDispatcher) run(ctx context.Context, tenantID string, msgs []models.BulkMessage) {
	sent, failed := 0, 0

	for i, msg := range msgs {
		if msg.PhoneNumber == "" || msg.Message == "" {
			d.l.Warnf(ctx, "[%s] bulk item %d missing phone number or message, skipping", tenantID, i)
			failed++
			continue
		}

		if err := d.sender.SendText(ctx, tenantID, msg.PhoneNumber, msg.Message); err != nil {
			d.l.Errorf(ctx, "[%s] bulk send to %s failed: %v", tenantID, msg.PhoneNumber, err)
			failed++
		} else {
			sent++
		}

		d.sleep(d.nextDelay())
	}

	d.l.Infof(ctx, "[%s] bulk batch done: %d sent, %d failed of %d", tenantID, sent, failed, len(msgs))
}

func (d *BulkDispatcher) nextDelay() time.Duration {
	span := int64(d.maxDelay - d.minDelay)
	if span <= 0 {
		return d.minDelay
	}
	return d.minDelay + time.Duration(d.randInt(span))
}
