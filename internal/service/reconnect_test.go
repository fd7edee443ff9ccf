package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/denportal/wagate/pkg/logger"
)

func TestReconnectSupervisorFiresCurrentGeneration(t *testing.T) {
	var mu sync.Mutex
	var restarted []string

	sup := NewReconnectSupervisor(
		5*time.Millisecond,
		func(string, uint64) bool { return true },
		func(tenantID string) {
			mu.Lock()
			restarted = append(restarted, tenantID)
			mu.Unlock()
		},
		logger.InitializeTestZapLogger(),
	)
	sup.Start(context.Background())
	defer sup.Stop()

	sup.Schedule("school-a", 1)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(restarted) == 1 && restarted[0] == "school-a"
	}, time.Second, 5*time.Millisecond)
}

func TestReconnectSupervisorSuppressesStaleGeneration(t *testing.T) {
	var mu sync.Mutex
	restarts := 0

	sup := NewReconnectSupervisor(
		5*time.Millisecond,
		func(_ string, gen uint64) bool { return gen >= 2 },
		func(string) {
			mu.Lock()
			restarts++
			mu.Unlock()
		},
		logger.InitializeTestZapLogger(),
	)
	sup.Start(context.Background())
	defer sup.Stop()

	sup.Schedule("school-a", 1)
	sup.Schedule("school-a", 2)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return restarts == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, restarts)
}

func TestReconnectSupervisorStopDropsPending(t *testing.T) {
	fired := make(chan struct{}, 1)

	sup := NewReconnectSupervisor(
		time.Hour,
		func(string, uint64) bool { return true },
		func(string) { fired <- struct{}{} },
		logger.InitializeTestZapLogger(),
	)
	sup.Start(context.Background())

	sup.Schedule("school-a", 1)
	time.Sleep(10 * time.Millisecond)
	sup.Stop()

	select {
	case <-fired:
		t.Fatal("retry fired after stop")
	case <-time.After(30 * time.Millisecond):
	}
}
