package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/denportal/wagate/config"
	httpDelivery "github.com/denportal/wagate/internal/delivery/http"
	"github.com/denportal/wagate/internal/delivery/kafka/producer"
	"github.com/denportal/wagate/internal/media"
	"github.com/denportal/wagate/internal/portal"
	fileRepo "github.com/denportal/wagate/internal/repository/file"
	repo "github.com/denportal/wagate/internal/repository/redis"
	"github.com/denportal/wagate/internal/service"
	"github.com/denportal/wagate/internal/transport"
	pkgKafka "github.com/denportal/wagate/pkg/kafka"
	pkgLog "github.com/denportal/wagate/pkg/logger"
	pkgRedis "github.com/denportal/wagate/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	redisCli, err := pkgRedis.Connect(ctx, cfg.Redis)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
	}
	defer pkgRedis.Disconnect(redisCli)

	queueRepo := repo.NewRedisAttendanceQueueRepository(redisCli, l)
	configRepo := repo.NewRedisConfigRepository(redisCli, l)

	// Kafka producer (optional; lifecycle and notification events)
	var prod producer.Producer
	if cfg.Kafka.Enabled {
		var kafkaSyncProd sarama.SyncProducer
		kafkaSyncProd, err = pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		prod = producer.NewProducer(kafkaSyncProd, l)
		defer prod.Close()
	}

	wireProvider, err := transport.RegisteredProvider()
	if err != nil {
		l.Fatalf(ctx, "Failed to resolve transport provider: %v", err)
	}

	creds := transport.NewFileCredentialStore(cfg.Transport.AuthDir)
	tenants := fileRepo.NewTenantRegistry(cfg.Transport.TenantsFile)

	rules, err := fileRepo.LoadRules(cfg.Transport.RulesFile)
	if err != nil {
		l.Fatalf(ctx, "Failed to load rules from %s: %v", cfg.Transport.RulesFile, err)
	}
	l.Infof(ctx, "Loaded %d rules from %s", len(rules), cfg.Transport.RulesFile)

	// Services
	sessionSvc := service.NewSessionService(wireProvider, creds, tenants, prod, cfg.Transport, l)
	defer sessionSvc.Shutdown()

	portalCli := portal.NewClient(cfg.Portal, l)

	ruleEngine := service.NewRuleEngine(rules, l)
	ruleEngine.Register("subOrUnsubToWhatsapp", service.NewSubscriptionHandler(portalCli, sessionSvc, l))
	sessionSvc.SetInboundHandler(ruleEngine)

	attendanceProc, err := service.NewAttendanceProcessor(queueRepo, configRepo, sessionSvc, tenants, prod, cfg.Attendance, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize attendance processor: %v", err)
	}
	if err := attendanceProc.Start(ctx); err != nil {
		l.Fatalf(ctx, "Failed to start attendance processor: %v", err)
	}
	defer attendanceProc.Stop()

	portalSched := portal.NewScheduler(portalCli, cfg.Portal, l)
	if err := portalSched.Start(ctx); err != nil {
		l.Fatalf(ctx, "Failed to start portal scheduler: %v", err)
	}
	defer portalSched.Stop()

	bulk := service.NewBulkDispatcher(sessionSvc, cfg.Bulk, l)
	fetcher := media.NewFetcher(10 * time.Second)

	// Resume sessions for tenants with stored credentials
	sessionSvc.AutoStart(ctx)

	// HTTP server
	handler := httpDelivery.NewHTTPHandler(sessionSvc, tenants, bulk, fetcher, cfg.Server.APIKey, l)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      httpDelivery.NewRouter(handler, l),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		l.Infof(ctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatalf(ctx, "Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info(ctx, "Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Errorf(ctx, "HTTP shutdown: %v", err)
	}

	cancel()

	l.Info(ctx, "Server exited")
}
