package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/bazarpepe/orders/internal/health"
	"github.com/bazarpepe/orders/internal/messaging/kafka"
	"github.com/bazarpepe/orders/internal/metrics"
	"github.com/bazarpepe/orders/internal/service/orders"
	"github.com/bazarpepe/orders/internal/service/outbox"
	"github.com/bazarpepe/orders/internal/service/pricing"
	"github.com/bazarpepe/orders/internal/service/rest"
	"github.com/bazarpepe/orders/internal/version"
)

// Run собирает зависимости и запускает HTTP API, сервер метрик и
// outbox worker до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	repos, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repos.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close storage")
		}
	}()

	kafkaProducer, stopKafka := connectKafka(cfg, logger)
	defer stopKafka()

	orderMetrics := metrics.NewOrderMetrics()
	service := orders.NewService(orders.Deps{
		Orders:  repos.Orders,
		Items:   repos.Items,
		Pricing: pricing.NewResolver(repos.Products),
		Mapper:  orders.NewMapper(repos.Products, repos.Users),
		History: repos.History,
		Outbox:  repos.Outbox,
		Metrics: orderMetrics,
		Logger:  logger.WithField("component", "orders"),
	})

	// Worker публикует pending-сообщения outbox в Kafka; без брокера
	// сообщения остаются в бэклоге.
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, cfg.OrderEventsTopic)
		dlqTopic := cfg.DLQTopic
		if dlqTopic == "" {
			dlqTopic = kafka.TopicDeadLetterQueue
		}
		worker := outbox.NewWorker(outbox.Deps{
			Repo:           repos.Outbox,
			Publisher:      publisher,
			DeadLetter:     kafka.NewOutboxPublisher(kafkaProducer, dlqTopic),
			Logger:         logger.WithField("component", "outbox-worker"),
			PollInterval:   cfg.OutboxPollInterval,
			BatchSize:      cfg.OutboxBatchSize,
			MaxAttempts:    cfg.OutboxMaxAttempts,
			RetryBaseDelay: cfg.OutboxRetryDelay,
		})
		go worker.Run(workerCtx)
	}

	healthHandler := healthcheck.NewHandler(version.String())
	if repos.HealthCheck != nil {
		healthHandler.RegisterChecker("storage", healthcheck.NamedCheck("storage", repos.HealthCheck))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiHandler := rest.NewHandler(service, logger.WithField("component", "rest"))
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: apiHandler.Routes()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus
// вместе с health-пробами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
