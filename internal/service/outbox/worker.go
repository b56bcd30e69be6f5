package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/bazarpepe/orders/internal/domain"
)

const (
	defaultPollInterval   = time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
	maxRetryDelay         = 30 * time.Second
)

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_outbox_published_total",
		Help: "Events delivered to the broker from the transactional outbox.",
	})
	publishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_outbox_publish_failures_total",
		Help: "Publish failures by stage: attempt, exhausted, dead_letter.",
	}, []string{"stage"})
	backlogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orders_outbox_backlog_size",
		Help: "Pending events in the transactional outbox.",
	})
	backlogOldestAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orders_outbox_backlog_oldest_age_seconds",
		Help: "Age of the oldest pending outbox event.",
	})
)

// Deps — зависимости и настройки воркера. Нулевые интервалы и лимиты
// заменяются значениями по умолчанию; RetryBaseDelay < 0 отключает
// паузы между попытками.
type Deps struct {
	Repo       domain.OutboxRepository
	Publisher  domain.OutboxPublisher
	DeadLetter domain.OutboxPublisher
	Logger     *log.Entry

	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Worker перекладывает pending-события из outbox в брокер. События батча
// публикуются последовательно; исчерпавшие попытки уходят в dead letter
// topic и помечаются failed.
type Worker struct {
	repo       domain.OutboxRepository
	publisher  domain.OutboxPublisher
	deadLetter domain.OutboxPublisher
	logger     *log.Entry

	pollEvery   time.Duration
	batchSize   int
	maxAttempts int
	retryBase   time.Duration
}

// NewWorker собирает воркер, подставляя значения по умолчанию вместо
// незаполненных настроек.
func NewWorker(deps Deps) *Worker {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-worker")
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = defaultPollInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = defaultMaxAttempts
	}
	switch {
	case deps.RetryBaseDelay == 0:
		deps.RetryBaseDelay = defaultRetryBaseDelay
	case deps.RetryBaseDelay < 0:
		deps.RetryBaseDelay = 0
	}

	return &Worker{
		repo:        deps.Repo,
		publisher:   deps.Publisher,
		deadLetter:  deps.DeadLetter,
		logger:      logger,
		pollEvery:   deps.PollInterval,
		batchSize:   deps.BatchSize,
		maxAttempts: deps.MaxAttempts,
		retryBase:   deps.RetryBaseDelay,
	}
}

// Run опрашивает outbox с заданным интервалом до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	w.Drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain обрабатывает один батч pending-событий и возвращает число
// опубликованных и окончательно неудачных.
func (w *Worker) Drain(ctx context.Context) (published, failed int) {
	if ctx.Err() != nil {
		return 0, 0
	}

	w.observeBacklog()

	batch, err := w.repo.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("outbox poll failed")
		return 0, 0
	}

	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}

		if err := w.deliver(ctx, msg); err != nil {
			failed++
			w.logger.WithError(err).WithFields(log.Fields{
				"outbox_id":  msg.ID,
				"event_type": msg.EventType,
			}).Error("event publish exhausted all attempts")
			publishFailures.WithLabelValues("exhausted").Inc()

			w.toDeadLetter(msg, err)
			if markErr := w.repo.MarkFailed(msg.ID); markErr != nil {
				w.logger.WithError(markErr).WithField("outbox_id", msg.ID).Warn("cannot mark outbox event failed")
			}
			continue
		}

		published++
		publishedTotal.Inc()
		if err := w.repo.MarkSent(msg.ID); err != nil {
			w.logger.WithError(err).WithField("outbox_id", msg.ID).Warn("cannot mark outbox event sent")
		}
	}

	if len(batch) > 0 {
		w.observeBacklog()
	}
	return published, failed
}

// deliver публикует одно событие, повторяя попытки с растущей паузой.
func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = w.publisher.Publish(msg)
		if lastErr == nil {
			return nil
		}
		publishFailures.WithLabelValues("attempt").Inc()

		if attempt >= w.maxAttempts {
			return fmt.Errorf("%d attempts: %w", attempt, lastErr)
		}
		if err := sleepCtx(ctx, retryDelay(w.retryBase, attempt)); err != nil {
			return err
		}
	}
}

// deadLetterRecord описывает событие, отправляемое в dead letter topic.
type deadLetterRecord struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
}

func (w *Worker) toDeadLetter(msg domain.OutboxMessage, cause error) {
	if w.deadLetter == nil {
		return
	}

	body, err := json.Marshal(deadLetterRecord{
		OutboxID:      msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
		Reason:        cause.Error(),
		FailedAt:      time.Now().UTC(),
	})
	if err != nil {
		w.logger.WithError(err).WithField("outbox_id", msg.ID).Warn("cannot marshal dead letter record")
		return
	}

	dead := msg
	dead.Payload = body
	if err := w.deadLetter.Publish(dead); err != nil {
		publishFailures.WithLabelValues("dead_letter").Inc()
		w.logger.WithError(err).WithField("outbox_id", msg.ID).Warn("dead letter publish failed")
	}
}

func (w *Worker) observeBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("cannot read outbox backlog stats")
		return
	}

	backlogSize.Set(float64(stats.PendingCount))

	age := 0.0
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		if since := time.Since(stats.OldestPendingAt).Seconds(); since > 0 {
			age = since
		}
	}
	backlogOldestAge.Set(age)
}

// retryDelay удваивает базовую паузу после каждой неудачной попытки,
// но не дольше maxRetryDelay.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base << (attempt - 1)
	if delay <= 0 || delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
