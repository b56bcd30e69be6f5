package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/bazarpepe/orders/internal/messaging/kafka"
)

// connectKafka подключает продюсер к брокерам из конфигурации и возвращает
// его вместе с функцией остановки. Отсутствие брокеров — валидный режим:
// события остаются в outbox, пока брокер не появится.
func connectKafka(cfg Config, logger *log.Entry) (*kafka.Producer, func()) {
	noop := func() {}

	brokers := splitBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		logger.Info("kafka не настроена, события заказов копятся в outbox")
		return nil, noop
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("kafka недоступна, события заказов копятся в outbox")
		return nil, noop
	}

	logger.WithField("brokers", brokers).Info("kafka producer подключён")
	return producer, func() {
		if err := producer.Close(); err != nil {
			logger.WithError(err).Warn("ошибка при остановке kafka producer")
		}
	}
}

// splitBrokers разбирает строку вида "host1:9092, host2:9092" в список адресов.
func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
