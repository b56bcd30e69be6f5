package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bazarpepe/orders/internal/domain"
)

// Статусы записей outbox в колонке status.
const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

const (
	outboxInsertSQL = `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7)`

	outboxPendingSQL = `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2`

	outboxStatsSQL = `
		SELECT COUNT(*), MIN(created_at)
		FROM outbox_messages
		WHERE status = $1`

	outboxTransitionSQL = `
		UPDATE outbox_messages
		SET status = $2,
		    attempt_count = attempt_count + 1,
		    updated_at = $3
		WHERE id = $1`
)

// outboxQueue хранит события transactional outbox в PostgreSQL.
// Выдача идёт в порядке created_at, чтобы события одного заказа
// публиковались в исходной последовательности.
type outboxQueue struct {
	db *sql.DB
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxQueue{db: store.DB()}
}

func (q *outboxQueue) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := opContext()
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	_, err := q.db.ExecContext(ctx, outboxInsertSQL,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload,
		outboxStatusPending, time.Now().UTC(),
	)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox event: %w", err)
	}
	return msg, nil
}

func (q *outboxQueue) PullPending(limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := opContext()
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := q.db.QueryContext(ctx, outboxPendingSQL, outboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending outbox events: %w", err)
	}
	defer rows.Close()

	batch := make([]domain.OutboxMessage, 0, limit)
	for rows.Next() {
		var msg domain.OutboxMessage
		err := rows.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Payload)
		if err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		batch = append(batch, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read outbox events: %w", err)
	}
	return batch, nil
}

func (q *outboxQueue) Stats() (domain.OutboxStats, error) {
	ctx, cancel := opContext()
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	err := q.db.QueryRowContext(ctx, outboxStatsSQL, outboxStatusPending).
		Scan(&stats.PendingCount, &oldest)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("read outbox backlog stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

func (q *outboxQueue) MarkSent(id string) error {
	return q.transition(id, outboxStatusSent)
}

func (q *outboxQueue) MarkFailed(id string) error {
	return q.transition(id, outboxStatusFailed)
}

// transition переводит запись в следующий статус, наращивая attempt_count.
// Неизвестный id — это ErrOutboxPublish: воркер не должен терять события молча.
func (q *outboxQueue) transition(id, next string) error {
	ctx, cancel := opContext()
	defer cancel()

	res, err := q.db.ExecContext(ctx, outboxTransitionSQL, id, next, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark outbox event %s: %w", next, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("outbox transition rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOutboxPublish
	}
	return nil
}

// opContext ограничивает каждую операцию репозитория общим таймаутом.
func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

var _ domain.OutboxRepository = (*outboxQueue)(nil)
