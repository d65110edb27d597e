package database

import (
	"context"
	"fmt"
	"time"

	"skirental/internal/models"
)

const outboxColumns = `id, recipient, template_key, payload, status, retry_count, last_error,
	created_at, processed_at, next_retry_at`

func (db *DB) CreateOutboxTask(ctx context.Context, task *models.OutboxTask) error {
	now := time.Now()
	if task.Status == "" {
		task.Status = models.OutboxStatusPending
	}
	id, err := insertID(ctx, db, `INSERT INTO notification_outbox (
			recipient, template_key, payload, status, retry_count, last_error, created_at, next_retry_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		task.Recipient, task.TemplateKey, task.Payload, task.Status, task.RetryCount, task.LastError, now, task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox task: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

func (db *DB) GetOutboxTask(ctx context.Context, id int64) (*models.OutboxTask, error) {
	var t models.OutboxTask
	if err := db.GetContext(ctx, &t, db.Rebind(`SELECT `+outboxColumns+` FROM notification_outbox WHERE id = ?`), id); err != nil {
		return nil, notFound(err, "outbox task", id)
	}
	return &t, nil
}

// GetPendingOutboxTasks returns due pending and retry tasks, oldest first.
func (db *DB) GetPendingOutboxTasks(ctx context.Context, limit int) ([]models.OutboxTask, error) {
	var tasks []models.OutboxTask
	err := db.SelectContext(ctx, &tasks, db.Rebind(`SELECT `+outboxColumns+` FROM notification_outbox
		WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at ASC, id ASC LIMIT ?`),
		models.OutboxStatusPending, models.OutboxStatusRetry, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending outbox tasks: %w", err)
	}
	return tasks, nil
}

func (db *DB) UpdateOutboxTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var lastError *string
	if errMsg != "" {
		lastError = &errMsg
	}

	var query string
	var args []interface{}
	switch status {
	case models.OutboxStatusRetry:
		query = `UPDATE notification_outbox SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, lastError, nextRetryAt, id}
	case models.OutboxStatusCompleted, models.OutboxStatusFailed:
		now := time.Now()
		query = `UPDATE notification_outbox SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, lastError, nextRetryAt, now, id}
	default:
		query = `UPDATE notification_outbox SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, lastError, nextRetryAt, id}
	}

	if _, err := db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to update outbox task status: %w", err)
	}
	return nil
}

func (db *DB) GetFailedOutboxTasks(ctx context.Context) ([]models.OutboxTask, error) {
	var tasks []models.OutboxTask
	err := db.SelectContext(ctx, &tasks, db.Rebind(`SELECT `+outboxColumns+` FROM notification_outbox
		WHERE status = ? ORDER BY created_at DESC`), models.OutboxStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed outbox tasks: %w", err)
	}
	return tasks, nil
}
