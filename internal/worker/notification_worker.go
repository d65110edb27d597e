package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skirental/internal/metrics"
	"skirental/internal/models"
	"skirental/internal/notify"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// OutboxStore persists notifications until the publisher accepted them.
type OutboxStore interface {
	CreateOutboxTask(ctx context.Context, task *models.OutboxTask) error
	GetOutboxTask(ctx context.Context, id int64) (*models.OutboxTask, error)
	GetPendingOutboxTasks(ctx context.Context, limit int) ([]models.OutboxTask, error)
	UpdateOutboxTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	GetFailedOutboxTasks(ctx context.Context) ([]models.OutboxTask, error)
}

type Options struct {
	QueueSize    int
	PollInterval time.Duration
	BatchSize    int
}

// NotificationWorker implements domain.Notifier. Notify writes the message to the outbox and
// schedules it through redis or the in-memory queue; Start delivers scheduled and due tasks
// to the publisher with exponential backoff between attempts.
type NotificationWorker struct {
	store         OutboxStore
	publisher     notify.Publisher
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.OutboxTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

func NewNotificationWorker(store OutboxStore, publisher notify.Publisher, redisClient *redis.Client, retry RetryPolicy, opts Options, logger *zerolog.Logger) *NotificationWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = models.WorkerQueueSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "notification_worker").Logger()

	return &NotificationWorker{
		store:         store,
		publisher:     publisher,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.OutboxTask, opts.QueueSize),
		redisQueueKey: "notifications:queue",
		deadLetterKey: "notifications:deadletter",
		pollInterval:  opts.PollInterval,
		batchSize:     opts.BatchSize,
		logger:        &l,
	}
}

// Notify persists the notification and schedules its delivery.
func (w *NotificationWorker) Notify(ctx context.Context, n models.Notification) error {
	if n.Recipient == "" {
		return errors.New("notification recipient is required")
	}
	if n.TemplateKey == "" {
		return errors.New("notification template is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	task := models.OutboxTask{
		Recipient:   n.Recipient,
		TemplateKey: n.TemplateKey,
		Payload:     string(payload),
		Status:      models.OutboxStatusPending,
	}
	if err := w.store.CreateOutboxTask(ctx, &task); err != nil {
		metrics.IncNotification("enqueue_error")
		return fmt.Errorf("persist outbox task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("Redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("Memory queue full, task left to polling")
	}
	return nil
}

// Start runs the delivery loop until ctx is done.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Notification worker started")
	defer w.logger.Info().Msg("Notification worker stopped")

	if _, err := w.ReportFailed(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Failed to inspect dead-lettered notifications")
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		n, err := w.processDue(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to fetch due notifications")
		}
		if err != nil || n == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// ReportFailed counts tasks left in the failed state by earlier runs, publishes the count
// and logs the most recent ones.
func (w *NotificationWorker) ReportFailed(ctx context.Context) (int, error) {
	tasks, err := w.store.GetFailedOutboxTasks(ctx)
	if err != nil {
		return 0, err
	}
	metrics.SetFailedNotifications(len(tasks))
	if len(tasks) == 0 {
		return 0, nil
	}

	const shown = 5
	ids := make([]int64, 0, shown)
	for i := 0; i < len(tasks) && i < shown; i++ {
		ids = append(ids, tasks[i].ID)
	}
	w.logger.Warn().Int("failed", len(tasks)).Ints64("latest_task_ids", ids).Msg("Dead-lettered notifications pending review")
	return len(tasks), nil
}

// processDue delivers one batch of pending and due retry tasks from the store.
func (w *NotificationWorker) processDue(ctx context.Context) (int, error) {
	tasks, err := w.store.GetPendingOutboxTasks(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks), nil
}

func (w *NotificationWorker) tryLocalQueue() (models.OutboxTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.OutboxTask{}, false
	}
}

func (w *NotificationWorker) tryRedis(ctx context.Context) (models.OutboxTask, bool) {
	if w.redis == nil {
		return models.OutboxTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("Redis BRPOP failed")
		}
		return models.OutboxTask{}, false
	}
	if len(res) != 2 {
		return models.OutboxTask{}, false
	}
	var task models.OutboxTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Failed to decode queued task")
		return models.OutboxTask{}, false
	}
	return task, true
}

func (w *NotificationWorker) processTask(ctx context.Context, task *models.OutboxTask) {
	// queued copies may be stale: the poller can have handled the row already
	current, err := w.store.GetOutboxTask(ctx, task.ID)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to load outbox task")
		return
	}
	if current.Status == models.OutboxStatusCompleted || current.Status == models.OutboxStatusFailed {
		return
	}
	*task = *current

	n, err := decodeNotification(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.publisher.Publish(ctx, n); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.store.UpdateOutboxTaskStatus(ctx, task.ID, models.OutboxStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark task completed")
	}
	metrics.IncNotification("sent")
}

func (w *NotificationWorker) retryOrFail(ctx context.Context, task *models.OutboxTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	next := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.store.UpdateOutboxTaskStatus(ctx, task.ID, models.OutboxStatusRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to schedule retry")
	}
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry_at", next).Msg("Notification delivery failed")
	metrics.IncNotification("retry")
}

func (w *NotificationWorker) failTask(ctx context.Context, task *models.OutboxTask, cause error) {
	if err := w.store.UpdateOutboxTaskStatus(ctx, task.ID, models.OutboxStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark task failed")
	}
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("recipient", task.Recipient).Msg("Notification dropped")
	metrics.IncNotification("failed")
	metrics.IncFailedNotifications()
	w.pushDeadLetter(ctx, task)
}

func decodeNotification(raw string) (models.Notification, error) {
	var n models.Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return n, err
	}
	return n, nil
}

func (w *NotificationWorker) pushRedis(ctx context.Context, task models.OutboxTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *NotificationWorker) pushDeadLetter(ctx context.Context, task *models.OutboxTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to encode dead letter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to push dead letter")
	}
}
