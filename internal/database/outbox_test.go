package database

import (
	"context"
	"testing"
	"time"

	"skirental/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.OutboxTask{
		Recipient:   "ewa@example.com",
		TemplateKey: models.TemplateRentCreatedCustomer,
		Payload:     `{"rent":"RENT/1"}`,
	}
	require.NoError(t, db.CreateOutboxTask(ctx, task))
	assert.NotZero(t, task.ID)
	assert.Equal(t, models.OutboxStatusPending, task.Status)

	future := time.Now().Add(time.Hour)
	later := &models.OutboxTask{Recipient: "x@example.com", TemplateKey: "k", Payload: "{}", NextRetryAt: &future}
	require.NoError(t, db.CreateOutboxTask(ctx, later))

	pending, err := db.GetPendingOutboxTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, task.ID, pending[0].ID)

	next := time.Now().Add(-time.Second)
	require.NoError(t, db.UpdateOutboxTaskStatus(ctx, task.ID, models.OutboxStatusRetry, "smtp down", &next))
	got, err := db.GetOutboxTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "smtp down", *got.LastError)

	require.NoError(t, db.UpdateOutboxTaskStatus(ctx, task.ID, models.OutboxStatusFailed, "gave up", nil))
	failed, err := db.GetFailedOutboxTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.NotNil(t, failed[0].ProcessedAt)

	require.NoError(t, db.UpdateOutboxTaskStatus(ctx, later.ID, models.OutboxStatusCompleted, "", nil))
	got, err = db.GetOutboxTask(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxStatusCompleted, got.Status)
	assert.Nil(t, got.LastError)
}
