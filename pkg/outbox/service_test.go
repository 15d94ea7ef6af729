package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInTransaction(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	ctx := context.Background()

	userID := int64(5)
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventStockLow,
			AggregateType: enums.AggregateProduct,
			AggregateID:   "12",
			Actor:         &ActorRef{UserID: &userID},
			Data:          payloads.StockLowEvent{ProductID: 12, Remaining: 1, Threshold: 10},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "12", rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal([]byte(rows[0].Payload), &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, userID, *envelope.Actor.UserID)

	var data payloads.StockLowEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, 1, data.Remaining)
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	client := dbtest.NewSQLite(t)
	svc := NewService(NewRepository(client.DB()), nil)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "1",
			Data:          payloads.OrderCreatedEvent{OrderID: 1},
		}); err != nil {
			return err
		}
		return errors.New("order insert failed")
	})
	require.Error(t, err)

	pending, err := NewRepository(client.DB()).CountPending()
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestEmitValidatesEvent(t *testing.T) {
	client := dbtest.NewSQLite(t)
	svc := NewService(NewRepository(client.DB()), nil)
	ctx := context.Background()

	require.Error(t, svc.Emit(ctx, nil, DomainEvent{}))
	require.Error(t, svc.Emit(ctx, client.DB(), DomainEvent{EventType: "bogus", AggregateID: "1"}))
	require.Error(t, svc.Emit(ctx, client.DB(), DomainEvent{EventType: enums.EventOrderCreated}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	dlq := NewDLQRepository(client.DB())
	svc := NewService(repo, nil)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
			return svc.Emit(ctx, tx, DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   id,
				Data:          payloads.OrderCreatedEvent{},
			})
		}))
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		require.NoError(t, repo.MarkPublishedTx(tx, rows[0].ID))
		require.NoError(t, repo.MarkFailedTx(tx, rows[1].ID, errors.New("deadline exceeded")))

		msg := "bad payload"
		require.NoError(t, dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       rows[2].ID,
			EventType:     rows[2].EventType,
			AggregateType: rows[2].AggregateType,
			AggregateID:   rows[2].AggregateID,
			Payload:       rows[2].Payload,
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			ErrorMessage:  &msg,
		}))
		return repo.MarkTerminalTx(tx, rows[2].ID, errors.New(msg), 3)
	})
	require.NoError(t, err)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 1, "published and terminal rows are skipped")
		assert.Equal(t, 1, rows[0].AttemptCount)
		require.NotNil(t, rows[0].LastError)
		assert.Equal(t, "deadline exceeded", *rows[0].LastError)
		return nil
	})
	require.NoError(t, err)

	entries, err := dlq.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	found, err := dlq.FindByEventID(ctx, entries[0].EventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, found.ErrorReason)
}

func TestDeletePublishedBeforeKeepsRecentAndRetryableRows(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)
	published := old

	rows := []models.OutboxEvent{
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "1", Payload: "{}", CreatedAt: old, PublishedAt: &published},
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "2", Payload: "{}", CreatedAt: old, AttemptCount: 5},
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "3", Payload: "{}", CreatedAt: old, AttemptCount: 1},
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "4", Payload: "{}"},
	}
	for _, row := range rows {
		require.NoError(t, client.DB().Create(&row).Error)
	}

	var deleted int64
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := repo.DeletePublishedBefore(ctx, tx, time.Now().UTC().Add(-24*time.Hour), 5)
		deleted = n
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []string
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Order("aggregate_id").Pluck("aggregate_id", &remaining).Error)
	assert.Equal(t, []string{"3", "4"}, remaining)
}
