package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/db/dbtest"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
)

func TestEmitStoresEnvelope(t *testing.T) {
	client := dbtest.Client(t, &models.OutboxEvent{})
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)

	orderID := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          map[string]string{"order_id": orderID.String()},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, orderID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.JSONEq(t, `{"order_id":"`+orderID.String()+`"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	client := dbtest.Client(t, &models.OutboxEvent{})
	svc := NewService(NewRepository(client.DB()), nil)

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitValidation(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderPaid}))

	client := dbtest.Client(t, &models.OutboxEvent{})
	err := svc.Emit(context.Background(), client.DB(), DomainEvent{EventType: "coupon_minted"})
	require.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.Client(t, &models.OutboxEvent{})
	repo := NewRepository(client.DB())
	db := client.DB()

	first := models.OutboxEvent{EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	second := models.OutboxEvent{EventType: enums.EventOrderDelivered, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Insert(db, first))
	require.NoError(t, repo.Insert(db, second))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(db, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(db, rows[1].ID, errors.New("pubsub unavailable")))

	require.EqualValues(t, 1, countUnpublished(t, db))

	var failed models.OutboxEvent
	require.NoError(t, db.First(&failed, "id = ?", rows[1].ID).Error)
	require.Equal(t, 1, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	require.Equal(t, "pubsub unavailable", *failed.LastError)

	require.NoError(t, repo.MarkTerminalTx(db, rows[1].ID, errors.New("gave up"), 3))
	require.Zero(t, countUnpublished(t, db))

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(48*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)
}

func TestDLQRepository(t *testing.T) {
	client := dbtest.Client(t, &models.OutboxDLQ{})
	repo := NewDLQRepository(client.DB())

	long := make([]byte, maxDLQErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	require.NoError(t, repo.InsertTx(client.DB(), models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
	}))

	found, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, *found.ErrorMessage, maxDLQErrorLen)

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)

	purged, err := repo.DeleteFailedBefore(context.Background(), time.Now().UTC().Add(48*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}

func countUnpublished(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("published_at IS NULL").Count(&count).Error)
	return count
}
