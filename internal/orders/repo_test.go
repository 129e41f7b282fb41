package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/db"
	"github.com/meltedmeethas/storefront-backend/pkg/db/dbtest"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
)

func seedUser(t *testing.T, conn *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{
		Name:         "Meera",
		Email:        email,
		PasswordHash: "hash",
		Phone:        "9876543210",
		Address:      "12 MG Road",
		City:         "Pune",
		State:        "MH",
		Pincode:      "411001",
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, gatewayID string, orderedAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		UserID:           userID,
		GatewayOrderID:   gatewayID,
		GatewayPaymentID: "pay_" + gatewayID,
		PaymentStatus:    enums.PaymentStatusPaid,
		Status:           enums.OrderStatusPending,
		Subtotal:         decimal.NewFromInt(900),
		Total:            decimal.NewFromInt(900),
		OrderedAt:        orderedAt,
		Items: []models.OrderItem{{
			ProductID:   "p1",
			Quantity:    2,
			ProductName: "Kaju Katli",
			UnitPrice:   decimal.NewFromInt(450),
			ListPrice:   decimal.NewFromInt(500),
			CoverImage:  "kaju.jpg",
		}},
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), &order))
	return order
}

func TestRepositoryCreateAndFind(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := seedUser(t, conn, "meera@example.com")

	order := seedOrder(t, conn, user.ID, "order_1", time.Now().UTC())

	byGateway, err := repo.FindByGatewayID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byGateway.ID)
	require.Len(t, byGateway.Items, 1)
	assert.Equal(t, "Kaju Katli", byGateway.Items[0].ProductName)
	assert.True(t, byGateway.Items[0].UnitPrice.Equal(decimal.NewFromInt(450)))

	_, err = repo.FindForUser(ctx, order.ID, uuid.New())
	assert.True(t, db.IsNotFound(err), "orders are scoped to their owner")

	duplicate := models.Order{
		UserID:           user.ID,
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_x",
		PaymentStatus:    enums.PaymentStatusPaid,
		Status:           enums.OrderStatusPending,
		OrderedAt:        time.Now().UTC(),
	}
	err = repo.Create(ctx, &duplicate)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, "orders_gateway_order_id_key"))
}

func TestRepositoryListByUserNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	user := seedUser(t, conn, "list@example.com")
	other := seedUser(t, conn, "other@example.com")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	older := seedOrder(t, conn, user.ID, "order_old", base)
	newer := seedOrder(t, conn, user.ID, "order_new", base.Add(time.Hour))
	seedOrder(t, conn, other.ID, "order_other", base.Add(2*time.Hour))

	rows, err := repo.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
	assert.Len(t, rows[0].Items, 1)
}

func TestRepositoryDeletePendingGuard(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := seedUser(t, conn, "guard@example.com")
	order := seedOrder(t, conn, user.ID, "order_guard", time.Now().UTC())

	removed, err := repo.DeletePending(ctx, order.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, removed, "another user cannot delete the order")

	delivered, err := repo.MarkDelivered(ctx, order.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, delivered)

	removed, err = repo.DeletePending(ctx, order.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, removed, "delivered orders are not deletable")

	var items int64
	require.NoError(t, conn.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items).Error)
	assert.Equal(t, int64(1), items)
}

func TestRepositoryDeletePendingRemovesItems(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := seedUser(t, conn, "remove@example.com")
	order := seedOrder(t, conn, user.ID, "order_remove", time.Now().UTC())

	removed, err := repo.DeletePending(ctx, order.ID, user.ID)
	require.NoError(t, err)
	require.True(t, removed)

	_, err = repo.FindByID(ctx, order.ID)
	assert.True(t, db.IsNotFound(err))
	var items int64
	require.NoError(t, conn.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items).Error)
	assert.Zero(t, items)
}

func TestRepositoryMarkDeliveredOnce(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := seedUser(t, conn, "deliver@example.com")
	order := seedOrder(t, conn, user.ID, "order_deliver", time.Now().UTC())

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	updated, err := repo.MarkDelivered(ctx, order.ID, at)
	require.NoError(t, err)
	require.True(t, updated)

	again, err := repo.MarkDelivered(ctx, order.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, again)

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, loaded.Status)
	require.NotNil(t, loaded.DeliveredAt)
	assert.True(t, loaded.DeliveredAt.Equal(at))
}
