package cart

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/pkg/db/dbtest"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
)

func TestAddItemWithUppercaseHexKeepsRow(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stored under catalog id", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		ns := mt.DB.Name() + ".products"
		doc := bson.D{{Key: "_id", Value: oid}, {Key: "title", Value: "Milk Cake"}, {Key: "price", Value: int32(400)}}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, doc),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, doc),
		)

		repo := NewRepository(dbtest.Open(mt, &models.CartItem{}))
		svc, err := NewService(repo, catalog.NewRepository(mt.DB), nil)
		require.NoError(mt, err)

		userID := uuid.New()
		lines, err := svc.AddItem(context.Background(), userID, strings.ToUpper(oid.Hex()), 2)
		require.NoError(mt, err)
		require.Len(mt, lines, 1)
		assert.Equal(mt, "Milk Cake", lines[0].Product.DisplayName())

		stored, err := repo.List(context.Background(), userID)
		require.NoError(mt, err)
		require.Len(mt, stored, 1)
		assert.Equal(mt, oid.Hex(), stored[0].ProductID)
		assert.Equal(mt, 2, stored[0].Quantity)
	})
}

func TestRemoveAndSetQuantityAcceptAnyHexCase(t *testing.T) {
	oid := primitive.NewObjectID()
	products := &stubCatalog{products: map[string]catalog.Product{
		oid.Hex(): catalog.FromDocument(bson.M{"_id": oid, "title": "Barfi", "price": 300}),
	}}
	svc, repo := newTestService(t, products)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.AddItem(ctx, userID, oid.Hex(), 1)
	require.NoError(t, err)

	lines, err := svc.SetQuantity(ctx, userID, strings.ToUpper(oid.Hex()), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, lines[0].Item.Quantity)

	require.NoError(t, svc.RemoveItem(ctx, userID, strings.ToUpper(oid.Hex())))
	stored, err := repo.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
