package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestRepositoryReads(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list decodes raw documents", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		ns := mt.DB.Name() + "." + productsCollection
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: oid}, {Key: "title", Value: "Kaju Katli"}, {Key: "price", Value: int32(500)}},
			),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch,
				bson.D{{Key: "_id", Value: "legacy-1"}, {Key: "productName", Value: "Rasgulla"}},
			),
		)

		docs, err := NewRepository(mt.DB).List(context.Background())
		require.NoError(mt, err)
		require.Len(mt, docs, 2)
		assert.Equal(mt, "Kaju Katli", docs[0]["title"])
		assert.Equal(mt, oid.Hex(), FromDocument(docs[0]).ID)
		assert.Equal(mt, "legacy-1", FromDocument(docs[1]).ID)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		ns := mt.DB.Name() + "." + productsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: oid},
				{Key: "title", Value: "Soan Papdi"},
				{Key: "price", Value: 300.0},
				{Key: "discountPrice", Value: int64(250)},
				{Key: "coverImage", Value: "soan.jpg"},
			},
		))

		product, err := NewRepository(mt.DB).FindByID(context.Background(), oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "Soan Papdi", product.DisplayName())
		assert.Equal(mt, "250", product.DisplayPrice().String())
		assert.Equal(mt, "300", product.ListPrice().String())
		assert.Equal(mt, "soan.jpg", product.CoverImage)
	})

	mt.Run("find by id missing", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + productsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := NewRepository(mt.DB).FindByID(context.Background(), "nope")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("find many keys by id", func(mt *mtest.T) {
		first := primitive.NewObjectID()
		ns := mt.DB.Name() + "." + productsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: first}, {Key: "title", Value: "Barfi"}},
			bson.D{{Key: "_id", Value: "p-2"}, {Key: "title", Value: "Ladoo"}},
		))

		found, err := NewRepository(mt.DB).FindMany(context.Background(), []string{first.Hex(), "p-2", "p-2", "gone"})
		require.NoError(mt, err)
		assert.Len(mt, found, 2)
		assert.Equal(mt, "Barfi", found[first.Hex()].Title)
		assert.Equal(mt, "Ladoo", found["p-2"].Title)
		_, ok := found["gone"]
		assert.False(mt, ok)
	})

	mt.Run("find many answers to the requested spelling", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		upper := strings.ToUpper(oid.Hex())
		ns := mt.DB.Name() + "." + productsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: oid}, {Key: "title", Value: "Peda"}},
		))

		found, err := NewRepository(mt.DB).FindMany(context.Background(), []string{upper, oid.Hex()})
		require.NoError(mt, err)
		assert.Equal(mt, "Peda", found[upper].Title)
		assert.Equal(mt, "Peda", found[oid.Hex()].Title)
	})

	mt.Run("categories", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + siteInfoCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "categories", Value: bson.A{"Barfi", "Ladoo"}}},
		))

		categories, err := NewRepository(mt.DB).Categories(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []string{"Barfi", "Ladoo"}, categories)
	})

	mt.Run("driver errors surface", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11600, Message: "shutdown"}))

		_, err := NewRepository(mt.DB).Featured(context.Background())
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrNotFound)
	})
}
