package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltedmeethas/storefront-backend/pkg/db/dbtest"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
)

func TestConsumeIsSingleUse(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.Coupon{}))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Coupon{Code: "SWEET10"}))

	first, err := repo.Consume(ctx, "SWEET10", uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.Consume(ctx, "SWEET10", uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, second)

	unknown, err := repo.Consume(ctx, "NOPE", uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, unknown)

	stored, err := repo.FindByCode(ctx, "SWEET10")
	require.NoError(t, err)
	assert.True(t, stored.IsUsed)
	require.NotNil(t, stored.UsedBy)
	require.NotNil(t, stored.UsedAt)
}

func TestApplyPreviewNeverConsumes(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.Coupon{}))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Coupon{Code: "FLAT150", Discount: decimal.NewNullDecimal(decimal.NewFromInt(150))}))
	require.NoError(t, repo.Create(ctx, &models.Coupon{Code: "DEFAULT"}))

	svc, err := NewService(repo, decimal.NewFromInt(200))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		preview, err := svc.Apply(ctx, "FLAT150")
		require.NoError(t, err)
		assert.True(t, preview.Success)
		assert.True(t, preview.Discount.Equal(decimal.NewFromInt(150)))
	}

	preview, err := svc.Apply(ctx, "DEFAULT")
	require.NoError(t, err)
	assert.True(t, preview.Discount.Equal(decimal.NewFromInt(200)))

	_, err = repo.Consume(ctx, "FLAT150", uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	preview, err = svc.Apply(ctx, "FLAT150")
	require.NoError(t, err)
	assert.False(t, preview.Success)
	assert.Equal(t, "invalid or used coupon", preview.Message)

	preview, err = svc.Apply(ctx, "MISSING")
	require.NoError(t, err)
	assert.False(t, preview.Success)

	_, err = svc.Apply(ctx, " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
