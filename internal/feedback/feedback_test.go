package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltedmeethas/storefront-backend/pkg/db/dbtest"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
)

func TestSubmitStoresFeedback(t *testing.T) {
	conn := dbtest.Open(t, &models.Feedback{})
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), SubmitRequest{
		Name:    " Nisha ",
		Email:   "nisha@example.com",
		Message: "Loved the rasmalai",
	})
	require.NoError(t, err)
	assert.Equal(t, SubmittedMessage, result.Message)

	var rows []models.Feedback
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Nisha", rows[0].Name)
}

func TestSubmitRequiresAllFields(t *testing.T) {
	conn := dbtest.Open(t, &models.Feedback{})
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	for _, req := range []SubmitRequest{
		{Email: "a@example.com", Message: "hi"},
		{Name: "A", Message: "hi"},
		{Name: "A", Email: "a@example.com", Message: "  "},
	} {
		_, err := svc.Submit(context.Background(), req)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		assert.Equal(t, "all fields required", pkgerrors.As(err).Message())
	}

	_, err = svc.Submit(context.Background(), SubmitRequest{Name: "A", Email: "nope", Message: "hi"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
