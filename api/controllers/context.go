package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/meltedmeethas/storefront-backend/api/middleware"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
)

// callerID resolves the authenticated user id placed on the request by the
// auth middleware.
func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
