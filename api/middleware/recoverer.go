package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/meltedmeethas/storefront-backend/api/responses"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 error envelope. An aborted
// handler is re-panicked so net/http drops the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				err := fmt.Errorf("panic in %s %s: %v", r.Method, routePattern(r), rec)
				ctx := r.Context()
				if logg != nil {
					logg.Error(logg.WithField(ctx, "panic", fmt.Sprint(rec)), "handler panicked", err)
				}
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
