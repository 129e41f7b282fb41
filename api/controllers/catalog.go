package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/meltedmeethas/storefront-backend/api/responses"
	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
)

func CatalogProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogListing(svc, logg, func(ctx context.Context) ([]bson.M, error) { return svc.List(ctx) })
}

func CatalogFeatured(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogListing(svc, logg, func(ctx context.Context) ([]bson.M, error) { return svc.Featured(ctx) })
}

func CatalogHotDeals(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogListing(svc, logg, func(ctx context.Context) ([]bson.M, error) { return svc.HotDeals(ctx) })
}

func catalogListing(svc catalog.Service, logg *logger.Logger, list func(context.Context) ([]bson.M, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}

		products, err := list(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if products == nil {
			products = []bson.M{}
		}
		responses.WriteSuccess(w, products)
	}
}

// CatalogProduct returns one raw product document by id.
func CatalogProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}

		product, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CatalogCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}

		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}
