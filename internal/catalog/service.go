package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
)

// AllCategory is always listed first.
const AllCategory = "All"

type productReader interface {
	List(ctx context.Context) ([]bson.M, error)
	Featured(ctx context.Context) ([]bson.M, error)
	HotDeals(ctx context.Context) ([]bson.M, error)
	FindByID(ctx context.Context, id string) (*Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// Service serves the public catalog endpoints.
type Service interface {
	List(ctx context.Context) ([]bson.M, error)
	Featured(ctx context.Context) ([]bson.M, error)
	HotDeals(ctx context.Context) ([]bson.M, error)
	Get(ctx context.Context, id string) (bson.M, error)
	Categories(ctx context.Context) ([]string, error)
}

type service struct {
	repo productReader
}

// NewService builds the catalog read service.
func NewService(repo productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]bson.M, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return docs, nil
}

func (s *service) Featured(ctx context.Context) ([]bson.M, error) {
	docs, err := s.repo.Featured(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	return docs, nil
}

func (s *service) HotDeals(ctx context.Context) ([]bson.M, error) {
	docs, err := s.repo.HotDeals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list hot deals")
	}
	return docs, nil
}

func (s *service) Get(ctx context.Context, id string) (bson.M, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find product")
	}
	return product.Raw, nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load categories")
	}
	if len(categories) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no categories found")
	}
	return append([]string{AllCategory}, categories...), nil
}
