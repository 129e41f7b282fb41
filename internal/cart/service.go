package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
)

// Service defines the cart workflow.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, productID string, quantity int) ([]Line, error)
	SetQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) ([]Line, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, productID string) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) ([]Line, error)
}

type service struct {
	repo     CartRepository
	products ProductLookup
	logg     *logger.Logger
}

// NewService builds the cart service.
func NewService(repo CartRepository, products ProductLookup, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	return &service{repo: repo, products: products, logg: logg}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, productID string, quantity int) ([]Line, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}

	// rows always carry the catalog's own id so later joins find them
	if err := s.repo.Upsert(ctx, userID, product.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) SetQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) ([]Line, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	var updated bool
	for _, id := range idSpellings(productID) {
		ok, err := s.repo.SetQuantity(ctx, userID, id, quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		if ok {
			updated = true
			break
		}
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found in cart")
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, productID string) error {
	if _, err := s.repo.RemoveProducts(ctx, userID, idSpellings(productID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	return nil
}

// idSpellings is the id as sent plus its canonical form when they differ.
func idSpellings(productID string) []string {
	raw := strings.TrimSpace(productID)
	if canonical := catalog.CanonicalID(raw); canonical != raw {
		return []string{raw, canonical}
	}
	return []string{raw}
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

// Get resolves every row against the catalog in one batched lookup. Rows
// whose product no longer exists are dropped from the result and deleted.
func (s *service) Get(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	if len(items) == 0 {
		return []Line{}, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	found, err := s.products.FindMany(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cart products")
	}

	lines := make([]Line, 0, len(items))
	var dangling []string
	for _, item := range items {
		product, ok := found[item.ProductID]
		if !ok {
			dangling = append(dangling, item.ProductID)
			continue
		}
		lines = append(lines, Line{Item: item, Product: product})
	}

	if len(dangling) > 0 {
		if _, err := s.repo.RemoveProducts(ctx, userID, dangling); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "prune dangling cart rows", err)
		}
	}
	return lines, nil
}
