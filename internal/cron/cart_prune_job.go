package cron

import (
	"context"
	"fmt"

	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
)

const defaultCartPruneBatch = 500

// CartPruneJobParams configure the dangling cart row cleanup.
type CartPruneJobParams struct {
	Logger    *logger.Logger
	Carts     cartPruner
	Products  productLookup
	BatchSize int
}

type cartPruner interface {
	DistinctProductIDs(ctx context.Context, after string, limit int) ([]string, error)
	DeleteByProductIDs(ctx context.Context, productIDs []string) (int64, error)
}

type productLookup interface {
	FindMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// NewCartPruneJob builds the job that drops cart rows whose product is gone
// from the catalog.
func NewCartPruneJob(params CartPruneJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultCartPruneBatch
	}
	return &cartPruneJob{
		logg:     params.Logger,
		carts:    params.Carts,
		products: params.Products,
		batch:    batch,
	}, nil
}

type cartPruneJob struct {
	logg     *logger.Logger
	carts    cartPruner
	products productLookup
	batch    int
}

func (j *cartPruneJob) Name() string { return "cart-prune" }

// Run walks the referenced product ids in pages. A catalog error aborts the
// run so an unreachable catalog never reads as every product missing.
func (j *cartPruneJob) Run(ctx context.Context) error {
	var (
		after   string
		scanned int
		missing int
		removed int64
	)
	for {
		ids, err := j.carts.DistinctProductIDs(ctx, after, j.batch)
		if err != nil {
			return fmt.Errorf("list cart product ids: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		scanned += len(ids)
		after = ids[len(ids)-1]

		found, err := j.products.FindMany(ctx, ids)
		if err != nil {
			return fmt.Errorf("lookup catalog products: %w", err)
		}
		gone := make([]string, 0)
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				gone = append(gone, id)
			}
		}
		if len(gone) > 0 {
			rows, err := j.carts.DeleteByProductIDs(ctx, gone)
			if err != nil {
				return fmt.Errorf("delete dangling cart rows: %w", err)
			}
			missing += len(gone)
			removed += rows
		}
		if len(ids) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"products_scanned": scanned,
		"products_missing": missing,
		"rows_deleted":     removed,
	})
	j.logg.Info(logCtx, "cart prune complete")
	return nil
}
