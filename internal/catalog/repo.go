package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	productsCollection = "products"
	siteInfoCollection = "siteinfos"
	lookupBatchSize    = 200
)

// ErrNotFound is returned when a product or the site info is absent.
var ErrNotFound = errors.New("catalog document not found")

// Repository reads the product catalog and site info.
type Repository struct {
	products *mongo.Collection
	siteInfo *mongo.Collection
}

// NewRepository binds the catalog collections of db.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		products: db.Collection(productsCollection),
		siteInfo: db.Collection(siteInfoCollection),
	}
}

// List returns every product document.
func (r *Repository) List(ctx context.Context) ([]bson.M, error) {
	return r.find(ctx, bson.M{})
}

// Featured returns products flagged featured.
func (r *Repository) Featured(ctx context.Context) ([]bson.M, error) {
	return r.find(ctx, bson.M{"featured": true})
}

// HotDeals returns products flagged hotDeals.
func (r *Repository) HotDeals(ctx context.Context) ([]bson.M, error) {
	return r.find(ctx, bson.M{"hotDeals": true})
}

// FindByID resolves one product by ObjectID hex or plain string id.
func (r *Repository) FindByID(ctx context.Context, id string) (*Product, error) {
	candidates := idCandidates(id)
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}
	var doc bson.M
	err := r.products.FindOne(ctx, bson.M{"_id": bson.M{"$in": candidates}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	product := FromDocument(doc)
	return &product, nil
}

// FindMany resolves the given ids in batched $in lookups. Each product is
// keyed by its canonical id and by every requested spelling of it, so a
// caller can index the result with the ids it passed in. Unknown ids are
// absent.
func (r *Repository) FindMany(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	requested := make(map[string][]string, len(ids))
	var candidates []any
	flush := func() error {
		if len(candidates) == 0 {
			return nil
		}
		docs, err := r.find(ctx, bson.M{"_id": bson.M{"$in": candidates}})
		if err != nil {
			return err
		}
		for _, doc := range docs {
			product := FromDocument(doc)
			out[product.ID] = product
			for _, asked := range requested[CanonicalID(product.ID)] {
				out[asked] = product
			}
		}
		candidates = candidates[:0]
		return nil
	}

	for _, id := range ids {
		key := CanonicalID(id)
		if key == "" {
			continue
		}
		spellings, seen := requested[key]
		requested[key] = appendUnique(spellings, id)
		if seen {
			continue
		}
		candidates = append(candidates, idCandidates(id)...)
		if len(candidates) >= lookupBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}

// Categories returns the category list of the first site info document.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var doc struct {
		Categories []string `bson:"categories"`
	}
	err := r.siteInfo.FindOne(ctx, bson.M{}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find site info: %w", err)
	}
	return doc.Categories, nil
}

func (r *Repository) find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	cursor, err := r.products.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return docs, nil
}
