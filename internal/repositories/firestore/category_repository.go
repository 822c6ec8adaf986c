package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	"github.com/stylocore/catalog-api/internal/domain"
	pfirestore "github.com/stylocore/catalog-api/internal/platform/firestore"
	"github.com/stylocore/catalog-api/internal/repositories"
)

const categoryCollection = "category"

// CategoryRepository stores all category names in one document of the category collection.
type CategoryRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[domain.CategoryList]
}

var _ repositories.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository constructs a Firestore-backed category repository.
func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository requires firestore provider")
	}
	return &CategoryRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[domain.CategoryList](provider, categoryCollection, encodeCategories, decodeCategories),
	}, nil
}

// Load returns the category list. A missing document yields an empty list with no ID.
func (r *CategoryRepository) Load(ctx context.Context) (domain.CategoryList, error) {
	if r == nil || r.base == nil {
		return domain.CategoryList{}, errors.New("category repository not initialised")
	}
	doc, found, err := r.first(ctx)
	if err != nil {
		return domain.CategoryList{}, err
	}
	if !found {
		return domain.CategoryList{Names: []string{}}, nil
	}
	list := doc.Data
	list.ID = doc.ID
	return list, nil
}

// Mutate reads the list inside a transaction, applies fn and writes the result back. When no
// document exists yet one is created under a fresh ID.
func (r *CategoryRepository) Mutate(ctx context.Context, fn func(names []string) ([]string, error)) (domain.CategoryList, error) {
	if r == nil || r.base == nil {
		return domain.CategoryList{}, errors.New("category repository not initialised")
	}
	if fn == nil {
		return domain.CategoryList{}, errors.New("category mutation is nil")
	}

	doc, found, err := r.first(ctx)
	if err != nil {
		return domain.CategoryList{}, err
	}
	id := doc.ID
	if !found {
		if id, err = r.base.NewID(ctx); err != nil {
			return domain.CategoryList{}, err
		}
	}

	var result domain.CategoryList
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, exists, err := r.base.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		names := []string{}
		if exists {
			names = append(names, current.Data.Names...)
		}
		next, err := fn(names)
		if err != nil {
			return err
		}
		result = domain.CategoryList{ID: id, Names: nonNilStrings(next)}
		return r.base.SetTx(ctx, tx, id, result)
	})
	if err != nil {
		return domain.CategoryList{}, err
	}
	return result, nil
}

func (r *CategoryRepository) first(ctx context.Context) (pfirestore.Document[domain.CategoryList], bool, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Limit(1)
	})
	if err != nil {
		return pfirestore.Document[domain.CategoryList]{}, false, err
	}
	if len(docs) == 0 {
		return pfirestore.Document[domain.CategoryList]{}, false, nil
	}
	return docs[0], true, nil
}

func encodeCategories(_ context.Context, list domain.CategoryList) (any, error) {
	return map[string]any{"name": nonNilStrings(list.Names)}, nil
}

func decodeCategories(_ context.Context, snap *firestore.DocumentSnapshot) (domain.CategoryList, error) {
	return domain.CategoryList{Names: nonNilStrings(stringSlice(snap.Data()["name"]))}, nil
}
