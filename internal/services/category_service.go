package services

import (
	"context"
	"errors"
	"strings"

	"github.com/stylocore/catalog-api/internal/repositories"
)

// CategoryServiceDeps bundles constructor inputs for the category service.
type CategoryServiceDeps struct {
	Categories repositories.CategoryRepository
}

type categoryService struct {
	categories repositories.CategoryRepository
}

var _ CategoryService = (*categoryService)(nil)

// NewCategoryService constructs the category list service.
func NewCategoryService(deps CategoryServiceDeps) (CategoryService, error) {
	if deps.Categories == nil {
		return nil, errors.New("category service: category repository is required")
	}
	return &categoryService{categories: deps.Categories}, nil
}

func (s *categoryService) List(ctx context.Context) ([]string, error) {
	list, err := s.categories.Load(ctx)
	if err != nil {
		return nil, translateRepositoryError(err, nil)
	}
	return list.Names, nil
}

// Add appends a name, creating the category document when none exists.
func (s *categoryService) Add(ctx context.Context, name string) ([]string, error) {
	name, err := normalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, func(names []string) ([]string, error) {
		if indexOfCategory(names, name) >= 0 {
			return nil, invalidField("name", "category %q already exists", name)
		}
		return append(names, name), nil
	})
}

// Rename replaces the name at index.
func (s *categoryService) Rename(ctx context.Context, index int, name string) ([]string, error) {
	name, err := normalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, func(names []string) ([]string, error) {
		if index < 0 || index >= len(names) {
			return nil, &IndexError{Target: "category", Index: index, Length: len(names)}
		}
		if existing := indexOfCategory(names, name); existing >= 0 && existing != index {
			return nil, invalidField("name", "category %q already exists", name)
		}
		names[index] = name
		return names, nil
	})
}

// Remove drops every entry equal to name. Tags on products are not rewritten.
func (s *categoryService) Remove(ctx context.Context, name string) ([]string, error) {
	name, err := normalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, func(names []string) ([]string, error) {
		kept := names[:0]
		for _, existing := range names {
			if existing != name {
				kept = append(kept, existing)
			}
		}
		return kept, nil
	})
}

func (s *categoryService) mutate(ctx context.Context, fn func([]string) ([]string, error)) ([]string, error) {
	list, err := s.categories.Mutate(ctx, fn)
	if err != nil {
		var verr *ValidationError
		var ierr *IndexError
		if errors.As(err, &verr) {
			return nil, verr
		}
		if errors.As(err, &ierr) {
			return nil, ierr
		}
		return nil, translateRepositoryError(err, nil)
	}
	return list.Names, nil
}

func normalizeCategoryName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", invalidField("name", "is required")
	}
	return trimmed, nil
}

func indexOfCategory(names []string, name string) int {
	for i, existing := range names {
		if existing == name {
			return i
		}
	}
	return -1
}
