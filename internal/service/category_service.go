package service

import (
	"context"
	"fmt"

	"task-dashboard/internal/model"
	"task-dashboard/internal/repository"
)

// CategorySource is the part of the external API that serves categories.
type CategorySource interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListSubCategories(ctx context.Context, categoryID model.ID) ([]model.SubCategory, error)
}

// CategoryService provides the category and subcategory lists used by the
// dropdown filters.
type CategoryService struct {
	api  CategorySource
	repo *repository.CategoryRepository
}

func NewCategoryService(api CategorySource, repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{api: api, repo: repo}
}

func (s *CategoryService) Refresh(ctx context.Context) error {
	categories, err := s.api.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	subCategories, err := s.api.ListSubCategories(ctx, "")
	if err != nil {
		return fmt.Errorf("fetch subcategories: %w", err)
	}
	return s.repo.ReplaceAll(ctx, categories, subCategories)
}

func (s *CategoryService) Categories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

// SubCategories lists every subcategory, or only those of categoryID.
func (s *CategoryService) SubCategories(ctx context.Context, categoryID model.ID) ([]model.SubCategory, error) {
	return s.repo.ListSubCategories(ctx, categoryID)
}
