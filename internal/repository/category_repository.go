package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-dashboard/internal/model"
)

// CategoryRepository caches category and subcategory reference data.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ReplaceAll swaps the cached reference data in one transaction.
func (r *CategoryRepository) ReplaceAll(ctx context.Context, categories []model.Category, subCategories []model.SubCategory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&model.SubCategory{}).Error; err != nil {
			return fmt.Errorf("clear subcategories: %w", err)
		}
		if err := all.Delete(&model.Category{}).Error; err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}
		if len(categories) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&categories).Error; err != nil {
				return fmt.Errorf("store categories: %w", err)
			}
		}
		if len(subCategories) > 0 {
			if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{UpdateAll: true}).Create(&subCategories).Error; err != nil {
				return fmt.Errorf("store subcategories: %w", err)
			}
		}
		return nil
	})
}

func (r *CategoryRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("is_deleted = ?", false).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ListSubCategories returns subcategories of categoryID, or all of them when
// categoryID is empty.
func (r *CategoryRepository) ListSubCategories(ctx context.Context, categoryID model.ID) ([]model.SubCategory, error) {
	var subs []model.SubCategory
	db := r.db.WithContext(ctx).Preload("Category").Where("is_deleted = ?", false)
	if categoryID != "" {
		db = db.Where("category_id = ?", categoryID)
	}
	if err := db.Order("name ASC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
