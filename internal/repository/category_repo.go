package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

// CategoryRepository serves the closed reference sets (categories and
// statuses). Both are seeded at migration time and read-only to the core.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListStatuses(ctx context.Context) ([]model.ExpenseStatus, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := GetDB(ctx, r.db).Order("category_id").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) ListStatuses(ctx context.Context) ([]model.ExpenseStatus, error) {
	var statuses []model.ExpenseStatus
	if err := GetDB(ctx, r.db).Order("status_id").Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}
