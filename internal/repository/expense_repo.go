package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"backend/internal/model"

	"gorm.io/gorm"
)

// ExpenseFilter narrows List results. All fields are optional and conjunctive.
type ExpenseFilter struct {
	UserID     *int
	StatusID   *int
	CategoryID *int
	SearchTerm string
}

// ExpenseRepository is the store gateway for the expense lifecycle. Guarded
// transitions (Update, Delete, Submit, Approve, Reject) are single conditional
// statements: the status check and the mutation execute atomically at the
// store, so of two concurrent attempts on the same expense exactly one
// succeeds. The boolean result distinguishes success from "not found or guard
// failed".
type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindByID(ctx context.Context, id int) (*model.Expense, error)
	List(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error)
	Update(ctx context.Context, expense *model.Expense) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
	Submit(ctx context.Context, id int, at time.Time) (bool, error)
	Approve(ctx context.Context, id int, reviewerID int, at time.Time) (bool, error)
	Reject(ctx context.Context, id int, reviewerID int, at time.Time) (bool, error)
	Stats(ctx context.Context) (model.DashboardStats, error)
}

type expenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Create(expense).Error
}

func (r *expenseRepository) FindByID(ctx context.Context, id int) (*model.Expense, error) {
	var expense model.Expense
	err := GetDB(ctx, r.db).
		Preload("User").Preload("Category").Preload("Status").Preload("Reviewer").
		First(&expense, "expense_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) List(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error) {
	query := GetDB(ctx, r.db).Model(&model.Expense{}).
		Preload("User").Preload("Category").Preload("Status").Preload("Reviewer")

	if filter.UserID != nil {
		query = query.Where("expenses.user_id = ?", *filter.UserID)
	}
	if filter.StatusID != nil {
		query = query.Where("expenses.status_id = ?", *filter.StatusID)
	}
	if filter.CategoryID != nil {
		query = query.Where("expenses.category_id = ?", *filter.CategoryID)
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.
			Joins("JOIN categories ON categories.category_id = expenses.category_id").
			Joins("JOIN users ON users.user_id = expenses.user_id").
			Where("LOWER(expenses.description) LIKE ? OR LOWER(categories.category_name) LIKE ? OR LOWER(users.user_name) LIKE ?",
				pattern, pattern, pattern)
	}

	var expenses []model.Expense
	if err := query.Order("expenses.created_at DESC, expenses.expense_id DESC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

// Update rewrites the editable fields. Only Draft rows match the WHERE clause.
func (r *expenseRepository) Update(ctx context.Context, expense *model.Expense) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Expense{}).
		Where("expense_id = ? AND status_id = ?", expense.ExpenseID, model.StatusDraft).
		Updates(map[string]interface{}{
			"category_id":  expense.CategoryID,
			"amount_minor": expense.AmountMinor,
			"expense_date": expense.ExpenseDate,
			"description":  expense.Description,
			"receipt_file": expense.ReceiptFile,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *expenseRepository) Delete(ctx context.Context, id int) (bool, error) {
	result := GetDB(ctx, r.db).
		Where("expense_id = ? AND status_id = ?", id, model.StatusDraft).
		Delete(&model.Expense{})
	return result.RowsAffected > 0, result.Error
}

func (r *expenseRepository) Submit(ctx context.Context, id int, at time.Time) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Expense{}).
		Where("expense_id = ? AND status_id = ?", id, model.StatusDraft).
		Updates(map[string]interface{}{
			"status_id":    model.StatusSubmitted,
			"submitted_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *expenseRepository) Approve(ctx context.Context, id int, reviewerID int, at time.Time) (bool, error) {
	return r.review(ctx, id, model.StatusApproved, reviewerID, at)
}

func (r *expenseRepository) Reject(ctx context.Context, id int, reviewerID int, at time.Time) (bool, error) {
	return r.review(ctx, id, model.StatusRejected, reviewerID, at)
}

func (r *expenseRepository) review(ctx context.Context, id, statusID, reviewerID int, at time.Time) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Expense{}).
		Where("expense_id = ? AND status_id = ?", id, model.StatusSubmitted).
		Updates(map[string]interface{}{
			"status_id":   statusID,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

// Stats aggregates the whole expense set fresh on every call.
func (r *expenseRepository) Stats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	db := GetDB(ctx, r.db)

	if err := db.Model(&model.Expense{}).Count(&stats.TotalExpenses).Error; err != nil {
		return model.DashboardStats{}, err
	}
	if err := db.Model(&model.Expense{}).
		Where("status_id = ?", model.StatusSubmitted).
		Count(&stats.PendingApprovals).Error; err != nil {
		return model.DashboardStats{}, err
	}
	if err := db.Model(&model.Expense{}).
		Where("status_id = ?", model.StatusApproved).
		Count(&stats.ApprovedCount).Error; err != nil {
		return model.DashboardStats{}, err
	}

	var approved struct {
		Total int64
	}
	if err := db.Model(&model.Expense{}).
		Select("COALESCE(SUM(amount_minor), 0) AS total").
		Where("status_id = ?", model.StatusApproved).
		Scan(&approved).Error; err != nil {
		return model.DashboardStats{}, err
	}
	stats.ApprovedAmountMinor = approved.Total

	return stats, nil
}
