package service

import (
	"context"

	"backend/internal/model"
	"backend/internal/repository"
)

// --- DTOs ---

type DashboardStatsResponse struct {
	TotalExpenses    int64  `json:"total_expenses"`
	PendingApprovals int64  `json:"pending_approvals"`
	ApprovedAmount   string `json:"approved_amount"`
	ApprovedCount    int64  `json:"approved_count"`
}

// --- Interface ---

// StatisticsService aggregates the dashboard numbers fresh on every call;
// nothing is cached or incrementally maintained.
type StatisticsService interface {
	GetDashboardStats(ctx context.Context) (DashboardStatsResponse, error)
}

type statisticsService struct {
	expenseRepo repository.ExpenseRepository
	fallback    *repository.FallbackProvider
}

func NewStatisticsService(expenseRepo repository.ExpenseRepository, fallback *repository.FallbackProvider) StatisticsService {
	return &statisticsService{expenseRepo: expenseRepo, fallback: fallback}
}

// --- Implementation ---

func (s *statisticsService) GetDashboardStats(ctx context.Context) (DashboardStatsResponse, error) {
	stats, err := s.expenseRepo.Stats(ctx)
	if err != nil {
		return toStatsResponse(s.fallback.DashboardStats()), storeFault("GetDashboardStats", err)
	}
	return toStatsResponse(stats), nil
}

func toStatsResponse(stats model.DashboardStats) DashboardStatsResponse {
	return DashboardStatsResponse{
		TotalExpenses:    stats.TotalExpenses,
		PendingApprovals: stats.PendingApprovals,
		ApprovedAmount:   minorToAmount(stats.ApprovedAmountMinor),
		ApprovedCount:    stats.ApprovedCount,
	}
}
