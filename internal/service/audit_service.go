package service

import (
	"context"
	"time"

	"backend/internal/repository"
)

// --- DTOs ---

type AuditLogResponse struct {
	ID        int    `json:"id"`
	UserID    *int   `json:"user_id"`
	UserName  string `json:"user_name"`
	Action    string `json:"action"`
	ExpenseID int    `json:"expense_id"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

type AuditService interface {
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// --- Implementation ---

func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, storeFault("GetAuditLogs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userName := "System"
		if l.User != nil {
			userName = l.User.UserName
		}
		res = append(res, AuditLogResponse{
			ID:        l.ID,
			UserID:    l.UserID,
			UserName:  userName,
			Action:    l.Action,
			ExpenseID: l.ExpenseID,
			Details:   l.Details,
			CreatedAt: l.CreatedAt.Format(time.RFC3339),
		})
	}

	return res, total, nil
}
