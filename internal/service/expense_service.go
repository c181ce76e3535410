package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const expenseDateLayout = "2006-01-02"

// EventPublisher receives lifecycle event payloads after a mutation commits.
// The websocket hub satisfies it; a nil publisher disables events.
type EventPublisher interface {
	Publish(message []byte)
}

// --- DTOs ---

type CreateExpenseRequest struct {
	UserID      int     `json:"user_id" binding:"required"`
	CategoryID  int     `json:"category_id" binding:"required"`
	Amount      string  `json:"amount" binding:"required"` // decimal string, e.g. "12.34"
	ExpenseDate string  `json:"expense_date" binding:"required"`
	Description *string `json:"description"`
	ReceiptFile *string `json:"receipt_file"`
}

type UpdateExpenseRequest struct {
	CategoryID  int     `json:"category_id" binding:"required"`
	Amount      string  `json:"amount" binding:"required"`
	ExpenseDate string  `json:"expense_date" binding:"required"`
	Description *string `json:"description"`
	ReceiptFile *string `json:"receipt_file"`
}

type ExpenseResponse struct {
	ExpenseID    int     `json:"expense_id"`
	UserID       int     `json:"user_id"`
	UserName     string  `json:"user_name"`
	CategoryID   int     `json:"category_id"`
	CategoryName string  `json:"category_name"`
	StatusID     int     `json:"status_id"`
	StatusName   string  `json:"status_name"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency"`
	ExpenseDate  string  `json:"expense_date"`
	Description  *string `json:"description"`
	ReceiptFile  *string `json:"receipt_file"`
	SubmittedAt  *string `json:"submitted_at"`
	ReviewedBy   *int    `json:"reviewed_by"`
	ReviewerName *string `json:"reviewer_name"`
	ReviewedAt   *string `json:"reviewed_at"`
	CreatedAt    string  `json:"created_at"`
}

type UserResponse struct {
	UserID    int    `json:"user_id"`
	UserName  string `json:"user_name"`
	Email     string `json:"email"`
	RoleID    int    `json:"role_id"`
	RoleName  string `json:"role_name"`
	ManagerID *int   `json:"manager_id"`
}

// --- Interface ---

// ExpenseService owns the expense lifecycle and the query layer over it.
// Reads degrade: when the store is unreachable they return the fallback
// dataset together with a StoreUnavailable error, and the caller decides how
// loudly to surface the outage. Writes never degrade.
type ExpenseService interface {
	CreateExpense(ctx context.Context, req CreateExpenseRequest) (ExpenseResponse, error)
	GetExpenses(ctx context.Context, filter repository.ExpenseFilter) ([]ExpenseResponse, error)
	GetExpenseByID(ctx context.Context, id int) (ExpenseResponse, error)
	UpdateExpense(ctx context.Context, id int, req UpdateExpenseRequest) (ExpenseResponse, error)
	DeleteExpense(ctx context.Context, id int) error
	SubmitExpense(ctx context.Context, id int) (ExpenseResponse, error)
	ApproveExpense(ctx context.Context, id, reviewerID int) (ExpenseResponse, error)
	RejectExpense(ctx context.Context, id, reviewerID int) (ExpenseResponse, error)
	GetPendingApprovals(ctx context.Context, searchTerm string) ([]ExpenseResponse, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetStatuses(ctx context.Context) ([]model.ExpenseStatus, error)
	GetUsers(ctx context.Context) ([]UserResponse, error)
	GetUserByID(ctx context.Context, id int) (UserResponse, error)
}

type expenseService struct {
	expenseRepo  repository.ExpenseRepository
	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	fallback     *repository.FallbackProvider
	events       EventPublisher
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	userRepo repository.UserRepository,
	categoryRepo repository.CategoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	fallback *repository.FallbackProvider,
	events EventPublisher,
) ExpenseService {
	return &expenseService{
		expenseRepo:  expenseRepo,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		fallback:     fallback,
		events:       events,
	}
}

// --- Implementation ---

func (s *expenseService) CreateExpense(ctx context.Context, req CreateExpenseRequest) (ExpenseResponse, error) {
	amountMinor, err := parseAmount(req.Amount)
	if err != nil {
		return ExpenseResponse{}, err
	}
	expenseDate, err := parseExpenseDate(req.ExpenseDate)
	if err != nil {
		return ExpenseResponse{}, err
	}
	if err := validateDescription(req.Description); err != nil {
		return ExpenseResponse{}, err
	}

	expense := &model.Expense{
		UserID:      req.UserID,
		CategoryID:  req.CategoryID,
		StatusID:    model.StatusDraft,
		AmountMinor: amountMinor,
		Currency:    model.DefaultCurrency,
		ExpenseDate: expenseDate,
		Description: req.Description,
		ReceiptFile: req.ReceiptFile,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return err
		}
		return s.audit(txCtx, &req.UserID, model.ActionCreateExpense, expense.ExpenseID, map[string]interface{}{
			"amount_minor": expense.AmountMinor,
			"category_id":  expense.CategoryID,
		})
	})
	if err != nil {
		return ExpenseResponse{}, storeFault("CreateExpense", err)
	}

	return s.reload(ctx, expense.ExpenseID)
}

func (s *expenseService) GetExpenses(ctx context.Context, filter repository.ExpenseFilter) ([]ExpenseResponse, error) {
	expenses, err := s.expenseRepo.List(ctx, filter)
	if err != nil {
		return toExpenseResponses(s.fallback.Expenses()), storeFault("GetExpenses", err)
	}
	return toExpenseResponses(expenses), nil
}

func (s *expenseService) GetExpenseByID(ctx context.Context, id int) (ExpenseResponse, error) {
	expense, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		if fb := s.fallback.ExpenseByID(id); fb != nil {
			return toExpenseResponse(*fb), storeFault("GetExpenseByID", err)
		}
		// Not even the fallback knows the id: absent, not degraded.
		return ExpenseResponse{}, apperror.Newf(apperror.KindNotFound, "Expense with ID %d not found", id)
	}
	if expense == nil {
		return ExpenseResponse{}, apperror.Newf(apperror.KindNotFound, "Expense with ID %d not found", id)
	}
	return toExpenseResponse(*expense), nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, id int, req UpdateExpenseRequest) (ExpenseResponse, error) {
	amountMinor, err := parseAmount(req.Amount)
	if err != nil {
		return ExpenseResponse{}, err
	}
	expenseDate, err := parseExpenseDate(req.ExpenseDate)
	if err != nil {
		return ExpenseResponse{}, err
	}
	if err := validateDescription(req.Description); err != nil {
		return ExpenseResponse{}, err
	}

	expense := &model.Expense{
		ExpenseID:   id,
		CategoryID:  req.CategoryID,
		AmountMinor: amountMinor,
		ExpenseDate: expenseDate,
		Description: req.Description,
		ReceiptFile: req.ReceiptFile,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, err := s.expenseRepo.Update(txCtx, expense)
		if err != nil {
			return storeFault("UpdateExpense", err)
		}
		if !ok {
			return apperror.New(apperror.KindInvalidStateTransition,
				"Expense not found or cannot be updated (only Draft expenses can be modified).")
		}
		return s.audit(txCtx, nil, model.ActionUpdateExpense, id, map[string]interface{}{
			"amount_minor": amountMinor,
			"category_id":  req.CategoryID,
		})
	})
	if err != nil {
		return ExpenseResponse{}, passThrough(err, "UpdateExpense")
	}

	return s.reload(ctx, id)
}

func (s *expenseService) DeleteExpense(ctx context.Context, id int) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, err := s.expenseRepo.Delete(txCtx, id)
		if err != nil {
			return storeFault("DeleteExpense", err)
		}
		if !ok {
			return apperror.New(apperror.KindInvalidStateTransition,
				"Expense not found or cannot be deleted (only Draft expenses can be deleted).")
		}
		return s.audit(txCtx, nil, model.ActionDeleteExpense, id, nil)
	})
	return passThrough(err, "DeleteExpense")
}

func (s *expenseService) SubmitExpense(ctx context.Context, id int) (ExpenseResponse, error) {
	now := time.Now().UTC()
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, err := s.expenseRepo.Submit(txCtx, id, now)
		if err != nil {
			return storeFault("SubmitExpense", err)
		}
		if !ok {
			return apperror.New(apperror.KindInvalidStateTransition,
				"Expense not found or cannot be submitted (only Draft expenses can be submitted).")
		}
		return s.audit(txCtx, nil, model.ActionSubmitExpense, id, nil)
	})
	if err != nil {
		return ExpenseResponse{}, passThrough(err, "SubmitExpense")
	}

	s.publish("expense_submitted", id, model.StatusSubmitted)
	return s.reload(ctx, id)
}

func (s *expenseService) ApproveExpense(ctx context.Context, id, reviewerID int) (ExpenseResponse, error) {
	return s.reviewExpense(ctx, id, reviewerID, model.StatusApproved)
}

func (s *expenseService) RejectExpense(ctx context.Context, id, reviewerID int) (ExpenseResponse, error) {
	return s.reviewExpense(ctx, id, reviewerID, model.StatusRejected)
}

func (s *expenseService) reviewExpense(ctx context.Context, id, reviewerID, statusID int) (ExpenseResponse, error) {
	if reviewerID <= 0 {
		return ExpenseResponse{}, apperror.New(apperror.KindValidation, "reviewer_id is required")
	}

	verb, action, event := "approved", model.ActionApproveExpense, "expense_approved"
	transition := s.expenseRepo.Approve
	if statusID == model.StatusRejected {
		verb, action, event = "rejected", model.ActionRejectExpense, "expense_rejected"
		transition = s.expenseRepo.Reject
	}

	now := time.Now().UTC()
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, err := transition(txCtx, id, reviewerID, now)
		if err != nil {
			return storeFault("ReviewExpense", err)
		}
		if !ok {
			return apperror.Newf(apperror.KindInvalidStateTransition,
				"Expense not found or cannot be %s (only Submitted expenses can be %s).", verb, verb)
		}
		return s.audit(txCtx, &reviewerID, action, id, map[string]interface{}{
			"reviewer_id": reviewerID,
		})
	})
	if err != nil {
		return ExpenseResponse{}, passThrough(err, "ReviewExpense")
	}

	s.publish(event, id, statusID)
	return s.reload(ctx, id)
}

func (s *expenseService) GetPendingApprovals(ctx context.Context, searchTerm string) ([]ExpenseResponse, error) {
	statusID := model.StatusSubmitted
	expenses, err := s.expenseRepo.List(ctx, repository.ExpenseFilter{StatusID: &statusID, SearchTerm: searchTerm})
	if err != nil {
		return toExpenseResponses(s.fallback.PendingApprovals()), storeFault("GetPendingApprovals", err)
	}
	return toExpenseResponses(expenses), nil
}

func (s *expenseService) GetCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.ListCategories(ctx)
	if err != nil {
		return s.fallback.Categories(), storeFault("GetCategories", err)
	}
	return categories, nil
}

func (s *expenseService) GetStatuses(ctx context.Context) ([]model.ExpenseStatus, error) {
	statuses, err := s.categoryRepo.ListStatuses(ctx)
	if err != nil {
		return s.fallback.Statuses(), storeFault("GetStatuses", err)
	}
	return statuses, nil
}

func (s *expenseService) GetUsers(ctx context.Context) ([]UserResponse, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return toUserResponses(s.fallback.Users()), storeFault("GetUsers", err)
	}
	return toUserResponses(users), nil
}

func (s *expenseService) GetUserByID(ctx context.Context, id int) (UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if fb := s.fallback.UserByID(id); fb != nil {
			return toUserResponse(*fb), storeFault("GetUserByID", err)
		}
		return UserResponse{}, apperror.Newf(apperror.KindNotFound, "User with ID %d not found", id)
	}
	if user == nil {
		return UserResponse{}, apperror.Newf(apperror.KindNotFound, "User with ID %d not found", id)
	}
	return toUserResponse(*user), nil
}

// --- Helpers ---

// reload re-reads the row after a committed mutation so the response carries
// the preloaded names and the timestamps the store actually wrote.
func (s *expenseService) reload(ctx context.Context, id int) (ExpenseResponse, error) {
	expense, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		return ExpenseResponse{}, storeFault("GetExpenseByID", err)
	}
	if expense == nil {
		return ExpenseResponse{}, apperror.Newf(apperror.KindNotFound, "Expense with ID %d not found", id)
	}
	return toExpenseResponse(*expense), nil
}

func (s *expenseService) audit(ctx context.Context, actorID *int, action string, expenseID int, details map[string]interface{}) error {
	payload := "{}"
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		payload = string(raw)
	}
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:    actorID,
		Action:    action,
		ExpenseID: expenseID,
		Details:   payload,
	})
}

func (s *expenseService) publish(event string, expenseID, statusID int) {
	if s.events == nil {
		return
	}
	raw, err := json.Marshal(map[string]interface{}{
		"event":      event,
		"expense_id": expenseID,
		"status_id":  statusID,
	})
	if err != nil {
		return
	}
	s.events.Publish(raw)
}

func parseAmount(raw string) (int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperror.Newf(apperror.KindValidation, "invalid amount %q", raw)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return 0, apperror.New(apperror.KindValidation, "Amount must be greater than zero")
	}
	// Store as pence, rounding to the nearest penny.
	return amount.Shift(2).Round(0).IntPart(), nil
}

func parseExpenseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(expenseDateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.Newf(apperror.KindValidation, "invalid expense_date %q, expected YYYY-MM-DD", raw)
}

func minorToAmount(minor int64) string {
	return decimal.NewFromInt(minor).Shift(-2).StringFixed(2)
}

func validateDescription(description *string) error {
	if description != nil && len(*description) > model.MaxDescriptionLength {
		return apperror.Newf(apperror.KindValidation,
			"description exceeds %d characters", model.MaxDescriptionLength)
	}
	return nil
}

// storeFault classifies a raw store error. Foreign-key rejections are caller
// mistakes (an unknown user_id or category_id), not outages. Auth-shaped
// failures get a hint appended, since expired credentials are the usual cause
// in hosted setups.
func storeFault(op string, err error) *apperror.Error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperror.Wrap(apperror.KindValidation,
			"Invalid user_id or category_id: referenced record does not exist", err)
	}

	msg := fmt.Sprintf("Database error in %s.", op)
	low := strings.ToLower(err.Error())
	if strings.Contains(low, "managed identity") ||
		strings.Contains(low, "authentication") ||
		strings.Contains(low, "token") ||
		strings.Contains(low, "password") {
		msg += " Store credentials look wrong or expired: check the database identity assignment and the database user's roles."
	}
	return apperror.Wrap(apperror.KindStoreUnavailable, msg, err)
}

// passThrough keeps already-classified errors intact and classifies the rest
// as store faults.
func passThrough(err error, op string) error {
	if err == nil {
		return nil
	}
	if apperror.KindOf(err) != 0 {
		return err
	}
	return storeFault(op, err)
}

func toExpenseResponses(expenses []model.Expense) []ExpenseResponse {
	responses := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		responses = append(responses, toExpenseResponse(e))
	}
	return responses
}

func toExpenseResponse(e model.Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ExpenseID:   e.ExpenseID,
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		StatusID:    e.StatusID,
		Amount:      e.AmountGBP().StringFixed(2),
		Currency:    e.Currency,
		ExpenseDate: e.ExpenseDate.Format(expenseDateLayout),
		Description: e.Description,
		ReceiptFile: e.ReceiptFile,
		ReviewedBy:  e.ReviewedBy,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.User != nil {
		resp.UserName = e.User.UserName
	}
	if e.Category != nil {
		resp.CategoryName = e.Category.CategoryName
	}
	if e.Status != nil {
		resp.StatusName = e.Status.StatusName
	}
	if e.Reviewer != nil {
		name := e.Reviewer.UserName
		resp.ReviewerName = &name
	}
	if e.SubmittedAt != nil {
		ts := e.SubmittedAt.Format(time.RFC3339)
		resp.SubmittedAt = &ts
	}
	if e.ReviewedAt != nil {
		ts := e.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &ts
	}
	return resp
}

func toUserResponses(users []model.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(u))
	}
	return responses
}

func toUserResponse(u model.User) UserResponse {
	resp := UserResponse{
		UserID:    u.UserID,
		UserName:  u.UserName,
		Email:     u.Email,
		RoleID:    u.RoleID,
		ManagerID: u.ManagerID,
	}
	if u.Role != nil {
		resp.RoleName = u.Role.RoleName
	}
	return resp
}
