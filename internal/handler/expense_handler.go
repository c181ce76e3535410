package handler

import (
	"context"
	"net/http"
	"strconv"

	"backend/internal/repository"
	"backend/internal/service"
	"backend/pkg/apperror"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExpenseHandler struct {
	expenseService    service.ExpenseService
	statisticsService service.StatisticsService
}

func NewExpenseHandler(expenseService service.ExpenseService, statisticsService service.StatisticsService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService:    expenseService,
		statisticsService: statisticsService,
	}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	expenses := router.Group("/api/expenses")
	{
		expenses.GET("", h.GetExpenses)
		expenses.POST("", h.CreateExpense)
		expenses.GET("/pending", h.GetPendingApprovals)
		expenses.GET("/stats", h.GetDashboardStats)
		expenses.GET("/:id", h.GetExpenseByID)
		expenses.PUT("/:id", h.UpdateExpense)
		expenses.DELETE("/:id", h.DeleteExpense)
		expenses.POST("/:id/submit", h.SubmitExpense)
		expenses.POST("/:id/approve", h.ApproveExpense)
		expenses.POST("/:id/reject", h.RejectExpense)
	}

	router.GET("/api/categories", h.GetCategories)
	router.GET("/api/statuses", h.GetStatuses)
	router.GET("/api/users", h.GetUsers)
	router.GET("/api/users/:id", h.GetUserByID)
}

// GetExpenses lists expenses, optionally filtered by user_id, status_id,
// category_id and search. When the store is down the response still carries
// the fallback dataset; the diagnostic travels in the X-Error-Message header.
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	filter := repository.ExpenseFilter{SearchTerm: c.Query("search")}
	for _, q := range []struct {
		key string
		dst **int
	}{
		{"user_id", &filter.UserID},
		{"status_id", &filter.StatusID},
		{"category_id", &filter.CategoryID},
	} {
		v, err := intQuery(c, q.key)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
			return
		}
		*q.dst = v
	}

	expenses, err := h.expenseService.GetExpenses(c.Request.Context(), filter)
	if degraded(c, err) {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expenses))
}

func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var req service.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

func (h *ExpenseHandler) GetExpenseByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), id)
	if err != nil && apperror.IsStoreUnavailable(err) {
		c.Header(response.HeaderErrorMessage, err.Error())
		c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
		return
	}
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// UpdateExpense rewrites a Draft expense. Submitted and reviewed expenses are
// immutable; the guard failure comes back as 400.
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), id, req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), id); err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

func (h *ExpenseHandler) SubmitExpense(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.SubmitExpense(c.Request.Context(), id)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

func (h *ExpenseHandler) ApproveExpense(c *gin.Context) {
	h.review(c, h.expenseService.ApproveExpense)
}

func (h *ExpenseHandler) RejectExpense(c *gin.Context) {
	h.review(c, h.expenseService.RejectExpense)
}

func (h *ExpenseHandler) review(c *gin.Context, reviewFn func(ctx context.Context, id, reviewerID int) (service.ExpenseResponse, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	reviewerID, err := strconv.Atoi(c.Query("reviewer_id"))
	if err != nil || reviewerID <= 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "reviewer_id query parameter is required"))
		return
	}

	expense, err := reviewFn(c.Request.Context(), id, reviewerID)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

func (h *ExpenseHandler) GetPendingApprovals(c *gin.Context) {
	expenses, err := h.expenseService.GetPendingApprovals(c.Request.Context(), c.Query("search"))
	if degraded(c, err) {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expenses))
}

func (h *ExpenseHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.statisticsService.GetDashboardStats(c.Request.Context())
	if err != nil && apperror.IsStoreUnavailable(err) {
		c.Header(response.HeaderErrorMessage, err.Error())
	} else if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

func (h *ExpenseHandler) GetCategories(c *gin.Context) {
	categories, err := h.expenseService.GetCategories(c.Request.Context())
	if degraded(c, err) {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

func (h *ExpenseHandler) GetStatuses(c *gin.Context) {
	statuses, err := h.expenseService.GetStatuses(c.Request.Context())
	if degraded(c, err) {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, statuses))
}

func (h *ExpenseHandler) GetUsers(c *gin.Context) {
	users, err := h.expenseService.GetUsers(c.Request.Context())
	if degraded(c, err) {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, users))
}

func (h *ExpenseHandler) GetUserByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.expenseService.GetUserByID(c.Request.Context(), id)
	if err != nil && apperror.IsStoreUnavailable(err) {
		c.Header(response.HeaderErrorMessage, err.Error())
		c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
		return
	}
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
