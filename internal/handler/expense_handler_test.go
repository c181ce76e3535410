package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backend/internal/database"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type handlerFixture struct {
	db     *gorm.DB
	router *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	expenseRepo := repository.NewExpenseRepository(db)
	fallback := repository.NewFallbackProvider()
	expenseService := service.NewExpenseService(
		expenseRepo,
		repository.NewUserRepository(db),
		repository.NewCategoryRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		fallback,
		nil,
	)
	statisticsService := service.NewStatisticsService(expenseRepo, fallback)

	router := gin.New()
	NewExpenseHandler(expenseService, statisticsService).RegisterRoutes(router.Group(""))

	return &handlerFixture{db: db, router: router}
}

func (f *handlerFixture) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) createExpense(t *testing.T) int {
	t.Helper()

	w := f.request(t, http.MethodPost, "/api/expenses", gin.H{
		"user_id":      1,
		"category_id":  1,
		"amount":       "42.00",
		"expense_date": "2026-08-20",
		"description":  "Train ticket",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data service.ExpenseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotZero(t, envelope.Data.ExpenseID)
	return envelope.Data.ExpenseID
}

func TestCreateAndGetExpense(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createExpense(t)

	w := f.request(t, http.MethodGet, fmt.Sprintf("/api/expenses/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Status string                  `json:"status"`
		Data   service.ExpenseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "success", envelope.Status)
	assert.Equal(t, "42.00", envelope.Data.Amount)
	assert.Equal(t, "Draft", envelope.Data.StatusName)
}

func TestCreateExpenseRejectsBadPayload(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPost, "/api/expenses", gin.H{
		"user_id":      1,
		"category_id":  1,
		"amount":       "-3.00",
		"expense_date": "2026-08-20",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLifecycleEndpoints(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createExpense(t)

	w := f.request(t, http.MethodPost, fmt.Sprintf("/api/expenses/%d/submit", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Approve without the reviewer is rejected up front.
	w = f.request(t, http.MethodPost, fmt.Sprintf("/api/expenses/%d/approve", id), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.request(t, http.MethodPost, fmt.Sprintf("/api/expenses/%d/approve?reviewer_id=2", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data service.ExpenseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Approved", envelope.Data.StatusName)

	// Approving twice trips the guard.
	w = f.request(t, http.MethodPost, fmt.Sprintf("/api/expenses/%d/approve?reviewer_id=2", id), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "only Submitted expenses can be approved")
}

func TestPendingApprovalsEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createExpense(t)

	w := f.request(t, http.MethodGet, "/api/expenses/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var before struct {
		Data []service.ExpenseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &before))
	assert.Empty(t, before.Data)

	f.request(t, http.MethodPost, fmt.Sprintf("/api/expenses/%d/submit", id), nil)

	w = f.request(t, http.MethodGet, "/api/expenses/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var after struct {
		Data []service.ExpenseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	require.Len(t, after.Data, 1)
	assert.Equal(t, id, after.Data[0].ExpenseID)

	// Search narrows the pending list.
	w = f.request(t, http.MethodGet, "/api/expenses/pending?search=zzz-no-match", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var filtered struct {
		Data []service.ExpenseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
	assert.Empty(t, filtered.Data)
}

func TestGetExpensesFilterByStatus(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createExpense(t)
	f.createExpense(t)
	f.request(t, http.MethodPost, fmt.Sprintf("/api/expenses/%d/submit", id), nil)

	w := f.request(t, http.MethodGet, fmt.Sprintf("/api/expenses?status_id=%d", model.StatusSubmitted), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []service.ExpenseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, id, envelope.Data[0].ExpenseID)
}

func TestDegradedReadSetsHeader(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&model.Expense{}))

	w := f.request(t, http.MethodGet, "/api/expenses", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(response.HeaderErrorMessage))

	var envelope struct {
		Data []service.ExpenseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data)
}

func TestDegradedGetExpenseByID(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&model.Expense{}))

	// Fallback carries the id: degraded 200 with the diagnostic header.
	w := f.request(t, http.MethodGet, "/api/expenses/4", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(response.HeaderErrorMessage))

	// Fallback misses too: plain 404, never an empty 200.
	w = f.request(t, http.MethodGet, "/api/expenses/999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get(response.HeaderErrorMessage))
}

func TestMalformedFilterRejected(t *testing.T) {
	f := newHandlerFixture(t)

	for _, path := range []string{
		"/api/expenses?user_id=abc",
		"/api/expenses?status_id=1.5",
		"/api/expenses?category_id=",
	} {
		w := f.request(t, http.MethodGet, path, nil)
		if path == "/api/expenses?category_id=" {
			// Empty means absent, not malformed.
			assert.Equal(t, http.StatusOK, w.Code, path)
			continue
		}
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestInvalidIDParameter(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodGet, "/api/expenses/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExpenseNotFound(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodGet, "/api/expenses/424242", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReferenceEndpoints(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var categories struct {
		Data []model.Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &categories))
	assert.Len(t, categories.Data, 5)

	w = f.request(t, http.MethodGet, "/api/statuses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var statuses struct {
		Data []model.ExpenseStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	assert.Len(t, statuses.Data, 4)

	w = f.request(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users struct {
		Data []service.UserResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users.Data, 2)
}

func TestDashboardStatsEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createExpense(t)
	f.request(t, http.MethodPost, fmt.Sprintf("/api/expenses/%d/submit", id), nil)
	f.request(t, http.MethodPost, fmt.Sprintf("/api/expenses/%d/approve?reviewer_id=2", id), nil)

	w := f.request(t, http.MethodGet, "/api/expenses/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data service.DashboardStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.EqualValues(t, 1, envelope.Data.TotalExpenses)
	assert.Equal(t, "42.00", envelope.Data.ApprovedAmount)
}

func TestDeleteDraftExpense(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createExpense(t)

	w := f.request(t, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodGet, fmt.Sprintf("/api/expenses/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
