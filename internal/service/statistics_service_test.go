package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stats := NewStatisticsService(f.expenseRepo, f.fallback)

	f.create(t, "10.00") // stays Draft

	pending := f.create(t, "20.00")
	_, err := f.service.SubmitExpense(ctx, pending.ExpenseID)
	require.NoError(t, err)

	for _, amount := range []string{"30.00", "12.50"} {
		e := f.create(t, amount)
		_, err := f.service.SubmitExpense(ctx, e.ExpenseID)
		require.NoError(t, err)
		_, err = f.service.ApproveExpense(ctx, e.ExpenseID, 2)
		require.NoError(t, err)
	}

	rejected := f.create(t, "99.00")
	_, err = f.service.SubmitExpense(ctx, rejected.ExpenseID)
	require.NoError(t, err)
	_, err = f.service.RejectExpense(ctx, rejected.ExpenseID, 2)
	require.NoError(t, err)

	got, err := stats.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got.TotalExpenses)
	assert.EqualValues(t, 1, got.PendingApprovals)
	assert.EqualValues(t, 2, got.ApprovedCount)
	// Rejected amounts never count toward the approved total.
	assert.Equal(t, "42.50", got.ApprovedAmount)
}

func TestDashboardStatsDegraded(t *testing.T) {
	f := newFixture(t)
	stats := NewStatisticsService(f.expenseRepo, f.fallback)

	require.NoError(t, f.db.Migrator().DropTable(&model.Expense{}))

	got, err := stats.GetDashboardStats(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsStoreUnavailable(err))

	want := f.fallback.DashboardStats()
	assert.Equal(t, want.TotalExpenses, got.TotalExpenses)
	assert.Equal(t, "519.24", got.ApprovedAmount)
}
