package model

// DashboardStats summarizes the current expense set. It is a projection
// recomputed on every read — never persisted.
type DashboardStats struct {
	TotalExpenses       int64 `json:"total_expenses"`
	PendingApprovals    int64 `json:"pending_approvals"`
	ApprovedAmountMinor int64 `json:"approved_amount_minor"`
	ApprovedCount       int64 `json:"approved_count"`
}
