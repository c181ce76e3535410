package model

import (
	"time"
)

// Audit actions for the expense lifecycle.
const (
	ActionCreateExpense  = "CREATE_EXPENSE"
	ActionUpdateExpense  = "UPDATE_EXPENSE"
	ActionDeleteExpense  = "DELETE_EXPENSE"
	ActionSubmitExpense  = "SUBMIT_EXPENSE"
	ActionApproveExpense = "APPROVE_EXPENSE"
	ActionRejectExpense  = "REJECT_EXPENSE"
)

// AuditLog tracks Who, What and When for every lifecycle mutation. Rows are
// written in the same transaction as the mutation they record.
type AuditLog struct {
	ID        int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    *int      `gorm:"column:user_id;index" json:"user_id"` // nil when the actor is unknown (e.g. submit)
	User      *User     `gorm:"references:UserID" json:"user,omitempty"`
	Action    string    `gorm:"type:varchar(50);not null;index" json:"action"`
	ExpenseID int       `gorm:"column:expense_id;not null;index" json:"expense_id"`
	Details   string    `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
