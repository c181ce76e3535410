package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense status ids — closed reference set, seeded at migration time.
// Lifecycle: Draft -> Submitted -> Approved | Rejected. Approved and Rejected
// are terminal; nothing goes back to Draft.
const (
	StatusDraft     = 1
	StatusSubmitted = 2
	StatusApproved  = 3
	StatusRejected  = 4
)

// DefaultCurrency — this deployment is single-currency.
const DefaultCurrency = "GBP"

// MaxDescriptionLength caps the free-text description.
const MaxDescriptionLength = 1000

// Expense is the central entity: one spend by one user, moving through the
// approval lifecycle. Amounts are stored as integer minor units (pence) to
// avoid floating-point rounding; the display amount is always derived.
type Expense struct {
	ExpenseID   int            `gorm:"column:expense_id;primaryKey;autoIncrement" json:"expense_id"`
	UserID      int            `gorm:"column:user_id;not null;index" json:"user_id"`
	User        *User          `gorm:"references:UserID" json:"user,omitempty"`
	CategoryID  int            `gorm:"column:category_id;not null;index" json:"category_id"`
	Category    *Category      `gorm:"references:CategoryID" json:"category,omitempty"`
	StatusID    int            `gorm:"column:status_id;not null;default:1;index" json:"status_id"`
	Status      *ExpenseStatus `gorm:"references:StatusID" json:"status,omitempty"`
	AmountMinor int64          `gorm:"column:amount_minor;not null" json:"amount_minor"`
	Currency    string         `gorm:"type:varchar(3);not null;default:'GBP'" json:"currency"`
	ExpenseDate time.Time      `gorm:"column:expense_date;not null" json:"expense_date"`
	Description *string        `gorm:"type:varchar(1000)" json:"description"`
	ReceiptFile *string        `gorm:"type:varchar(255)" json:"receipt_file"`
	SubmittedAt *time.Time     `json:"submitted_at"` // set exactly once, on submission
	ReviewedBy  *int           `gorm:"column:reviewed_by" json:"reviewed_by"`
	Reviewer    *User          `gorm:"foreignKey:ReviewedBy;references:UserID" json:"reviewer,omitempty"`
	ReviewedAt  *time.Time     `json:"reviewed_at"` // set exactly once, on approval or rejection
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// AmountGBP derives the decimal display amount from the stored minor units.
func (e Expense) AmountGBP() decimal.Decimal {
	return decimal.NewFromInt(e.AmountMinor).Shift(-2)
}
