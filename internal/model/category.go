package model

// Category classifies an expense. Categories are administrative reference
// data: seeded once, read-only to the lifecycle engine.
type Category struct {
	CategoryID   int    `gorm:"column:category_id;primaryKey;autoIncrement" json:"category_id"`
	CategoryName string `gorm:"column:category_name;type:varchar(100);uniqueIndex;not null" json:"category_name"`
	IsActive     bool   `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

// ExpenseStatus names one of the four lifecycle states. The table exists so
// listings can join a human-readable status name; the ids are fixed.
type ExpenseStatus struct {
	StatusID   int    `gorm:"column:status_id;primaryKey" json:"status_id"`
	StatusName string `gorm:"column:status_name;type:varchar(50);uniqueIndex;not null" json:"status_name"`
}

func (ExpenseStatus) TableName() string {
	return "expense_statuses"
}
