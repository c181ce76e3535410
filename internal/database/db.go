package database

import (
	"log"

	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewConnection initializes a connection pool using GORM and prepares the
// schema. A failed migration is logged but not fatal — the server can still
// serve degraded reads.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate auto-migrates the core models and seeds the closed reference sets.
// Also used by tests against an in-memory database.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.Category{},
		&model.ExpenseStatus{},
		&model.Expense{},
		&model.AuditLog{},
	); err != nil {
		return err
	}
	return seed(db)
}

// seed inserts the static reference data and the demo users. Idempotent:
// existing rows are left untouched.
func seed(db *gorm.DB) error {
	statuses := []model.ExpenseStatus{
		{StatusID: model.StatusDraft, StatusName: "Draft"},
		{StatusID: model.StatusSubmitted, StatusName: "Submitted"},
		{StatusID: model.StatusApproved, StatusName: "Approved"},
		{StatusID: model.StatusRejected, StatusName: "Rejected"},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses).Error; err != nil {
		return err
	}

	categories := []model.Category{
		{CategoryID: 1, CategoryName: "Travel", IsActive: true},
		{CategoryID: 2, CategoryName: "Meals", IsActive: true},
		{CategoryID: 3, CategoryName: "Supplies", IsActive: true},
		{CategoryID: 4, CategoryName: "Accommodation", IsActive: true},
		{CategoryID: 5, CategoryName: "Other", IsActive: true},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error; err != nil {
		return err
	}

	roles := []model.Role{
		{RoleID: model.RoleEmployee, RoleName: "Employee"},
		{RoleID: model.RoleManager, RoleName: "Manager"},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error; err != nil {
		return err
	}

	// Manager first so the employee's manager_id resolves.
	managerID := 2
	users := []model.User{
		{UserID: 2, UserName: "Bob Manager", Email: "bob.manager@example.co.uk", RoleID: model.RoleManager, IsActive: true},
		{UserID: 1, UserName: "Alice Example", Email: "alice@example.co.uk", RoleID: model.RoleEmployee, ManagerID: &managerID, IsActive: true},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&users).Error
}
