package model

import (
	"time"
)

// Role ids — seeded reference data.
const (
	RoleEmployee = 1
	RoleManager  = 2
)

// Role represents a user role (Employee, Manager).
type Role struct {
	RoleID   int    `gorm:"column:role_id;primaryKey" json:"role_id"`
	RoleName string `gorm:"column:role_name;type:varchar(50);uniqueIndex;not null" json:"role_name"`
}

// User represents an employee or manager. Identity is a plain numeric id
// passed by callers; there is no session or token layer in this system.
type User struct {
	UserID    int       `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	UserName  string    `gorm:"column:user_name;type:varchar(255);not null" json:"user_name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	RoleID    int       `gorm:"column:role_id;not null" json:"role_id"`
	Role      *Role     `gorm:"references:RoleID" json:"role,omitempty"`
	ManagerID *int      `gorm:"column:manager_id" json:"manager_id"`
	Manager   *User     `gorm:"foreignKey:ManagerID;references:UserID" json:"-"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
