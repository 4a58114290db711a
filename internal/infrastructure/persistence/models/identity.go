package models

import (
	"github.com/google/uuid"
)

// UserModel is the read-only projection of the users table used to describe
// bill owners. Accounts are managed by the identity service.
type UserModel struct {
	BaseModel
	Username     string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	Email        string     `gorm:"type:varchar(200)"`
	Phone        string     `gorm:"type:varchar(50)"`
	DisplayName  string     `gorm:"type:varchar(200)"`
	DepartmentID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// DepartmentModel is the read-only projection of the departments table
type DepartmentModel struct {
	BaseModel
	Name string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (DepartmentModel) TableName() string {
	return "departments"
}
