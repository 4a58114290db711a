package persistence

import (
	"context"
	"errors"
	"fmt"

	appbill "github.com/erp/billhub/internal/application/bill"
	"github.com/erp/billhub/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOwnerDirectory resolves bill owners from the users and departments tables
type GormOwnerDirectory struct {
	db *gorm.DB
}

// NewGormOwnerDirectory creates a new GormOwnerDirectory
func NewGormOwnerDirectory(db *gorm.DB) *GormOwnerDirectory {
	return &GormOwnerDirectory{db: db}
}

type ownerRow struct {
	ID             uuid.UUID
	Username       string
	Email          string
	Phone          string
	DisplayName    string
	DepartmentName *string
}

// Lookup returns the owner's contact and department details
func (d *GormOwnerDirectory) Lookup(ctx context.Context, ownerID uuid.UUID) (*appbill.Owner, error) {
	var row ownerRow
	err := d.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.username, users.email, users.phone, users.display_name, departments.name AS department_name").
		Joins("LEFT JOIN departments ON departments.id = users.department_id").
		Where("users.id = ?", ownerID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("owner %s not found", ownerID))
		}
		return nil, err
	}

	owner := &appbill.Owner{
		ID:       row.ID,
		Username: row.Username,
		Email:    row.Email,
		Phone:    row.Phone,
		Alias:    row.DisplayName,
	}
	if row.DepartmentName != nil {
		owner.DepartmentName = *row.DepartmentName
	}
	return owner, nil
}

var _ appbill.OwnerDirectory = (*GormOwnerDirectory)(nil)
