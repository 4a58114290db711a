package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/billhub/internal/domain/shared"
	"github.com/erp/billhub/internal/infrastructure/persistence/models"
)

func TestGormOwnerDirectory_Lookup(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	dept := models.DepartmentModel{Name: "Procurement"}
	dept.ID = uuid.New()
	require.NoError(t, db.DB.Create(&dept).Error)

	withDept := models.UserModel{Username: "alice", Email: "a@example.com", Phone: "555", DisplayName: "Alice", DepartmentID: &dept.ID}
	withDept.ID = uuid.New()
	noDept := models.UserModel{Username: "bob"}
	noDept.ID = uuid.New()
	require.NoError(t, db.DB.Create(&withDept).Error)
	require.NoError(t, db.DB.Create(&noDept).Error)

	dir := NewGormOwnerDirectory(db.DB)

	owner, err := dir.Lookup(ctx, withDept.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner.Username)
	assert.Equal(t, "Alice", owner.Alias)
	assert.Equal(t, "Procurement", owner.DepartmentName)

	owner, err = dir.Lookup(ctx, noDept.ID)
	require.NoError(t, err)
	assert.Empty(t, owner.DepartmentName)

	_, err = dir.Lookup(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
