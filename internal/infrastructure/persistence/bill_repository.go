package persistence

import (
	"context"
	"errors"

	"github.com/erp/billhub/internal/domain/bill"
	"github.com/erp/billhub/internal/domain/shared"
	"github.com/erp/billhub/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillRepository implements BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// FindByID finds a bill by its ID
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*bill.Bill, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a bill by its ID and locks the row (SELECT ... FOR UPDATE).
// Must be called inside a transaction; the lock is held until it ends.
func (r *GormBillRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*bill.Bill, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormBillRepository) find(db *gorm.DB, id uuid.UUID) (*bill.Bill, error) {
	var model models.BillModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bill.ErrBillNotFound(id)
		}
		return nil, err
	}
	return model.ToDomain()
}

// Create inserts a new bill row
func (r *GormBillRepository) Create(ctx context.Context, b *bill.Bill) error {
	return r.db.WithContext(ctx).Create(models.BillModelFromDomain(b)).Error
}

// Save writes the bill's derived and mutable columns. The caller bumps the
// version; the stored row must still carry the previous one.
func (r *GormBillRepository) Save(ctx context.Context, b *bill.Bill) error {
	model := models.BillModelFromDomain(b)
	result := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where("id = ? AND version = ?", b.ID, b.Version-1).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"remark":       model.Remark,
			"total_amount": model.TotalAmount,
			"paid_amount":  model.PaidAmount,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewRetryableDomainError("CONCURRENCY_CONFLICT", "Bill was modified by another transaction")
	}
	return nil
}

// Delete removes the bill and its items
func (r *GormBillRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("bill_id = ?", id).Delete(&models.BillItemModel{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ?", id).Delete(&models.BillModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bill.ErrBillNotFound(id)
	}
	return nil
}

// GormBillItemRepository implements BillItemRepository using GORM
type GormBillItemRepository struct {
	db *gorm.DB
}

// NewGormBillItemRepository creates a new GormBillItemRepository
func NewGormBillItemRepository(db *gorm.DB) *GormBillItemRepository {
	return &GormBillItemRepository{db: db}
}

// FindByBill returns all items of a bill in creation order
func (r *GormBillItemRepository) FindByBill(ctx context.Context, billID uuid.UUID) ([]*bill.BillItem, error) {
	var rows []models.BillItemModel
	if err := r.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainItems(rows)
}

// FindByIDs returns the items with the given ids, across bills
func (r *GormBillItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*bill.BillItem, error) {
	if len(ids) == 0 {
		return []*bill.BillItem{}, nil
	}
	var rows []models.BillItemModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainItems(rows)
}

// CreateBatch bulk-inserts new items
func (r *GormBillItemRepository) CreateBatch(ctx context.Context, items []*bill.BillItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]*models.BillItemModel, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.BillItemModelFromDomain(item))
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// SaveAll writes the mutable columns of each item
func (r *GormBillItemRepository) SaveAll(ctx context.Context, items []*bill.BillItem) error {
	db := r.db.WithContext(ctx)
	for _, item := range items {
		m := models.BillItemModelFromDomain(item)
		result := db.Model(&models.BillItemModel{}).
			Where("id = ? AND bill_id = ?", m.ID, m.BillID).
			Updates(map[string]interface{}{
				"status":            m.Status,
				"payment_method":    m.PaymentMethod,
				"settler_name":      m.SettlerName,
				"settle_time":       m.SettleTime,
				"amount":            m.Amount,
				"paid_amount":       m.PaidAmount,
				"refunded_quantity": m.RefundedQuantity,
				"remark":            m.Remark,
				"updated_at":        m.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return bill.ErrItemNotFound(item.ID)
		}
	}
	return nil
}

func toDomainItems(rows []models.BillItemModel) ([]*bill.BillItem, error) {
	items := make([]*bill.BillItem, 0, len(rows))
	for i := range rows {
		item, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

var (
	_ bill.BillRepository     = (*GormBillRepository)(nil)
	_ bill.BillItemRepository = (*GormBillItemRepository)(nil)
)
