package models

import (
	"fmt"
	"time"

	"github.com/erp/billhub/internal/domain/bill"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillModel is the persistence model for the Bill aggregate root
type BillModel struct {
	AggregateModel
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status      string          `gorm:"type:varchar(20);not null;default:'unpaid';index"`
	Remark      *string         `gorm:"type:text"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	PaidAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the model to a domain Bill without items
func (m *BillModel) ToDomain() (*bill.Bill, error) {
	status, err := bill.ParseBillStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("bill %s: %w", m.ID, err)
	}
	return &bill.Bill{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OwnerID:           m.OwnerID,
		Status:            status,
		Remark:            m.Remark,
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		Items:             make([]*bill.BillItem, 0),
	}, nil
}

// FromDomain populates the model from a domain Bill
func (m *BillModel) FromDomain(b *bill.Bill) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.OwnerID = b.OwnerID
	m.Status = b.Status.Code()
	m.Remark = b.Remark
	m.TotalAmount = b.TotalAmount
	m.PaidAmount = b.PaidAmount
}

// BillModelFromDomain creates a new persistence model from a domain Bill
func BillModelFromDomain(b *bill.Bill) *BillModel {
	m := &BillModel{}
	m.FromDomain(b)
	return m
}

// BillItemModel is the persistence model for a bill item
type BillItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	BillID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName      string          `gorm:"type:varchar(200);not null"`
	Price            decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	RefundedQuantity decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0"`
	Unit             string          `gorm:"type:varchar(20);not null"`
	PurchaseTime     time.Time       `gorm:"not null"`
	BuyerName        string          `gorm:"type:varchar(100);not null"`
	Status           string          `gorm:"type:varchar(20);not null;default:'unpaid';index"`
	PaymentMethod    string          `gorm:"type:varchar(20);not null;default:'credit'"`
	SettlerName      *string         `gorm:"type:varchar(100)"`
	SettleTime       *time.Time
	Amount           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PaidAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Remark           *string         `gorm:"type:text"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BillItemModel) TableName() string {
	return "bill_items"
}

// ToDomain converts the model to a domain BillItem, validating stored codes
func (m *BillItemModel) ToDomain() (*bill.BillItem, error) {
	status, err := bill.ParseItemStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("bill item %s: %w", m.ID, err)
	}
	method, err := bill.ParsePaymentMethod(m.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("bill item %s: %w", m.ID, err)
	}
	return &bill.BillItem{
		ID:               m.ID,
		BillID:           m.BillID,
		ProductName:      m.ProductName,
		Price:            m.Price,
		Quantity:         m.Quantity,
		RefundedQuantity: m.RefundedQuantity,
		Unit:             m.Unit,
		PurchaseTime:     m.PurchaseTime,
		BuyerName:        m.BuyerName,
		Status:           status,
		PaymentMethod:    method,
		SettlerName:      m.SettlerName,
		SettleTime:       m.SettleTime,
		Amount:           m.Amount,
		PaidAmount:       m.PaidAmount,
		Remark:           m.Remark,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

// FromDomain populates the model from a domain BillItem
func (m *BillItemModel) FromDomain(i *bill.BillItem) {
	m.ID = i.ID
	m.BillID = i.BillID
	m.ProductName = i.ProductName
	m.Price = i.Price
	m.Quantity = i.Quantity
	m.RefundedQuantity = i.RefundedQuantity
	m.Unit = i.Unit
	m.PurchaseTime = i.PurchaseTime
	m.BuyerName = i.BuyerName
	m.Status = i.Status.Code()
	m.PaymentMethod = i.PaymentMethod.Code()
	m.SettlerName = i.SettlerName
	m.SettleTime = i.SettleTime
	m.Amount = i.Amount
	m.PaidAmount = i.PaidAmount
	m.Remark = i.Remark
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// BillItemModelFromDomain creates a new persistence model from a domain BillItem
func BillItemModelFromDomain(i *bill.BillItem) *BillItemModel {
	m := &BillItemModel{}
	m.FromDomain(i)
	return m
}
