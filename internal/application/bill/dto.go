package bill

import (
	"time"

	"github.com/erp/billhub/internal/domain/bill"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// BillItemInput describes one purchased line
type BillItemInput struct {
	ProductName  string          `json:"product_name" binding:"required,min=1,max=200"`
	Price        decimal.Decimal `json:"price" binding:"dgte=0"`
	Quantity     decimal.Decimal `json:"quantity" binding:"dgt=0"`
	Unit         string          `json:"unit" binding:"required,min=1,max=20"`
	PurchaseTime time.Time       `json:"purchase_time" binding:"required"`
	BuyerName    string          `json:"buyer_name" binding:"required,min=1,max=100"`
	Remark       *string         `json:"remark"`
}

func (in BillItemInput) toDomain() bill.ItemInput {
	return bill.ItemInput{
		ProductName:  in.ProductName,
		Price:        in.Price,
		Quantity:     in.Quantity,
		Unit:         in.Unit,
		PurchaseTime: in.PurchaseTime,
		BuyerName:    in.BuyerName,
		Remark:       in.Remark,
	}
}

// CreateBillRequest opens a bill with an optional initial set of items
type CreateBillRequest struct {
	OwnerID uuid.UUID       `json:"owner_id" binding:"required"`
	Remark  *string         `json:"remark"`
	Items   []BillItemInput `json:"items" binding:"dive"`
}

// AddBillItemsRequest appends items to an existing bill
type AddBillItemsRequest struct {
	Items []BillItemInput `json:"items" binding:"required,min=1,dive"`
}

// SettleItemsRequest settles a batch of items of one bill
type SettleItemsRequest struct {
	ItemIDs       []uuid.UUID `json:"item_ids" binding:"required,min=1"`
	PaymentMethod *string     `json:"payment_method" binding:"omitempty,oneof=cash alipay wechat credit CASH ALIPAY WECHAT CREDIT"`
	SettlerName   *string     `json:"settler_name" binding:"omitempty,max=100"`
	SettleTime    *time.Time  `json:"settle_time"`
	Remark        *string     `json:"remark"`
}

// RefundItemsRequest refunds a batch of paid items in full
type RefundItemsRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids" binding:"required,min=1"`
}

// RefundItemRequest refunds a single item, fully or by quantity.
// A nil Quantity refunds the item in full.
type RefundItemRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"omitempty,dgt=0"`
	Remark   *string          `json:"remark"`
}

// UpdateBillRequest updates the writable bill fields
type UpdateBillRequest struct {
	Remark *string `json:"remark"`
}

// ==================== Responses ====================

// BillItemResponse is the wire view of a bill item
type BillItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	BillID           uuid.UUID       `json:"bill_id"`
	ProductName      string          `json:"product_name"`
	Price            decimal.Decimal `json:"price"`
	Quantity         decimal.Decimal `json:"quantity"`
	RefundedQuantity decimal.Decimal `json:"refunded_quantity"`
	Unit             string          `json:"unit"`
	PurchaseTime     time.Time       `json:"purchase_time"`
	BuyerName        string          `json:"buyer_name"`
	Status           string          `json:"status"`
	PaymentMethod    string          `json:"payment_method"`
	SettlerName      *string         `json:"settler_name,omitempty"`
	SettleTime       *time.Time      `json:"settle_time,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	Remark           *string         `json:"remark,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BillResponse is the wire view of a bill
type BillResponse struct {
	ID          uuid.UUID          `json:"id"`
	OwnerID     uuid.UUID          `json:"owner_id"`
	Status      string             `json:"status"`
	Remark      *string            `json:"remark,omitempty"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	PaidAmount  decimal.Decimal    `json:"paid_amount"`
	Version     int                `json:"version"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Items       []BillItemResponse `json:"items"`
}

// ExportResponse locates an exported statement
type ExportResponse struct {
	URL        string     `json:"url"`
	StorageKey string     `json:"storage_key"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// ToBillItemResponse converts a domain item to its wire view
func ToBillItemResponse(i *bill.BillItem) BillItemResponse {
	return BillItemResponse{
		ID:               i.ID,
		BillID:           i.BillID,
		ProductName:      i.ProductName,
		Price:            i.Price,
		Quantity:         i.Quantity,
		RefundedQuantity: i.RefundedQuantity,
		Unit:             i.Unit,
		PurchaseTime:     i.PurchaseTime,
		BuyerName:        i.BuyerName,
		Status:           i.Status.Code(),
		PaymentMethod:    i.PaymentMethod.Code(),
		SettlerName:      i.SettlerName,
		SettleTime:       i.SettleTime,
		Amount:           i.Amount,
		PaidAmount:       i.PaidAmount,
		Remark:           i.Remark,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

// ToBillResponse converts a domain bill (with its loaded items) to its wire view
func ToBillResponse(b *bill.Bill) BillResponse {
	items := make([]BillItemResponse, 0, len(b.Items))
	for _, item := range b.Items {
		items = append(items, ToBillItemResponse(item))
	}
	return BillResponse{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		Status:      b.Status.Code(),
		Remark:      b.Remark,
		TotalAmount: b.TotalAmount,
		PaidAmount:  b.PaidAmount,
		Version:     b.Version,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		Items:       items,
	}
}
