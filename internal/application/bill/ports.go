package bill

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Owner is the identity information shown on an exported statement
type Owner struct {
	ID             uuid.UUID
	Username       string
	Phone          string
	Email          string
	Alias          string
	DepartmentName string
}

// OwnerDirectory resolves bill owners
type OwnerDirectory interface {
	Lookup(ctx context.Context, ownerID uuid.UUID) (*Owner, error)
}

// BillSnapshot is a consistent, read-only view of a bill handed to an exporter
type BillSnapshot struct {
	BillID      uuid.UUID
	Owner       Owner
	Status      string
	Remark      string
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	CreatedAt   time.Time
	ExportTime  time.Time
	Items       []SnapshotItem
}

// SnapshotItem is one statement row
type SnapshotItem struct {
	ProductName   string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	Unit          string
	PurchaseTime  time.Time
	SettleTime    *time.Time
	BuyerName     string
	Status        string
	PaymentMethod string
	SettlerName   string
	Amount        decimal.Decimal
	PaidAmount    decimal.Decimal
	Remark        string
}

// ExportResult locates a produced document
type ExportResult struct {
	URL        string
	StorageKey string
	ExpiresAt  *time.Time
	PageCount  int
}

// Exporter turns a bill snapshot into a retrievable document
type Exporter interface {
	Export(ctx context.Context, snapshot BillSnapshot) (*ExportResult, error)
}

// OperationRecorder receives the outcome of every bill operation
type OperationRecorder interface {
	RecordOperation(ctx context.Context, operation string, err error, duration time.Duration)
	RecordSettlement(ctx context.Context, itemCount int, amount decimal.Decimal)
	RecordRefund(ctx context.Context, itemCount int, amount decimal.Decimal)
}

type noopRecorder struct{}

func (noopRecorder) RecordOperation(context.Context, string, error, time.Duration) {}
func (noopRecorder) RecordSettlement(context.Context, int, decimal.Decimal) {}
func (noopRecorder) RecordRefund(context.Context, int, decimal.Decimal) {}
