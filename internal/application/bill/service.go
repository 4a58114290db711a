package bill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/billhub/internal/domain/bill"
	"github.com/erp/billhub/internal/domain/shared"
	"github.com/erp/billhub/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CrossBillPolicy decides what a batch operation does with item ids that do
// not belong to the target bill
type CrossBillPolicy string

const (
	// CrossBillIgnore silently drops foreign ids from the batch
	CrossBillIgnore CrossBillPolicy = "ignore"
	// CrossBillReject fails the whole batch on the first foreign id
	CrossBillReject CrossBillPolicy = "reject"
)

// IsValid checks if the policy is known
func (p CrossBillPolicy) IsValid() bool {
	return p == CrossBillIgnore || p == CrossBillReject
}

// Operation names used for spans and metrics
const (
	OpCreate   = "create"
	OpGet      = "get"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpAddItems = "add_items"
	OpSettle   = "settle_items"
	OpRefund   = "refund_item"
	OpRefunds  = "refund_items"
	OpExport   = "export"
)

// ServiceOption configures a BillService
type ServiceOption func(*BillService)

// WithCrossBillPolicy sets how batch operations treat foreign item ids
func WithCrossBillPolicy(p CrossBillPolicy) ServiceOption {
	return func(s *BillService) {
		if p.IsValid() {
			s.policy = p
		}
	}
}

// WithOwnerDirectory sets the owner lookup used by exports
func WithOwnerDirectory(d OwnerDirectory) ServiceOption {
	return func(s *BillService) { s.owners = d }
}

// WithExporter sets the document exporter
func WithExporter(e Exporter) ServiceOption {
	return func(s *BillService) { s.exporter = e }
}

// WithRecorder sets the operation metrics recorder
func WithRecorder(r OperationRecorder) ServiceOption {
	return func(s *BillService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *BillService) {
		if l != nil {
			s.logger = l
		}
	}
}

// BillService runs bill operations. Every mutation locks the bill, reloads
// all of its items, applies item transitions, reconciles and commits as one
// transaction.
type BillService struct {
	txScope  TransactionScope
	owners   OwnerDirectory
	exporter Exporter
	recorder OperationRecorder
	policy   CrossBillPolicy
	logger   *zap.Logger
}

// NewBillService creates a new BillService
func NewBillService(txScope TransactionScope, opts ...ServiceOption) *BillService {
	s := &BillService{
		txScope:  txScope,
		recorder: noopRecorder{},
		policy:   CrossBillIgnore,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBill opens a bill with its initial items. Totals and status are
// reconciled like any other change, so a bill with nothing to pay starts PAID.
func (s *BillService) CreateBill(ctx context.Context, req CreateBillRequest) (resp *BillResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", OpCreate)
	defer span.End()
	defer s.observe(ctx, OpCreate, time.Now(), &err)

	b, err := bill.NewBill(req.OwnerID, req.Remark)
	if err != nil {
		return nil, err
	}
	for idx, in := range req.Items {
		if _, err := b.AddItem(in.toDomain()); err != nil {
			return nil, itemInputError(idx, err)
		}
	}
	b.Reconcile()
	if err := b.CheckTotals(); err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrBillID, b.ID.String(),
		telemetry.SpanAttrOwnerID, b.OwnerID.String(),
		telemetry.SpanAttrItemCount, len(b.Items),
	)

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.BillRepo().Create(ctx, b); err != nil {
			return err
		}
		if len(b.Items) == 0 {
			return nil
		}
		return repos.ItemRepo().CreateBatch(ctx, b.Items)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storeError(err)
	}

	s.logger.Info("bill created",
		zap.String("bill_id", b.ID.String()),
		zap.String("owner_id", b.OwnerID.String()),
		zap.Int("items", len(b.Items)),
		zap.String("total_amount", b.TotalAmount.StringFixed(bill.MoneyPlaces)))

	out := ToBillResponse(b)
	return &out, nil
}

// GetBill returns a bill with all of its items
func (s *BillService) GetBill(ctx context.Context, billID uuid.UUID) (resp *BillResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", OpGet)
	defer span.End()
	defer s.observe(ctx, OpGet, time.Now(), &err)
	telemetry.SetAttribute(span, telemetry.SpanAttrBillID, billID.String())

	var b *bill.Bill
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		b, err = loadBill(ctx, repos, billID, false)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storeError(err)
	}

	out := ToBillResponse(b)
	return &out, nil
}

// UpdateBill changes the bill remark. Totals and status are never writable.
func (s *BillService) UpdateBill(ctx context.Context, billID uuid.UUID, req UpdateBillRequest) (*BillResponse, error) {
	b, err := s.mutate(ctx, OpUpdate, billID, func(_ context.Context, _ TransactionalRepositories, b *bill.Bill) error {
		b.SetRemark(req.Remark)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := ToBillResponse(b)
	return &out, nil
}

// DeleteBill removes a bill and its items
func (s *BillService) DeleteBill(ctx context.Context, billID uuid.UUID) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", OpDelete)
	defer span.End()
	defer s.observe(ctx, OpDelete, time.Now(), &err)
	telemetry.SetAttribute(span, telemetry.SpanAttrBillID, billID.String())

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.BillRepo().FindByIDForUpdate(ctx, billID); err != nil {
			return err
		}
		return repos.BillRepo().Delete(ctx, billID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return storeError(err)
	}

	s.logger.Info("bill deleted", zap.String("bill_id", billID.String()))
	return nil
}

// AddBillItems appends items to an existing bill. The resulting status comes
// from reconciliation, so a previously paid bill turns UNPAID when the new
// items carry a positive amount.
func (s *BillService) AddBillItems(ctx context.Context, billID uuid.UUID, req AddBillItemsRequest) (*BillResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.ErrValidation.WithMessage("At least one item is required")
	}
	// Validate every input before a transaction is opened
	for idx, in := range req.Items {
		if _, err := bill.NewBillItem(billID, in.toDomain()); err != nil {
			return nil, itemInputError(idx, err)
		}
	}

	b, err := s.mutate(ctx, OpAddItems, billID, func(ctx context.Context, repos TransactionalRepositories, b *bill.Bill) error {
		added := make([]*bill.BillItem, 0, len(req.Items))
		for idx, in := range req.Items {
			item, err := b.AddItem(in.toDomain())
			if err != nil {
				return itemInputError(idx, err)
			}
			added = append(added, item)
		}
		b.Reconcile()
		if err := b.CheckTotals(); err != nil {
			return err
		}
		return repos.ItemRepo().CreateBatch(ctx, added)
	})
	if err != nil {
		return nil, err
	}
	out := ToBillResponse(b)
	return &out, nil
}

// SettleItems settles a batch of items of one bill and reconciles the bill
func (s *BillService) SettleItems(ctx context.Context, billID uuid.UUID, req SettleItemsRequest) error {
	update := bill.SettleUpdate{
		SettlerName: req.SettlerName,
		SettleTime:  req.SettleTime,
		Remark:      req.Remark,
	}
	if req.PaymentMethod != nil {
		method, err := bill.ParsePaymentMethod(*req.PaymentMethod)
		if err != nil {
			return shared.ErrValidation.WithMessage(err.Error())
		}
		update.PaymentMethod = &method
	}
	if len(req.ItemIDs) == 0 {
		return shared.ErrValidation.WithMessage("At least one item id is required")
	}

	settledAmount := decimal.Zero
	settledCount := 0
	_, err := s.mutate(ctx, OpSettle, billID, func(ctx context.Context, repos TransactionalRepositories, b *bill.Bill) error {
		items, err := s.selectItems(ctx, repos, b, req.ItemIDs)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := item.Settle(update); err != nil {
				return err
			}
			settledAmount = settledAmount.Add(item.PaidAmount)
		}
		settledCount = len(items)
		return repos.ItemRepo().SaveAll(ctx, items)
	})
	if err != nil {
		return err
	}
	s.recorder.RecordSettlement(ctx, settledCount, settledAmount)
	return nil
}

// RefundItems refunds a batch of paid items in full. Items that are not paid
// are skipped.
func (s *BillService) RefundItems(ctx context.Context, billID uuid.UUID, req RefundItemsRequest) error {
	if len(req.ItemIDs) == 0 {
		return shared.ErrValidation.WithMessage("At least one item id is required")
	}

	refundedAmount := decimal.Zero
	refundedCount := 0
	_, err := s.mutate(ctx, OpRefunds, billID, func(ctx context.Context, repos TransactionalRepositories, b *bill.Bill) error {
		items, err := s.selectItems(ctx, repos, b, req.ItemIDs)
		if err != nil {
			return err
		}
		changed := make([]*bill.BillItem, 0, len(items))
		for _, item := range items {
			paid := item.PaidAmount
			if item.Refund() {
				refundedAmount = refundedAmount.Add(paid)
				changed = append(changed, item)
			}
		}
		refundedCount = len(changed)
		if len(changed) == 0 {
			return nil
		}
		return repos.ItemRepo().SaveAll(ctx, changed)
	})
	if err != nil {
		return err
	}
	s.recorder.RecordRefund(ctx, refundedCount, refundedAmount)
	return nil
}

// RefundItem refunds a quantity of a single item. A nil quantity refunds
// everything that remains. The item must belong to the bill.
func (s *BillService) RefundItem(ctx context.Context, billID, itemID uuid.UUID, req RefundItemRequest) error {
	if req.Quantity != nil && !req.Quantity.IsPositive() {
		return shared.ErrInvalidQuantity.WithMessage("Refund quantity must be greater than 0")
	}
	if req.Quantity != nil && !req.Quantity.Equal(req.Quantity.Round(bill.QuantityPlaces)) {
		return shared.ErrInvalidQuantity.WithMessage("Refund quantity cannot have more than 3 decimal places")
	}

	var refunded decimal.Decimal
	_, err := s.mutate(ctx, OpRefund, billID, func(ctx context.Context, repos TransactionalRepositories, b *bill.Bill) error {
		item := b.FindItem(itemID)
		if item == nil {
			return classifyForeignItem(ctx, repos, billID, itemID)
		}
		qty := item.RemainingQuantity()
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		paidBefore := item.PaidAmount
		if err := item.RefundQuantity(qty); err != nil {
			return err
		}
		item.SetRemark(req.Remark)
		refunded = paidBefore.Sub(item.PaidAmount)
		return repos.ItemRepo().SaveAll(ctx, []*bill.BillItem{item})
	})
	if err != nil {
		return err
	}
	s.recorder.RecordRefund(ctx, 1, refunded)
	return nil
}

// ExportBill renders a statement of the bill and returns where it can be
// downloaded. It never changes ledger state.
func (s *BillService) ExportBill(ctx context.Context, billID uuid.UUID, exportTime time.Time) (resp *ExportResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", OpExport)
	defer span.End()
	defer s.observe(ctx, OpExport, time.Now(), &err)
	telemetry.SetAttribute(span, telemetry.SpanAttrBillID, billID.String())

	if s.exporter == nil {
		return nil, shared.ErrExportFailed.WithMessage("Bill export is not configured")
	}
	if exportTime.IsZero() {
		exportTime = time.Now()
	}

	// Hold the row lock while reading so bill and items describe the same state
	var b *bill.Bill
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		b, err = loadBill(ctx, repos, billID, true)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storeError(err)
	}

	owner := Owner{ID: b.OwnerID}
	if s.owners != nil {
		found, err := s.owners.Lookup(ctx, b.OwnerID)
		if err != nil {
			telemetry.RecordError(span, err)
			if errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			return nil, storeError(err)
		}
		owner = *found
	}

	result, err := s.exporter.Export(ctx, snapshotOf(b, owner, exportTime))
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("bill export failed", zap.String("bill_id", billID.String()), zap.Error(err))
		if errors.Is(err, shared.ErrExportFailed) {
			return nil, err
		}
		return nil, shared.ErrExportFailed.Wrap(err)
	}

	s.logger.Info("bill exported",
		zap.String("bill_id", billID.String()),
		zap.String("storage_key", result.StorageKey),
		zap.Int("pages", result.PageCount))

	return &ExportResponse{
		URL:        result.URL,
		StorageKey: result.StorageKey,
		ExpiresAt:  result.ExpiresAt,
	}, nil
}

// mutate is the common locked read-modify-write cycle
func (s *BillService) mutate(
	ctx context.Context,
	op string,
	billID uuid.UUID,
	apply func(ctx context.Context, repos TransactionalRepositories, b *bill.Bill) error,
) (b *bill.Bill, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", op)
	defer span.End()
	defer s.observe(ctx, op, time.Now(), &err)
	telemetry.SetAttribute(span, telemetry.SpanAttrBillID, billID.String())

	telemetry.ProfileOperation(ctx, op, func(ctx context.Context) {
		err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			b, err = loadBill(ctx, repos, billID, true)
			if err != nil {
				return err
			}
			if err := apply(ctx, repos, b); err != nil {
				return err
			}
			b.Reconcile()
			if err := b.CheckTotals(); err != nil {
				return err
			}
			b.IncrementVersion()
			return repos.BillRepo().Save(ctx, b)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storeError(err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrBillStatus, b.Status.Code(),
		telemetry.SpanAttrItemCount, len(b.Items),
	)
	s.logger.Debug("bill reconciled",
		zap.String("operation", op),
		zap.String("bill_id", b.ID.String()),
		zap.String("status", b.Status.Code()),
		zap.String("total_amount", b.TotalAmount.StringFixed(bill.MoneyPlaces)),
		zap.String("paid_amount", b.PaidAmount.StringFixed(bill.MoneyPlaces)),
		zap.Int("version", b.Version))
	return b, nil
}

// selectItems picks the bill's items named by ids. Foreign ids are dropped or
// rejected depending on the cross-bill policy.
func (s *BillService) selectItems(ctx context.Context, repos TransactionalRepositories, b *bill.Bill, ids []uuid.UUID) ([]*bill.BillItem, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	selected := make([]*bill.BillItem, 0, len(ids))
	foreign := make([]uuid.UUID, 0)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if item := b.FindItem(id); item != nil {
			selected = append(selected, item)
		} else {
			foreign = append(foreign, id)
		}
	}

	if len(foreign) == 0 {
		return selected, nil
	}
	if s.policy == CrossBillIgnore {
		s.logger.Debug("ignoring item ids outside bill",
			zap.String("bill_id", b.ID.String()),
			zap.Int("count", len(foreign)))
		return selected, nil
	}

	found, err := repos.ItemRepo().FindByIDs(ctx, foreign)
	if err != nil {
		return nil, err
	}
	elsewhere := make(map[uuid.UUID]struct{}, len(found))
	for _, item := range found {
		elsewhere[item.ID] = struct{}{}
	}
	for _, id := range foreign {
		if _, ok := elsewhere[id]; ok {
			return nil, bill.ErrItemNotInBill(id, b.ID)
		}
	}
	return nil, bill.ErrItemNotFound(foreign[0])
}

func (s *BillService) observe(ctx context.Context, op string, start time.Time, err *error) {
	s.recorder.RecordOperation(ctx, op, *err, time.Since(start))
}

// loadBill loads the bill (optionally row-locked) together with its full item set
func loadBill(ctx context.Context, repos TransactionalRepositories, billID uuid.UUID, lock bool) (*bill.Bill, error) {
	var (
		b   *bill.Bill
		err error
	)
	if lock {
		b, err = repos.BillRepo().FindByIDForUpdate(ctx, billID)
	} else {
		b, err = repos.BillRepo().FindByID(ctx, billID)
	}
	if err != nil {
		return nil, err
	}
	items, err := repos.ItemRepo().FindByBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return b, nil
}

func classifyForeignItem(ctx context.Context, repos TransactionalRepositories, billID, itemID uuid.UUID) error {
	found, err := repos.ItemRepo().FindByIDs(ctx, []uuid.UUID{itemID})
	if err != nil {
		return err
	}
	if len(found) > 0 {
		return bill.ErrItemNotInBill(itemID, billID)
	}
	return bill.ErrItemNotFound(itemID)
}

func snapshotOf(b *bill.Bill, owner Owner, exportTime time.Time) BillSnapshot {
	snap := BillSnapshot{
		BillID:      b.ID,
		Owner:       owner,
		Status:      b.Status.Code(),
		Remark:      deref(b.Remark),
		TotalAmount: b.TotalAmount,
		PaidAmount:  b.PaidAmount,
		CreatedAt:   b.CreatedAt,
		ExportTime:  exportTime,
		Items:       make([]SnapshotItem, 0, len(b.Items)),
	}
	for _, item := range b.Items {
		snap.Items = append(snap.Items, SnapshotItem{
			ProductName:   item.ProductName,
			Price:         item.Price,
			Quantity:      item.RemainingQuantity(),
			Unit:          item.Unit,
			PurchaseTime:  item.PurchaseTime,
			SettleTime:    item.SettleTime,
			BuyerName:     item.BuyerName,
			Status:        item.Status.Code(),
			PaymentMethod: item.PaymentMethod.Code(),
			SettlerName:   deref(item.SettlerName),
			Amount:        item.Amount,
			PaidAmount:    item.PaidAmount,
			Remark:        deref(item.Remark),
		})
	}
	return snap
}

// storeError passes domain errors through and marks everything else as a
// retryable store failure
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return shared.ErrStoreFailure.Wrap(err)
}

func itemInputError(idx int, err error) error {
	if de, ok := shared.AsDomainError(err); ok {
		return de.WithMessage(fmt.Sprintf("items[%d]: %s", idx, de.Message))
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
