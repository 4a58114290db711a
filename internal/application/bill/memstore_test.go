package bill

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/erp/billhub/internal/domain/bill"
	"github.com/erp/billhub/internal/domain/shared"
)

// memStore is an in-memory BillRepository/BillItemRepository pair. It copies
// values on the way in and out, so callers only see what was saved.
type memStore struct {
	mu    sync.Mutex
	bills map[uuid.UUID]bill.Bill
	items map[uuid.UUID]bill.BillItem
	order []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		bills: map[uuid.UUID]bill.Bill{},
		items: map[uuid.UUID]bill.BillItem{},
	}
}

func (m *memStore) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(memBillRepo{m}, memItemRepo{m})
}

type memBillRepo struct{ s *memStore }

func (r memBillRepo) FindByID(_ context.Context, id uuid.UUID) (*bill.Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bills[id]
	if !ok {
		return nil, bill.ErrBillNotFound(id)
	}
	b.Items = nil
	return &b, nil
}

func (r memBillRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*bill.Bill, error) {
	return r.FindByID(ctx, id)
}

func (r memBillRepo) Create(_ context.Context, b *bill.Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *b
	c.Items = nil
	r.s.bills[b.ID] = c
	return nil
}

func (r memBillRepo) Save(_ context.Context, b *bill.Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bills[b.ID]
	if !ok || stored.Version != b.Version-1 {
		return shared.NewRetryableDomainError("CONCURRENCY_CONFLICT", "Bill was modified by another transaction")
	}
	c := *b
	c.Items = nil
	r.s.bills[b.ID] = c
	return nil
}

func (r memBillRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bills[id]; !ok {
		return bill.ErrBillNotFound(id)
	}
	delete(r.s.bills, id)
	for itemID, item := range r.s.items {
		if item.BillID == id {
			delete(r.s.items, itemID)
		}
	}
	return nil
}

type memItemRepo struct{ s *memStore }

func (r memItemRepo) FindByBill(_ context.Context, billID uuid.UUID) ([]*bill.BillItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*bill.BillItem{}
	for _, id := range r.s.order {
		if item, ok := r.s.items[id]; ok && item.BillID == billID {
			c := item
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memItemRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*bill.BillItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*bill.BillItem{}
	for _, id := range ids {
		if item, ok := r.s.items[id]; ok {
			c := item
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memItemRepo) CreateBatch(_ context.Context, items []*bill.BillItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range items {
		r.s.items[item.ID] = *item
		r.s.order = append(r.s.order, item.ID)
	}
	return nil
}

func (r memItemRepo) SaveAll(_ context.Context, items []*bill.BillItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range items {
		if _, ok := r.s.items[item.ID]; !ok {
			return bill.ErrItemNotFound(item.ID)
		}
		r.s.items[item.ID] = *item
	}
	return nil
}
