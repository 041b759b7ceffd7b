package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"inventory-admin/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type fakeTxKey struct{}

// fakeStore backs every fake repository. RunInTx holds the store lock for the
// whole callback, which is how the row lock on a purchase behaves for two
// approvals of the same purchase, and restores a snapshot when fn fails.
type fakeStore struct {
	mu        sync.Mutex
	products  map[uuid.UUID]model.Product
	suppliers map[uuid.UUID]model.Supplier
	purchases map[uuid.UUID]model.Purchase
	details   []model.PurchaseDetail
	ledger    []model.InventoryTransaction
	audits    []model.AuditLog

	reportCalls int
	reportFrom  time.Time
	reportTo    time.Time
	failOn      map[uuid.UUID]error // IncrementQuantity errors per product
	incremented []uuid.UUID         // IncrementQuantity call order
	findErr     error               // returned by purchase FindByID when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:  map[uuid.UUID]model.Product{},
		suppliers: map[uuid.UUID]model.Supplier{},
		purchases: map[uuid.UUID]model.Purchase{},
		failOn:    map[uuid.UUID]error{},
	}
}

type fakeSnapshot struct {
	products  map[uuid.UUID]model.Product
	purchases map[uuid.UUID]model.Purchase
	details   []model.PurchaseDetail
	ledger    []model.InventoryTransaction
	audits    []model.AuditLog
}

func (s *fakeStore) snapshot() fakeSnapshot {
	snap := fakeSnapshot{
		products:  make(map[uuid.UUID]model.Product, len(s.products)),
		purchases: make(map[uuid.UUID]model.Purchase, len(s.purchases)),
		details:   append([]model.PurchaseDetail(nil), s.details...),
		ledger:    append([]model.InventoryTransaction(nil), s.ledger...),
		audits:    append([]model.AuditLog(nil), s.audits...),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.purchases {
		snap.purchases[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.products = snap.products
	s.purchases = snap.purchases
	s.details = snap.details
	s.ledger = snap.ledger
	s.audits = snap.audits
}

func (s *fakeStore) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// lock guards calls made outside RunInTx.
func (s *fakeStore) lock(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// seeding helpers, called before the service runs

func (s *fakeStore) addProduct(code string, quantity int) uuid.UUID {
	id := uuid.New()
	s.products[id] = model.Product{ID: id, Name: "Product " + code, Code: code, Quantity: quantity}
	return id
}

func (s *fakeStore) addSupplier(name string) uuid.UUID {
	id := uuid.New()
	s.suppliers[id] = model.Supplier{ID: id, Name: name}
	return id
}

func (s *fakeStore) quantity(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Quantity
}

func (s *fakeStore) detailsOf(purchaseID uuid.UUID) []model.PurchaseDetail {
	var out []model.PurchaseDetail
	for _, d := range s.details {
		if d.PurchaseID == purchaseID {
			out = append(out, d)
		}
	}
	return out
}

// product repository

type fakeProductRepo struct{ s *fakeStore }

func (r fakeProductRepo) Create(ctx context.Context, p *model.Product) error {
	return r.CreateBatch(ctx, []model.Product{*p}, 1)
}

func (r fakeProductRepo) CreateBatch(ctx context.Context, products []model.Product, _ int) error {
	defer r.s.lock(ctx)()
	codes := map[string]bool{}
	for _, p := range r.s.products {
		codes[p.Code] = true
	}
	for i := range products {
		if codes[products[i].Code] {
			return &pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key value violates unique constraint"}
		}
		codes[products[i].Code] = true
		products[i].ID = uuid.New()
		r.s.products[products[i].ID] = products[i]
	}
	return nil
}

func (r fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r fakeProductRepo) IncrementQuantity(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	defer r.s.lock(ctx)()
	r.s.incremented = append(r.s.incremented, id)
	if err := r.s.failOn[id]; err != nil {
		return 0, err
	}
	p, ok := r.s.products[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	p.Quantity += delta
	r.s.products[id] = p
	return p.Quantity, nil
}

func (r fakeProductRepo) EachBatch(ctx context.Context, batchSize int, fn func(batch []model.Product) error) error {
	unlock := r.s.lock(ctx)
	all := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		all = append(all, p)
	}
	unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	for start := 0; start < len(all); start += batchSize {
		end := start + batchSize
		if end > len(all) {
			end = len(all)
		}
		if err := fn(all[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// supplier repository

type fakeSupplierRepo struct{ s *fakeStore }

func (r fakeSupplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	defer r.s.lock(ctx)()
	sup, ok := r.s.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sup, nil
}

// purchase repository

type fakePurchaseRepo struct {
	s         *fakeStore
	createErr error
}

func (r fakePurchaseRepo) Create(ctx context.Context, p *model.Purchase) error {
	defer r.s.lock(ctx)()
	if r.createErr != nil {
		return r.createErr
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Details = nil
	r.s.purchases[p.ID] = stored
	return nil
}

func (r fakePurchaseRepo) CreateDetails(ctx context.Context, details []model.PurchaseDetail) error {
	defer r.s.lock(ctx)()
	for i := range details {
		details[i].ID = uuid.New()
		r.s.details = append(r.s.details, details[i])
	}
	return nil
}

func (r fakePurchaseRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	defer r.s.lock(ctx)()
	if r.s.findErr != nil {
		return nil, r.s.findErr
	}
	p, ok := r.s.purchases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	p.Details = r.s.detailsOf(id)
	return &p, nil
}

func (r fakePurchaseRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.purchases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r fakePurchaseRepo) FindDetails(ctx context.Context, purchaseID uuid.UUID) ([]model.PurchaseDetail, error) {
	defer r.s.lock(ctx)()
	return r.s.detailsOf(purchaseID), nil
}

func (r fakePurchaseRepo) MarkApproved(ctx context.Context, p *model.Purchase) error {
	defer r.s.lock(ctx)()
	stored := r.s.purchases[p.ID]
	stored.Status = p.Status
	stored.UpdatedBy = p.UpdatedBy
	stored.PurchaseDate = p.PurchaseDate
	r.s.purchases[p.ID] = stored
	return nil
}

func (r fakePurchaseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.purchases[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.purchases, id)
	kept := r.s.details[:0]
	for _, d := range r.s.details {
		if d.PurchaseID != id {
			kept = append(kept, d)
		}
	}
	r.s.details = kept
	return nil
}

func (r fakePurchaseRepo) List(ctx context.Context, status string, page, limit int) ([]model.Purchase, int64, error) {
	defer r.s.lock(ctx)()
	var out []model.Purchase
	for _, p := range r.s.purchases {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseNo < out[j].PurchaseNo })
	total := int64(len(out))
	start := (page - 1) * limit
	if start > len(out) {
		start = len(out)
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

// Report mirrors the SQL filter: APPROVED purchases with from <= date < to.
func (r fakePurchaseRepo) Report(ctx context.Context, from, to time.Time) ([]model.PurchaseReportRow, error) {
	defer r.s.lock(ctx)()
	r.s.reportCalls++
	r.s.reportFrom, r.s.reportTo = from, to

	var rows []model.PurchaseReportRow
	for _, p := range r.s.purchases {
		if p.Status != model.PurchaseStatusApproved || p.PurchaseDate == nil {
			continue
		}
		if p.PurchaseDate.Before(from) || !p.PurchaseDate.Before(to) {
			continue
		}
		for _, d := range r.s.detailsOf(p.ID) {
			prod := r.s.products[d.ProductID]
			rows = append(rows, model.PurchaseReportRow{
				Date:         *p.PurchaseDate,
				PurchaseNo:   p.PurchaseNo,
				SupplierName: r.s.suppliers[p.SupplierID].Name,
				ProductCode:  prod.Code,
				ProductName:  prod.Name,
				Quantity:     d.Quantity,
				UnitCost:     d.UnitCost,
				Total:        d.Total,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PurchaseNo < rows[j].PurchaseNo })
	return rows, nil
}

// ledger + audit repositories

type fakeInventoryTxRepo struct{ s *fakeStore }

func (r fakeInventoryTxRepo) Create(ctx context.Context, tx *model.InventoryTransaction) error {
	defer r.s.lock(ctx)()
	tx.ID = uuid.New()
	r.s.ledger = append(r.s.ledger, *tx)
	return nil
}

func (r fakeInventoryTxRepo) ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]model.InventoryTransaction, error) {
	defer r.s.lock(ctx)()
	var out []model.InventoryTransaction
	for _, l := range r.s.ledger {
		if l.PurchaseID != nil && *l.PurchaseID == purchaseID {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeAuditRepo struct{ s *fakeStore }

func (r fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	defer r.s.lock(ctx)()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r fakeAuditRepo) List(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	defer r.s.lock(ctx)()
	var out []model.AuditLog
	for _, a := range r.s.audits {
		if action == "" || a.Action == action {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

// events

type recordedEvent struct {
	name string
	data map[string]interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(event string, data map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{name: event, data: data})
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.events))
	for i, e := range p.events {
		names[i] = e.name
	}
	return names
}
