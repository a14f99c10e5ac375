package services

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"bookstore-service/database"
	"bookstore-service/models"
	"bookstore-service/pricing"

	"github.com/shopspring/decimal"
)

type cartKey struct {
	customer int64
	book     int64
}

type fakeDiscount struct {
	pricing.Discount
	targets   []int64
	deleted   bool
	createdAt time.Time
}

type fakeState struct {
	books       map[int64]models.Book
	deleted     map[int64]bool
	cart        map[cartKey]int
	addresses   map[int64]models.Address
	discounts   map[int64]fakeDiscount
	orders      map[int64]models.Order
	items       map[int64][]models.OrderItem
	payments    map[int64]models.Payment
	imports     map[int64]models.StockImport
	importLines map[int64][]models.StockImportLine
	authors     map[int64]models.Author
	publishers  map[int64]models.Publisher
	genres      map[int64]models.Genre
	suppliers   map[int64]models.Supplier
	seq         int64
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		books:       maps.Clone(s.books),
		deleted:     maps.Clone(s.deleted),
		cart:        maps.Clone(s.cart),
		addresses:   maps.Clone(s.addresses),
		discounts:   maps.Clone(s.discounts),
		orders:      maps.Clone(s.orders),
		items:       make(map[int64][]models.OrderItem, len(s.items)),
		payments:    maps.Clone(s.payments),
		imports:     maps.Clone(s.imports),
		importLines: make(map[int64][]models.StockImportLine, len(s.importLines)),
		authors:     maps.Clone(s.authors),
		publishers:  maps.Clone(s.publishers),
		genres:      maps.Clone(s.genres),
		suppliers:   maps.Clone(s.suppliers),
		seq:         s.seq,
	}
	for k, v := range s.items {
		c.items[k] = slices.Clone(v)
	}
	for k, v := range s.importLines {
		c.importLines[k] = slices.Clone(v)
	}
	return c
}

// fakeStore is an in-memory database. Transactions run one at a time, which
// is what the row locks give the real store for a single book, and roll back
// by restoring a snapshot.
type fakeStore struct {
	mu    sync.Mutex
	state *fakeState
	now   time.Time

	// failOn makes the named Tx method return failErr.
	failOn  string
	failErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: &fakeState{
			books:       map[int64]models.Book{},
			deleted:     map[int64]bool{},
			cart:        map[cartKey]int{},
			addresses:   map[int64]models.Address{},
			discounts:   map[int64]fakeDiscount{},
			orders:      map[int64]models.Order{},
			items:       map[int64][]models.OrderItem{},
			payments:    map[int64]models.Payment{},
			imports:     map[int64]models.StockImport{},
			importLines: map[int64][]models.StockImportLine{},
			authors:     map[int64]models.Author{},
			publishers:  map[int64]models.Publisher{},
			genres:      map[int64]models.Genre{},
			suppliers:   map[int64]models.Supplier{},
		},
		now: time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func (f *fakeStore) nextID() int64 {
	f.state.seq++
	return f.state.seq
}

func (f *fakeStore) addBook(title, price string, available int) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID()
	f.state.books[id] = models.Book{
		ID: id, ISBN: "isbn-" + title, Title: title,
		Price: decimal.RequireFromString(price), AvailableCount: available,
	}
	return id
}

func (f *fakeStore) addAddress(customerID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID()
	f.state.addresses[id] = models.Address{
		ID: id, CustomerID: customerID, Name: "Lan", Phone: "0900000000",
		City: "Hanoi", District: "Ba Dinh", Ward: "Kim Ma", AddressLine: "1 Kim Ma",
	}
	return id
}

func (f *fakeStore) addToCart(customerID, bookID int64, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.cart[cartKey{customerID, bookID}] += quantity
}

func (f *fakeStore) addDiscount(d pricing.Discount, targets ...int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = f.nextID()
	if d.StartDate.IsZero() {
		d.StartDate = f.now.Add(-24 * time.Hour)
	}
	if d.EndDate.IsZero() {
		d.EndDate = f.now.Add(24 * time.Hour)
	}
	d.IsActive = true
	f.state.discounts[d.ID] = fakeDiscount{Discount: d, targets: targets}
	return d.ID
}

func (f *fakeStore) book(id int64) models.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.books[id]
}

func (f *fakeStore) cartQuantity(customerID, bookID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.cart[cartKey{customerID, bookID}]
}

func (f *fakeStore) counts() (orders, items, payments int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.state.items {
		items += len(v)
	}
	return len(f.state.orders), items, len(f.state.payments)
}

func (f *fakeStore) paymentFor(orderID int64) models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.state.payments {
		if p.OrderID == orderID {
			return p
		}
	}
	return models.Payment{}
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(database.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.state.clone()
	if err := fn(&fakeTx{f: f}); err != nil {
		f.state = snapshot
		return err
	}
	return nil
}

func (f *fakeStore) discountsFor(kind pricing.TargetKind, match func(fakeDiscount) bool) []pricing.Discount {
	var out []pricing.Discount
	for _, d := range f.state.discounts {
		if d.deleted || d.Target != kind || !match(d) {
			continue
		}
		out = append(out, d.Discount)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) scoped(kind pricing.TargetKind, targetID int64) []pricing.Discount {
	return f.discountsFor(kind, func(d fakeDiscount) bool { return slices.Contains(d.targets, targetID) })
}

func (f *fakeStore) global(kind pricing.TargetKind) []pricing.Discount {
	return f.discountsFor(kind, func(d fakeDiscount) bool { return len(d.targets) == 0 })
}

// Outside a transaction the store reads under the same lock.

func (f *fakeStore) ScopedDiscounts(_ context.Context, kind pricing.TargetKind, targetID int64, _ time.Time) ([]pricing.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scoped(kind, targetID), nil
}

func (f *fakeStore) GlobalDiscounts(_ context.Context, kind pricing.TargetKind, _ time.Time) ([]pricing.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.global(kind), nil
}

func (f *fakeStore) ListOrders(_ context.Context, customerID int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.state.orders {
		if o.CustomerID == customerID {
			out = append(out, f.withDetails(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) GetOrder(_ context.Context, orderID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.state.orders[orderID]
	if !ok {
		return nil, database.ErrNotFound
	}
	o = f.withDetails(o)
	return &o, nil
}

func (f *fakeStore) withDetails(o models.Order) models.Order {
	o.Items = slices.Clone(f.state.items[o.ID])
	for _, p := range f.state.payments {
		if p.OrderID == o.ID {
			p := p
			o.Payment = &p
		}
	}
	return o
}

func (f *fakeStore) PaymentByTxnRef(_ context.Context, ref string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.state.payments {
		if p.TxnRef == ref && ref != "" {
			return &p, nil
		}
	}
	return nil, database.ErrNotFound
}

// BookStore

// checkBookRefs plays the part of the foreign keys on books and its join
// tables.
func (f *fakeStore) checkBookRefs(b *models.Book) error {
	if b.PublisherID != nil {
		if _, ok := f.state.publishers[*b.PublisherID]; !ok {
			return database.ErrInvalidReference
		}
	}
	for _, id := range b.AuthorIDs {
		if _, ok := f.state.authors[id]; !ok {
			return database.ErrInvalidReference
		}
	}
	for _, id := range b.GenreIDs {
		if _, ok := f.state.genres[id]; !ok {
			return database.ErrInvalidReference
		}
	}
	return nil
}

func (f *fakeStore) CreateOrRestoreBook(_ context.Context, b *models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkBookRefs(b); err != nil {
		return err
	}
	for id, existing := range f.state.books {
		if existing.ISBN != b.ISBN {
			continue
		}
		if !f.state.deleted[id] {
			return database.ErrDuplicate
		}
		b.ID = id
		b.SoldCount = existing.SoldCount
		b.CreatedAt = existing.CreatedAt
		f.state.books[id] = *b
		delete(f.state.deleted, id)
		return nil
	}
	b.ID = f.nextID()
	b.CreatedAt = f.now
	f.state.books[b.ID] = *b
	return nil
}

func (f *fakeStore) UpdateBook(_ context.Context, b *models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state.books[b.ID]; !ok || f.state.deleted[b.ID] {
		return database.ErrNotFound
	}
	if err := f.checkBookRefs(b); err != nil {
		return err
	}
	f.state.books[b.ID] = *b
	return nil
}

func (f *fakeStore) SoftDeleteBook(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state.books[id]; !ok || f.state.deleted[id] {
		return database.ErrNotFound
	}
	f.state.deleted[id] = true
	return nil
}

func (f *fakeStore) GetBook(_ context.Context, id int64) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.state.books[id]
	if !ok || f.state.deleted[id] {
		return nil, database.ErrNotFound
	}
	return &b, nil
}

func (f *fakeStore) ListBooks(_ context.Context, filter models.BookFilter) ([]models.Book, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Book
	for id, b := range f.state.books {
		if f.state.deleted[id] || !strings.Contains(strings.ToLower(b.Title), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.AuthorID > 0 && !slices.Contains(b.AuthorIDs, filter.AuthorID) ||
			filter.GenreID > 0 && !slices.Contains(b.GenreIDs, filter.GenreID) ||
			filter.PublisherID > 0 && (b.PublisherID == nil || *b.PublisherID != filter.PublisherID) {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	start := min(filter.Offset(), total)
	end := min(start+filter.PageSize, total)
	return all[start:end], total, nil
}

// DiscountStore

func (f *fakeStore) CreateOrRestoreDiscount(_ context.Context, d *models.Discount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.state.discounts {
		if existing.Code != d.Code {
			continue
		}
		if !existing.deleted {
			return database.ErrDuplicate
		}
		d.ID = id
		d.CreatedAt = existing.createdAt
		f.state.discounts[id] = fakeDiscount{Discount: d.Discount, targets: d.TargetIDs, createdAt: existing.createdAt}
		return nil
	}
	d.ID = f.nextID()
	d.CreatedAt = f.now
	f.state.discounts[d.ID] = fakeDiscount{Discount: d.Discount, targets: d.TargetIDs, createdAt: f.now}
	return nil
}

func (f *fakeStore) GetDiscount(_ context.Context, id int64) (*models.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.state.discounts[id]
	if !ok || d.deleted {
		return nil, database.ErrNotFound
	}
	return &models.Discount{Discount: d.Discount, TargetIDs: d.targets, CreatedAt: d.createdAt}, nil
}

func (f *fakeStore) ListDiscounts(_ context.Context) ([]models.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Discount
	for _, d := range f.state.discounts {
		if !d.deleted {
			out = append(out, models.Discount{Discount: d.Discount, TargetIDs: d.targets})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) SoftDeleteDiscount(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.state.discounts[id]
	if !ok || d.deleted {
		return database.ErrNotFound
	}
	d.deleted = true
	f.state.discounts[id] = d
	return nil
}

// CartStore

func (f *fakeStore) CartLines(_ context.Context, customerID int64) ([]models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cartLines(customerID), nil
}

func (f *fakeStore) cartLines(customerID int64) []models.CartLine {
	var lines []models.CartLine
	for k, qty := range f.state.cart {
		b, ok := f.state.books[k.book]
		if k.customer != customerID || !ok || f.state.deleted[k.book] {
			continue
		}
		lines = append(lines, models.CartLine{
			CustomerID: customerID, BookID: b.ID, Title: b.Title, Quantity: qty,
			Price: b.Price, AvailableCount: b.AvailableCount,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].BookID < lines[j].BookID })
	return lines
}

func (f *fakeStore) AddCartItem(_ context.Context, customerID, bookID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.cart[cartKey{customerID, bookID}] += quantity
	return nil
}

func (f *fakeStore) SetCartItemQuantity(_ context.Context, customerID, bookID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := cartKey{customerID, bookID}
	if _, ok := f.state.cart[k]; !ok {
		return database.ErrNotFound
	}
	f.state.cart[k] = quantity
	return nil
}

func (f *fakeStore) RemoveCartItem(_ context.Context, customerID, bookID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := cartKey{customerID, bookID}
	if _, ok := f.state.cart[k]; !ok {
		return database.ErrNotFound
	}
	delete(f.state.cart, k)
	return nil
}

func (f *fakeStore) CreateAddress(_ context.Context, a *models.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.nextID()
	f.state.addresses[a.ID] = *a
	return nil
}

func (f *fakeStore) ListAddresses(_ context.Context, customerID int64) ([]models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Address
	for _, a := range f.state.addresses {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeTx runs with fakeStore.mu held.
type fakeTx struct {
	f *fakeStore
}

func (t *fakeTx) fail(method string) error {
	if t.f.failOn == method {
		return t.f.failErr
	}
	return nil
}

func (t *fakeTx) ScopedDiscounts(_ context.Context, kind pricing.TargetKind, targetID int64, _ time.Time) ([]pricing.Discount, error) {
	return t.f.scoped(kind, targetID), nil
}

func (t *fakeTx) GlobalDiscounts(_ context.Context, kind pricing.TargetKind, _ time.Time) ([]pricing.Discount, error) {
	return t.f.global(kind), nil
}

func (t *fakeTx) LockCartLines(_ context.Context, customerID int64) ([]models.CartLine, error) {
	if err := t.fail("LockCartLines"); err != nil {
		return nil, err
	}
	return t.f.cartLines(customerID), nil
}

func (t *fakeTx) DeleteCartLine(_ context.Context, customerID, bookID int64) error {
	delete(t.f.state.cart, cartKey{customerID, bookID})
	return nil
}

func (t *fakeTx) AddressForCustomer(_ context.Context, addressID, customerID int64) (*models.Address, error) {
	a, ok := t.f.state.addresses[addressID]
	if !ok || a.CustomerID != customerID {
		return nil, database.ErrNotFound
	}
	return &a, nil
}

func (t *fakeTx) InsertOrder(_ context.Context, o *models.Order) error {
	o.ID = t.f.nextID()
	t.f.state.orders[o.ID] = *o
	return nil
}

func (t *fakeTx) InsertOrderItem(_ context.Context, item *models.OrderItem) error {
	item.ID = t.f.nextID()
	t.f.state.items[item.OrderID] = append(t.f.state.items[item.OrderID], *item)
	return nil
}

func (t *fakeTx) InsertPayment(_ context.Context, p *models.Payment) error {
	if err := t.fail("InsertPayment"); err != nil {
		return err
	}
	p.ID = t.f.nextID()
	t.f.state.payments[p.ID] = *p
	return nil
}

func (t *fakeTx) LockOrder(_ context.Context, orderID int64) (*models.Order, error) {
	o, ok := t.f.state.orders[orderID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &o, nil
}

func (t *fakeTx) OrderItems(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	return slices.Clone(t.f.state.items[orderID]), nil
}

func (t *fakeTx) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	o := t.f.state.orders[orderID]
	o.Status = status
	t.f.state.orders[orderID] = o
	return nil
}

func (t *fakeTx) LockPaymentByOrder(_ context.Context, orderID int64) (*models.Payment, error) {
	for _, p := range t.f.state.payments {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, database.ErrNotFound
}

func (t *fakeTx) LockPaymentByTxnRef(_ context.Context, ref string) (*models.Payment, error) {
	for _, p := range t.f.state.payments {
		if p.TxnRef == ref && ref != "" {
			return &p, nil
		}
	}
	return nil, database.ErrNotFound
}

func (t *fakeTx) UpdatePaymentStatus(_ context.Context, paymentID int64, status models.PaymentStatus) error {
	p := t.f.state.payments[paymentID]
	p.Status = status
	t.f.state.payments[paymentID] = p
	return nil
}

func (t *fakeTx) DecrementStock(_ context.Context, bookID int64, quantity int) (bool, error) {
	if err := t.fail("DecrementStock"); err != nil {
		return false, err
	}
	b, ok := t.f.state.books[bookID]
	if !ok || b.AvailableCount < quantity {
		return false, nil
	}
	b.AvailableCount -= quantity
	b.SoldCount += quantity
	t.f.state.books[bookID] = b
	return true, nil
}

func (t *fakeTx) RestoreStock(_ context.Context, bookID int64, quantity int) error {
	b := t.f.state.books[bookID]
	b.AvailableCount += quantity
	b.SoldCount = max(b.SoldCount-quantity, 0)
	t.f.state.books[bookID] = b
	return nil
}

func (t *fakeTx) IncrementStock(_ context.Context, bookID int64, quantity int) (bool, error) {
	b, ok := t.f.state.books[bookID]
	if !ok || t.f.state.deleted[bookID] {
		return false, nil
	}
	b.AvailableCount += quantity
	t.f.state.books[bookID] = b
	return true, nil
}

func (t *fakeTx) GetSupplier(_ context.Context, id int64) (*models.Supplier, error) {
	return getRow(t.f.state.suppliers, id)
}

func (t *fakeTx) InsertStockImport(_ context.Context, imp *models.StockImport) error {
	imp.ID = t.f.nextID()
	imp.CreatedAt = t.f.now
	t.f.state.imports[imp.ID] = *imp
	return nil
}

func (t *fakeTx) InsertStockImportLine(_ context.Context, importID int64, line models.StockImportLine) error {
	t.f.state.importLines[importID] = append(t.f.state.importLines[importID], line)
	return nil
}

// Ensure the fake matches what the services expect.
var (
	_ database.Transactor = (*fakeStore)(nil)
	_ database.Tx         = (*fakeTx)(nil)
	_ OrderReader         = (*fakeStore)(nil)
	_ PaymentReader       = (*fakeStore)(nil)
	_ BookStore           = (*fakeStore)(nil)
	_ DiscountStore       = (*fakeStore)(nil)
	_ CartStore           = (*fakeStore)(nil)
	_ DirectoryStore      = (*fakeStore)(nil)
)
