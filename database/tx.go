package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookstore-service/models"
	"bookstore-service/pricing"
)

// Tx is what a unit of work can read and write. Everything done through one
// Tx commits or rolls back together.
type Tx interface {
	pricing.DiscountSource

	// LockCartLines returns the customer's cart joined with its books and
	// holds row locks on both until the transaction ends.
	LockCartLines(ctx context.Context, customerID int64) ([]models.CartLine, error)
	DeleteCartLine(ctx context.Context, customerID, bookID int64) error
	AddressForCustomer(ctx context.Context, addressID, customerID int64) (*models.Address, error)

	InsertOrder(ctx context.Context, o *models.Order) error
	InsertOrderItem(ctx context.Context, item *models.OrderItem) error
	InsertPayment(ctx context.Context, p *models.Payment) error
	LockOrder(ctx context.Context, orderID int64) (*models.Order, error)
	OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	LockPaymentByOrder(ctx context.Context, orderID int64) (*models.Payment, error)
	LockPaymentByTxnRef(ctx context.Context, ref string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID int64, status models.PaymentStatus) error

	// DecrementStock takes quantity off a book's available count and adds it
	// to the sold count, only if enough stock is left. It reports whether the
	// row was updated.
	DecrementStock(ctx context.Context, bookID int64, quantity int) (bool, error)
	// RestoreStock reverses DecrementStock.
	RestoreStock(ctx context.Context, bookID int64, quantity int) error
	// IncrementStock adds received stock to a live book.
	IncrementStock(ctx context.Context, bookID int64, quantity int) (bool, error)
	GetSupplier(ctx context.Context, id int64) (*models.Supplier, error)
	InsertStockImport(ctx context.Context, imp *models.StockImport) error
	InsertStockImportLine(ctx context.Context, importID int64, line models.StockImportLine) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
}

func (s *Store) WithinTx(ctx context.Context, fn func(Tx) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&sqlTx{tx: tx, now: s.now})
	})
}

type sqlTx struct {
	tx  *sql.Tx
	now func() time.Time
}

func (t *sqlTx) ScopedDiscounts(ctx context.Context, kind pricing.TargetKind, targetID int64, now time.Time) ([]pricing.Discount, error) {
	return scopedDiscounts(ctx, t.tx, kind, targetID, now)
}

func (t *sqlTx) GlobalDiscounts(ctx context.Context, kind pricing.TargetKind, now time.Time) ([]pricing.Discount, error) {
	return globalDiscounts(ctx, t.tx, kind, now)
}

func (t *sqlTx) LockCartLines(ctx context.Context, customerID int64) ([]models.CartLine, error) {
	return queryCartLines(ctx, t.tx, cartLineQuery+` FOR UPDATE`, customerID)
}

func (t *sqlTx) DeleteCartLine(ctx context.Context, customerID, bookID int64) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = ? AND book_id = ?`, customerID, bookID); err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}

func (t *sqlTx) AddressForCustomer(ctx context.Context, addressID, customerID int64) (*models.Address, error) {
	var a models.Address
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, name, phone, city, district, ward, address_line, created_at
		FROM addresses
		WHERE id = ? AND user_id = ?`, addressID, customerID,
	).Scan(&a.ID, &a.CustomerID, &a.Name, &a.Phone, &a.City, &a.District, &a.Ward, &a.AddressLine, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return &a, nil
}

func (t *sqlTx) InsertOrder(ctx context.Context, o *models.Order) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (customer_id, status, shipping_name, shipping_phone, shipping_city,
			shipping_district, shipping_ward, shipping_address_line, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.CustomerID, o.Status, o.ShippingName, o.ShippingPhone, o.ShippingCity,
		o.ShippingDistrict, o.ShippingWard, o.ShippingAddressLine, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get order ID: %w", err)
	}
	return nil
}

func (t *sqlTx) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, book_id, quantity, price_at_time, discount_value)
		VALUES (?, ?, ?, ?, ?)`,
		item.OrderID, item.BookID, item.Quantity, item.PriceAtTime, item.DiscountValue)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get order item ID: %w", err)
	}
	return nil
}

func (t *sqlTx) InsertPayment(ctx context.Context, p *models.Payment) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO payments (order_id, method, total_amount, discount_value, status, txn_ref,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.OrderID, string(p.Method), p.TotalAmount, p.DiscountValue, string(p.Status),
		nullString(p.TxnRef), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get payment ID: %w", err)
	}
	return nil
}

func (t *sqlTx) LockOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var o models.Order
	err := t.tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = ? FOR UPDATE`, orderID,
	).Scan(orderFields(&o)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return &o, nil
}

func (t *sqlTx) OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return queryOrderItems(ctx, t.tx, orderID)
}

func (t *sqlTx) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, status, t.now(), orderID); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

func (t *sqlTx) lockPayment(ctx context.Context, where string, arg any) (*models.Payment, error) {
	p, err := scanPayment(t.tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p WHERE `+where+` FOR UPDATE`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	return p, nil
}

func (t *sqlTx) LockPaymentByOrder(ctx context.Context, orderID int64) (*models.Payment, error) {
	return t.lockPayment(ctx, `p.order_id = ?`, orderID)
}

func (t *sqlTx) LockPaymentByTxnRef(ctx context.Context, ref string) (*models.Payment, error) {
	return t.lockPayment(ctx, `p.txn_ref = ?`, ref)
}

func (t *sqlTx) UpdatePaymentStatus(ctx context.Context, paymentID int64, status models.PaymentStatus) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`, string(status), t.now(), paymentID); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

func (t *sqlTx) DecrementStock(ctx context.Context, bookID int64, quantity int) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE books
		SET available_count = available_count - ?, sold_count = sold_count + ?, updated_at = ?
		WHERE id = ? AND available_count >= ?`,
		quantity, quantity, t.now(), bookID, quantity)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *sqlTx) RestoreStock(ctx context.Context, bookID int64, quantity int) error {
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE books
		SET available_count = available_count + ?, sold_count = GREATEST(sold_count - ?, 0), updated_at = ?
		WHERE id = ?`,
		quantity, quantity, t.now(), bookID); err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	return nil
}

func (t *sqlTx) IncrementStock(ctx context.Context, bookID int64, quantity int) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE books
		SET available_count = available_count + ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		quantity, t.now(), bookID)
	if err != nil {
		return false, fmt.Errorf("failed to increment stock: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *sqlTx) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	return getSupplier(ctx, t.tx, id)
}

func (t *sqlTx) InsertStockImport(ctx context.Context, imp *models.StockImport) error {
	imp.CreatedAt = t.now()
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO stock_imports (supplier_id, supplier_name, note, created_at) VALUES (?, ?, ?, ?)`,
		imp.SupplierID, imp.SupplierName, imp.Note, imp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert stock import: %w", err)
	}
	if imp.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get stock import ID: %w", err)
	}
	return nil
}

func (t *sqlTx) InsertStockImportLine(ctx context.Context, importID int64, line models.StockImportLine) error {
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO stock_import_items (stock_import_id, book_id, quantity, import_price)
		VALUES (?, ?, ?, ?)`,
		importID, line.BookID, line.Quantity, line.ImportPrice); err != nil {
		return fmt.Errorf("failed to insert stock import line: %w", err)
	}
	return nil
}
