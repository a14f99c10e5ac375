package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore-service/models"
)

const orderColumns = `o.id, o.customer_id, o.status, o.shipping_name, o.shipping_phone, o.shipping_city,
	o.shipping_district, o.shipping_ward, o.shipping_address_line, o.created_at, o.updated_at`

const paymentColumns = `p.id, p.order_id, p.method, p.total_amount, p.discount_value, p.status,
	p.txn_ref, p.created_at, p.updated_at`

func orderFields(o *models.Order) []any {
	return []any{&o.ID, &o.CustomerID, &o.Status, &o.ShippingName, &o.ShippingPhone, &o.ShippingCity,
		&o.ShippingDistrict, &o.ShippingWard, &o.ShippingAddressLine, &o.CreatedAt, &o.UpdatedAt}
}

func scanPayment(row scanner) (*models.Payment, error) {
	var (
		p      models.Payment
		method string
		status string
		ref    sql.NullString
	)
	if err := row.Scan(&p.ID, &p.OrderID, &method, &p.TotalAmount, &p.DiscountValue, &status,
		&ref, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Method = models.PaymentMethod(method)
	p.Status = models.PaymentStatus(status)
	p.TxnRef = ref.String
	return &p, nil
}

func queryOrderItems(ctx context.Context, q querier, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT i.id, i.order_id, i.book_id, b.title, i.quantity, i.price_at_time, i.discount_value
		FROM order_items i
		JOIN books b ON b.id = i.book_id
		WHERE i.order_id = ?
		ORDER BY i.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Title, &it.Quantity,
			&it.PriceAtTime, &it.DiscountValue); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListOrders returns the customer's orders, newest first, each with its
// payment but without items.
func (s *Store) ListOrders(ctx context.Context, customerID int64) ([]models.Order, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+orderColumns+`, `+paymentColumns+`
		FROM orders o
		JOIN payments p ON p.order_id = o.id
		WHERE o.customer_id = ?
		ORDER BY o.created_at DESC, o.id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var (
			o      models.Order
			p      models.Payment
			method string
			status string
			ref    sql.NullString
		)
		dest := append(orderFields(&o), &p.ID, &p.OrderID, &method, &p.TotalAmount, &p.DiscountValue,
			&status, &ref, &p.CreatedAt, &p.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		p.Method = models.PaymentMethod(method)
		p.Status = models.PaymentStatus(status)
		p.TxnRef = ref.String
		o.Payment = &p
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetOrder loads an order with its items and payment.
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var o models.Order
	err := s.DB.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = ?`, orderID,
	).Scan(orderFields(&o)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if o.Items, err = queryOrderItems(ctx, s.DB, orderID); err != nil {
		return nil, err
	}

	p, err := scanPayment(s.DB.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p WHERE p.order_id = ?`, orderID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	o.Payment = p
	return &o, nil
}

func (s *Store) PaymentByTxnRef(ctx context.Context, ref string) (*models.Payment, error) {
	p, err := scanPayment(s.DB.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p WHERE p.txn_ref = ?`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}
