package database

import (
	"context"
	"fmt"

	"bookstore-service/models"
)

const cartLineQuery = `
	SELECT c.user_id, c.book_id, b.title, c.quantity, b.price, b.available_count
	FROM cart_items c
	JOIN books b ON b.id = c.book_id
	WHERE c.user_id = ? AND b.deleted_at IS NULL
	ORDER BY c.book_id`

func queryCartLines(ctx context.Context, q querier, query string, customerID int64) ([]models.CartLine, error) {
	rows, err := q.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var l models.CartLine
		if err := rows.Scan(&l.CustomerID, &l.BookID, &l.Title, &l.Quantity, &l.Price, &l.AvailableCount); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) CartLines(ctx context.Context, customerID int64) ([]models.CartLine, error) {
	return queryCartLines(ctx, s.DB, cartLineQuery, customerID)
}

// AddCartItem adds quantity to the customer's line for bookID, creating it
// when missing.
func (s *Store) AddCartItem(ctx context.Context, customerID, bookID int64, quantity int) error {
	now := s.now()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, book_id, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = VALUES(updated_at)`,
		customerID, bookID, quantity, now, now)
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (s *Store) SetCartItemQuantity(ctx context.Context, customerID, bookID int64, quantity int) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ?, updated_at = ? WHERE user_id = ? AND book_id = ?`,
		quantity, s.now(), customerID, bookID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) RemoveCartItem(ctx context.Context, customerID, bookID int64) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = ? AND book_id = ?`, customerID, bookID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateAddress(ctx context.Context, a *models.Address) error {
	a.CreatedAt = s.now()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO addresses (user_id, name, phone, city, district, ward, address_line, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CustomerID, a.Name, a.Phone, a.City, a.District, a.Ward, a.AddressLine, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert address: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get address ID: %w", err)
	}
	return nil
}

func (s *Store) ListAddresses(ctx context.Context, customerID int64) ([]models.Address, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, name, phone, city, district, ward, address_line, created_at
		FROM addresses
		WHERE user_id = ?
		ORDER BY id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	out := []models.Address{}
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Name, &a.Phone, &a.City, &a.District,
			&a.Ward, &a.AddressLine, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
