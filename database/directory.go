package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore-service/models"
)

func queryAll[T any](ctx context.Context, q querier, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryOne[T any](ctx context.Context, q querier, scan func(scanner) (T, error), what, query string, args ...any) (T, error) {
	v, err := scan(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return v, nil
}

func insertRow(ctx context.Context, q querier, what, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to insert %s: %w", what, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get %s ID: %w", what, err)
	}
	return id, nil
}

// updateRow runs an UPDATE or DELETE that must hit exactly one row.
func updateRow(ctx context.Context, q querier, what, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to write %s: %w", what, err)
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

// Authors

const authorColumns = `id, name, bio, created_at, updated_at`

func scanAuthor(row scanner) (models.Author, error) {
	var a models.Author
	err := row.Scan(&a.ID, &a.Name, &a.Bio, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Store) CreateAuthor(ctx context.Context, a *models.Author) error {
	now := s.now()
	id, err := insertRow(ctx, s.DB, "author",
		`INSERT INTO authors (name, bio, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		a.Name, a.Bio, now, now)
	if err != nil {
		return err
	}
	a.ID, a.CreatedAt, a.UpdatedAt = id, now, now
	return nil
}

func (s *Store) UpdateAuthor(ctx context.Context, a *models.Author) error {
	a.UpdatedAt = s.now()
	return updateRow(ctx, s.DB, "author",
		`UPDATE authors SET name = ?, bio = ?, updated_at = ? WHERE id = ?`,
		a.Name, a.Bio, a.UpdatedAt, a.ID)
}

func (s *Store) GetAuthor(ctx context.Context, id int64) (*models.Author, error) {
	a, err := queryOne(ctx, s.DB, scanAuthor, "author",
		`SELECT `+authorColumns+` FROM authors WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAuthors(ctx context.Context) ([]models.Author, error) {
	out, err := queryAll(ctx, s.DB, scanAuthor, `SELECT `+authorColumns+` FROM authors ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return out, nil
}

// DeleteAuthor removes the author and unlinks it from every book.
func (s *Store) DeleteAuthor(ctx context.Context, id int64) error {
	return updateRow(ctx, s.DB, "author", `DELETE FROM authors WHERE id = ?`, id)
}

// Publishers

const publisherColumns = `id, name, address, website, created_at, updated_at`

func scanPublisher(row scanner) (models.Publisher, error) {
	var p models.Publisher
	err := row.Scan(&p.ID, &p.Name, &p.Address, &p.Website, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) CreatePublisher(ctx context.Context, p *models.Publisher) error {
	now := s.now()
	id, err := insertRow(ctx, s.DB, "publisher",
		`INSERT INTO publishers (name, address, website, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Address, p.Website, now, now)
	if err != nil {
		return err
	}
	p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	return nil
}

func (s *Store) UpdatePublisher(ctx context.Context, p *models.Publisher) error {
	p.UpdatedAt = s.now()
	return updateRow(ctx, s.DB, "publisher",
		`UPDATE publishers SET name = ?, address = ?, website = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Address, p.Website, p.UpdatedAt, p.ID)
}

func (s *Store) GetPublisher(ctx context.Context, id int64) (*models.Publisher, error) {
	p, err := queryOne(ctx, s.DB, scanPublisher, "publisher",
		`SELECT `+publisherColumns+` FROM publishers WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	out, err := queryAll(ctx, s.DB, scanPublisher, `SELECT `+publisherColumns+` FROM publishers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list publishers: %w", err)
	}
	return out, nil
}

// DeletePublisher removes the publisher. Its books keep existing with no
// publisher.
func (s *Store) DeletePublisher(ctx context.Context, id int64) error {
	return updateRow(ctx, s.DB, "publisher", `DELETE FROM publishers WHERE id = ?`, id)
}

// Genres

const genreColumns = `id, name, description, created_at, updated_at`

func scanGenre(row scanner) (models.Genre, error) {
	var g models.Genre
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (s *Store) CreateGenre(ctx context.Context, g *models.Genre) error {
	now := s.now()
	id, err := insertRow(ctx, s.DB, "genre",
		`INSERT INTO genres (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		g.Name, g.Description, now, now)
	if err != nil {
		return err
	}
	g.ID, g.CreatedAt, g.UpdatedAt = id, now, now
	return nil
}

func (s *Store) UpdateGenre(ctx context.Context, g *models.Genre) error {
	g.UpdatedAt = s.now()
	return updateRow(ctx, s.DB, "genre",
		`UPDATE genres SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		g.Name, g.Description, g.UpdatedAt, g.ID)
}

func (s *Store) GetGenre(ctx context.Context, id int64) (*models.Genre, error) {
	g, err := queryOne(ctx, s.DB, scanGenre, "genre",
		`SELECT `+genreColumns+` FROM genres WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGenres(ctx context.Context) ([]models.Genre, error) {
	out, err := queryAll(ctx, s.DB, scanGenre, `SELECT `+genreColumns+` FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteGenre(ctx context.Context, id int64) error {
	return updateRow(ctx, s.DB, "genre", `DELETE FROM genres WHERE id = ?`, id)
}

// Suppliers

const supplierColumns = `id, name, phone, email, address, created_at, updated_at`

func scanSupplier(row scanner) (models.Supplier, error) {
	var sp models.Supplier
	err := row.Scan(&sp.ID, &sp.Name, &sp.Phone, &sp.Email, &sp.Address, &sp.CreatedAt, &sp.UpdatedAt)
	return sp, err
}

func getSupplier(ctx context.Context, q querier, id int64) (*models.Supplier, error) {
	sp, err := queryOne(ctx, q, scanSupplier, "supplier",
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *Store) CreateSupplier(ctx context.Context, sp *models.Supplier) error {
	now := s.now()
	id, err := insertRow(ctx, s.DB, "supplier", `
		INSERT INTO suppliers (name, phone, email, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sp.Name, sp.Phone, sp.Email, sp.Address, now, now)
	if err != nil {
		return err
	}
	sp.ID, sp.CreatedAt, sp.UpdatedAt = id, now, now
	return nil
}

func (s *Store) UpdateSupplier(ctx context.Context, sp *models.Supplier) error {
	sp.UpdatedAt = s.now()
	return updateRow(ctx, s.DB, "supplier", `
		UPDATE suppliers SET name = ?, phone = ?, email = ?, address = ?, updated_at = ?
		WHERE id = ?`,
		sp.Name, sp.Phone, sp.Email, sp.Address, sp.UpdatedAt, sp.ID)
}

func (s *Store) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	return getSupplier(ctx, s.DB, id)
}

func (s *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	out, err := queryAll(ctx, s.DB, scanSupplier, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return out, nil
}

// DeleteSupplier removes the supplier. Past stock imports keep the supplier
// name they were recorded with.
func (s *Store) DeleteSupplier(ctx context.Context, id int64) error {
	return updateRow(ctx, s.DB, "supplier", `DELETE FROM suppliers WHERE id = ?`, id)
}
