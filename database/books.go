package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookstore-service/models"

	"github.com/samber/lo"
)

const bookColumns = `id, isbn, title, publisher_id, description, price,
	available_count, sold_count, created_at, updated_at`

var bookSorts = map[string]string{
	"price":       "price ASC, id ASC",
	"-price":      "price DESC, id ASC",
	"title":       "title ASC, id ASC",
	"-created_at": "created_at DESC, id DESC",
}

func scanBook(row scanner) (*models.Book, error) {
	var (
		b           models.Book
		publisherID sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.ISBN, &b.Title, &publisherID, &b.Description, &b.Price,
		&b.AvailableCount, &b.SoldCount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if publisherID.Valid {
		b.PublisherID = &publisherID.Int64
	}
	return &b, nil
}

func bookWriteErr(action string, err error) error {
	switch {
	case isDuplicateKey(err):
		return ErrDuplicate
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: publisher", ErrInvalidReference)
	default:
		return fmt.Errorf("failed to %s book: %w", action, err)
	}
}

func replaceBookLinks(ctx context.Context, q querier, b *models.Book) error {
	b.AuthorIDs = lo.Uniq(b.AuthorIDs)
	b.GenreIDs = lo.Uniq(b.GenreIDs)
	if err := bookAuthors.replace(ctx, q, b.ID, b.AuthorIDs); err != nil {
		return err
	}
	return bookGenres.replace(ctx, q, b.ID, b.GenreIDs)
}

// CreateOrRestoreBook inserts b, or revives and overwrites a soft-deleted
// book with the same ISBN. A revived book keeps its id, sold count and
// creation time. A live book with that ISBN is ErrDuplicate.
func (s *Store) CreateOrRestoreBook(ctx context.Context, b *models.Book) error {
	now := s.now()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			id        int64
			soldCount int
			createdAt time.Time
			deletedAt sql.NullTime
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, sold_count, created_at, deleted_at FROM books WHERE isbn = ? FOR UPDATE`, b.ISBN,
		).Scan(&id, &soldCount, &createdAt, &deletedAt)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `
				INSERT INTO books (isbn, title, publisher_id, description, price,
					available_count, sold_count, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
				b.ISBN, b.Title, b.PublisherID, b.Description, b.Price,
				b.AvailableCount, now, now)
			if err != nil {
				return bookWriteErr("insert", err)
			}
			if b.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to get book ID: %w", err)
			}
			b.SoldCount = 0
			b.CreatedAt = now
		case err != nil:
			return fmt.Errorf("failed to look up isbn: %w", err)
		case !deletedAt.Valid:
			return ErrDuplicate
		default:
			if _, err := tx.ExecContext(ctx, `
				UPDATE books
				SET title = ?, publisher_id = ?, description = ?, price = ?,
				    available_count = ?, updated_at = ?, deleted_at = NULL
				WHERE id = ?`,
				b.Title, b.PublisherID, b.Description, b.Price,
				b.AvailableCount, now, id); err != nil {
				return bookWriteErr("restore", err)
			}
			b.ID = id
			b.SoldCount = soldCount
			b.CreatedAt = createdAt
		}

		b.UpdatedAt = now
		return replaceBookLinks(ctx, tx, b)
	})
}

// UpdateBook overwrites a live book and its author and genre links.
func (s *Store) UpdateBook(ctx context.Context, b *models.Book) error {
	b.UpdatedAt = s.now()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE books
			SET isbn = ?, title = ?, publisher_id = ?, description = ?, price = ?,
			    available_count = ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL`,
			b.ISBN, b.Title, b.PublisherID, b.Description, b.Price,
			b.AvailableCount, b.UpdatedAt, b.ID)
		if err != nil {
			return bookWriteErr("update", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return replaceBookLinks(ctx, tx, b)
	})
}

func (s *Store) SoftDeleteBook(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE books SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
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

func (s *Store) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	b, err := scanBook(s.DB.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ? AND deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	books := []models.Book{*b}
	if err := s.attachBookLinks(ctx, books); err != nil {
		return nil, err
	}
	return &books[0], nil
}

// ListBooks returns one page of live books and the total match count.
// The filter must already be normalized.
func (s *Store) ListBooks(ctx context.Context, f models.BookFilter) ([]models.Book, int, error) {
	where := `WHERE deleted_at IS NULL`
	var args []any
	if f.Query != "" {
		where += ` AND title LIKE ?`
		args = append(args, "%"+f.Query+"%")
	}
	if f.PublisherID > 0 {
		where += ` AND publisher_id = ?`
		args = append(args, f.PublisherID)
	}
	if f.AuthorID > 0 {
		where += ` AND id IN (SELECT book_id FROM book_authors WHERE author_id = ?)`
		args = append(args, f.AuthorID)
	}
	if f.GenreID > 0 {
		where += ` AND id IN (SELECT book_id FROM book_genres WHERE genre_id = ?)`
		args = append(args, f.GenreID)
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM books `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	order, ok := bookSorts[f.Sort]
	if !ok {
		order = bookSorts["-created_at"]
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, f.PageSize, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := s.attachBookLinks(ctx, books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (s *Store) attachBookLinks(ctx context.Context, books []models.Book) error {
	ids := lo.Map(books, func(b models.Book, _ int) int64 { return b.ID })
	authors, err := bookAuthors.load(ctx, s.DB, ids)
	if err != nil {
		return err
	}
	genres, err := bookGenres.load(ctx, s.DB, ids)
	if err != nil {
		return err
	}
	for i := range books {
		books[i].AuthorIDs = append([]int64{}, authors[books[i].ID]...)
		books[i].GenreIDs = append([]int64{}, genres[books[i].ID]...)
	}
	return nil
}
