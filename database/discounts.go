package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookstore-service/models"
	"bookstore-service/pricing"

	"github.com/samber/lo"
)

const discountColumns = `d.id, d.code, d.name, d.discount_type, d.discount_value, d.target_type,
	d.start_date, d.end_date, d.is_active`

func scanDiscount(row scanner) (pricing.Discount, error) {
	var (
		d      pricing.Discount
		typ    string
		target string
	)
	if err := row.Scan(&d.ID, &d.Code, &d.Name, &typ, &d.Value, &target,
		&d.StartDate, &d.EndDate, &d.IsActive); err != nil {
		return d, err
	}

	var err error
	if d.Type, err = pricing.ParseDiscountType(typ); err != nil {
		return d, fmt.Errorf("discount %d: %w", d.ID, err)
	}
	if d.Target, err = pricing.ParseTargetKind(target); err != nil {
		return d, fmt.Errorf("discount %d: %w", d.ID, err)
	}
	return d, nil
}

func queryDiscounts(ctx context.Context, q querier, query string, args ...any) ([]pricing.Discount, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scopedDiscounts(ctx context.Context, q querier, kind pricing.TargetKind, targetID int64, now time.Time) ([]pricing.Discount, error) {
	ds, err := queryDiscounts(ctx, q, `
		SELECT `+discountColumns+`
		FROM discounts d
		JOIN discount_targets t ON t.discount_id = d.id
		WHERE d.target_type = ? AND t.target_id = ?
		  AND d.deleted_at IS NULL AND d.is_active = TRUE
		  AND d.start_date <= ? AND d.end_date >= ?`,
		string(kind), targetID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoped discounts: %w", err)
	}
	return ds, nil
}

func globalDiscounts(ctx context.Context, q querier, kind pricing.TargetKind, now time.Time) ([]pricing.Discount, error) {
	ds, err := queryDiscounts(ctx, q, `
		SELECT `+discountColumns+`
		FROM discounts d
		WHERE d.target_type = ?
		  AND d.deleted_at IS NULL AND d.is_active = TRUE
		  AND d.start_date <= ? AND d.end_date >= ?
		  AND NOT EXISTS (SELECT 1 FROM discount_targets t WHERE t.discount_id = d.id)`,
		string(kind), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query global discounts: %w", err)
	}
	return ds, nil
}

func (s *Store) ScopedDiscounts(ctx context.Context, kind pricing.TargetKind, targetID int64, now time.Time) ([]pricing.Discount, error) {
	return scopedDiscounts(ctx, s.DB, kind, targetID, now)
}

func (s *Store) GlobalDiscounts(ctx context.Context, kind pricing.TargetKind, now time.Time) ([]pricing.Discount, error) {
	return globalDiscounts(ctx, s.DB, kind, now)
}

// CreateOrRestoreDiscount inserts d, or revives and overwrites a soft-deleted
// discount with the same code. A revived discount keeps its id and creation
// time and its targets are replaced. A live discount with that code is
// ErrDuplicate.
func (s *Store) CreateOrRestoreDiscount(ctx context.Context, d *models.Discount) error {
	now := s.now()
	targets := lo.Uniq(d.TargetIDs)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			id        int64
			createdAt time.Time
			deletedAt sql.NullTime
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, created_at, deleted_at FROM discounts WHERE code = ? FOR UPDATE`, d.Code,
		).Scan(&id, &createdAt, &deletedAt)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `
				INSERT INTO discounts (code, name, discount_type, discount_value, target_type,
					start_date, end_date, is_active, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				d.Code, d.Name, string(d.Type), d.Value, string(d.Target),
				d.StartDate, d.EndDate, d.IsActive, now, now)
			if err != nil {
				if isDuplicateKey(err) {
					return ErrDuplicate
				}
				return fmt.Errorf("failed to insert discount: %w", err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to get discount ID: %w", err)
			}
			if err := discountTargets.insert(ctx, tx, id, targets); err != nil {
				return err
			}
			createdAt = now
		case err != nil:
			return fmt.Errorf("failed to look up discount code: %w", err)
		case !deletedAt.Valid:
			return ErrDuplicate
		default:
			if _, err := tx.ExecContext(ctx, `
				UPDATE discounts
				SET name = ?, discount_type = ?, discount_value = ?, target_type = ?,
				    start_date = ?, end_date = ?, is_active = ?, updated_at = ?, deleted_at = NULL
				WHERE id = ?`,
				d.Name, string(d.Type), d.Value, string(d.Target),
				d.StartDate, d.EndDate, d.IsActive, now, id); err != nil {
				return fmt.Errorf("failed to restore discount: %w", err)
			}
			if err := discountTargets.replace(ctx, tx, id, targets); err != nil {
				return err
			}
		}

		d.ID = id
		d.TargetIDs = targets
		d.CreatedAt = createdAt
		return nil
	})
}

func (s *Store) GetDiscount(ctx context.Context, id int64) (*models.Discount, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+discountColumns+`, d.created_at
		FROM discounts d
		WHERE d.id = ? AND d.deleted_at IS NULL`, id)

	var (
		out       models.Discount
		typ       string
		target    string
		createdAt time.Time
	)
	err := row.Scan(&out.ID, &out.Code, &out.Name, &typ, &out.Value, &target,
		&out.StartDate, &out.EndDate, &out.IsActive, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discount: %w", err)
	}
	if out.Type, err = pricing.ParseDiscountType(typ); err != nil {
		return nil, err
	}
	if out.Target, err = pricing.ParseTargetKind(target); err != nil {
		return nil, err
	}
	out.CreatedAt = createdAt

	targets, err := discountTargets.load(ctx, s.DB, []int64{id})
	if err != nil {
		return nil, err
	}
	out.TargetIDs = targets[id]
	return &out, nil
}

func (s *Store) ListDiscounts(ctx context.Context) ([]models.Discount, error) {
	ds, err := queryDiscounts(ctx, s.DB, `
		SELECT `+discountColumns+`
		FROM discounts d
		WHERE d.deleted_at IS NULL
		ORDER BY d.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounts: %w", err)
	}

	targets, err := discountTargets.load(ctx, s.DB, lo.Map(ds, func(d pricing.Discount, _ int) int64 { return d.ID }))
	if err != nil {
		return nil, err
	}
	return lo.Map(ds, func(d pricing.Discount, _ int) models.Discount {
		return models.Discount{Discount: d, TargetIDs: targets[d.ID]}
	}), nil
}

func (s *Store) SoftDeleteDiscount(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE discounts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete discount: %w", err)
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
