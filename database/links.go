package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// A join table row ties one owner (a book, a discount) to one referenced id.
type joinTable struct {
	name  string
	owner string
	ref   string
}

var (
	bookAuthors     = joinTable{name: "book_authors", owner: "book_id", ref: "author_id"}
	bookGenres      = joinTable{name: "book_genres", owner: "book_id", ref: "genre_id"}
	discountTargets = joinTable{name: "discount_targets", owner: "discount_id", ref: "target_id"}
)

func inPlaceholders(n int) string {
	return "(?" + strings.Repeat(", ?", n-1) + ")"
}

// load returns the referenced ids of each owner, in ascending order.
func (j joinTable) load(ctx context.Context, q querier, owners []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(owners))
	if len(owners) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s IN %s ORDER BY %s, %s`,
		j.owner, j.ref, j.name, j.owner, inPlaceholders(len(owners)), j.owner, j.ref)
	rows, err := q.QueryContext(ctx, query, lo.ToAnySlice(owners)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", j.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner, ref int64
		if err := rows.Scan(&owner, &ref); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", j.name, err)
		}
		out[owner] = append(out[owner], ref)
	}
	return out, rows.Err()
}

// insert adds one row per ref. A ref that does not exist is
// ErrInvalidReference.
func (j joinTable) insert(ctx context.Context, q querier, owner int64, refs []int64) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES (?, ?)`, j.name, j.owner, j.ref)
	for _, ref := range refs {
		if _, err := q.ExecContext(ctx, query, owner, ref); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: %s %d", ErrInvalidReference, j.ref, ref)
			}
			return fmt.Errorf("failed to insert into %s: %w", j.name, err)
		}
	}
	return nil
}

// replace drops the owner's rows and inserts refs in their place.
func (j joinTable) replace(ctx context.Context, q querier, owner int64, refs []int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, j.name, j.owner)
	if _, err := q.ExecContext(ctx, query, owner); err != nil {
		return fmt.Errorf("failed to clear %s: %w", j.name, err)
	}
	return j.insert(ctx, q, owner, refs)
}
