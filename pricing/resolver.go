package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
)

// DiscountSource loads candidate discounts. Implementations may pre-filter on
// now; the resolver re-checks activity itself.
type DiscountSource interface {
	// ScopedDiscounts returns discounts of kind that have a target row for targetID.
	ScopedDiscounts(ctx context.Context, kind TargetKind, targetID int64, now time.Time) ([]Discount, error)
	// GlobalDiscounts returns discounts of kind that have no target rows at all.
	GlobalDiscounts(ctx context.Context, kind TargetKind, now time.Time) ([]Discount, error)
}

type Resolver struct {
	source DiscountSource
}

func NewResolver(source DiscountSource) *Resolver {
	return &Resolver{source: source}
}

// ActiveDiscounts returns the scoped and global discounts of kind that apply
// to targetID at now, without duplicates.
func (r *Resolver) ActiveDiscounts(ctx context.Context, kind TargetKind, targetID int64, now time.Time) ([]Discount, error) {
	scoped, err := r.source.ScopedDiscounts(ctx, kind, targetID, now)
	if err != nil {
		return nil, fmt.Errorf("load scoped %s discounts: %w", kind, err)
	}
	global, err := r.source.GlobalDiscounts(ctx, kind, now)
	if err != nil {
		return nil, fmt.Errorf("load global %s discounts: %w", kind, err)
	}

	all := lo.UniqBy(append(scoped, global...), func(d Discount) int64 { return d.ID })
	return lo.Filter(all, func(d Discount, _ int) bool {
		return d.Target == kind && d.ActiveAt(now)
	}), nil
}

// BestDiscount picks the active discount with the highest equivalent
// percentage for basePrice.
func (r *Resolver) BestDiscount(ctx context.Context, kind TargetKind, targetID int64, basePrice decimal.Decimal, now time.Time) (mo.Option[Discount], error) {
	active, err := r.ActiveDiscounts(ctx, kind, targetID, now)
	if err != nil {
		return mo.None[Discount](), err
	}
	return Best(active, basePrice), nil
}

// Best selects the discount that takes the most off basePrice.
//
// Ordering, strongest first:
//   - when basePrice is zero, a fixed discount with a positive value beats
//     every percentage discount;
//   - higher equivalent percentage;
//   - higher discount value;
//   - lower id.
func Best(discounts []Discount, basePrice decimal.Decimal) mo.Option[Discount] {
	if len(discounts) == 0 {
		return mo.None[Discount]()
	}
	return mo.Some(lo.MaxBy(discounts, func(a, b Discount) bool {
		return better(a, b, basePrice)
	}))
}

// EquivalentPercentage normalizes d to a percentage off basePrice, capped at
// 100. A fixed discount on a zero price counts as 100 when its value is
// positive.
func EquivalentPercentage(d Discount, basePrice decimal.Decimal) decimal.Decimal {
	return rankOf(d, basePrice).percent
}

type rank struct {
	dominant bool
	percent  decimal.Decimal
}

func rankOf(d Discount, basePrice decimal.Decimal) rank {
	switch d.Type {
	case Percentage:
		return rank{percent: decimal.Min(d.Value, hundred)}
	case Fixed:
		if !basePrice.IsPositive() {
			if d.Value.IsPositive() {
				return rank{dominant: true, percent: hundred}
			}
			return rank{percent: decimal.Zero}
		}
		return rank{percent: decimal.Min(d.Value.Div(basePrice).Mul(hundred), hundred)}
	}
	return rank{percent: decimal.Zero}
}

func better(a, b Discount, basePrice decimal.Decimal) bool {
	ra, rb := rankOf(a, basePrice), rankOf(b, basePrice)
	if ra.dominant != rb.dominant {
		return ra.dominant
	}
	if !ra.percent.Equal(rb.percent) {
		return ra.percent.GreaterThan(rb.percent)
	}
	if !a.Value.Equal(b.Value) {
		return a.Value.GreaterThan(b.Value)
	}
	return a.ID < b.ID
}
