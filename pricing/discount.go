package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is how a discount value is applied to a price.
type DiscountType string

const (
	Percentage DiscountType = "percentage"
	Fixed      DiscountType = "fixed"
)

func ParseDiscountType(s string) (DiscountType, error) {
	switch DiscountType(s) {
	case Percentage, Fixed:
		return DiscountType(s), nil
	}
	return "", fmt.Errorf("unknown discount type %q", s)
}

func (t *DiscountType) UnmarshalText(text []byte) error {
	parsed, err := ParseDiscountType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TargetKind is the kind of entity a discount is scoped to.
type TargetKind string

const (
	TargetBook  TargetKind = "book"
	TargetOrder TargetKind = "order"
)

func ParseTargetKind(s string) (TargetKind, error) {
	switch TargetKind(s) {
	case TargetBook, TargetOrder:
		return TargetKind(s), nil
	}
	return "", fmt.Errorf("unknown discount target %q", s)
}

func (k *TargetKind) UnmarshalText(text []byte) error {
	parsed, err := ParseTargetKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type Discount struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      DiscountType    `json:"discount_type"`
	Value     decimal.Decimal `json:"discount_value"`
	Target    TargetKind      `json:"target_type"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	IsActive  bool            `json:"is_active"`
}

// ActiveAt reports whether the discount is switched on and now falls inside
// [StartDate, EndDate], both ends inclusive.
func (d Discount) ActiveAt(now time.Time) bool {
	return d.IsActive && !now.Before(d.StartDate) && !now.After(d.EndDate)
}
