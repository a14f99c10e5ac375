package models

import (
	"time"

	"bookstore-service/pricing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Discount struct {
	pricing.Discount
	TargetIDs []int64   `json:"target_ids"`
	CreatedAt time.Time `json:"created_at"`
}

type DiscountRequest struct {
	Code      string               `json:"code" binding:"required,max=64"`
	Name      string               `json:"name" binding:"required,max=255"`
	Type      pricing.DiscountType `json:"discount_type" binding:"required,oneof=percentage fixed"`
	Value     decimal.Decimal      `json:"discount_value"`
	Target    pricing.TargetKind   `json:"target_type" binding:"required,oneof=book order"`
	StartDate time.Time            `json:"start_date"`
	EndDate   time.Time            `json:"end_date" binding:"gtfield=StartDate"`
	IsActive  *bool                `json:"is_active"`
	TargetIDs []int64              `json:"target_ids" binding:"omitempty,dive,gt=0"`
}

func (r DiscountRequest) Discount() *Discount {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &Discount{
		Discount: pricing.Discount{
			Code:      r.Code,
			Name:      r.Name,
			Type:      r.Type,
			Value:     r.Value,
			Target:    r.Target,
			StartDate: r.StartDate,
			EndDate:   r.EndDate,
			IsActive:  active,
		},
		TargetIDs: r.TargetIDs,
	}
}

var (
	maxPercentage = decimal.NewFromInt(100)
	validate      = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterStructValidation(discountRules, DiscountRequest{})
	return v
}

// Validate checks the request outside of gin, including the value range
// rules that depend on the discount type.
func (r DiscountRequest) Validate() error {
	return validate.Struct(r)
}

func discountRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(DiscountRequest)
	if r.StartDate.IsZero() {
		sl.ReportError(r.StartDate, "StartDate", "start_date", "required", "")
	}
	if r.EndDate.IsZero() {
		sl.ReportError(r.EndDate, "EndDate", "end_date", "required", "")
	}
	if r.Value.IsNegative() {
		sl.ReportError(r.Value, "Value", "discount_value", "gte", "0")
	}
	if r.Type == pricing.Percentage && r.Value.GreaterThan(maxPercentage) {
		sl.ReportError(r.Value, "Value", "discount_value", "lte", "100")
	}
	if r.Target == pricing.TargetOrder && len(r.TargetIDs) > 0 {
		sl.ReportError(r.TargetIDs, "TargetIDs", "target_ids", "excluded_with", "target_type")
	}
}
