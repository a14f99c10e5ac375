package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentVNPay        PaymentMethod = "vnpay"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentVNPay, PaymentBankTransfer:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// InitialPaymentStatus is the status a new payment starts in. Cash on
// delivery is settled at checkout; every other method waits for the gateway.
func InitialPaymentStatus(method PaymentMethod) PaymentStatus {
	if method == PaymentCOD {
		return PaymentPaid
	}
	return PaymentPending
}

type Order struct {
	ID                  int64       `json:"id"`
	CustomerID          int64       `json:"customer_id"`
	Status              string      `json:"status"`
	ShippingName        string      `json:"shipping_name"`
	ShippingPhone       string      `json:"shipping_phone"`
	ShippingCity        string      `json:"shipping_city"`
	ShippingDistrict    string      `json:"shipping_district"`
	ShippingWard        string      `json:"shipping_ward"`
	ShippingAddressLine string      `json:"shipping_address_line"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
	Items               []OrderItem `json:"items"`
	Payment             *Payment    `json:"payment,omitempty"`
	PaymentURL          string      `json:"payment_url,omitempty"`
}

// OrderItem is a price snapshot taken when the order was placed.
type OrderItem struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	BookID        int64           `json:"book_id"`
	Title         string          `json:"title"`
	Quantity      int             `json:"quantity"`
	PriceAtTime   decimal.Decimal `json:"price_at_time"`
	DiscountValue decimal.Decimal `json:"discount_value"`
}

// LineTotal is the discounted unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtTime.Sub(i.DiscountValue).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Payment struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	Method        PaymentMethod   `json:"method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Status        PaymentStatus   `json:"status"`
	TxnRef        string          `json:"txn_ref,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type CreateOrderRequest struct {
	AddressID     int64         `json:"address_id" binding:"required,gt=0"`
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required,oneof=cod vnpay bank_transfer"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
}

const (
	EventOrderCreated  = "created"
	EventStatusUpdated = "status_updated"
	EventPaymentCheck  = "payment_check"
)

type OrderEvent struct {
	OrderID  int64     `json:"order_id"`
	Type     string    `json:"type"`
	Occurred time.Time `json:"occurred"`
}
