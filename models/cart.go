package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one (customer, book) row of a cart joined with the book it
// points at.
type CartLine struct {
	CustomerID     int64           `json:"-"`
	BookID         int64           `json:"book_id"`
	Title          string          `json:"title"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	AvailableCount int             `json:"available_count"`

	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
}

type Cart struct {
	Lines    []CartLine      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartItemRequest struct {
	BookID   int64 `json:"book_id" binding:"required,gt=0"`
	Quantity int   `json:"quantity" binding:"required,gte=1,lte=999"`
}

type CartQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,gte=1,lte=999"`
}

type Address struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	City        string    `json:"city"`
	District    string    `json:"district"`
	Ward        string    `json:"ward"`
	AddressLine string    `json:"address_line"`
	CreatedAt   time.Time `json:"created_at"`
}

type AddressRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Phone       string `json:"phone" binding:"required,max=20"`
	City        string `json:"city" binding:"required,max=100"`
	District    string `json:"district" binding:"required,max=100"`
	Ward        string `json:"ward" binding:"required,max=100"`
	AddressLine string `json:"address_line" binding:"required,max=255"`
}

func (r AddressRequest) Address(customerID int64) *Address {
	return &Address{
		CustomerID:  customerID,
		Name:        r.Name,
		Phone:       r.Phone,
		City:        r.City,
		District:    r.District,
		Ward:        r.Ward,
		AddressLine: r.AddressLine,
	}
}

// StockImport records a delivery from a supplier.
type StockImport struct {
	ID           int64             `json:"id"`
	SupplierID   int64             `json:"supplier_id"`
	SupplierName string            `json:"supplier_name"`
	Note         string            `json:"note"`
	Lines        []StockImportLine `json:"lines"`
	CreatedAt    time.Time         `json:"created_at"`
}

type StockImportLine struct {
	BookID      int64           `json:"book_id" binding:"required,gt=0"`
	Quantity    int             `json:"quantity" binding:"required,gte=1"`
	ImportPrice decimal.Decimal `json:"import_price"`
}

type StockImportRequest struct {
	SupplierID int64             `json:"supplier_id" binding:"required,gt=0"`
	Note       string            `json:"note" binding:"max=1000"`
	Lines      []StockImportLine `json:"lines" binding:"required,min=1,dive"`
}
