package services

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrAddressNotFound      = errors.New("address not found")
	ErrBookNotFound         = errors.New("book not found")
	ErrBookExists           = errors.New("a book with this isbn already exists")
	ErrDiscountNotFound     = errors.New("discount not found")
	ErrDiscountExists       = errors.New("a discount with this code already exists")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrOrderAlreadyPaid     = errors.New("order has already been paid")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidPrice         = errors.New("price must not be negative")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrInvalidSignature     = errors.New("invalid payment signature")
	ErrAmountMismatch       = errors.New("paid amount does not match the order")
	ErrPaymentNotSettled    = errors.New("order payment is not settled")
	ErrZeroTotalPayment     = errors.New("online payment needs a positive total")

	ErrAuthorNotFound    = errors.New("author not found")
	ErrPublisherNotFound = errors.New("publisher not found")
	ErrPublisherExists   = errors.New("a publisher with this name already exists")
	ErrGenreNotFound     = errors.New("genre not found")
	ErrGenreExists       = errors.New("a genre with this name already exists")
	ErrSupplierNotFound  = errors.New("supplier not found")
	ErrSupplierExists    = errors.New("a supplier with this name already exists")
	ErrUnknownReference  = errors.New("referenced author, genre or publisher does not exist")
)

// InsufficientStockError reports a cart line asking for more copies than the
// book has left.
type InsufficientStockError struct {
	BookID    int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %d: requested %d, available %d",
		e.BookID, e.Requested, e.Available)
}

// TransactionAbortedError wraps a storage failure that rolled back a unit of
// work.
type TransactionAbortedError struct {
	Err error
}

func (e *TransactionAbortedError) Error() string {
	return "transaction aborted: " + e.Err.Error()
}

func (e *TransactionAbortedError) Unwrap() error {
	return e.Err
}

type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var domainErrors = []error{
	ErrEmptyCart, ErrAddressNotFound, ErrBookNotFound, ErrBookExists, ErrDiscountNotFound,
	ErrDiscountExists, ErrCartItemNotFound, ErrOrderNotFound, ErrInvalidTransition,
	ErrOrderAlreadyPaid, ErrInvalidPaymentMethod, ErrInvalidPrice, ErrPaymentNotFound,
	ErrInvalidSignature, ErrAmountMismatch, ErrPaymentNotSettled, ErrZeroTotalPayment,
	ErrAuthorNotFound, ErrPublisherNotFound, ErrPublisherExists, ErrGenreNotFound, ErrGenreExists,
	ErrSupplierNotFound, ErrSupplierExists, ErrUnknownReference,
}

// abortErr passes domain errors through and wraps anything else as a
// TransactionAbortedError.
func abortErr(err error) error {
	if err == nil {
		return nil
	}
	var stock *InsufficientStockError
	var validation *ValidationError
	if errors.As(err, &stock) || errors.As(err, &validation) {
		return err
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return &TransactionAbortedError{Err: err}
}
