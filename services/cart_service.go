package services

import (
	"context"
	"errors"
	"time"

	"bookstore-service/database"
	"bookstore-service/models"
	"bookstore-service/pricing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type CartService struct {
	cart     CartStore
	books    BookStore
	resolver *pricing.Resolver
	now      func() time.Time
}

func NewCartService(cart CartStore, books BookStore, source pricing.DiscountSource) *CartService {
	return &CartService{cart: cart, books: books, resolver: pricing.NewResolver(source), now: time.Now}
}

// Cart returns the customer's lines priced as checkout would price them
// right now. The subtotal excludes order-level discounts.
func (s *CartService) Cart(ctx context.Context, customerID int64) (*models.Cart, error) {
	lines, err := s.cart.CartLines(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	subtotal := decimal.Zero
	for i := range lines {
		best, err := s.resolver.BestDiscount(ctx, pricing.TargetBook, lines[i].BookID, lines[i].Price, now)
		if err != nil {
			return nil, err
		}
		price := pricing.FinalPrice(lines[i].Price, best)
		if best.IsPresent() {
			lines[i].DiscountedPrice = &price
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(lines[i].Quantity))))
	}

	return &models.Cart{Lines: lo.Ternary(lines == nil, []models.CartLine{}, lines), Subtotal: subtotal}, nil
}

func (s *CartService) AddItem(ctx context.Context, customerID int64, req models.CartItemRequest) error {
	if _, err := s.books.GetBook(ctx, req.BookID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	return s.cart.AddCartItem(ctx, customerID, req.BookID, req.Quantity)
}

func (s *CartService) SetQuantity(ctx context.Context, customerID, bookID int64, quantity int) error {
	err := s.cart.SetCartItemQuantity(ctx, customerID, bookID, quantity)
	if errors.Is(err, database.ErrNotFound) {
		return ErrCartItemNotFound
	}
	return err
}

func (s *CartService) RemoveItem(ctx context.Context, customerID, bookID int64) error {
	err := s.cart.RemoveCartItem(ctx, customerID, bookID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrCartItemNotFound
	}
	return err
}

func (s *CartService) CreateAddress(ctx context.Context, customerID int64, req models.AddressRequest) (*models.Address, error) {
	a := req.Address(customerID)
	if err := s.cart.CreateAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *CartService) ListAddresses(ctx context.Context, customerID int64) ([]models.Address, error) {
	as, err := s.cart.ListAddresses(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if as == nil {
		as = []models.Address{}
	}
	return as, nil
}
