package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookstore-service/database"
	"bookstore-service/models"
	"bookstore-service/pricing"

	"go.uber.org/zap"
)

// CatalogService manages books and discounts. Books it returns carry the
// price after their best active discount.
type CatalogService struct {
	books     BookStore
	discounts DiscountStore
	resolver  *pricing.Resolver
	now       func() time.Time
}

func NewCatalogService(books BookStore, discounts DiscountStore, source pricing.DiscountSource) *CatalogService {
	return &CatalogService{
		books:     books,
		discounts: discounts,
		resolver:  pricing.NewResolver(source),
		now:       time.Now,
	}
}

func (s *CatalogService) CreateBook(ctx context.Context, req models.BookRequest) (*models.Book, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	b := req.Book()
	if err := bookWriteErr(s.books.CreateOrRestoreBook(ctx, b)); err != nil {
		return nil, err
	}
	zap.L().Info("book created", zap.Int64("book_id", b.ID), zap.String("isbn", b.ISBN))
	return b, s.decorate(ctx, b)
}

func (s *CatalogService) UpdateBook(ctx context.Context, id int64, req models.BookRequest) (*models.Book, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	current, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	b := req.Book()
	b.ID = id
	b.SoldCount = current.SoldCount
	b.CreatedAt = current.CreatedAt
	if err := bookWriteErr(s.books.UpdateBook(ctx, b)); err != nil {
		return nil, err
	}
	return b, s.decorate(ctx, b)
}

func bookWriteErr(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ErrBookNotFound
	case errors.Is(err, database.ErrDuplicate):
		return ErrBookExists
	case errors.Is(err, database.ErrInvalidReference):
		return fmt.Errorf("%w: %v", ErrUnknownReference, err)
	default:
		return err
	}
}

func (s *CatalogService) DeleteBook(ctx context.Context, id int64) error {
	err := s.books.SoftDeleteBook(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrBookNotFound
	}
	if err == nil {
		zap.L().Info("book deleted", zap.Int64("book_id", id))
	}
	return err
}

func (s *CatalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	b, err := s.books.GetBook(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, s.decorate(ctx, b)
}

func (s *CatalogService) ListBooks(ctx context.Context, f models.BookFilter) (*models.BookPage, error) {
	f.Normalize()
	books, total, err := s.books.ListBooks(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range books {
		if err := s.decorate(ctx, &books[i]); err != nil {
			return nil, err
		}
	}
	if books == nil {
		books = []models.Book{}
	}
	return &models.BookPage{Items: books, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// decorate fills in the discounted price when an active discount applies.
func (s *CatalogService) decorate(ctx context.Context, b *models.Book) error {
	best, err := s.resolver.BestDiscount(ctx, pricing.TargetBook, b.ID, b.Price, s.now())
	if err != nil {
		return err
	}
	d, ok := best.Get()
	if !ok {
		return nil
	}
	price := pricing.FinalPrice(b.Price, best)
	b.DiscountedPrice = &price
	b.BestDiscountID = &d.ID
	return nil
}

func (s *CatalogService) CreateDiscount(ctx context.Context, req models.DiscountRequest) (*models.Discount, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}
	d := req.Discount()
	err := s.discounts.CreateOrRestoreDiscount(ctx, d)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrDiscountExists
	}
	if err != nil {
		return nil, err
	}
	zap.L().Info("discount created",
		zap.Int64("discount_id", d.ID),
		zap.String("code", d.Code),
		zap.String("type", string(d.Type)),
		zap.String("target", string(d.Target)))
	return d, nil
}

func (s *CatalogService) ListDiscounts(ctx context.Context) ([]models.Discount, error) {
	ds, err := s.discounts.ListDiscounts(ctx)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		ds = []models.Discount{}
	}
	return ds, nil
}

func (s *CatalogService) GetDiscount(ctx context.Context, id int64) (*models.Discount, error) {
	d, err := s.discounts.GetDiscount(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrDiscountNotFound
	}
	return d, err
}

func (s *CatalogService) DeleteDiscount(ctx context.Context, id int64) error {
	err := s.discounts.SoftDeleteDiscount(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrDiscountNotFound
	}
	if err == nil {
		zap.L().Info("discount deleted", zap.Int64("discount_id", id))
	}
	return err
}
