package services

import (
	"context"
	"net/url"
	"time"

	"bookstore-service/cache"
	"bookstore-service/models"
	"bookstore-service/payments"
)

type BookStore interface {
	CreateOrRestoreBook(ctx context.Context, b *models.Book) error
	UpdateBook(ctx context.Context, b *models.Book) error
	SoftDeleteBook(ctx context.Context, id int64) error
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context, f models.BookFilter) ([]models.Book, int, error)
}

type DiscountStore interface {
	CreateOrRestoreDiscount(ctx context.Context, d *models.Discount) error
	GetDiscount(ctx context.Context, id int64) (*models.Discount, error)
	ListDiscounts(ctx context.Context) ([]models.Discount, error)
	SoftDeleteDiscount(ctx context.Context, id int64) error
}

type DirectoryStore interface {
	CreateAuthor(ctx context.Context, a *models.Author) error
	UpdateAuthor(ctx context.Context, a *models.Author) error
	GetAuthor(ctx context.Context, id int64) (*models.Author, error)
	ListAuthors(ctx context.Context) ([]models.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error

	CreatePublisher(ctx context.Context, p *models.Publisher) error
	UpdatePublisher(ctx context.Context, p *models.Publisher) error
	GetPublisher(ctx context.Context, id int64) (*models.Publisher, error)
	ListPublishers(ctx context.Context) ([]models.Publisher, error)
	DeletePublisher(ctx context.Context, id int64) error

	CreateGenre(ctx context.Context, g *models.Genre) error
	UpdateGenre(ctx context.Context, g *models.Genre) error
	GetGenre(ctx context.Context, id int64) (*models.Genre, error)
	ListGenres(ctx context.Context) ([]models.Genre, error)
	DeleteGenre(ctx context.Context, id int64) error

	CreateSupplier(ctx context.Context, sp *models.Supplier) error
	UpdateSupplier(ctx context.Context, sp *models.Supplier) error
	GetSupplier(ctx context.Context, id int64) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
}

type CartStore interface {
	CartLines(ctx context.Context, customerID int64) ([]models.CartLine, error)
	AddCartItem(ctx context.Context, customerID, bookID int64, quantity int) error
	SetCartItemQuantity(ctx context.Context, customerID, bookID int64, quantity int) error
	RemoveCartItem(ctx context.Context, customerID, bookID int64) error
	CreateAddress(ctx context.Context, a *models.Address) error
	ListAddresses(ctx context.Context, customerID int64) ([]models.Address, error)
}

type OrderReader interface {
	ListOrders(ctx context.Context, customerID int64) ([]models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
}

type PaymentReader interface {
	PaymentByTxnRef(ctx context.Context, ref string) (*models.Payment, error)
}

// EventPublisher is satisfied by *rabbitmq.RabbitMQ.
type EventPublisher interface {
	PublishOrderEvent(orderID int64, priority uint8, event string) error
	PublishDelayedEvent(orderID int64, delay time.Duration, event string) error
}

// PaymentGateway is satisfied by *payments.VNPay.
type PaymentGateway interface {
	PaymentURL(req payments.PaymentRequest) (string, error)
	VerifyReturn(values url.Values) (*payments.ReturnResult, error)
}

// SessionCache is satisfied by *cache.PaymentSessionStore.
type SessionCache interface {
	Save(ctx context.Context, session cache.PaymentSession, ttl time.Duration) error
	Get(ctx context.Context, ref string) (*cache.PaymentSession, error)
	Delete(ctx context.Context, ref string) error
}
