package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"bookstore-service/models"
	"bookstore-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in services.CreateOrderInput) (*models.Order, error)
	ListOrders(ctx context.Context, customerID int64) ([]models.Order, error)
	GetOrder(ctx context.Context, customerID, orderID int64) (*models.Order, error)
	CancelOrder(ctx context.Context, customerID, orderID int64) error
	UpdateStatus(ctx context.Context, orderID int64, status string) error
}

type PaymentService interface {
	HandleVNPayReturn(ctx context.Context, values url.Values) (*models.Payment, error)
}

type CatalogService interface {
	CreateBook(ctx context.Context, req models.BookRequest) (*models.Book, error)
	UpdateBook(ctx context.Context, id int64, req models.BookRequest) (*models.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context, f models.BookFilter) (*models.BookPage, error)
	CreateDiscount(ctx context.Context, req models.DiscountRequest) (*models.Discount, error)
	ListDiscounts(ctx context.Context) ([]models.Discount, error)
	GetDiscount(ctx context.Context, id int64) (*models.Discount, error)
	DeleteDiscount(ctx context.Context, id int64) error
}

type CartService interface {
	Cart(ctx context.Context, customerID int64) (*models.Cart, error)
	AddItem(ctx context.Context, customerID int64, req models.CartItemRequest) error
	SetQuantity(ctx context.Context, customerID, bookID int64, quantity int) error
	RemoveItem(ctx context.Context, customerID, bookID int64) error
	CreateAddress(ctx context.Context, customerID int64, req models.AddressRequest) (*models.Address, error)
	ListAddresses(ctx context.Context, customerID int64) ([]models.Address, error)
}

type DirectoryService interface {
	CreateAuthor(ctx context.Context, req models.AuthorRequest) (*models.Author, error)
	UpdateAuthor(ctx context.Context, id int64, req models.AuthorRequest) (*models.Author, error)
	GetAuthor(ctx context.Context, id int64) (*models.Author, error)
	ListAuthors(ctx context.Context) ([]models.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error

	CreatePublisher(ctx context.Context, req models.PublisherRequest) (*models.Publisher, error)
	UpdatePublisher(ctx context.Context, id int64, req models.PublisherRequest) (*models.Publisher, error)
	GetPublisher(ctx context.Context, id int64) (*models.Publisher, error)
	ListPublishers(ctx context.Context) ([]models.Publisher, error)
	DeletePublisher(ctx context.Context, id int64) error

	CreateGenre(ctx context.Context, req models.GenreRequest) (*models.Genre, error)
	UpdateGenre(ctx context.Context, id int64, req models.GenreRequest) (*models.Genre, error)
	GetGenre(ctx context.Context, id int64) (*models.Genre, error)
	ListGenres(ctx context.Context) ([]models.Genre, error)
	DeleteGenre(ctx context.Context, id int64) error

	CreateSupplier(ctx context.Context, req models.SupplierRequest) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, req models.SupplierRequest) (*models.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
}

type StockService interface {
	ImportStock(ctx context.Context, in services.ImportInput) (*models.StockImport, error)
}

var (
	orderService     OrderService
	paymentService   PaymentService
	catalogService   CatalogService
	cartService      CartService
	stockService     StockService
	directoryService DirectoryService
)

func SetOrderService(s OrderService) {
	orderService = s
}

func SetPaymentService(s PaymentService) {
	paymentService = s
}

func SetCatalogService(s CatalogService) {
	catalogService = s
}

func SetCartService(s CartService) {
	cartService = s
}

func SetStockService(s StockService) {
	stockService = s
}

func SetDirectoryService(s DirectoryService) {
	directoryService = s
}

func currentUser(c *gin.Context) (int64, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	id, ok := userID.(int64)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return id, true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func succeeded(c *gin.Context) bool {
	return c.Writer.Status() >= 200 && c.Writer.Status() < 300
}

var (
	badRequestErrors = []error{
		services.ErrEmptyCart, services.ErrInvalidPaymentMethod, services.ErrInvalidPrice,
		services.ErrInvalidSignature, services.ErrAmountMismatch, services.ErrZeroTotalPayment,
		services.ErrUnknownReference,
	}
	notFoundErrors = []error{
		services.ErrAddressNotFound, services.ErrBookNotFound, services.ErrDiscountNotFound,
		services.ErrCartItemNotFound, services.ErrOrderNotFound, services.ErrPaymentNotFound,
		services.ErrAuthorNotFound, services.ErrPublisherNotFound, services.ErrGenreNotFound,
		services.ErrSupplierNotFound,
	}
	conflictErrors = []error{
		services.ErrBookExists, services.ErrDiscountExists, services.ErrInvalidTransition,
		services.ErrOrderAlreadyPaid, services.ErrPaymentNotSettled, services.ErrPublisherExists,
		services.ErrGenreExists, services.ErrSupplierExists,
	}
)

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps service errors to a status code and a gin.H body.
// Anything unrecognised is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	var (
		stockErr      *services.InsufficientStockError
		validationErr *services.ValidationError
	)
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"book_id":   stockErr.BookID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	case errors.As(err, &validationErr), matches(err, badRequestErrors):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case matches(err, notFoundErrors):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case matches(err, conflictErrors):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
