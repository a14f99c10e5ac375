package services

import (
	"context"
	"errors"
	"time"

	"bookstore-service/cache"
	"bookstore-service/database"
	"bookstore-service/models"
	"bookstore-service/payments"
	"bookstore-service/pricing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPriority    uint8 = 5
	largeOrderPriority uint8 = 9
	cancelPriority     uint8 = 8
)

// Orders at or above this total jump the event queue.
var largeOrderTotal = decimal.NewFromInt(1_000_000)

// transitions lists the statuses an order may move to from each status.
var transitions = map[string][]string{
	models.OrderPending:    {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
}

func CanTransition(from, to string) bool {
	return lo.Contains(transitions[from], to)
}

type CreateOrderInput struct {
	CustomerID    int64
	AddressID     int64
	PaymentMethod models.PaymentMethod
	ClientIP      string
}

type OrderService struct {
	tx       database.Transactor
	orders   OrderReader
	events   EventPublisher
	gateway  PaymentGateway
	sessions SessionCache

	now               func() time.Time
	paymentCheckDelay time.Duration
	sessionTTL        time.Duration
}

type OrderOption func(*OrderService)

func WithEvents(p EventPublisher) OrderOption {
	return func(s *OrderService) { s.events = p }
}

func WithGateway(g PaymentGateway) OrderOption {
	return func(s *OrderService) { s.gateway = g }
}

func WithSessions(c SessionCache) OrderOption {
	return func(s *OrderService) { s.sessions = c }
}

func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

func WithPaymentCheckDelay(d time.Duration) OrderOption {
	return func(s *OrderService) { s.paymentCheckDelay = d }
}

func WithSessionTTL(d time.Duration) OrderOption {
	return func(s *OrderService) { s.sessionTTL = d }
}

func NewOrderService(tx database.Transactor, orders OrderReader, opts ...OrderOption) *OrderService {
	s := &OrderService{
		tx:                tx,
		orders:            orders,
		now:               time.Now,
		paymentCheckDelay: 15 * time.Minute,
		sessionTTL:        15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder turns the customer's cart into an order, its line items and a
// payment in one transaction. The cart lines and book rows stay locked until
// commit, so concurrent checkouts of the same book are serialized.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if !in.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	now := s.now().UTC()
	var order *models.Order
	err := s.tx.WithinTx(ctx, func(tx database.Tx) error {
		var err error
		order, err = assembleOrder(ctx, tx, in, now)
		return err
	})
	if err != nil {
		return nil, abortErr(err)
	}

	zap.L().Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", order.CustomerID),
		zap.String("method", string(in.PaymentMethod)),
		zap.String("total", order.Payment.TotalAmount.String()))

	s.afterCreate(ctx, order, in)
	return order, nil
}

func assembleOrder(ctx context.Context, tx database.Tx, in CreateOrderInput, now time.Time) (*models.Order, error) {
	lines, err := tx.LockCartLines(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	for _, line := range lines {
		if line.AvailableCount < line.Quantity {
			return nil, &InsufficientStockError{BookID: line.BookID, Requested: line.Quantity, Available: line.AvailableCount}
		}
	}

	addr, err := tx.AddressForCustomer(ctx, in.AddressID, in.CustomerID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerID:          in.CustomerID,
		Status:              models.OrderPending,
		ShippingName:        addr.Name,
		ShippingPhone:       addr.Phone,
		ShippingCity:        addr.City,
		ShippingDistrict:    addr.District,
		ShippingWard:        addr.Ward,
		ShippingAddressLine: addr.AddressLine,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	resolver := pricing.NewResolver(tx)
	total := decimal.Zero
	for _, line := range lines {
		best, err := resolver.BestDiscount(ctx, pricing.TargetBook, line.BookID, line.Price, now)
		if err != nil {
			return nil, err
		}
		item := models.OrderItem{
			OrderID:       order.ID,
			BookID:        line.BookID,
			Title:         line.Title,
			Quantity:      line.Quantity,
			PriceAtTime:   line.Price,
			DiscountValue: pricing.Saving(line.Price, best),
		}
		if err := tx.InsertOrderItem(ctx, &item); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
		total = total.Add(item.LineTotal())

		if err := tx.DeleteCartLine(ctx, in.CustomerID, line.BookID); err != nil {
			return nil, err
		}
	}

	best, err := resolver.BestDiscount(ctx, pricing.TargetOrder, order.ID, total, now)
	if err != nil {
		return nil, err
	}
	final := pricing.FinalPrice(total, best)
	if in.PaymentMethod != models.PaymentCOD && !final.IsPositive() {
		return nil, ErrZeroTotalPayment
	}

	payment := &models.Payment{
		OrderID:       order.ID,
		Method:        in.PaymentMethod,
		TotalAmount:   final,
		DiscountValue: pricing.Saving(total, best),
		Status:        models.InitialPaymentStatus(in.PaymentMethod),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.PaymentMethod != models.PaymentCOD {
		payment.TxnRef = uuid.NewString()
	}
	if err := tx.InsertPayment(ctx, payment); err != nil {
		return nil, err
	}
	order.Payment = payment

	for _, line := range lines {
		ok, err := tx.DecrementStock(ctx, line.BookID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &InsufficientStockError{BookID: line.BookID, Requested: line.Quantity, Available: line.AvailableCount}
		}
	}

	return order, nil
}

// afterCreate runs once the order is committed. Nothing here can undo the
// order, so failures are only logged.
func (s *OrderService) afterCreate(ctx context.Context, order *models.Order, in CreateOrderInput) {
	payment := order.Payment

	if s.events != nil {
		priority := defaultPriority
		if payment.TotalAmount.GreaterThanOrEqual(largeOrderTotal) {
			priority = largeOrderPriority
		}
		if err := s.events.PublishOrderEvent(order.ID, priority, models.EventOrderCreated); err != nil {
			zap.L().Error("failed to publish order created event", zap.Int64("order_id", order.ID), zap.Error(err))
		}
		if payment.Method != models.PaymentCOD {
			if err := s.events.PublishDelayedEvent(order.ID, s.paymentCheckDelay, models.EventPaymentCheck); err != nil {
				zap.L().Error("failed to publish payment check event", zap.Int64("order_id", order.ID), zap.Error(err))
			}
		}
	}

	if payment.Method != models.PaymentVNPay || s.gateway == nil {
		return
	}

	paymentURL, err := s.gateway.PaymentURL(payments.PaymentRequest{
		TxnRef:   payment.TxnRef,
		OrderID:  order.ID,
		Amount:   payment.TotalAmount,
		ClientIP: in.ClientIP,
	})
	if err != nil {
		zap.L().Error("failed to build payment url", zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}
	order.PaymentURL = paymentURL

	if s.sessions == nil {
		return
	}
	session := cache.PaymentSession{
		TxnRef:     payment.TxnRef,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Amount:     payment.TotalAmount,
		CreatedAt:  payment.CreatedAt,
	}
	if err := s.sessions.Save(ctx, session, s.sessionTTL); err != nil {
		zap.L().Warn("failed to cache payment session", zap.String("txn_ref", payment.TxnRef), zap.Error(err))
	}
}

func (s *OrderService) ListOrders(ctx context.Context, customerID int64) ([]models.Order, error) {
	return s.orders.ListOrders(ctx, customerID)
}

// GetOrder returns the order only when it belongs to customerID.
func (s *OrderService) GetOrder(ctx context.Context, customerID, orderID int64) (*models.Order, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// CancelOrder cancels one of the customer's own orders.
func (s *OrderService) CancelOrder(ctx context.Context, customerID, orderID int64) error {
	err := s.tx.WithinTx(ctx, func(tx database.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.CustomerID != customerID {
			return ErrOrderNotFound
		}
		return cancelLocked(ctx, tx, o)
	})
	if err != nil {
		return abortErr(err)
	}

	zap.L().Info("order cancelled", zap.Int64("order_id", orderID), zap.Int64("customer_id", customerID))
	s.publishStatus(orderID, models.OrderCancelled)
	return nil
}

// UpdateStatus moves an order along its lifecycle. Moving to cancelled
// takes the same path as CancelOrder.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	err := s.tx.WithinTx(ctx, func(tx database.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if status == models.OrderCancelled {
			return cancelLocked(ctx, tx, o)
		}
		if !CanTransition(o.Status, status) {
			return ErrInvalidTransition
		}
		if status == models.OrderProcessing {
			p, err := lockPayment(ctx, tx, orderID)
			if err != nil {
				return err
			}
			if p.Method != models.PaymentCOD && p.Status != models.PaymentPaid {
				return ErrPaymentNotSettled
			}
		}
		return tx.UpdateOrderStatus(ctx, orderID, status)
	})
	if err != nil {
		return abortErr(err)
	}

	zap.L().Info("order status updated", zap.Int64("order_id", orderID), zap.String("status", status))
	s.publishStatus(orderID, status)
	return nil
}

// CancelIfUnpaid cancels a pending order whose payment never settled. It
// reports whether the order was cancelled.
func (s *OrderService) CancelIfUnpaid(ctx context.Context, orderID int64) (bool, error) {
	cancelled := false
	err := s.tx.WithinTx(ctx, func(tx database.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != models.OrderPending {
			return nil
		}
		p, err := lockPayment(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if p.Status != models.PaymentPending && p.Status != models.PaymentFailed {
			return nil
		}
		if err := cancelLocked(ctx, tx, o); err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return false, abortErr(err)
	}

	if cancelled {
		zap.L().Info("auto-cancelled unpaid order", zap.Int64("order_id", orderID))
		s.publishStatus(orderID, models.OrderCancelled)
	}
	return cancelled, nil
}

func lockOrder(ctx context.Context, tx database.Tx, orderID int64) (*models.Order, error) {
	o, err := tx.LockOrder(ctx, orderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func lockPayment(ctx context.Context, tx database.Tx, orderID int64) (*models.Payment, error) {
	p, err := tx.LockPaymentByOrder(ctx, orderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

// cancelLocked puts the stock back and voids the payment. A gateway payment
// that already settled cannot be cancelled here.
func cancelLocked(ctx context.Context, tx database.Tx, o *models.Order) error {
	if !CanTransition(o.Status, models.OrderCancelled) {
		return ErrInvalidTransition
	}

	p, err := lockPayment(ctx, tx, o.ID)
	if err != nil {
		return err
	}
	if p.Method != models.PaymentCOD && p.Status == models.PaymentPaid {
		return ErrOrderAlreadyPaid
	}

	items, err := tx.OrderItems(ctx, o.ID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := tx.RestoreStock(ctx, item.BookID, item.Quantity); err != nil {
			return err
		}
	}

	if err := tx.UpdateOrderStatus(ctx, o.ID, models.OrderCancelled); err != nil {
		return err
	}
	return tx.UpdatePaymentStatus(ctx, p.ID, models.PaymentCancelled)
}

func (s *OrderService) publishStatus(orderID int64, status string) {
	if s.events == nil {
		return
	}
	priority := defaultPriority
	if status == models.OrderCancelled {
		priority = cancelPriority
	}
	if err := s.events.PublishOrderEvent(orderID, priority, models.EventStatusUpdated); err != nil {
		zap.L().Error("failed to publish status updated event", zap.Int64("order_id", orderID), zap.Error(err))
	}
}
