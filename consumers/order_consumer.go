package consumers

import (
	"context"
	"fmt"
	"time"

	"bookstore-service/config"
	"bookstore-service/models"
	"bookstore-service/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const handleTimeout = 30 * time.Second

// UnpaidCanceller is satisfied by *services.OrderService.
type UnpaidCanceller interface {
	CancelIfUnpaid(ctx context.Context, orderID int64) (bool, error)
}

type OrderConsumer struct {
	orders UnpaidCanceller
}

func NewOrderConsumer(orders UnpaidCanceller) *OrderConsumer {
	return &OrderConsumer{orders: orders}
}

// Start registers consumers on the order queue and the dead letter queue and
// handles deliveries until ctx is done or the channel closes.
func (c *OrderConsumer) Start(ctx context.Context, ch *amqp.Channel, cfg *config.Config) error {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"bookstore-service", // consumer tag
		false,               // auto-ack
		false,               // exclusive
		false,               // no-local
		false,               // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register order consumer: %w", err)
	}

	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"bookstore-service-dlq",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register dead letter consumer: %w", err)
	}

	go c.consume(ctx, msgs, dlqMsgs)
	return nil
}

// consume dispatches deliveries until ctx is done or either delivery channel
// closes. A closed delivery channel means the broker dropped the consumer
// channel and no further payment checks will run.
func (c *OrderConsumer) consume(ctx context.Context, msgs, dlqMsgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("order consumer stopped")
			return
		case msg, ok := <-msgs:
			if !ok {
				zap.L().Error("order queue delivery channel closed, consumer exiting")
				return
			}
			c.processOrderMessage(ctx, msg)
		case msg, ok := <-dlqMsgs:
			if !ok {
				zap.L().Error("dead letter delivery channel closed, consumer exiting")
				return
			}
			processDeadLetterMessage(msg)
		}
	}
}

func (c *OrderConsumer) processOrderMessage(ctx context.Context, msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("recovered from panic in message processing", zap.Any("panic", r))
			_ = msg.Nack(false, false)
		}
	}()

	ev, err := rabbitmq.ParseMessage(msg.Body)
	if err != nil {
		zap.L().Warn("invalid order event", zap.ByteString("body", msg.Body), zap.Error(err))
		// Dead letter it, no requeue.
		if err := msg.Nack(false, false); err != nil {
			zap.L().Error("failed to nack message", zap.Error(err))
		}
		return
	}
	ev.Occurred = msg.Timestamp

	zap.L().Info("processing order event", zap.Int64("order_id", ev.OrderID), zap.String("type", ev.Type))

	if err := c.handle(ctx, ev); err != nil {
		zap.L().Error("order event failed", zap.Int64("order_id", ev.OrderID), zap.String("type", ev.Type), zap.Error(err))
		if err := msg.Nack(false, false); err != nil {
			zap.L().Error("failed to nack message", zap.Error(err))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		zap.L().Error("failed to ack message", zap.Error(err))
	}
}

func (c *OrderConsumer) handle(ctx context.Context, ev models.OrderEvent) error {
	switch ev.Type {
	case models.EventPaymentCheck:
		ctx, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()
		cancelled, err := c.orders.CancelIfUnpaid(ctx, ev.OrderID)
		if err != nil {
			return err
		}
		if cancelled {
			zap.L().Info("auto-cancelled order due to non-payment", zap.Int64("order_id", ev.OrderID))
		}
	case models.EventOrderCreated, models.EventStatusUpdated:
		// Nothing downstream subscribes yet.
	default:
		zap.L().Warn("unknown order event type", zap.String("type", ev.Type))
	}
	return nil
}

func processDeadLetterMessage(msg amqp.Delivery) {
	zap.L().Warn("received dead letter", zap.ByteString("body", msg.Body))
	if err := msg.Ack(false); err != nil {
		zap.L().Error("failed to ack dead letter", zap.Error(err))
	}
}
