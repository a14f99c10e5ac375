package rabbitmq

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bookstore-service/config"
	"bookstore-service/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	ErrMalformedMessage = errors.New("malformed order event")
	// ErrDelayUnsupported is returned for delayed events when the broker has
	// no delayed message exchange. Publishing to the undeclared exchange
	// would close the channel.
	ErrDelayUnsupported = errors.New("delayed message exchange not available")
)

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config

	delayed bool
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
	}, nil
}

func (r *RabbitMQ) deadLetterExchange() string {
	return r.Cfg.DeadLetterQueue + "_exchange"
}

func (r *RabbitMQ) declareExchange(name, kind string, args amqp.Table) error {
	// durable, not auto-deleted, not internal, wait for the broker
	if err := r.Channel.ExchangeDeclare(name, kind, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

func (r *RabbitMQ) declareQueue(name string, args amqp.Table) error {
	if _, err := r.Channel.QueueDeclare(name, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

func (r *RabbitMQ) bind(queue, exchange, key string) error {
	if err := r.Channel.QueueBind(queue, key, exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", queue, exchange, err)
	}
	return nil
}

// SetupQueues declares the order event topology:
//
//	orders_exchange (fanout) ──┐
//	delay_exchange (delayed) ──┴─> orders_queue ──dead letters──> dead_letter_queue
func (r *RabbitMQ) SetupQueues() error {
	if err := r.declareExchange(r.deadLetterExchange(), "direct", nil); err != nil {
		return err
	}
	if err := r.declareQueue(r.Cfg.DeadLetterQueue, amqp.Table{"x-queue-type": "classic"}); err != nil {
		return err
	}
	if err := r.bind(r.Cfg.DeadLetterQueue, r.deadLetterExchange(), r.Cfg.DeadLetterQueue); err != nil {
		return err
	}

	if err := r.declareExchange(r.Cfg.OrderExchange, "fanout", nil); err != nil {
		return err
	}

	// Needs the delayed message exchange plugin. Without it payment checks
	// are never delivered and unpaid orders stay pending.
	r.delayed = true
	if err := r.declareExchange(r.Cfg.DelayExchange, "x-delayed-message",
		amqp.Table{"x-delayed-type": "direct"}); err != nil {
		zap.L().Warn("delayed exchange not supported", zap.Error(err))
		r.delayed = false
		// A failed declare closes the channel.
		if r.Channel, err = r.Conn.Channel(); err != nil {
			return fmt.Errorf("failed to reopen channel: %w", err)
		}
	}

	if err := r.declareQueue(r.Cfg.OrderQueue, amqp.Table{
		"x-max-priority":            r.Cfg.MaxPriority,
		"x-dead-letter-exchange":    r.deadLetterExchange(),
		"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
	}); err != nil {
		return err
	}
	if err := r.bind(r.Cfg.OrderQueue, r.Cfg.OrderExchange, ""); err != nil {
		return err
	}
	if !r.delayed {
		return nil
	}
	return r.bind(r.Cfg.OrderQueue, r.Cfg.DelayExchange, "")
}

// EncodeMessage renders an event as "<orderID>|<event>".
func EncodeMessage(orderID int64, eventType string) []byte {
	return []byte(strconv.FormatInt(orderID, 10) + "|" + eventType)
}

// ParseMessage is the inverse of EncodeMessage.
func ParseMessage(body []byte) (models.OrderEvent, error) {
	id, eventType, ok := strings.Cut(string(body), "|")
	if !ok || eventType == "" {
		return models.OrderEvent{}, fmt.Errorf("%w: %q", ErrMalformedMessage, body)
	}
	orderID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || orderID <= 0 {
		return models.OrderEvent{}, fmt.Errorf("%w: bad order id %q", ErrMalformedMessage, id)
	}
	return models.OrderEvent{OrderID: orderID, Type: eventType}, nil
}

func newPublishing(orderID int64, eventType string) amqp.Publishing {
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "text/plain",
		Body:         EncodeMessage(orderID, eventType),
	}
}

// PublishOrderEvent fans an event out to the order queue. Priority is capped
// at the queue's x-max-priority.
func (r *RabbitMQ) PublishOrderEvent(orderID int64, priority uint8, eventType string) error {
	msg := newPublishing(orderID, eventType)
	msg.Priority = min(priority, uint8(r.Cfg.MaxPriority))
	return r.Channel.Publish(r.Cfg.OrderExchange, "", false, false, msg)
}

// PublishDelayedEvent delivers the event to the order queue once delay has
// passed. It fails with ErrDelayUnsupported when SetupQueues could not
// declare the delay exchange.
func (r *RabbitMQ) PublishDelayedEvent(orderID int64, delay time.Duration, eventType string) error {
	if !r.delayed {
		return fmt.Errorf("%w: order %d %s", ErrDelayUnsupported, orderID, eventType)
	}
	msg := newPublishing(orderID, eventType)
	msg.Headers = amqp.Table{"x-delay": delay.Milliseconds()}
	return r.Channel.Publish(r.Cfg.DelayExchange, "", false, false, msg)
}

// ConsumerChannel opens a channel for consumers, separate from the one used
// for publishing, so a channel error on one side does not stop the other.
func (r *RabbitMQ) ConsumerChannel() (*amqp.Channel, error) {
	ch, err := r.Conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}
	return ch, nil
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			zap.L().Warn("error closing rabbitmq channel", zap.Error(err))
		}
	}
	if r.Conn != nil {
		if err := r.Conn.Close(); err != nil {
			zap.L().Warn("error closing rabbitmq connection", zap.Error(err))
		}
	}
}
