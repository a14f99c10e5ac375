package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// PaymentSession is what the service remembers about a redirect to the
// payment gateway while the customer is away.
type PaymentSession struct {
	TxnRef     string          `json:"txn_ref"`
	OrderID    int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

type PaymentSessionStore struct {
	Client *redis.Client
}

func NewPaymentSessionStore(client *redis.Client) *PaymentSessionStore {
	return &PaymentSessionStore{Client: client}
}

func sessionKey(ref string) string {
	return "payment_session:" + ref
}

func (s *PaymentSessionStore) Save(ctx context.Context, session PaymentSession, ttl time.Duration) error {
	body, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal payment session: %w", err)
	}
	if err := s.Client.Set(ctx, sessionKey(session.TxnRef), body, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store payment session: %w", err)
	}
	return nil
}

// Get returns nil without an error when the session is missing or expired.
func (s *PaymentSessionStore) Get(ctx context.Context, ref string) (*PaymentSession, error) {
	val, err := s.Client.Get(ctx, sessionKey(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment session: %w", err)
	}

	var session PaymentSession
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment session: %w", err)
	}
	return &session, nil
}

func (s *PaymentSessionStore) Delete(ctx context.Context, ref string) error {
	if err := s.Client.Del(ctx, sessionKey(ref)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete payment session: %w", err)
	}
	return nil
}
