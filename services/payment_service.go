package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"bookstore-service/database"
	"bookstore-service/models"
	"bookstore-service/payments"

	"go.uber.org/zap"
)

type PaymentService struct {
	tx       database.Transactor
	payments PaymentReader
	gateway  PaymentGateway
	sessions SessionCache
}

// NewPaymentService builds the return-callback handler. sessions may be nil,
// in which case every lookup goes to the database.
func NewPaymentService(tx database.Transactor, payments PaymentReader, gateway PaymentGateway, sessions SessionCache) *PaymentService {
	return &PaymentService{tx: tx, payments: payments, gateway: gateway, sessions: sessions}
}

// HandleVNPayReturn settles a payment from the gateway's return callback.
// The signature is checked before anything is read from the payload. A
// payment that already left PENDING is returned unchanged.
func (s *PaymentService) HandleVNPayReturn(ctx context.Context, values url.Values) (*models.Payment, error) {
	res, err := s.gateway.VerifyReturn(values)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) || errors.Is(err, payments.ErrMalformedReturn) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, err
	}

	if err := s.checkKnownAmount(ctx, res); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err = s.tx.WithinTx(ctx, func(tx database.Tx) error {
		p, err := tx.LockPaymentByTxnRef(ctx, res.TxnRef)
		if errors.Is(err, database.ErrNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}
		if !p.TotalAmount.Equal(res.Amount) {
			return ErrAmountMismatch
		}
		payment = p
		if p.Status != models.PaymentPending {
			return nil
		}

		status := models.PaymentFailed
		if res.Success() {
			status = models.PaymentPaid
		}
		if err := tx.UpdatePaymentStatus(ctx, p.ID, status); err != nil {
			return err
		}
		p.Status = status
		return nil
	})
	if err != nil {
		return nil, abortErr(err)
	}

	zap.L().Info("payment return processed",
		zap.String("txn_ref", res.TxnRef),
		zap.Int64("order_id", payment.OrderID),
		zap.String("status", string(payment.Status)),
		zap.String("response_code", res.ResponseCode))

	if s.sessions != nil {
		if err := s.sessions.Delete(ctx, res.TxnRef); err != nil {
			zap.L().Warn("failed to drop payment session", zap.String("txn_ref", res.TxnRef), zap.Error(err))
		}
	}
	return payment, nil
}

// checkKnownAmount rejects a callback whose amount disagrees with what was
// sent to the gateway, using the cached session and falling back to the
// stored payment.
func (s *PaymentService) checkKnownAmount(ctx context.Context, res *payments.ReturnResult) error {
	if s.sessions != nil {
		session, err := s.sessions.Get(ctx, res.TxnRef)
		if err != nil {
			zap.L().Warn("payment session lookup failed", zap.String("txn_ref", res.TxnRef), zap.Error(err))
		}
		if session != nil {
			if !session.Amount.Equal(res.Amount) {
				return ErrAmountMismatch
			}
			return nil
		}
	}

	p, err := s.payments.PaymentByTxnRef(ctx, res.TxnRef)
	if errors.Is(err, database.ErrNotFound) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	if !p.TotalAmount.Equal(res.Amount) {
		return ErrAmountMismatch
	}
	return nil
}
