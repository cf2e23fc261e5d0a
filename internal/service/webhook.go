package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rookgm/grocerycart/internal/logger"
	"github.com/rookgm/grocerycart/internal/models"
	"go.uber.org/zap"
)

// confirmationAttempts bounds the delivery of the payment confirmation email.
const confirmationAttempts = 3

// PaymentReconciler applies gateway payment confirmations to orders.
type PaymentReconciler struct {
	tx       Transactor
	orders   OrderRepository
	users    UserRepository
	ledger   *InventoryLedger
	gateway  PaymentGateway
	notifier Notifier
	now      func() time.Time
}

// NewPaymentReconciler creates new PaymentReconciler instance
func NewPaymentReconciler(tx Transactor, orders OrderRepository, users UserRepository, ledger *InventoryLedger,
	gateway PaymentGateway, notifier Notifier) *PaymentReconciler {
	return &PaymentReconciler{
		tx:       tx,
		orders:   orders,
		users:    users,
		ledger:   ledger,
		gateway:  gateway,
		notifier: notifier,
		now:      time.Now,
	}
}

// ConfirmPayment verifies a gateway event and marks its order paid. Redelivered
// events find the order already paid and write nothing.
func (pr *PaymentReconciler) ConfirmPayment(ctx context.Context, payload []byte, signature string) (*models.Confirmation, error) {
	event, err := pr.gateway.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSignature) {
			return nil, err
		}
		return nil, models.ErrInvalidSignature.Wrap(err)
	}

	if event.Type != models.EventCheckoutCompleted {
		logger.Log.Debug("payment event ignored", zap.String("type", event.Type), zap.String("event_id", event.ID))
		return &models.Confirmation{}, nil
	}
	if event.OrderID == "" || event.OwnerRef == "" {
		return nil, models.ErrMissingMetadata
	}

	res := &models.Confirmation{OrderID: event.OrderID, Handled: true}
	var (
		order   *models.Order
		signals []models.StockSignal
	)

	err = pr.tx.InTx(ctx, func(ctx context.Context) error {
		*res = models.Confirmation{OrderID: event.OrderID, Handled: true}
		signals = nil

		current, err := pr.orders.GetOrder(ctx, event.OrderID)
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				return models.ErrOrderNotFound
			}
			return fmt.Errorf("get order: %w", err)
		}
		if current.PaymentType != models.PaymentOnline {
			return models.ErrInvalidTransition.WithField(string(current.PaymentType))
		}
		if current.OwnerRef() != event.OwnerRef {
			logger.Log.Warn("payment owner does not match order",
				zap.String("order_id", current.ID),
				zap.String("event_owner", event.OwnerRef),
				zap.String("order_owner", current.OwnerRef()))
		}
		if settled(current, res) {
			return nil
		}
		if current.Status != models.OrderStatusPendingPayment {
			return models.ErrInvalidTransition.WithField(string(current.Status))
		}

		order, err = pr.orders.UpdateOrder(ctx, current.ID, current.State(), models.OrderPatch{
			Status: models.OrderStatusProcessing,
			IsPaid: true,
			Payment: &models.PaymentDetails{
				TransactionID: event.TransactionID,
				PaidAt:        pr.now(),
			},
		})
		if err != nil {
			if !errors.Is(err, models.ErrConflictData) {
				return fmt.Errorf("mark order paid: %w", err)
			}
			// a concurrent writer won, report what it did
			latest, err := pr.orders.GetOrder(ctx, current.ID)
			if err != nil {
				return fmt.Errorf("get order: %w", err)
			}
			if settled(latest, res) {
				return nil
			}
			return models.ErrOrderConflict
		}

		signals, err = pr.ledger.take(ctx, order.Items)
		if err != nil {
			return err
		}

		if order.UserID != nil {
			if err := pr.users.ClearCart(ctx, *order.UserID); err != nil && !errors.Is(err, models.ErrDataNotFound) {
				return fmt.Errorf("clear cart: %w", err)
			}
			res.CartCleared = true
		}
		return nil
	})
	if err != nil {
		logger.Log.Error("confirm payment", zap.String("order_id", event.OrderID), zap.Error(err))
		return nil, err
	}

	if res.AlreadyPaid || res.Skipped {
		return res, nil
	}

	logger.Log.Info("payment confirmed",
		zap.String("order_id", order.ID),
		zap.String("transaction_id", event.TransactionID))

	pr.ledger.Raise(signals)

	to := event.CustomerEmail
	if to == "" {
		to = customerOf(ctx, pr.users, order).Email
	}
	if to != "" {
		if err := pr.notifier.Deliver(ctx, paidMessage(to, order.ID), confirmationAttempts); err != nil {
			logger.Log.Error("payment confirmation email failed", zap.String("order_id", order.ID), zap.Error(err))
		} else {
			res.EmailSent = true
		}
	}

	return res, nil
}

// settled reports whether order needs no confirmation and records why in res.
func settled(order *models.Order, res *models.Confirmation) bool {
	switch {
	case order.IsPaid:
		logger.Log.Info("payment already confirmed", zap.String("order_id", order.ID))
		res.AlreadyPaid = true
		return true
	case order.Status == models.OrderStatusCancelled:
		// the customer was charged for an order that no longer exists
		logger.Log.Error("payment confirmed for cancelled order, refund required", zap.String("order_id", order.ID))
		res.Skipped = true
		return true
	}
	return false
}

// customerOf returns the notification recipient of an order.
func customerOf(ctx context.Context, users UserRepository, order *models.Order) contact {
	if order.UserID == nil {
		if order.Guest == nil {
			return contact{}
		}
		return contact{Name: order.Guest.Name, Email: order.Guest.Email}
	}

	user, err := users.GetUser(ctx, *order.UserID)
	if err != nil {
		logger.Log.Warn("order owner lookup failed", zap.String("order_id", order.ID), zap.Error(err))
		return contact{}
	}
	return contact{Name: user.Name, Email: user.Email}
}
