package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rookgm/grocerycart/internal/logger"
	"github.com/rookgm/grocerycart/internal/models"
	"go.uber.org/zap"
)

// transitions lists the statuses each status may move to by hand.
// PendingPayment leaves to Processing only through payment confirmation.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPendingPayment: {models.OrderStatusCancelled},
	models.OrderStatusPlaced:         {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing:     {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:        {models.OrderStatusShipped, models.OrderStatusDelivered},
}

// CanTransition reports whether an order in from may be moved to to.
func CanTransition(from, to models.OrderStatus) bool {
	for _, st := range transitions[from] {
		if st == to {
			return true
		}
	}
	return false
}

// StatusService drives orders through their lifecycle.
type StatusService struct {
	tx          Transactor
	orders      OrderRepository
	users       UserRepository
	ledger      *InventoryLedger
	notifier    Notifier
	sellerEmail string
}

// NewStatusService creates new StatusService instance
func NewStatusService(tx Transactor, orders OrderRepository, users UserRepository, ledger *InventoryLedger,
	notifier Notifier, sellerEmail string) *StatusService {
	return &StatusService{
		tx:          tx,
		orders:      orders,
		users:       users,
		ledger:      ledger,
		notifier:    notifier,
		sellerEmail: sellerEmail,
	}
}

// CancelOrder cancels an order on behalf of its owner or the seller and restocks its items.
func (ss *StatusService) CancelOrder(ctx context.Context, orderID string, actor models.Actor) (*models.Order, error) {
	order, err := ss.transition(ctx, orderID, models.OrderStatusCancelled, nil, func(o *models.Order) error {
		return authorizeCancel(o, actor)
	})
	if err != nil {
		return nil, err
	}

	ss.notifyCancelled(ctx, order, actor.IsSeller())

	return order, nil
}

// SetStatus moves an order to status. Shipping metadata is kept only while the order is shipped.
func (ss *StatusService) SetStatus(ctx context.Context, orderID string, status models.OrderStatus, shipping *models.Shipping) (*models.Order, error) {
	if _, err := models.ParseOrderStatus(string(status)); err != nil {
		return nil, err
	}
	if status == models.OrderStatusPendingPayment {
		return nil, models.ErrInvalidStatus.WithField(string(status))
	}

	order, err := ss.transition(ctx, orderID, status, shipping, nil)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusCancelled {
		ss.notifyCancelled(ctx, order, true)
		return order, nil
	}

	customer := customerOf(ctx, ss.users, order)
	notifyOnce(ss.notifier, statusMessage(customer.Email, displayName(customer), order), order.ID)

	return order, nil
}

// notifyCancelled tells the customer and the seller that order was cancelled.
func (ss *StatusService) notifyCancelled(ctx context.Context, order *models.Order, bySeller bool) {
	customer := customerOf(ctx, ss.users, order)
	name := displayName(customer)

	notifyOnce(ss.notifier, cancelledMessage(customer.Email, name, order.ID), order.ID)
	if ss.sellerEmail != "" {
		notifyOnce(ss.notifier, sellerCancelledMessage(ss.sellerEmail, name, customer.Email, order.ID, bySeller), order.ID)
	}
}

func displayName(c contact) string {
	if c.Name == "" {
		return "Customer"
	}
	return c.Name
}

// ExpirePending cancels online orders that were not paid within ttl. It returns
// the number of cancelled orders.
func (ss *StatusService) ExpirePending(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	stale, err := ss.orders.ListStalePending(ctx, time.Now().Add(-ttl), limit)
	if err != nil {
		return 0, fmt.Errorf("list stale orders: %w", err)
	}

	n := 0
	for _, o := range stale {
		if _, err := ss.transition(ctx, o.ID, models.OrderStatusCancelled, nil, stillPending); err != nil {
			// confirmed or cancelled meanwhile
			logger.Log.Warn("expire pending order", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		logger.Log.Info("pending order expired", zap.String("order_id", o.ID))
		n++
	}
	return n, nil
}

// transition applies one lifecycle step under the order state guard. Cancelling
// an order whose stock was taken restocks it in the same transaction. When a
// concurrent writer changes the order first, the step is decided again once on
// the state that writer left.
func (ss *StatusService) transition(ctx context.Context, orderID string, to models.OrderStatus,
	shipping *models.Shipping, authorize func(*models.Order) error) (*models.Order, error) {
	var updated *models.Order

	err := ss.tx.InTx(ctx, func(ctx context.Context) error {
		order, err := ss.getOrder(ctx, orderID)
		if err != nil {
			return err
		}

		updated, err = ss.apply(ctx, order, to, shipping, authorize)
		if !errors.Is(err, models.ErrConflictData) {
			return err
		}

		order, err = ss.getOrder(ctx, orderID)
		if err != nil {
			return err
		}
		updated, err = ss.apply(ctx, order, to, shipping, authorize)
		if errors.Is(err, models.ErrConflictData) {
			return models.ErrOrderConflict
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("order status changed",
		zap.String("order_id", updated.ID),
		zap.String("status", string(updated.Status)))

	return updated, nil
}

func (ss *StatusService) getOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := ss.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// apply moves order to the target status if it is still in the state it was read in.
// It returns models.ErrConflictData when the order changed meanwhile.
func (ss *StatusService) apply(ctx context.Context, order *models.Order, to models.OrderStatus,
	shipping *models.Shipping, authorize func(*models.Order) error) (*models.Order, error) {
	if authorize != nil {
		if err := authorize(order); err != nil {
			return nil, err
		}
	}

	if order.Status == models.OrderStatusCancelled && to == models.OrderStatusCancelled {
		return nil, models.ErrAlreadyCancelled
	}
	if !CanTransition(order.Status, to) {
		return nil, models.ErrInvalidTransition.WithField(fmt.Sprintf("%s -> %s", order.Status, to))
	}

	patch := models.OrderPatch{Status: to, IsPaid: order.IsPaid}
	if to == models.OrderStatusShipped {
		patch.Shipping = mergeShipping(order.Shipping, shipping)
	}

	updated, err := ss.orders.UpdateOrder(ctx, order.ID, order.State(), patch)
	if err != nil {
		if errors.Is(err, models.ErrConflictData) {
			return nil, err
		}
		return nil, fmt.Errorf("update order: %w", err)
	}

	if to == models.OrderStatusCancelled && stockTaken(order) {
		if err := ss.ledger.restock(ctx, order.Items); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// stillPending keeps the reaper away from orders that were paid after they were listed.
func stillPending(o *models.Order) error {
	if o.Status != models.OrderStatusPendingPayment {
		return models.ErrInvalidTransition.WithField(string(o.Status))
	}
	return nil
}

// stockTaken reports whether the order holds stock: COD orders from placement,
// online orders once paid.
func stockTaken(o *models.Order) bool {
	return o.PaymentType == models.PaymentCOD || o.IsPaid
}

func mergeShipping(cur, in *models.Shipping) *models.Shipping {
	var out models.Shipping
	if cur != nil {
		out = *cur
	}
	if in != nil {
		if in.TrackingNumber != "" {
			out.TrackingNumber = in.TrackingNumber
		}
		if in.Carrier != "" {
			out.Carrier = in.Carrier
		}
		if in.TrackingURL != "" {
			out.TrackingURL = in.TrackingURL
		}
	}
	return &out
}

func authorizeCancel(o *models.Order, actor models.Actor) error {
	if actor.IsSeller() {
		return nil
	}
	if o.UserID != nil {
		if actor.UserID != *o.UserID {
			return models.ErrForbidden
		}
		return nil
	}
	// guest order
	if actor.Authenticated() || o.Guest == nil || actor.GuestEmail == "" ||
		!strings.EqualFold(strings.TrimSpace(actor.GuestEmail), o.Guest.Email) {
		return models.ErrForbidden
	}
	return nil
}
