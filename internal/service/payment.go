package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/grocerycart/internal/logger"
	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/notify"
	"go.uber.org/zap"
)

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts new order
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetOrder returns order by id
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	// UpdateOrder applies patch if the order is still in the expected state,
	// otherwise it returns models.ErrConflictData
	UpdateOrder(ctx context.Context, id string, expect models.OrderState, patch models.OrderPatch) (*models.Order, error)
	// DeleteOrder removes order
	DeleteOrder(ctx context.Context, id string) error
	// ListOrdersByUser returns user orders that are COD or paid
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	// ListOrders returns all orders that are COD or paid
	ListOrders(ctx context.Context) ([]models.Order, error)
	// ListStalePending returns unpaid online orders created before the given time
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error)
}

// UserRepository is interface for interacting with identity records
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ClearCart(ctx context.Context, id string) error
}

// Transactor runs fn in a storage transaction carried by ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaymentGateway opens checkout sessions and verifies their events.
type PaymentGateway interface {
	CreateSession(ctx context.Context, session models.CheckoutSession) (string, error)
	ParseEvent(payload []byte, signature string) (*models.PaymentEvent, error)
}

// contact is the recipient of customer notifications.
type contact struct {
	Name  string
	Email string
}

// OrderIntent is a validated and priced order waiting to be committed.
type OrderIntent struct {
	Items       []models.LineItem
	Address     models.AddressInput
	UserID      *string
	Guest       *models.GuestContact
	PaymentType models.PaymentType
	Quote       *models.Quote
	Origin      string
	customer    contact
}

// PaymentDispatcher commits an order intent on the COD or the online path.
type PaymentDispatcher struct {
	tx        Transactor
	orders    OrderRepository
	users     UserRepository
	addresses *AddressResolver
	ledger    *InventoryLedger
	gateway   PaymentGateway
	notifier  Notifier
}

// NewPaymentDispatcher creates new PaymentDispatcher instance
func NewPaymentDispatcher(tx Transactor, orders OrderRepository, users UserRepository, addresses *AddressResolver,
	ledger *InventoryLedger, gateway PaymentGateway, notifier Notifier) *PaymentDispatcher {
	return &PaymentDispatcher{
		tx:        tx,
		orders:    orders,
		users:     users,
		addresses: addresses,
		ledger:    ledger,
		gateway:   gateway,
		notifier:  notifier,
	}
}

// Dispatch commits intent according to its payment type.
func (pd *PaymentDispatcher) Dispatch(ctx context.Context, intent OrderIntent) (*models.Placement, error) {
	switch intent.PaymentType {
	case models.PaymentCOD:
		return pd.placeCOD(ctx, intent)
	case models.PaymentOnline:
		return pd.placeOnline(ctx, intent)
	}
	return nil, models.ErrInvalidPaymentType.WithField(string(intent.PaymentType))
}

func newOrder(intent OrderIntent, addressID string, status models.OrderStatus) *models.Order {
	return &models.Order{
		ID:          uuid.NewString(),
		UserID:      intent.UserID,
		Guest:       intent.Guest,
		Items:       intent.Items,
		AddressID:   addressID,
		Amount:      intent.Quote.Total,
		PaymentType: intent.PaymentType,
		Status:      status,
	}
}

// placeCOD stores the address and the order, takes the stock and clears the cart in
// one transaction. Any failure leaves no trace.
func (pd *PaymentDispatcher) placeCOD(ctx context.Context, intent OrderIntent) (*models.Placement, error) {
	var (
		order   *models.Order
		signals []models.StockSignal
	)

	err := pd.tx.InTx(ctx, func(ctx context.Context) error {
		signals = nil

		addressID, err := pd.addresses.Resolve(ctx, intent.Address, intent.UserID)
		if err != nil {
			return err
		}

		order = newOrder(intent, addressID, models.OrderStatusPlaced)
		if _, err := pd.orders.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		signals, err = pd.ledger.take(ctx, order.Items)
		if err != nil {
			return err
		}

		if intent.UserID != nil {
			if err := pd.users.ClearCart(ctx, *intent.UserID); err != nil && !errors.Is(err, models.ErrDataNotFound) {
				return fmt.Errorf("clear cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("COD order placed",
		zap.String("order_id", order.ID),
		zap.String("owner", order.OwnerRef()),
		zap.Int64("amount", order.Amount))

	pd.ledger.Raise(signals)
	notifyOnce(pd.notifier, placedMessage(intent.customer.Email, intent.customer.Name, order.ID), order.ID)

	return &models.Placement{OrderID: order.ID}, nil
}

// placeOnline stores a pending order and opens a gateway session for it. Stock is
// taken when the payment is confirmed. The order and the address stored for it are
// removed if the session can't be opened.
func (pd *PaymentDispatcher) placeOnline(ctx context.Context, intent OrderIntent) (*models.Placement, error) {
	var order *models.Order

	err := pd.tx.InTx(ctx, func(ctx context.Context) error {
		addressID, err := pd.addresses.Resolve(ctx, intent.Address, intent.UserID)
		if err != nil {
			return err
		}

		order = newOrder(intent, addressID, models.OrderStatusPendingPayment)
		if _, err := pd.orders.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if intent.customer.Email == "" {
		pd.discard(context.WithoutCancel(ctx), order, intent.Address.ID == "")
		return nil, models.ErrPaymentGateway.Wrap(errors.New("missing customer email"))
	}

	origin := strings.TrimRight(intent.Origin, "/")
	url, err := pd.gateway.CreateSession(ctx, models.CheckoutSession{
		Lines:         intent.Quote.Lines,
		Tax:           intent.Quote.Tax,
		SuccessURL:    fmt.Sprintf("%s/order-confirmation/%s", origin, order.ID),
		CancelURL:     origin + "/cart",
		CustomerEmail: intent.customer.Email,
		Metadata: map[string]string{
			models.MetaOrderID: order.ID,
			models.MetaUserID:  order.OwnerRef(),
		},
	})
	if err != nil {
		logger.Log.Error("create checkout session", zap.String("order_id", order.ID), zap.Error(err))
		pd.discard(context.WithoutCancel(ctx), order, intent.Address.ID == "")
		return nil, models.ErrPaymentGateway.Wrap(err)
	}

	logger.Log.Info("online order pending payment",
		zap.String("order_id", order.ID),
		zap.String("owner", order.OwnerRef()),
		zap.Int64("amount", order.Amount))

	return &models.Placement{OrderID: order.ID, RedirectURL: url}, nil
}

// discard removes an order that never reached the gateway, and its address when
// the address was stored for this order.
func (pd *PaymentDispatcher) discard(ctx context.Context, order *models.Order, ownAddress bool) {
	err := pd.tx.InTx(ctx, func(ctx context.Context) error {
		if err := pd.orders.DeleteOrder(ctx, order.ID); err != nil && !errors.Is(err, models.ErrDataNotFound) {
			return fmt.Errorf("delete order: %w", err)
		}
		if ownAddress {
			return pd.addresses.Discard(ctx, order.AddressID)
		}
		return nil
	})
	if err != nil {
		logger.Log.Error("discard orphaned order", zap.String("order_id", order.ID), zap.Error(err))
	}
}

// notifyOnce queues msg for a single attempt. Failures are logged only.
func notifyOnce(n Notifier, msg notify.Message, orderID string) {
	if msg.To == "" {
		logger.Log.Debug("no recipient for notification", zap.String("order_id", orderID))
		return
	}
	if err := n.Notify(msg); err != nil {
		logger.Log.Error("notification not sent", zap.String("order_id", orderID), zap.Error(err))
	}
}
