package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rookgm/grocerycart/internal/logger"
	"github.com/rookgm/grocerycart/internal/models"
	"go.uber.org/zap"
)

// PlaceOrderRequest is the input of PlaceOrder.
type PlaceOrderRequest struct {
	Items       []models.LineItem
	Address     models.AddressInput
	Guest       *models.GuestContact
	PaymentType models.PaymentType
	// Origin is the storefront base URL used for online payment redirects.
	Origin string
}

// OrderService implements order intake and the order read models
type OrderService struct {
	orders           OrderRepository
	users            UserRepository
	products         ProductRepository
	addresses        *AddressResolver
	pricing          *PricingEngine
	payments         *PaymentDispatcher
	allowGuestOnline bool
}

// NewOrderService creates new OrderService instance
func NewOrderService(orders OrderRepository, users UserRepository, products ProductRepository, addresses *AddressResolver,
	pricing *PricingEngine, payments *PaymentDispatcher, allowGuestOnline bool) *OrderService {
	return &OrderService{
		orders:           orders,
		users:            users,
		products:         products,
		addresses:        addresses,
		pricing:          pricing,
		payments:         payments,
		allowGuestOnline: allowGuestOnline,
	}
}

// PlaceOrder validates, prices and commits an order. Every rejection happens
// before the first write.
func (os *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest, actor models.Actor) (*models.Placement, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}
	if !req.PaymentType.Valid() {
		return nil, models.ErrInvalidPaymentType.WithField(string(req.PaymentType))
	}

	intent := OrderIntent{
		Items:       req.Items,
		Address:     req.Address,
		PaymentType: req.PaymentType,
		Origin:      req.Origin,
	}

	if actor.Authenticated() {
		user, err := os.users.GetUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				return nil, models.ErrUserNotFound
			}
			return nil, fmt.Errorf("get user: %w", err)
		}
		userID := user.ID
		intent.UserID = &userID
		intent.customer = contact{Name: user.Name, Email: user.Email}
	} else {
		guest, err := validateGuest(req.Guest)
		if err != nil {
			return nil, err
		}
		intent.Guest = guest
		intent.customer = contact{Name: guest.Name, Email: guest.Email}
	}

	if req.PaymentType == models.PaymentOnline {
		if intent.UserID == nil && !os.allowGuestOnline {
			return nil, models.ErrGuestOnlineDisabled
		}
		if strings.TrimSpace(req.Origin) == "" {
			return nil, models.ErrMissingOrigin
		}
	}

	if err := os.addresses.Check(ctx, req.Address, intent.UserID); err != nil {
		return nil, err
	}

	quote, err := os.pricing.Quote(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	intent.Quote = quote

	logger.Log.Debug("order priced",
		zap.String("payment_type", string(req.PaymentType)),
		zap.Int64("subtotal", quote.Subtotal),
		zap.Int64("tax", quote.Tax),
		zap.Int64("total", quote.Total))

	return os.payments.Dispatch(ctx, intent)
}

func validateItems(items []models.LineItem) error {
	if len(items) == 0 {
		return models.ErrEmptyCart
	}
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity < 1 {
			return models.ErrInvalidLineItem.WithField(item.ProductID)
		}
	}
	return nil
}

func validateGuest(g *models.GuestContact) (*models.GuestContact, error) {
	if g == nil {
		return nil, models.ErrMissingGuestDetails
	}
	guest := models.GuestContact{
		Name:  strings.TrimSpace(g.Name),
		Email: strings.TrimSpace(g.Email),
		Phone: strings.TrimSpace(g.Phone),
	}
	switch {
	case guest.Name == "":
		return nil, models.ErrMissingGuestDetails.WithField("name")
	case guest.Email == "":
		return nil, models.ErrMissingGuestDetails.WithField("email")
	case guest.Phone == "":
		return nil, models.ErrMissingGuestDetails.WithField("phone")
	}
	return &guest, nil
}

// ListUserOrders returns list of user orders
func (os *OrderService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return os.orders.ListOrdersByUser(ctx, userID)
}

// ListOrders returns every COD or paid order
func (os *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return os.orders.ListOrders(ctx)
}

// TrackOrder returns the public view of an order
func (os *OrderService) TrackOrder(ctx context.Context, orderID string) (*models.Tracking, error) {
	order, err := os.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}

	tracking := &models.Tracking{Order: *order, Items: make([]models.PricedLine, 0, len(order.Items))}

	addr, err := os.addresses.Get(ctx, order.AddressID)
	switch {
	case err == nil:
		tracking.Address = addr
	case errors.Is(err, models.ErrAddressNotFound):
		logger.Log.Warn("tracked order has no address", zap.String("order_id", order.ID))
	default:
		return nil, err
	}

	for _, item := range order.Items {
		line := models.PricedLine{ProductID: item.ProductID, Quantity: item.Quantity}
		product, err := os.products.GetProduct(ctx, item.ProductID)
		switch {
		case err == nil:
			line.Name = product.Name
			line.UnitPrice = product.OfferPrice
		case !errors.Is(err, models.ErrDataNotFound):
			return nil, err
		}
		tracking.Items = append(tracking.Items, line)
	}

	return tracking, nil
}
