package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// order status
const (
	OrderStatusPendingPayment OrderStatus = "Pending Payment"
	OrderStatusPlaced         OrderStatus = "Order Placed"
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusShipped        OrderStatus = "Shipped"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

// ParseOrderStatus returns the status named s.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPendingPayment, OrderStatusPlaced, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus.WithField(s)
}

// PaymentType is the way an order is settled.
type PaymentType string

const (
	PaymentCOD    PaymentType = "COD"
	PaymentOnline PaymentType = "Online"
)

// Valid reports whether p is a known payment type.
func (p PaymentType) Valid() bool {
	return p == PaymentCOD || p == PaymentOnline
}

// LineItem is one product and quantity of an order.
type LineItem struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// GuestContact identifies the customer of an order placed without an account.
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Shipping is carrier metadata of a shipped order.
type Shipping struct {
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
	TrackingURL    string `json:"trackingUrl,omitempty"`
}

// IsZero reports whether no shipping field is set.
func (s Shipping) IsZero() bool {
	return s == Shipping{}
}

// PaymentDetails records the gateway confirmation of an online order.
type PaymentDetails struct {
	TransactionID string
	PaidAt        time.Time
}

// Order is order entity
type Order struct {
	ID          string
	UserID      *string
	Guest       *GuestContact
	Items       []LineItem
	AddressID   string
	Amount      int64
	PaymentType PaymentType
	IsPaid      bool
	Status      OrderStatus
	Shipping    *Shipping
	Payment     *PaymentDetails
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerRef returns the owner id, or "guest" for orders without an account.
func (o *Order) OwnerRef() string {
	if o.UserID == nil {
		return GuestOwner
	}
	return *o.UserID
}

// State returns the guard used for conditional order updates.
func (o *Order) State() OrderState {
	return OrderState{Status: o.Status, IsPaid: o.IsPaid}
}

// GuestOwner is the owner reference of guest orders in gateway metadata.
const GuestOwner = "guest"

// OrderState is the part of an order a conditional update is guarded by.
type OrderState struct {
	Status OrderStatus
	IsPaid bool
}

// OrderPatch is applied by a conditional update. A nil Shipping clears the shipping
// metadata, a nil Payment keeps the stored payment details.
type OrderPatch struct {
	Status   OrderStatus
	IsPaid   bool
	Shipping *Shipping
	Payment  *PaymentDetails
}

// Quote is the result of pricing a cart.
type Quote struct {
	Lines    []PricedLine
	Subtotal int64
	Tax      int64
	Total    int64
}

// PricedLine is a line item together with the catalog data used to price it.
type PricedLine struct {
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
}

// Placement is the result of placing an order. RedirectURL is set for online payments.
type Placement struct {
	OrderID     string
	RedirectURL string
}

// Confirmation reports what a payment confirmation event did.
type Confirmation struct {
	OrderID string
	// Handled is false for event types the reconciler ignores.
	Handled bool
	// AlreadyPaid is set when the order had been confirmed by an earlier delivery.
	AlreadyPaid bool
	// Skipped is set when the order was cancelled before the payment was confirmed.
	Skipped     bool
	CartCleared bool
	EmailSent   bool
}

// Tracking is the public view of an order.
type Tracking struct {
	Order   Order
	Address *Address
	Items   []PricedLine
}
