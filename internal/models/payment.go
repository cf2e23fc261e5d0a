package models

import "time"

// EventCheckoutCompleted is the gateway event that confirms an online payment.
const EventCheckoutCompleted = "checkout.session.completed"

// gateway metadata keys
const (
	MetaOrderID = "orderId"
	MetaUserID  = "userId"
)

// CheckoutSession describes the gateway session opened for an online order.
type CheckoutSession struct {
	Lines         []PricedLine
	Tax           int64
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

// PaymentEvent is a verified gateway event.
type PaymentEvent struct {
	ID            string
	Type          string
	OrderID       string
	OwnerRef      string
	TransactionID string
	CustomerEmail string
	CreatedAt     time.Time
}
