// Package stripe adapts Stripe Checkout to the order payment gateway.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rookgm/grocerycart/internal/models"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// SessionCreator opens checkout sessions.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Gateway implements the payment gateway on Stripe.
type Gateway struct {
	sessions      SessionCreator
	webhookSecret string
	currency      string
}

// New creates a Gateway talking to Stripe with secretKey.
func New(secretKey, webhookSecret, currency string) *Gateway {
	sc := client.New(secretKey, nil)
	return NewWithSessions(sc.CheckoutSessions, webhookSecret, currency)
}

// NewWithSessions creates a Gateway on top of sessions.
func NewWithSessions(sessions SessionCreator, webhookSecret, currency string) *Gateway {
	return &Gateway{
		sessions:      sessions,
		webhookSecret: webhookSecret,
		currency:      currency,
	}
}

// CreateSession opens a card checkout for the session lines plus one tax line
// and returns the redirect URL.
func (g *Gateway) CreateSession(ctx context.Context, s models.CheckoutSession) (string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(s.SuccessURL),
		CancelURL:          stripe.String(s.CancelURL),
	}
	params.Context = ctx
	if s.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(s.CustomerEmail)
	}

	for _, line := range s.Lines {
		params.LineItems = append(params.LineItems, g.lineItem(line.Name, line.UnitPrice, int64(line.Quantity)))
	}
	if s.Tax > 0 {
		params.LineItems = append(params.LineItems, g.lineItem("Tax", s.Tax, 1))
	}
	for k, v := range s.Metadata {
		params.AddMetadata(k, v)
	}

	session, err := g.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.URL, nil
}

func (g *Gateway) lineItem(name string, unitAmount, qty int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(g.currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(unitAmount),
		},
		Quantity: stripe.Int64(qty),
	}
}

// ParseEvent verifies the Stripe-Signature header of payload and decodes the event.
// Events other than a completed checkout carry only their id and type.
func (g *Gateway) ParseEvent(payload []byte, signature string) (*models.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, models.ErrInvalidSignature.Wrap(err)
	}

	pe := &models.PaymentEvent{
		ID:        event.ID,
		Type:      string(event.Type),
		CreatedAt: time.Unix(event.Created, 0),
	}
	if pe.Type != models.EventCheckoutCompleted {
		return pe, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	pe.OrderID = cs.Metadata[models.MetaOrderID]
	pe.OwnerRef = cs.Metadata[models.MetaUserID]
	if cs.PaymentIntent != nil {
		pe.TransactionID = cs.PaymentIntent.ID
	}
	if cs.CustomerDetails != nil {
		pe.CustomerEmail = cs.CustomerDetails.Email
	}
	return pe, nil
}
