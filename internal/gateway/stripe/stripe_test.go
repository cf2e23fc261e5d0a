package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/rookgm/grocerycart/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test"

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil
}

func TestGateway_CreateSession(t *testing.T) {
	sessions := &fakeSessions{}
	g := NewWithSessions(sessions, testSecret, "inr")

	url, err := g.CreateSession(context.Background(), models.CheckoutSession{
		Lines: []models.PricedLine{
			{ProductID: "p1", Name: "Apples", UnitPrice: 500, Quantity: 2},
		},
		Tax:           20,
		SuccessURL:    "https://shop.test/order-confirmation/o1",
		CancelURL:     "https://shop.test/cart",
		CustomerEmail: "g@example.com",
		Metadata:      map[string]string{models.MetaOrderID: "o1", models.MetaUserID: models.GuestOwner},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", url)

	p := sessions.params
	require.Len(t, p.LineItems, 2)
	assert.Equal(t, int64(500), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *p.LineItems[0].Quantity)
	assert.Equal(t, "inr", *p.LineItems[0].PriceData.Currency)
	assert.Equal(t, int64(20), *p.LineItems[1].PriceData.UnitAmount)
	assert.Equal(t, "o1", p.Metadata[models.MetaOrderID])
	assert.Equal(t, models.GuestOwner, p.Metadata[models.MetaUserID])
	assert.Equal(t, "g@example.com", *p.CustomerEmail)
}

func TestGateway_CreateSessionError(t *testing.T) {
	g := NewWithSessions(&fakeSessions{err: errors.New("card declined")}, testSecret, "inr")
	_, err := g.CreateSession(context.Background(), models.CheckoutSession{})
	assert.Error(t, err)
}

func signed(t *testing.T, payload string, secret string) ([]byte, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(payload), Secret: secret})
	return sp.Payload, sp.Header
}

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "created": 1700000000,
  "data": {
    "object": {
      "id": "cs_1",
      "object": "checkout.session",
      "metadata": {"orderId": "o1", "userId": "guest"},
      "payment_intent": "pi_1",
      "customer_details": {"email": "g@example.com"}
    }
  }
}`

func TestGateway_ParseEvent(t *testing.T) {
	g := NewWithSessions(&fakeSessions{}, testSecret, "inr")

	t.Run("completed_checkout", func(t *testing.T) {
		payload, header := signed(t, completedEvent, testSecret)

		ev, err := g.ParseEvent(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", ev.ID)
		assert.Equal(t, models.EventCheckoutCompleted, ev.Type)
		assert.Equal(t, "o1", ev.OrderID)
		assert.Equal(t, models.GuestOwner, ev.OwnerRef)
		assert.Equal(t, "pi_1", ev.TransactionID)
		assert.Equal(t, "g@example.com", ev.CustomerEmail)
	})

	t.Run("other_event", func(t *testing.T) {
		payload, header := signed(t, `{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{}}}`, testSecret)

		ev, err := g.ParseEvent(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "charge.refunded", ev.Type)
		assert.Empty(t, ev.OrderID)
	})

	t.Run("bad_signature", func(t *testing.T) {
		payload, header := signed(t, completedEvent, "whsec_other")

		_, err := g.ParseEvent(payload, header)
		assert.ErrorIs(t, err, models.ErrInvalidSignature)
	})

	t.Run("missing_signature", func(t *testing.T) {
		_, err := g.ParseEvent([]byte(completedEvent), "")
		assert.ErrorIs(t, err, models.ErrInvalidSignature)
	})
}
