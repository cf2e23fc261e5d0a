package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rookgm/grocerycart/internal/logger"
	"github.com/rookgm/grocerycart/internal/models"
	"go.uber.org/zap"
)

const maxWebhookSize = 64 << 10

type PaymentReconciler interface {
	// ConfirmPayment verifies a gateway event and applies it
	ConfirmPayment(ctx context.Context, payload []byte, signature string) (*models.Confirmation, error)
}

// WebhookHandler represents HTTP handler for payment gateway events
type WebhookHandler struct {
	svc PaymentReconciler
}

// NewWebhookHandler creates new WebhookHandler instance
func NewWebhookHandler(svc PaymentReconciler) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

type webhookActions struct {
	OrderUpdated bool `json:"order_updated"`
	StockUpdated bool `json:"stock_updated"`
	CartCleared  bool `json:"cart_cleared"`
	EmailSent    bool `json:"email_sent"`
}

type webhookResponse struct {
	Success bool            `json:"success"`
	Info    string          `json:"info,omitempty"`
	Actions *webhookActions `json:"actions,omitempty"`
}

// StripeWebhook receives Stripe events. The raw body is needed for signature verification.
// 200 — event applied, already applied or ignored;
// 400 — bad signature or missing metadata;
// 404 — order not found;
// 413 — body too large;
// 500 — internal server error, the gateway retries.
func (wh *WebhookHandler) StripeWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookSize))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				logger.Log.Warn("webhook body too large", zap.Int64("limit", maxErr.Limit))
				writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}

		res, err := wh.svc.ConfirmPayment(r.Context(), payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			logger.Log.Warn("webhook rejected", zap.Error(err))
			writeError(w, err)
			return
		}

		switch {
		case !res.Handled:
			writeJSON(w, http.StatusOK, webhookResponse{Success: true, Info: "Event not handled"})
		case res.AlreadyPaid:
			writeJSON(w, http.StatusOK, webhookResponse{Success: true, Info: "Order already paid"})
		case res.Skipped:
			writeJSON(w, http.StatusOK, webhookResponse{Success: true, Info: "Order was cancelled"})
		default:
			writeJSON(w, http.StatusOK, webhookResponse{
				Success: true,
				Actions: &webhookActions{
					OrderUpdated: true,
					StockUpdated: true,
					CartCleared:  res.CartCleared,
					EmailSent:    res.EmailSent,
				},
			})
		}
	}
}
