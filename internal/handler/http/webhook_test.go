package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/rookgm/grocerycart/internal/handler/http/mocks"
	"github.com/rookgm/grocerycart/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookHandler_StripeWebhook(t *testing.T) {
	const payload = `{"id":"evt_1","type":"checkout.session.completed"}`

	tests := []struct {
		name           string
		body           string
		setup          func(t *testing.T) *mocks.MockPaymentReconciler
		wantStatusCode int
		wantBody       *webhookResponse
	}{
		{
			name: "payment_confirmed_return_200",
			setup: func(t *testing.T) *mocks.MockPaymentReconciler {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentReconciler(ctrl)
				svcMock.EXPECT().ConfirmPayment(gomock.Any(), []byte(payload), "t=1,v1=abc").
					Return(&models.Confirmation{OrderID: "o1", Handled: true, CartCleared: true, EmailSent: true}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody: &webhookResponse{
				Success: true,
				Actions: &webhookActions{OrderUpdated: true, StockUpdated: true, CartCleared: true, EmailSent: true},
			},
		},
		{
			name: "redelivery_return_200",
			setup: func(t *testing.T) *mocks.MockPaymentReconciler {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentReconciler(ctrl)
				svcMock.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(&models.Confirmation{OrderID: "o1", Handled: true, AlreadyPaid: true}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody:       &webhookResponse{Success: true, Info: "Order already paid"},
		},
		{
			name: "cancelled_order_return_200",
			setup: func(t *testing.T) *mocks.MockPaymentReconciler {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentReconciler(ctrl)
				svcMock.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(&models.Confirmation{OrderID: "o1", Handled: true, Skipped: true}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody:       &webhookResponse{Success: true, Info: "Order was cancelled"},
		},
		{
			name: "other_event_return_200",
			setup: func(t *testing.T) *mocks.MockPaymentReconciler {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentReconciler(ctrl)
				svcMock.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(&models.Confirmation{}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody:       &webhookResponse{Success: true, Info: "Event not handled"},
		},
		{
			name: "bad_signature_return_400",
			setup: func(t *testing.T) *mocks.MockPaymentReconciler {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentReconciler(ctrl)
				svcMock.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrInvalidSignature.Wrap(errors.New("no valid signature")))
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "missing_metadata_return_400",
			setup: func(t *testing.T) *mocks.MockPaymentReconciler {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentReconciler(ctrl)
				svcMock.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrMissingMetadata)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "unknown_order_return_404",
			setup: func(t *testing.T) *mocks.MockPaymentReconciler {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentReconciler(ctrl)
				svcMock.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrOrderNotFound)
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "storage_failure_return_500",
			setup: func(t *testing.T) *mocks.MockPaymentReconciler {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentReconciler(ctrl)
				svcMock.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, errors.New("deadlock detected"))
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name: "oversized_body_return_413",
			body: `{"id":"evt_1","pad":"` + strings.Repeat("x", maxWebhookSize) + `"}`,
			setup: func(t *testing.T) *mocks.MockPaymentReconciler {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockPaymentReconciler(ctrl)
				svcMock.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == "" {
				body = payload
			}
			req := httptest.NewRequest(http.MethodPost, "/stripe", strings.NewReader(body))
			req.Header.Set("Stripe-Signature", "t=1,v1=abc")
			w := httptest.NewRecorder()

			handler := NewWebhookHandler(tt.setup(t))
			handler.StripeWebhook()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantBody != nil {
				var got webhookResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))

				if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}
