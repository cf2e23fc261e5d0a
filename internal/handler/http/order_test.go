package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/rookgm/grocerycart/internal/handler/http/mocks"
	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guestOrderBody = `{
	"items": [{"product": "P1", "quantity": 2}],
	"address": {"firstName": "Ravi", "lastName": "Kumar", "email": "ravi@example.com", "street": "12 MG Road",
		"city": "Pune", "state": "MH", "zipcode": "411001", "country": "India", "phone": "9999999999"},
	"guestDetails": {"name": "Ravi Kumar", "email": "ravi@example.com", "phone": "9999999999"}
}`

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestOrderHandler_PlaceOrderCOD(t *testing.T) {
	tests := []struct {
		name           string
		token          *models.TokenPayload
		body           string
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
		wantBody       *placeOrderResponse
	}{
		{
			name: "guest_order_return_201",
			body: guestOrderBody,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().PlaceOrder(gomock.Any(), gomock.Any(), models.Actor{}).
					DoAndReturn(func(_ context.Context, req service.PlaceOrderRequest, _ models.Actor) (*models.Placement, error) {
						assert.Equal(t, models.PaymentCOD, req.PaymentType)
						assert.Equal(t, []models.LineItem{{ProductID: "P1", Quantity: 2}}, req.Items)
						require.NotNil(t, req.Address.Value)
						assert.Equal(t, "Pune", req.Address.Value.City)
						require.NotNil(t, req.Guest)
						assert.Equal(t, "9999999999", req.Guest.Phone)
						return &models.Placement{OrderID: "o1"}, nil
					})
				return svcMock
			},
			wantStatusCode: http.StatusCreated,
			wantBody:       &placeOrderResponse{Success: true, Message: "Order placed successfully!", OrderID: "o1"},
		},
		{
			name:  "user_order_with_address_id_return_201",
			token: &models.TokenPayload{UserID: "u1", Role: models.RoleUser},
			body:  `{"items": [{"product": "P1", "quantity": 1}], "address": "a1"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().PlaceOrder(gomock.Any(), gomock.Any(), models.Actor{UserID: "u1", Role: models.RoleUser}).
					DoAndReturn(func(_ context.Context, req service.PlaceOrderRequest, _ models.Actor) (*models.Placement, error) {
						assert.Equal(t, "a1", req.Address.ID)
						return &models.Placement{OrderID: "o2"}, nil
					})
				return svcMock
			},
			wantStatusCode: http.StatusCreated,
			wantBody:       &placeOrderResponse{Success: true, Message: "Order placed successfully!", OrderID: "o2"},
		},
		{
			name: "invalid_address_return_400",
			body: `{"items": [{"product": "P1", "quantity": 1}], "address": 42}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().PlaceOrder(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "malformed_json_return_400",
			body: `{"items": [`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().PlaceOrder(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "missing_guest_phone_return_400",
			body: guestOrderBody,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().PlaceOrder(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrMissingGuestDetails.WithField("phone"))
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "insufficient_stock_return_409",
			body: guestOrderBody,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().PlaceOrder(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrInsufficientStock.WithField("Apples"))
				return svcMock
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "internal_error_return_500",
			body: guestOrderBody,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().PlaceOrder(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, errors.New("connection reset"))
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/order/cod", strings.NewReader(tt.body))
			if tt.token != nil {
				req = req.WithContext(context.WithValue(req.Context(), authPayloadKey, tt.token))
			}
			w := httptest.NewRecorder()

			handler := NewOrderHandler(tt.setup(t), nil)
			handler.PlaceOrderCOD()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
			resBody, err := io.ReadAll(res.Body)
			require.NoError(t, err)

			if tt.wantBody != nil {
				var got placeOrderResponse
				require.NoError(t, json.Unmarshal(resBody, &got))

				if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestOrderHandler_PlaceOrderOnline(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
		wantBody       *placeOrderResponse
	}{
		{
			name: "session_opened_return_200",
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().PlaceOrder(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req service.PlaceOrderRequest, _ models.Actor) (*models.Placement, error) {
						assert.Equal(t, models.PaymentOnline, req.PaymentType)
						assert.Equal(t, "https://shop.test", req.Origin)
						return &models.Placement{OrderID: "o1", RedirectURL: "https://checkout.test/cs_1"}, nil
					})
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody:       &placeOrderResponse{Success: true, OrderID: "o1", URL: "https://checkout.test/cs_1"},
		},
		{
			name: "gateway_failure_return_502",
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().PlaceOrder(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrPaymentGateway.Wrap(errors.New("timeout")))
				return svcMock
			},
			wantStatusCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/order/stripe", strings.NewReader(guestOrderBody))
			req.Header.Set("Origin", "https://shop.test")
			w := httptest.NewRecorder()

			handler := NewOrderHandler(tt.setup(t), nil)
			handler.PlaceOrderOnline()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantBody != nil {
				var got placeOrderResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))

				if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestOrderHandler_ListUserOrders(t *testing.T) {
	tests := []struct {
		name           string
		token          *models.TokenPayload
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
		wantIDs        []string
	}{
		{
			name:  "valid_request_return_200",
			token: &models.TokenPayload{UserID: "u1"},
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), "u1").Return([]models.Order{
					{ID: "o2", Status: models.OrderStatusPlaced, PaymentType: models.PaymentCOD},
					{ID: "o1", Status: models.OrderStatusProcessing, PaymentType: models.PaymentOnline, IsPaid: true},
				}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantIDs:        []string{"o2", "o1"},
		},
		{
			name: "unauthorized_request_return_401",
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:  "internal_error_return_500",
			token: &models.TokenPayload{UserID: "u1"},
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), "u1").Return(nil, errors.New("db down"))
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/order/user", nil)
			if tt.token != nil {
				req = req.WithContext(context.WithValue(req.Context(), authPayloadKey, tt.token))
			}
			w := httptest.NewRecorder()

			handler := NewOrderHandler(tt.setup(t), nil)
			handler.ListUserOrders()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantIDs != nil {
				var got ordersResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))

				ids := make([]string, 0, len(got.Orders))
				for _, o := range got.Orders {
					ids = append(ids, o.ID)
				}
				if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestOrderHandler_CancelOrder(t *testing.T) {
	tests := []struct {
		name           string
		token          *models.TokenPayload
		body           string
		setup          func(t *testing.T) *mocks.MockStatusService
		wantStatusCode int
	}{
		{
			name:  "owner_return_200",
			token: &models.TokenPayload{UserID: "u1", Role: models.RoleUser},
			setup: func(t *testing.T) *mocks.MockStatusService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockStatusService(ctrl)
				svcMock.EXPECT().CancelOrder(gomock.Any(), "o1", models.Actor{UserID: "u1", Role: models.RoleUser}).
					Return(&models.Order{ID: "o1", Status: models.OrderStatusCancelled}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "guest_with_email_return_200",
			body: `{"guestEmail": "ravi@example.com"}`,
			setup: func(t *testing.T) *mocks.MockStatusService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockStatusService(ctrl)
				svcMock.EXPECT().CancelOrder(gomock.Any(), "o1", models.Actor{GuestEmail: "ravi@example.com"}).
					Return(&models.Order{ID: "o1", Status: models.OrderStatusCancelled}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:  "not_owner_return_403",
			token: &models.TokenPayload{UserID: "u2"},
			setup: func(t *testing.T) *mocks.MockStatusService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockStatusService(ctrl)
				svcMock.EXPECT().CancelOrder(gomock.Any(), "o1", gomock.Any()).Return(nil, models.ErrForbidden)
				return svcMock
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:  "already_cancelled_return_409",
			token: &models.TokenPayload{UserID: "u1"},
			setup: func(t *testing.T) *mocks.MockStatusService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockStatusService(ctrl)
				svcMock.EXPECT().CancelOrder(gomock.Any(), "o1", gomock.Any()).Return(nil, models.ErrAlreadyCancelled)
				return svcMock
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:  "not_found_return_404",
			token: &models.TokenPayload{UserID: "u1"},
			setup: func(t *testing.T) *mocks.MockStatusService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockStatusService(ctrl)
				svcMock.EXPECT().CancelOrder(gomock.Any(), "o1", gomock.Any()).Return(nil, models.ErrOrderNotFound)
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/order/cancel/o1", strings.NewReader(tt.body))
			if tt.token != nil {
				req = req.WithContext(context.WithValue(req.Context(), authPayloadKey, tt.token))
			}
			req = withURLParam(req, "orderId", "o1")
			w := httptest.NewRecorder()

			handler := NewOrderHandler(nil, tt.setup(t))
			handler.CancelOrder()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
		})
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setup          func(t *testing.T) *mocks.MockStatusService
		wantStatusCode int
		wantShipping   *models.Shipping
	}{
		{
			name: "shipped_return_200",
			body: `{"status": "Shipped", "shippingTrackingNumber": "TRK1", "shippingCarrier": "BlueDart"}`,
			setup: func(t *testing.T) *mocks.MockStatusService {
				ctrl := gomock.NewController(t)

				shipping := &models.Shipping{TrackingNumber: "TRK1", Carrier: "BlueDart"}
				svcMock := mocks.NewMockStatusService(ctrl)
				svcMock.EXPECT().SetStatus(gomock.Any(), "o1", models.OrderStatusShipped, shipping).
					Return(&models.Order{ID: "o1", Status: models.OrderStatusShipped, Shipping: shipping}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantShipping:   &models.Shipping{TrackingNumber: "TRK1", Carrier: "BlueDart"},
		},
		{
			name: "unknown_status_return_400",
			body: `{"status": "Lost"}`,
			setup: func(t *testing.T) *mocks.MockStatusService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockStatusService(ctrl)
				svcMock.EXPECT().SetStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "invalid_transition_return_409",
			body: `{"status": "Cancelled"}`,
			setup: func(t *testing.T) *mocks.MockStatusService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockStatusService(ctrl)
				svcMock.EXPECT().SetStatus(gomock.Any(), "o1", models.OrderStatusCancelled, gomock.Any()).
					Return(nil, models.ErrInvalidTransition)
				return svcMock
			},
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/order/update-status/o1", strings.NewReader(tt.body))
			req = withURLParam(req, "orderId", "o1")
			w := httptest.NewRecorder()

			handler := NewOrderHandler(nil, tt.setup(t))
			handler.UpdateStatus()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantShipping != nil {
				var got updateStatusResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))

				if diff := cmp.Diff(tt.wantShipping, got.Order.Shipping); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestOrderHandler_TrackOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	svcMock := mocks.NewMockOrderService(ctrl)
	svcMock.EXPECT().TrackOrder(gomock.Any(), "o1").Return(&models.Tracking{
		Order:   models.Order{ID: "o1", Status: models.OrderStatusPlaced, PaymentType: models.PaymentCOD, Amount: 1020},
		Address: &models.Address{ID: "a1", City: "Pune"},
		Items:   []models.PricedLine{{ProductID: "P1", Name: "Apples", UnitPrice: 500, Quantity: 2}},
	}, nil)
	svcMock.EXPECT().TrackOrder(gomock.Any(), "nope").Return(nil, models.ErrOrderNotFound)

	handler := NewOrderHandler(svcMock, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/track/o1", nil), "orderId", "o1")
	w := httptest.NewRecorder()
	handler.TrackOrder()(w, req)

	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got trackingResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	want := []trackingItem{{ProductID: "P1", Name: "Apples", Price: 500, Quantity: 2}}
	if diff := cmp.Diff(want, got.TrackingDetails.Items); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(1020), got.TrackingDetails.Amount)
	assert.Equal(t, "Pune", got.TrackingDetails.Address.City)

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/api/track/nope", nil), "orderId", "nope")
	w = httptest.NewRecorder()
	handler.TrackOrder()(w, req)
	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}
