package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/service"
)

const maxBodySize = 1 << 20

type OrderService interface {
	// PlaceOrder validates, prices and commits an order
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest, actor models.Actor) (*models.Placement, error)
	// ListUserOrders returns orders of a user
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	// ListOrders returns all COD or paid orders
	ListOrders(ctx context.Context) ([]models.Order, error)
	// TrackOrder returns the public view of an order
	TrackOrder(ctx context.Context, orderID string) (*models.Tracking, error)
}

type StatusService interface {
	// CancelOrder cancels an order and restocks it
	CancelOrder(ctx context.Context, orderID string, actor models.Actor) (*models.Order, error)
	// SetStatus moves an order to status
	SetStatus(ctx context.Context, orderID string, status models.OrderStatus, shipping *models.Shipping) (*models.Order, error)
}

// OrderHandler represents HTTP handler for order-related requests
type OrderHandler struct {
	svc    OrderService
	status StatusService
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc OrderService, status StatusService) *OrderHandler {
	return &OrderHandler{svc: svc, status: status}
}

type placeOrderRequest struct {
	Items        []models.LineItem    `json:"items"`
	Address      json.RawMessage      `json:"address"`
	GuestDetails *models.GuestContact `json:"guestDetails"`
}

type placeOrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	OrderID string `json:"orderId,omitempty"`
	URL     string `json:"url,omitempty"`
}

// decodeAddress accepts either an address id or an address object
func decodeAddress(raw json.RawMessage) (models.AddressInput, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return models.AddressInput{}, models.ErrInvalidAddress.WithField("address")
	}

	switch raw[0] {
	case '"':
		var id string
		if err := json.Unmarshal(raw, &id); err != nil || id == "" {
			return models.AddressInput{}, models.ErrInvalidAddress.WithField("address")
		}
		return models.AddressInput{ID: id}, nil
	case '{':
		var addr models.Address
		if err := json.Unmarshal(raw, &addr); err != nil {
			return models.AddressInput{}, models.ErrInvalidAddress.WithField("address")
		}
		return models.AddressInput{Value: &addr}, nil
	}
	return models.AddressInput{}, models.ErrInvalidAddress.WithField("address")
}

func (oh *OrderHandler) decodePlaceOrder(r *http.Request, pt models.PaymentType) (service.PlaceOrderRequest, error) {
	var req placeOrderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		return service.PlaceOrderRequest{}, models.ErrEmptyCart.Wrap(err)
	}
	defer r.Body.Close()

	addr, err := decodeAddress(req.Address)
	if err != nil {
		return service.PlaceOrderRequest{}, err
	}

	return service.PlaceOrderRequest{
		Items:       req.Items,
		Address:     addr,
		Guest:       req.GuestDetails,
		PaymentType: pt,
		Origin:      r.Header.Get("Origin"),
	}, nil
}

// PlaceOrderCOD places a cash on delivery order
// 201 — order placed;
// 400 — invalid request;
// 404 — unknown user;
// 409 — stock or address conflict;
// 500 — internal server error.
func (oh *OrderHandler) PlaceOrderCOD() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := oh.decodePlaceOrder(r, models.PaymentCOD)
		if err != nil {
			writeError(w, err)
			return
		}

		placement, err := oh.svc.PlaceOrder(r.Context(), req, actorFrom(r))
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, placeOrderResponse{
			Success: true,
			Message: "Order placed successfully!",
			OrderID: placement.OrderID,
		})
	}
}

// PlaceOrderOnline places an order paid through the payment gateway and returns the checkout URL
// 200 — checkout session opened;
// 400 — invalid request or missing Origin header;
// 409 — stock or address conflict;
// 502 — payment gateway failure.
func (oh *OrderHandler) PlaceOrderOnline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := oh.decodePlaceOrder(r, models.PaymentOnline)
		if err != nil {
			writeError(w, err)
			return
		}

		placement, err := oh.svc.PlaceOrder(r.Context(), req, actorFrom(r))
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, placeOrderResponse{
			Success: true,
			OrderID: placement.OrderID,
			URL:     placement.RedirectURL,
		})
	}
}

type orderResponse struct {
	ID          string             `json:"id"`
	UserID      *string            `json:"userId,omitempty"`
	GuestName   string             `json:"guestName,omitempty"`
	GuestEmail  string             `json:"guestEmail,omitempty"`
	GuestPhone  string             `json:"guestPhone,omitempty"`
	Items       []models.LineItem  `json:"items"`
	Amount      int64              `json:"amount"`
	AddressID   string             `json:"address"`
	PaymentType models.PaymentType `json:"paymentType"`
	IsPaid      bool               `json:"isPaid"`
	Status      models.OrderStatus `json:"status"`
	Shipping    *models.Shipping   `json:"shipping,omitempty"`
	Payment     *paymentResponse   `json:"paymentDetails,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type paymentResponse struct {
	TransactionID string    `json:"transactionId"`
	PaidAt        time.Time `json:"paymentDate"`
}

func toOrderResponse(o models.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       o.Items,
		Amount:      o.Amount,
		AddressID:   o.AddressID,
		PaymentType: o.PaymentType,
		IsPaid:      o.IsPaid,
		Status:      o.Status,
		Shipping:    o.Shipping,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Guest != nil {
		resp.GuestName, resp.GuestEmail, resp.GuestPhone = o.Guest.Name, o.Guest.Email, o.Guest.Phone
	}
	if o.Payment != nil {
		resp.Payment = &paymentResponse{TransactionID: o.Payment.TransactionID, PaidAt: o.Payment.PaidAt}
	}
	return resp
}

type ordersResponse struct {
	Success bool            `json:"success"`
	Orders  []orderResponse `json:"orders"`
}

func writeOrders(w http.ResponseWriter, orders []models.Order) {
	resp := ordersResponse{Success: true, Orders: make([]orderResponse, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListUserOrders returns orders of the signed in user
// 200 — success;
// 401 — user is not authenticated;
// 500 — internal server error.
func (oh *OrderHandler) ListUserOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok || payload.UserID == "" {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		orders, err := oh.svc.ListUserOrders(r.Context(), payload.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeOrders(w, orders)
	}
}

// ListSellerOrders returns every COD or paid order
func (oh *OrderHandler) ListSellerOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := oh.svc.ListOrders(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		writeOrders(w, orders)
	}
}

type cancelRequest struct {
	GuestEmail string `json:"guestEmail"`
}

// CancelOrder cancels an order of the caller
// 200 — order cancelled;
// 403 — the caller does not own the order;
// 404 — order not found;
// 409 — order can't be cancelled.
func (oh *OrderHandler) CancelOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")

		actor := actorFrom(r)
		if r.Body != nil {
			var req cancelRequest
			err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req)
			if err != nil && !errors.Is(err, io.EOF) {
				writeMessage(w, http.StatusBadRequest, "bad request")
				return
			}
			actor.GuestEmail = req.GuestEmail
		}

		if _, err := oh.status.CancelOrder(r.Context(), orderID, actor); err != nil {
			writeError(w, err)
			return
		}

		writeMessage(w, http.StatusOK, "Order cancelled successfully.")
	}
}

type updateStatusRequest struct {
	Status                 string `json:"status"`
	ShippingTrackingNumber string `json:"shippingTrackingNumber"`
	ShippingCarrier        string `json:"shippingCarrier"`
	ShippingTrackingURL    string `json:"shippingTrackingUrl"`
}

type updateStatusResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Order   orderResponse `json:"order"`
}

// UpdateStatus moves an order to a new status
// 200 — status updated;
// 400 — invalid status;
// 404 — order not found;
// 409 — transition not allowed.
func (oh *OrderHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")

		var req updateStatusRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		status, err := models.ParseOrderStatus(req.Status)
		if err != nil {
			writeError(w, err)
			return
		}

		shipping := &models.Shipping{
			TrackingNumber: req.ShippingTrackingNumber,
			Carrier:        req.ShippingCarrier,
			TrackingURL:    req.ShippingTrackingURL,
		}

		order, err := oh.status.SetStatus(r.Context(), orderID, status, shipping)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, updateStatusResponse{
			Success: true,
			Message: "Order status updated to '" + string(order.Status) + "'.",
			Order:   toOrderResponse(*order),
		})
	}
}

type trackingItem struct {
	ProductID string `json:"product"`
	Name      string `json:"name,omitempty"`
	Price     int64  `json:"price,omitempty"`
	Quantity  int    `json:"quantity"`
}

type trackingDetails struct {
	OrderID     string             `json:"orderId"`
	Status      models.OrderStatus `json:"status"`
	PaymentType models.PaymentType `json:"paymentType"`
	IsPaid      bool               `json:"isPaid"`
	Amount      int64              `json:"amount"`
	Items       []trackingItem     `json:"items"`
	Address     *models.Address    `json:"shippingAddress"`
	Shipping    *models.Shipping   `json:"shipping,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type trackingResponse struct {
	Success         bool            `json:"success"`
	TrackingDetails trackingDetails `json:"trackingDetails"`
}

// TrackOrder returns the public tracking view of an order
// 200 — success;
// 404 — order not found.
func (oh *OrderHandler) TrackOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")

		tracking, err := oh.svc.TrackOrder(r.Context(), orderID)
		if err != nil {
			writeError(w, err)
			return
		}

		o := tracking.Order
		details := trackingDetails{
			OrderID:     o.ID,
			Status:      o.Status,
			PaymentType: o.PaymentType,
			IsPaid:      o.IsPaid,
			Amount:      o.Amount,
			Items:       make([]trackingItem, 0, len(tracking.Items)),
			Address:     tracking.Address,
			Shipping:    o.Shipping,
			CreatedAt:   o.CreatedAt,
		}
		for _, it := range tracking.Items {
			details.Items = append(details.Items, trackingItem{
				ProductID: it.ProductID,
				Name:      it.Name,
				Price:     it.UnitPrice,
				Quantity:  it.Quantity,
			})
		}

		writeJSON(w, http.StatusOK, trackingResponse{Success: true, TrackingDetails: details})
	}
}
