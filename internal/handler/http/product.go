package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/grocerycart/internal/models"
)

type InventoryService interface {
	// SetStock replaces the stock of a product
	SetStock(ctx context.Context, productID string, stock int) (*models.Product, error)
}

// ProductHandler represents HTTP handler for seller inventory requests
type ProductHandler struct {
	svc InventoryService
}

// NewProductHandler creates new ProductHandler instance
func NewProductHandler(svc InventoryService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// stockRequest sets either an absolute stock count or marks the product out of stock
type stockRequest struct {
	ID      string `json:"id"`
	Stock   *int   `json:"stock"`
	InStock *bool  `json:"inStock"`
}

type productResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Product *models.Product `json:"product"`
}

// UpdateStock sets the stock of the product named in the body
// 200 — stock updated;
// 400 — invalid request;
// 404 — product not found.
func (ph *ProductHandler) UpdateStock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stockRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		ph.setStock(w, r, req.ID, req)
	}
}

// UpdateInventory sets the stock of the product in the URL
func (ph *ProductHandler) UpdateInventory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stockRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		ph.setStock(w, r, chi.URLParam(r, "productId"), req)
	}
}

func (ph *ProductHandler) setStock(w http.ResponseWriter, r *http.Request, productID string, req stockRequest) {
	if productID == "" {
		writeMessage(w, http.StatusBadRequest, "Product ID is required.")
		return
	}

	var stock int
	message := "Stock count updated."
	switch {
	case req.Stock != nil:
		stock = *req.Stock
	case req.InStock != nil && !*req.InStock:
		// out of stock zeroes the count
		stock = 0
		message = "In-stock status updated."
	default:
		// in stock without a count can't be represented
		writeError(w, models.ErrInvalidStock.WithField("stock"))
		return
	}

	product, err := ph.svc.SetStock(r.Context(), productID, stock)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productResponse{Success: true, Message: message, Product: product})
}
