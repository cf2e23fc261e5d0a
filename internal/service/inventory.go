package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rookgm/grocerycart/internal/logger"
	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/notify"
	"go.uber.org/zap"
)

// ProductRepository is interface for interacting with catalog stock
type ProductRepository interface {
	// GetProduct returns product by id
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	// AdjustStock atomically adds delta to the stock, it fails with models.ErrInsufficientStock
	// when the result would be negative
	AdjustStock(ctx context.Context, id string, delta int) (*models.StockChange, error)
	// SetStock atomically replaces the stock and reports the stock it replaced
	SetStock(ctx context.Context, id string, stock int) (*models.StockChange, error)
}

// Notifier delivers notifications. Notify is fire-and-forget, Deliver retries synchronously.
type Notifier interface {
	Notify(msg notify.Message) error
	Deliver(ctx context.Context, msg notify.Message, attempts int) error
}

// InventoryLedger adjusts product stock and raises stock alerts.
type InventoryLedger struct {
	repo        ProductRepository
	notifier    Notifier
	sellerEmail string
}

// NewInventoryLedger creates new InventoryLedger instance
func NewInventoryLedger(repo ProductRepository, notifier Notifier, sellerEmail string) *InventoryLedger {
	return &InventoryLedger{
		repo:        repo,
		notifier:    notifier,
		sellerEmail: sellerEmail,
	}
}

// Decrement takes qty units of a product. It returns the stock alert the write raised, if any.
// Alerts are not sent here: callers raise them once their transaction has committed.
func (l *InventoryLedger) Decrement(ctx context.Context, productID string, qty int) (*models.StockSignal, error) {
	if qty < 1 {
		return nil, models.ErrInvalidLineItem.WithField(productID)
	}

	change, err := l.repo.AdjustStock(ctx, productID, -qty)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDataNotFound):
			return nil, models.ErrProductUnavailable.WithField(productID)
		case errors.Is(err, models.ErrInsufficientStock):
			return nil, models.ErrInsufficientStock.WithField(productID)
		}
		return nil, fmt.Errorf("decrement stock of %s: %w", productID, err)
	}

	logger.Log.Debug("stock decremented",
		zap.String("product_id", productID),
		zap.Int("qty", qty),
		zap.Int("stock", change.Stock))

	return stockSignal(change), nil
}

// stockSignal returns the alert raised by a stock write. Out of stock replaces low stock.
func stockSignal(change *models.StockChange) *models.StockSignal {
	threshold := change.LowStockThreshold
	signal := &models.StockSignal{
		ProductID: change.ID,
		Name:      change.Name,
		Stock:     change.Stock,
		Threshold: threshold,
	}

	switch {
	case change.Stock == 0 && change.Previous > 0:
		signal.Kind = models.SignalOutOfStock
	case change.Stock <= threshold && change.Previous > threshold:
		signal.Kind = models.SignalLowStock
	default:
		return nil
	}
	return signal
}

// SetStock replaces the stock of a product with a count from the seller. Crossing an
// alert boundary alerts the seller as a sale would.
func (l *InventoryLedger) SetStock(ctx context.Context, productID string, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, models.ErrInvalidStock.WithField("stock")
	}

	change, err := l.repo.SetStock(ctx, productID, stock)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, models.ErrProductNotFound.WithField(productID)
		}
		return nil, fmt.Errorf("set stock of %s: %w", productID, err)
	}

	logger.Log.Info("stock set",
		zap.String("product_id", productID),
		zap.Int("previous", change.Previous),
		zap.Int("stock", change.Stock))

	if signal := stockSignal(change); signal != nil {
		l.Raise([]models.StockSignal{*signal})
	}

	return &change.Product, nil
}

// Increment returns qty units of a product to stock. A product that no longer
// exists is skipped. Only storage failures are returned.
func (l *InventoryLedger) Increment(ctx context.Context, productID string, qty int) error {
	if qty < 1 {
		return nil
	}

	change, err := l.repo.AdjustStock(ctx, productID, qty)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			logger.Log.Warn("restock skipped, product not found", zap.String("product_id", productID))
			return nil
		}
		return fmt.Errorf("increment stock of %s: %w", productID, err)
	}

	logger.Log.Debug("stock incremented",
		zap.String("product_id", productID),
		zap.Int("qty", qty),
		zap.Int("stock", change.Stock))

	return nil
}

// Raise sends the alerts to the seller. Delivery is best effort.
func (l *InventoryLedger) Raise(signals []models.StockSignal) {
	if l.sellerEmail == "" {
		return
	}
	for _, s := range signals {
		logger.Log.Info("stock alert",
			zap.String("kind", s.Kind.String()),
			zap.String("product_id", s.ProductID),
			zap.Int("stock", s.Stock))
		if err := l.notifier.Notify(stockAlertMessage(l.sellerEmail, s)); err != nil {
			logger.Log.Error("stock alert not sent", zap.String("product_id", s.ProductID), zap.Error(err))
		}
	}
}

// take decrements the stock of every item and collects the raised alerts.
// It stops at the first failure, callers run it in a transaction.
func (l *InventoryLedger) take(ctx context.Context, items []models.LineItem) ([]models.StockSignal, error) {
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, models.ErrInvalidLineItem.WithField(item.ProductID)
		}
	}

	var signals []models.StockSignal
	for _, item := range lockOrder(items) {
		signal, err := l.Decrement(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if signal != nil {
			signals = append(signals, *signal)
		}
	}
	return signals, nil
}

// restock increments the stock of every item.
func (l *InventoryLedger) restock(ctx context.Context, items []models.LineItem) error {
	for _, item := range lockOrder(items) {
		if err := l.Increment(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// lockOrder merges items of the same product and sorts them by product id, so
// that transactions touching several products lock their rows in one order.
func lockOrder(items []models.LineItem) []models.LineItem {
	merged := make(map[string]int, len(items))
	for _, item := range items {
		merged[item.ProductID] += item.Quantity
	}

	out := make([]models.LineItem, 0, len(merged))
	for id, qty := range merged {
		out = append(out, models.LineItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID < out[j].ProductID
	})
	return out
}
