package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rookgm/grocerycart/internal/models"
	"github.com/shopspring/decimal"
)

// PricingEngine prices line items against the catalog. It never writes.
type PricingEngine struct {
	repo    ProductRepository
	taxRate decimal.Decimal
}

// NewPricingEngine creates new PricingEngine instance
func NewPricingEngine(repo ProductRepository, taxRate decimal.Decimal) *PricingEngine {
	return &PricingEngine{repo: repo, taxRate: taxRate}
}

// Quote computes subtotal, tax and total of items. Stock checks are advisory,
// the ledger checks again when stock is taken.
func (pe *PricingEngine) Quote(ctx context.Context, items []models.LineItem) (*models.Quote, error) {
	quote := &models.Quote{Lines: make([]models.PricedLine, 0, len(items))}

	for _, item := range items {
		product, err := pe.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				return nil, models.ErrProductUnavailable.WithField(item.ProductID)
			}
			return nil, fmt.Errorf("get product %s: %w", item.ProductID, err)
		}
		if !product.InStock {
			return nil, models.ErrProductUnavailable.WithField(product.Name)
		}
		if product.Stock < item.Quantity {
			return nil, models.ErrInsufficientStock.WithField(product.Name)
		}

		quote.Subtotal += product.OfferPrice * int64(item.Quantity)
		quote.Lines = append(quote.Lines, models.PricedLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.OfferPrice,
			Quantity:  item.Quantity,
		})
	}

	quote.Tax = Tax(quote.Subtotal, pe.taxRate)
	quote.Total = quote.Subtotal + quote.Tax

	return quote, nil
}

// Tax returns subtotal * rate rounded half up to whole minor units.
func Tax(subtotal int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
}
