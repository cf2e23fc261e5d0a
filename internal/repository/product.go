package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/repository/postgres"
)

const (
	selectProductByIDQuery = `
						SELECT id, name, price, offer_price, stock, low_stock_threshold, in_stock FROM products
						WHERE id = $1
`
	// stock is read and written by one statement so concurrent adjustments serialize on the row lock
	adjustStockQuery = `
						UPDATE products
						SET stock = stock + $2, in_stock = stock + $2 > 0, updated_at = now()
						WHERE id = $1 AND stock + $2 >= 0
						RETURNING id, name, price, offer_price, stock, low_stock_threshold, in_stock
`
	// the row is locked by the subquery so old.stock is the value this update replaces
	setStockQuery = `
						UPDATE products p
						SET stock = $2, in_stock = $2 > 0, updated_at = now()
						FROM (SELECT id, stock FROM products WHERE id = $1 FOR UPDATE) old
						WHERE p.id = old.id
						RETURNING p.id, p.name, p.price, p.offer_price, p.stock, p.low_stock_threshold, p.in_stock, old.stock
`
	productExistsQuery = `
						SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
`
)

// ProductRepository reads the catalog and adjusts stock
type ProductRepository struct {
	db *postgres.DB
}

// NewProductRepository creates new ProductRepository instance
func NewProductRepository(db *postgres.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetProduct returns product by id
func (pr *ProductRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p := models.Product{}
	err := pr.db.QueryRow(ctx, selectProductByIDQuery, id).Scan(&p.ID, &p.Name, &p.Price, &p.OfferPrice, &p.Stock, &p.LowStockThreshold, &p.InStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return &p, nil
}

// AdjustStock adds delta to the product stock unless the result would be negative
func (pr *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (*models.StockChange, error) {
	change := models.StockChange{}
	p := &change.Product
	err := pr.db.QueryRow(ctx, adjustStockQuery, id, delta).Scan(&p.ID, &p.Name, &p.Price, &p.OfferPrice, &p.Stock, &p.LowStockThreshold, &p.InStock)
	if err == nil {
		change.Previous = p.Stock - delta
		return &change, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := pr.db.QueryRow(ctx, productExistsQuery, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.ErrDataNotFound
	}

	return nil, models.ErrInsufficientStock
}

// SetStock replaces the product stock and returns it together with the stock it replaced
func (pr *ProductRepository) SetStock(ctx context.Context, id string, stock int) (*models.StockChange, error) {
	change := models.StockChange{}
	p := &change.Product
	err := pr.db.QueryRow(ctx, setStockQuery, id, stock).Scan(&p.ID, &p.Name, &p.Price, &p.OfferPrice, &p.Stock,
		&p.LowStockThreshold, &p.InStock, &change.Previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return &change, nil
}
