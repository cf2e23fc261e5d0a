package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/repository/postgres"
)

const orderColumns = `id, user_id, guest_name, guest_email, guest_phone, items, amount, address_id, payment_type, is_paid, status,
						shipping_tracking_number, shipping_carrier, shipping_tracking_url, transaction_id, paid_at, created_at, updated_at`

const (
	insertOrderQuery = `
						INSERT INTO orders (id, user_id, guest_name, guest_email, guest_phone, items, amount, address_id, payment_type, is_paid, status)
						values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
						RETURNING created_at, updated_at
`
	selectOrderByIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE id = $1
`
	selectOrdersByUserIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE user_id = $1 AND (payment_type = 'COD' OR is_paid)
						ORDER BY created_at DESC
`
	selectOrdersQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE payment_type = 'COD' OR is_paid
						ORDER BY created_at DESC
`
	selectStalePendingQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE status = $1 AND created_at < $2
						ORDER BY created_at
						LIMIT $3
`
	// the WHERE clause is the guard: the update only applies to the state the caller observed
	updateOrderQuery = `
						UPDATE orders
						SET status = $4, is_paid = $5,
							shipping_tracking_number = $6, shipping_carrier = $7, shipping_tracking_url = $8,
							transaction_id = COALESCE($9, transaction_id), paid_at = COALESCE($10, paid_at),
							updated_at = now()
						WHERE id = $1 AND status = $2 AND is_paid = $3
						RETURNING ` + orderColumns + `
`
	orderExistsQuery = `
						SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)
`
	deleteOrderQuery = `
						DELETE FROM orders
						WHERE id = $1
`
)

// OrderRepository implements OrderRepository interface
type OrderRepository struct {
	db *postgres.DB
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*models.Order, error) {
	var (
		order                     models.Order
		guestName, guestEmail     *string
		guestPhone                *string
		paymentType, status       string
		trackNum, carrier, trkURL *string
		txnID                     *string
		paidAt                    *time.Time
	)
	err := row.Scan(&order.ID, &order.UserID, &guestName, &guestEmail, &guestPhone, &order.Items, &order.Amount,
		&order.AddressID, &paymentType, &order.IsPaid, &status, &trackNum, &carrier, &trkURL, &txnID, &paidAt,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	order.PaymentType = models.PaymentType(paymentType)
	order.Status = models.OrderStatus(status)
	if guestName != nil || guestEmail != nil || guestPhone != nil {
		order.Guest = &models.GuestContact{Name: deref(guestName), Email: deref(guestEmail), Phone: deref(guestPhone)}
	}
	if trackNum != nil || carrier != nil || trkURL != nil {
		order.Shipping = &models.Shipping{TrackingNumber: deref(trackNum), Carrier: deref(carrier), TrackingURL: deref(trkURL)}
	}
	if txnID != nil && paidAt != nil {
		order.Payment = &models.PaymentDetails{TransactionID: *txnID, PaidAt: *paidAt}
	}

	return &order, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateOrder inserts new order to database
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	var guestName, guestEmail, guestPhone *string
	if order.Guest != nil {
		guestName, guestEmail, guestPhone = nullable(order.Guest.Name), nullable(order.Guest.Email), nullable(order.Guest.Phone)
	}

	err := or.db.QueryRow(ctx, insertOrderQuery, order.ID, order.UserID, guestName, guestEmail, guestPhone, order.Items,
		order.Amount, order.AddressID, string(order.PaymentType), order.IsPaid, string(order.Status)).
		Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errCode := or.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return nil, models.ErrConflictData
		}
		return nil, err
	}

	return order, nil
}

// GetOrder returns order by id
func (or *OrderRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := scanOrder(or.db.QueryRow(ctx, selectOrderByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return order, nil
}

// UpdateOrder applies patch if the order is still in the expected state.
// It returns models.ErrConflictData when the state has changed meanwhile.
func (or *OrderRepository) UpdateOrder(ctx context.Context, id string, expect models.OrderState, patch models.OrderPatch) (*models.Order, error) {
	var (
		trackNum, carrier, trkURL *string
		txnID                     *string
		paidAt                    *time.Time
	)
	if patch.Shipping != nil {
		trackNum, carrier, trkURL = nullable(patch.Shipping.TrackingNumber), nullable(patch.Shipping.Carrier), nullable(patch.Shipping.TrackingURL)
	}
	if patch.Payment != nil {
		txnID, paidAt = &patch.Payment.TransactionID, &patch.Payment.PaidAt
	}

	order, err := scanOrder(or.db.QueryRow(ctx, updateOrderQuery, id, string(expect.Status), expect.IsPaid,
		string(patch.Status), patch.IsPaid, trackNum, carrier, trkURL, txnID, paidAt))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := or.db.QueryRow(ctx, orderExistsQuery, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.ErrDataNotFound
	}

	return nil, models.ErrConflictData
}

// DeleteOrder removes order
func (or *OrderRepository) DeleteOrder(ctx context.Context, id string) error {
	cmd, err := or.db.Exec(ctx, deleteOrderQuery, id)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}

// ListOrdersByUser returns the visible orders of a user, newest first
func (or *OrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return or.list(ctx, selectOrdersByUserIDQuery, userID)
}

// ListOrders returns every visible order, newest first
func (or *OrderRepository) ListOrders(ctx context.Context) ([]models.Order, error) {
	return or.list(ctx, selectOrdersQuery)
}

// ListStalePending returns online orders still waiting for payment that were created before t
func (or *OrderRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	return or.list(ctx, selectStalePendingQuery, string(models.OrderStatusPendingPayment), before, limit)
}

func (or *OrderRepository) list(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
