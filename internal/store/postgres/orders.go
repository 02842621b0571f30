package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-cart-store/internal/models"
	"github.com/safar/go-cart-store/internal/store"
)

func (r *repo) CreateOrder(ctx context.Context, order *models.Order) error {
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, email, address_id, status, total_amount, order_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id, created_at`,
		order.OrderNumber, order.Email, order.AddressID, order.Status, order.TotalAmount, order.OrderDate,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	payment := &order.Payment
	payment.OrderID = order.ID
	err = r.q.QueryRowContext(ctx,
		`INSERT INTO payments (order_id, method, pg_name, pg_payment_id, pg_status, pg_response_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id, created_at`,
		payment.OrderID, payment.Method, payment.PGName, payment.PGPaymentID, payment.PGStatus, payment.PGResponseMessage,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

func (r *repo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	for i := range items {
		item := &items[i]
		err := r.q.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price, discount, subtotal, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW())
			 RETURNING id, created_at`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Discount, item.Subtotal,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}

	return nil
}

func (r *repo) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order := &models.Order{}
	payment := &order.Payment

	query := `
		SELECT o.id, o.order_number, o.email, o.address_id, o.status, o.total_amount, o.order_date, o.created_at,
		       p.id, p.order_id, p.method, p.pg_name, p.pg_payment_id, p.pg_status, p.pg_response_message, p.created_at
		FROM orders o
		JOIN payments p ON p.order_id = o.id
		WHERE o.id = $1`

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.Email,
		&order.AddressID,
		&order.Status,
		&order.TotalAmount,
		&order.OrderDate,
		&order.CreatedAt,
		&payment.ID,
		&payment.OrderID,
		&payment.Method,
		&payment.PGName,
		&payment.PGPaymentID,
		&payment.PGStatus,
		&payment.PGResponseMessage,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrOrderNotFound.With("orderId", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, unit_price, discount, subtotal, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.q.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Discount,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return order, nil
}

func (r *repo) ListOrdersCursor(ctx context.Context, email, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	cursorData, err := store.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, order_number, email, address_id, status, total_amount, order_date, created_at
		FROM orders
		WHERE email = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := r.q.QueryContext(ctx, query, email, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0, limit)
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.Email,
			&order.AddressID,
			&order.Status,
			&order.TotalAmount,
			&order.OrderDate,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = store.EncodeCursor(store.OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &store.CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
