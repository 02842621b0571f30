package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-cart-store/internal/database"
	"github.com/safar/go-cart-store/internal/models"
)

const cartColumns = `id, user_id, email, total_price, created_at, updated_at, version`

func scanCart(row scanner) (models.Cart, error) {
	var cart models.Cart
	err := row.Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Email,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
		&cart.Version,
	)
	return cart, err
}

func (r *repo) CreateCart(ctx context.Context, cart *models.Cart) error {
	query := `
		INSERT INTO carts (user_id, email, total_price, created_at, updated_at, version)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		RETURNING id, created_at, updated_at, version`

	err := r.q.QueryRowContext(ctx, query, cart.UserID, cart.Email, cart.TotalPrice).Scan(
		&cart.ID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
		&cart.Version,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "carts_user_id_key") {
			// A concurrent first add created the cart; retrying will find it.
			return fmt.Errorf("create cart: %w", database.ErrOptimisticLockFailed)
		}
		return fmt.Errorf("create cart: %w", err)
	}
	cart.Items = nil

	return nil
}

// getCart loads one cart, locking its row inside write transactions.
func (r *repo) getCart(ctx context.Context, notFound *models.Error, where string, args ...any) (*models.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE ` + where + r.forUpdate()

	cart, err := scanCart(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	carts := []models.Cart{cart}
	if err := r.attachItems(ctx, carts); err != nil {
		return nil, err
	}

	return &carts[0], nil
}

func (r *repo) GetCart(ctx context.Context, id int64) (*models.Cart, error) {
	return r.getCart(ctx, models.ErrCartNotFound.With("cartId", id), "id = $1", id)
}

func (r *repo) GetCartByUser(ctx context.Context, userID int64) (*models.Cart, error) {
	return r.getCart(ctx, models.ErrCartNotFound.With("userId", userID), "user_id = $1", userID)
}

func (r *repo) GetCartByEmail(ctx context.Context, email string) (*models.Cart, error) {
	return r.getCart(ctx, models.ErrCartNotFound.With("email", email), "email = $1", email)
}

func (r *repo) GetCartByEmailAndID(ctx context.Context, email string, id int64) (*models.Cart, error) {
	return r.getCart(ctx, models.ErrCartNotFound.With("cartId", id), "email = $1 AND id = $2", email, id)
}

func (r *repo) listCarts(ctx context.Context, query string, args ...any) ([]models.Cart, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	defer rows.Close()

	carts := make([]models.Cart, 0)
	for rows.Next() {
		cart, err := scanCart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		carts = append(carts, cart)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.attachItems(ctx, carts); err != nil {
		return nil, err
	}

	return carts, nil
}

func (r *repo) ListCarts(ctx context.Context) ([]models.Cart, error) {
	return r.listCarts(ctx, `SELECT `+cartColumns+` FROM carts ORDER BY id`)
}

func (r *repo) FindCartsByProduct(ctx context.Context, productID int64) ([]models.Cart, error) {
	query := `
		SELECT ` + cartColumns + `
		FROM carts
		WHERE id IN (SELECT cart_id FROM cart_items WHERE product_id = $1)
		ORDER BY id`

	return r.listCarts(ctx, query, productID)
}

// attachItems loads the items of every cart in one query, joined with their
// products, preserving insertion order.
func (r *repo) attachItems(ctx context.Context, carts []models.Cart) error {
	if len(carts) == 0 {
		return nil
	}

	ids := make([]int64, len(carts))
	index := make(map[int64]int, len(carts))
	for i, c := range carts {
		ids[i] = c.ID
		index[c.ID] = i
		carts[i].Items = nil
	}

	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.unit_price, ci.discount, ci.created_at,
		       p.id, p.sku, p.name, p.description, p.quantity, p.price, p.discount, p.special_price,
		       p.created_at, p.updated_at, p.version
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ANY($1)
		ORDER BY ci.id`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.CartItem
		dest := []any{
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Discount,
			&item.CreatedAt,
		}
		dest = append(dest, productFields(&item.Product)...)
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan cart item: %w", err)
		}

		i := index[item.CartID]
		carts[i].Items = append(carts[i].Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

func (r *repo) SaveCart(ctx context.Context, cart *models.Cart) error {
	query := `
		UPDATE carts
		SET total_price = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING version, updated_at`

	err := r.q.QueryRowContext(ctx, query, cart.TotalPrice, cart.ID, cart.Version).Scan(&cart.Version, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrOptimisticLockFailed
		}
		return fmt.Errorf("save cart: %w", err)
	}

	return nil
}

func (r *repo) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity, unit_price, discount, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at`

	err := r.q.QueryRowContext(ctx, query,
		item.CartID,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
		item.Discount,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "cart_items_cart_id_product_id_key") {
			return models.ErrDuplicateCartItem.With("productId", item.ProductID)
		}
		return fmt.Errorf("create cart item: %w", err)
	}

	return nil
}

func (r *repo) SaveCartItem(ctx context.Context, item *models.CartItem) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE cart_items
		 SET quantity = $1, unit_price = $2, discount = $3
		 WHERE id = $4`,
		item.Quantity, item.UnitPrice, item.Discount, item.ID)
	if err != nil {
		return fmt.Errorf("save cart item: %w", err)
	}

	return expectOneRow(result, models.ErrItemNotInCart.With("cartItemId", item.ID))
}

func (r *repo) DeleteCartItem(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	return expectOneRow(result, models.ErrItemNotInCart.With("cartItemId", id))
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
