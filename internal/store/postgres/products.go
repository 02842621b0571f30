package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-cart-store/internal/database"
	"github.com/safar/go-cart-store/internal/models"
)

const productColumns = `id, sku, name, description, quantity, price, discount, special_price, created_at, updated_at, version`

type scanner interface {
	Scan(dest ...any) error
}

func productFields(p *models.Product) []any {
	return []any{
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.Quantity,
		&p.Price,
		&p.Discount,
		&p.SpecialPrice,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	}
}

func scanProduct(row scanner) (*models.Product, error) {
	product := &models.Product{}
	if err := row.Scan(productFields(product)...); err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repo) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (sku, name, description, quantity, price, discount, special_price, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
		RETURNING id, created_at, updated_at, version`

	err := r.q.QueryRowContext(ctx, query,
		product.SKU,
		product.Name,
		product.Description,
		product.Quantity,
		product.Price,
		product.Discount,
		product.SpecialPrice,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt, &product.Version)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (r *repo) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrProductNotFound.With("productId", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (r *repo) SaveProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, quantity = $3, price = $4, discount = $5, special_price = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8
		RETURNING version, updated_at`

	err := r.q.QueryRowContext(ctx, query,
		product.Name,
		product.Description,
		product.Quantity,
		product.Price,
		product.Discount,
		product.SpecialPrice,
		product.ID,
		product.Version,
	).Scan(&product.Version, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetProduct(ctx, product.ID); getErr != nil {
				return getErr
			}
			return database.ErrOptimisticLockFailed
		}
		return fmt.Errorf("save product: %w", err)
	}

	return nil
}

func (r *repo) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE products
		 SET quantity = quantity - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := r.GetProduct(ctx, productID); err != nil {
			return err
		}
		return models.ErrInsufficientStock.With("productId", productID)
	}

	return nil
}
