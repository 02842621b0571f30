package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-cart-store/internal/models"
)

func (r *repo) CreateUser(ctx context.Context, email, name string) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (email, name, created_at, updated_at, version)
		VALUES ($1, $2, NOW(), NOW(), 1)
		RETURNING id, email, name, created_at, updated_at, version`

	err := r.q.QueryRowContext(ctx, query, email, name).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (r *repo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := r.getUser(ctx, "id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound.With("userId", id)
	}
	return user, err
}

func (r *repo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.getUser(ctx, "email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound.With("email", email)
	}
	return user, err
}

func (r *repo) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, email, name, created_at, updated_at, version
		FROM users
		WHERE ` + where

	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (r *repo) CreateAddress(ctx context.Context, address *models.Address) error {
	query := `
		INSERT INTO addresses (user_id, street, building_name, city, state, country, pincode, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`

	err := r.q.QueryRowContext(ctx, query,
		address.UserID,
		address.Street,
		address.BuildingName,
		address.City,
		address.State,
		address.Country,
		address.Pincode,
	).Scan(&address.ID, &address.CreatedAt)
	if err != nil {
		return fmt.Errorf("create address: %w", err)
	}

	return nil
}

func (r *repo) GetAddress(ctx context.Context, id int64) (*models.Address, error) {
	address := &models.Address{}

	query := `
		SELECT id, user_id, street, building_name, city, state, country, pincode, created_at
		FROM addresses
		WHERE id = $1`

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&address.ID,
		&address.UserID,
		&address.Street,
		&address.BuildingName,
		&address.City,
		&address.State,
		&address.Country,
		&address.Pincode,
		&address.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAddressNotFound.With("addressId", id)
		}
		return nil, fmt.Errorf("get address: %w", err)
	}

	return address, nil
}
