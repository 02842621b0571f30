package store

import (
	"context"

	"github.com/safar/go-cart-store/internal/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, email, name string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AddressStore interface {
	CreateAddress(ctx context.Context, address *models.Address) error
	GetAddress(ctx context.Context, id int64) (*models.Address, error)
}

type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	// SaveProduct writes product if its Version is still current and bumps it.
	SaveProduct(ctx context.Context, product *models.Product) error
	// DecrementStock takes quantity units only if that many are on hand,
	// failing with models.ErrInsufficientStock otherwise.
	DecrementStock(ctx context.Context, productID int64, quantity int) error
}

// CartStore returns carts with Items loaded in insertion order and each
// item's Product populated.
type CartStore interface {
	CreateCart(ctx context.Context, cart *models.Cart) error
	GetCart(ctx context.Context, id int64) (*models.Cart, error)
	GetCartByUser(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartByEmail(ctx context.Context, email string) (*models.Cart, error)
	GetCartByEmailAndID(ctx context.Context, email string, id int64) (*models.Cart, error)
	ListCarts(ctx context.Context) ([]models.Cart, error)
	// FindCartsByProduct returns every cart holding a line for productID.
	FindCartsByProduct(ctx context.Context, productID int64) ([]models.Cart, error)
	// SaveCart persists TotalPrice if the cart's Version is still current.
	SaveCart(ctx context.Context, cart *models.Cart) error

	CreateCartItem(ctx context.Context, item *models.CartItem) error
	SaveCartItem(ctx context.Context, item *models.CartItem) error
	DeleteCartItem(ctx context.Context, id int64) error
}

type OrderStore interface {
	// CreateOrder inserts the order and its payment, setting both IDs and
	// linking Payment.OrderID.
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersCursor(ctx context.Context, email, cursor string, limit int) (*CursorPage[models.Order], error)
}

type Repository interface {
	UserStore
	AddressStore
	ProductStore
	CartStore
	OrderStore
}

// Store hands out Repositories scoped to a transaction. Writes made through
// the Repository passed to InTx commit together when fn returns nil and are
// discarded otherwise. fn may be invoked more than once when the underlying
// store retries a conflicting transaction.
type Store interface {
	InTx(ctx context.Context, fn func(Repository) error) error
	View(ctx context.Context, fn func(Repository) error) error
}
