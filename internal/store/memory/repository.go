package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/safar/go-cart-store/internal/database"
	"github.com/safar/go-cart-store/internal/models"
	"github.com/safar/go-cart-store/internal/store"
)

type repo struct {
	st       *state
	readOnly bool
}

func (r *repo) writable() error {
	if r.readOnly {
		return errReadOnly
	}
	return nil
}

func (r *repo) CreateUser(_ context.Context, email, name string) (*models.User, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	for _, u := range r.st.users {
		if u.Email == email {
			return nil, fmt.Errorf("create user: email %q already registered", email)
		}
	}

	ts := now()
	user := models.User{ID: r.st.nextID(), Email: email, Name: name, CreatedAt: ts, UpdatedAt: ts, Version: 1}
	r.st.users[user.ID] = user
	return &user, nil
}

func (r *repo) GetUser(_ context.Context, id int64) (*models.User, error) {
	user, ok := r.st.users[id]
	if !ok {
		return nil, models.ErrUserNotFound.With("userId", id)
	}
	return &user, nil
}

func (r *repo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound.With("email", email)
}

func (r *repo) CreateAddress(_ context.Context, address *models.Address) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.users[address.UserID]; !ok {
		return models.ErrUserNotFound.With("userId", address.UserID)
	}

	address.ID = r.st.nextID()
	address.CreatedAt = now()
	r.st.addresses[address.ID] = *address
	return nil
}

func (r *repo) GetAddress(_ context.Context, id int64) (*models.Address, error) {
	address, ok := r.st.addresses[id]
	if !ok {
		return nil, models.ErrAddressNotFound.With("addressId", id)
	}
	return &address, nil
}

func (r *repo) CreateProduct(_ context.Context, product *models.Product) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, p := range r.st.products {
		if product.SKU != "" && p.SKU == product.SKU {
			return fmt.Errorf("create product: sku %q already exists", product.SKU)
		}
	}

	ts := now()
	product.ID = r.st.nextID()
	product.CreatedAt = ts
	product.UpdatedAt = ts
	product.Version = 1
	r.st.products[product.ID] = *product
	return nil
}

func (r *repo) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	product, ok := r.st.products[id]
	if !ok {
		return nil, models.ErrProductNotFound.With("productId", id)
	}
	return &product, nil
}

func (r *repo) SaveProduct(_ context.Context, product *models.Product) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.st.products[product.ID]
	if !ok {
		return models.ErrProductNotFound.With("productId", product.ID)
	}
	if current.Version != product.Version {
		return database.ErrOptimisticLockFailed
	}

	product.Version++
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = now()
	r.st.products[product.ID] = *product
	return nil
}

func (r *repo) DecrementStock(_ context.Context, productID int64, quantity int) error {
	if err := r.writable(); err != nil {
		return err
	}
	product, ok := r.st.products[productID]
	if !ok {
		return models.ErrProductNotFound.With("productId", productID)
	}
	if product.Quantity < quantity {
		return models.ErrInsufficientStock.With("productId", productID)
	}

	product.Quantity -= quantity
	product.Version++
	product.UpdatedAt = now()
	r.st.products[productID] = product
	return nil
}

func (r *repo) CreateCart(_ context.Context, cart *models.Cart) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, c := range r.st.carts {
		if c.UserID == cart.UserID {
			return fmt.Errorf("create cart: user %d already has cart %d", cart.UserID, c.ID)
		}
	}

	ts := now()
	cart.ID = r.st.nextID()
	cart.CreatedAt = ts
	cart.UpdatedAt = ts
	cart.Version = 1
	cart.Items = nil

	r.st.carts[cart.ID] = *cart
	return nil
}

// load returns c with its items attached in insertion order.
func (r *repo) load(c models.Cart) models.Cart {
	var items []models.CartItem
	for _, item := range r.st.cartItems {
		if item.CartID != c.ID {
			continue
		}
		item.Product = r.st.products[item.ProductID]
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	c.Items = items
	return c
}

func (r *repo) findCart(match func(models.Cart) bool) (*models.Cart, bool) {
	for _, c := range r.st.carts {
		if match(c) {
			loaded := r.load(c)
			return &loaded, true
		}
	}
	return nil, false
}

func (r *repo) GetCart(_ context.Context, id int64) (*models.Cart, error) {
	cart, ok := r.st.carts[id]
	if !ok {
		return nil, models.ErrCartNotFound.With("cartId", id)
	}
	loaded := r.load(cart)
	return &loaded, nil
}

func (r *repo) GetCartByUser(_ context.Context, userID int64) (*models.Cart, error) {
	cart, ok := r.findCart(func(c models.Cart) bool { return c.UserID == userID })
	if !ok {
		return nil, models.ErrCartNotFound.With("userId", userID)
	}
	return cart, nil
}

func (r *repo) GetCartByEmail(_ context.Context, email string) (*models.Cart, error) {
	cart, ok := r.findCart(func(c models.Cart) bool { return c.Email == email })
	if !ok {
		return nil, models.ErrCartNotFound.With("email", email)
	}
	return cart, nil
}

func (r *repo) GetCartByEmailAndID(_ context.Context, email string, id int64) (*models.Cart, error) {
	cart, ok := r.st.carts[id]
	if !ok || cart.Email != email {
		return nil, models.ErrCartNotFound.With("cartId", id)
	}
	loaded := r.load(cart)
	return &loaded, nil
}

func (r *repo) sortedCarts(match func(models.Cart) bool) []models.Cart {
	ids := make([]int64, 0, len(r.st.carts))
	for id := range r.st.carts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	carts := make([]models.Cart, 0)
	for _, id := range ids {
		c := r.load(r.st.carts[id])
		if match(c) {
			carts = append(carts, c)
		}
	}
	return carts
}

func (r *repo) ListCarts(_ context.Context) ([]models.Cart, error) {
	return r.sortedCarts(func(models.Cart) bool { return true }), nil
}

func (r *repo) FindCartsByProduct(_ context.Context, productID int64) ([]models.Cart, error) {
	return r.sortedCarts(func(c models.Cart) bool { return c.ItemFor(productID) >= 0 }), nil
}

func (r *repo) SaveCart(_ context.Context, cart *models.Cart) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.st.carts[cart.ID]
	if !ok {
		return models.ErrCartNotFound.With("cartId", cart.ID)
	}
	if current.Version != cart.Version {
		return database.ErrOptimisticLockFailed
	}

	current.TotalPrice = cart.TotalPrice
	current.Version++
	current.UpdatedAt = now()
	r.st.carts[cart.ID] = current

	cart.Version = current.Version
	cart.UpdatedAt = current.UpdatedAt
	return nil
}

func (r *repo) CreateCartItem(_ context.Context, item *models.CartItem) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.carts[item.CartID]; !ok {
		return models.ErrCartNotFound.With("cartId", item.CartID)
	}
	if item.Quantity < 1 {
		return models.ErrInvalidQuantity.With("quantity", item.Quantity)
	}
	for _, existing := range r.st.cartItems {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			return models.ErrDuplicateCartItem.With("productId", item.ProductID)
		}
	}

	item.ID = r.st.nextID()
	item.CreatedAt = now()

	stored := *item
	stored.Product = models.Product{}
	r.st.cartItems[item.ID] = stored
	return nil
}

func (r *repo) SaveCartItem(_ context.Context, item *models.CartItem) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.st.cartItems[item.ID]
	if !ok {
		return models.ErrItemNotInCart.With("cartItemId", item.ID)
	}
	if item.Quantity < 1 {
		return models.ErrInvalidQuantity.With("quantity", item.Quantity)
	}

	current.Quantity = item.Quantity
	current.UnitPrice = item.UnitPrice
	current.Discount = item.Discount
	r.st.cartItems[item.ID] = current
	return nil
}

func (r *repo) DeleteCartItem(_ context.Context, id int64) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.cartItems[id]; !ok {
		return models.ErrItemNotInCart.With("cartItemId", id)
	}
	delete(r.st.cartItems, id)
	return nil
}

func (r *repo) CreateOrder(_ context.Context, order *models.Order) error {
	if err := r.writable(); err != nil {
		return err
	}

	ts := now()
	order.ID = r.st.nextID()
	order.CreatedAt = ts
	order.Payment.ID = r.st.nextID()
	order.Payment.OrderID = order.ID
	order.Payment.CreatedAt = ts

	stored := *order
	stored.Items = nil
	r.st.orders[order.ID] = stored
	return nil
}

func (r *repo) CreateOrderItems(_ context.Context, items []models.OrderItem) error {
	if err := r.writable(); err != nil {
		return err
	}

	ts := now()
	for i := range items {
		if _, ok := r.st.orders[items[i].OrderID]; !ok {
			return models.ErrOrderNotFound.With("orderId", items[i].OrderID)
		}
		items[i].ID = r.st.nextID()
		items[i].CreatedAt = ts
		r.st.orderItems[items[i].ID] = items[i]
	}
	return nil
}

func (r *repo) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	order, ok := r.st.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound.With("orderId", id)
	}

	for _, item := range r.st.orderItems {
		if item.OrderID == id {
			order.Items = append(order.Items, item)
		}
	}
	sort.Slice(order.Items, func(i, j int) bool { return order.Items[i].ID < order.Items[j].ID })
	return &order, nil
}

func (r *repo) ListOrdersCursor(_ context.Context, email, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	position, err := store.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	for _, o := range r.st.orders {
		if o.Email == email && position.Before(o.CreatedAt, o.ID) {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	page := &store.CursorPage[models.Order]{Items: orders, HasMore: hasMore}
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		page.NextCursor = store.EncodeCursor(store.OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

var _ store.Repository = (*repo)(nil)
