package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/safar/go-cart-store/internal/inventory"
	"github.com/safar/go-cart-store/internal/metrics"
	"github.com/safar/go-cart-store/internal/models"
	"github.com/safar/go-cart-store/internal/store"
)

// Service maintains cart lines and keeps every cart's TotalPrice equal to
// the sum of its lines' unit price times quantity.
type Service struct {
	store   store.Store
	log     *log.Entry
	metrics *metrics.Metrics
}

func NewService(s store.Store, logger *log.Entry, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		store:   s,
		log:     logger.WithField("component", "cart"),
		metrics: m,
	}
}

// AddItem puts a new line for productID into the owner's cart, creating the
// cart on first use. Changing the quantity of an existing line goes through
// UpdateItem.
func (s *Service) AddItem(ctx context.Context, ownerID, productID int64, quantity int) (view *models.CartView, err error) {
	defer func() { s.metrics.RecordCartOperation("add", err) }()

	if quantity < 1 {
		return nil, models.ErrInvalidQuantity.Withf("quantity must be at least 1, got %d", quantity)
	}

	err = s.store.InTx(ctx, func(r store.Repository) error {
		cart, err := s.cartFor(ctx, r, ownerID)
		if err != nil {
			return err
		}

		product, err := r.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		if cart.ItemFor(productID) >= 0 {
			return models.ErrDuplicateCartItem.Withf("Product %s already exists in the cart", product.Name)
		}

		if err := inventory.EnsureAvailable(product, quantity); err != nil {
			return err
		}

		item := models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			UnitPrice: product.SpecialPrice,
			Discount:  product.Discount,
		}
		if err := r.CreateCartItem(ctx, &item); err != nil {
			return err
		}
		item.Product = *product

		cart.Items = append(cart.Items, item)
		cart.TotalPrice = cart.TotalPrice.Add(item.Line())
		if err := r.SaveCart(ctx, cart); err != nil {
			return err
		}

		v := models.CartToItemView(*cart)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{
		"user_id":    ownerID,
		"cart_id":    view.CartID,
		"product_id": productID,
		"quantity":   quantity,
	}).Info("item added to cart")

	return view, nil
}

// cartFor returns the owner's cart, creating an empty one if none exists.
func (s *Service) cartFor(ctx context.Context, r store.Repository, ownerID int64) (*models.Cart, error) {
	cart, err := r.GetCartByUser(ctx, ownerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, models.ErrCartNotFound) {
		return nil, err
	}

	user, err := r.GetUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	cart = &models.Cart{UserID: user.ID, Email: user.Email, TotalPrice: decimal.Zero}
	if err := r.CreateCart(ctx, cart); err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"user_id": ownerID, "cart_id": cart.ID}).Debug("cart created")
	return cart, nil
}

// UpdateItem changes the quantity of an existing line by delta and refreshes
// its price from the product. A line whose quantity reaches zero is removed.
// Stock is checked against the resulting quantity, and only when delta adds
// units.
func (s *Service) UpdateItem(ctx context.Context, ownerID, productID int64, delta int) (view *models.CartView, err error) {
	defer func() { s.metrics.RecordCartOperation("update", err) }()

	if delta == 0 {
		return nil, models.ErrInvalidQuantity.Withf("quantity change must not be zero")
	}

	var removed bool
	err = s.store.InTx(ctx, func(r store.Repository) error {
		removed = false

		cart, err := r.GetCartByUser(ctx, ownerID)
		if err != nil {
			return err
		}

		product, err := r.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		idx := cart.ItemFor(productID)
		if idx < 0 {
			return models.ErrItemNotInCart.Withf("Product %s not available in the cart!!", product.Name)
		}
		item := &cart.Items[idx]

		newQuantity := item.Quantity + delta
		if newQuantity < 0 {
			return models.ErrInvalidQuantity.Withf(
				"cannot remove %d of %s, cart holds %d", -delta, product.Name, item.Quantity)
		}
		if delta > 0 {
			if err := inventory.EnsureAvailable(product, newQuantity); err != nil {
				return err
			}
		}

		if newQuantity == 0 {
			if err := removeLine(ctx, r, cart, idx); err != nil {
				return err
			}
			removed = true
		} else {
			previous := item.Line()
			item.Quantity = newQuantity
			item.UnitPrice = product.SpecialPrice
			item.Discount = product.Discount
			item.Product = *product

			if err := r.SaveCartItem(ctx, item); err != nil {
				return err
			}
			cart.TotalPrice = cart.TotalPrice.Sub(previous).Add(item.Line())
			if err := r.SaveCart(ctx, cart); err != nil {
				return err
			}
		}

		v := models.CartToItemView(*cart)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{
		"user_id":    ownerID,
		"cart_id":    view.CartID,
		"product_id": productID,
		"delta":      delta,
		"removed":    removed,
	}).Info("cart item updated")

	return view, nil
}

// RemoveItem deletes the line for productID from the cart and returns a
// confirmation naming the product.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID int64) (msg string, err error) {
	defer func() { s.metrics.RecordCartOperation("remove", err) }()

	err = s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		msg, err = s.RemoveItemWith(ctx, r, cartID, productID)
		return err
	})
	if err != nil {
		return "", err
	}

	s.log.WithFields(log.Fields{"cart_id": cartID, "product_id": productID}).Info("item removed from cart")
	return msg, nil
}

// RemoveItemWith is RemoveItem inside the caller's transaction.
func (s *Service) RemoveItemWith(ctx context.Context, r store.Repository, cartID, productID int64) (string, error) {
	cart, err := r.GetCart(ctx, cartID)
	if err != nil {
		return "", err
	}

	idx := cart.ItemFor(productID)
	if idx < 0 {
		return "", models.ErrItemNotInCart.With("productId", productID)
	}
	name := cart.Items[idx].Product.Name

	if err := removeLine(ctx, r, cart, idx); err != nil {
		return "", err
	}

	return fmt.Sprintf("Product %s removed from the cart !!!", name), nil
}

func removeLine(ctx context.Context, r store.Repository, cart *models.Cart, idx int) error {
	item := cart.Items[idx]

	if err := r.DeleteCartItem(ctx, item.ID); err != nil {
		return err
	}

	cart.Items = slices.Delete(cart.Items, idx, idx+1)
	cart.TotalPrice = cart.TotalPrice.Sub(item.Line())
	return r.SaveCart(ctx, cart)
}

// ResyncItemPrice reprices the cart's line for productID at the product's
// current special price. Repeating it without a product change is a no-op.
func (s *Service) ResyncItemPrice(ctx context.Context, cartID, productID int64) (err error) {
	defer func() { s.metrics.RecordCartOperation("resync", err) }()

	var changed bool
	err = s.store.InTx(ctx, func(r store.Repository) error {
		changed = false

		cart, err := r.GetCart(ctx, cartID)
		if err != nil {
			return err
		}

		idx := cart.ItemFor(productID)
		if idx < 0 {
			return models.ErrItemNotInCart.With("productId", productID)
		}

		product, err := r.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		item := &cart.Items[idx]
		if item.UnitPrice.Equal(product.SpecialPrice) && item.Discount.Equal(product.Discount) {
			return nil
		}

		previous := item.Line()
		item.UnitPrice = product.SpecialPrice
		item.Discount = product.Discount
		if err := r.SaveCartItem(ctx, item); err != nil {
			return err
		}

		cart.TotalPrice = cart.TotalPrice.Sub(previous).Add(item.Line())
		if err := r.SaveCart(ctx, cart); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		s.log.WithFields(log.Fields{"cart_id": cartID, "product_id": productID}).Info("cart item repriced")
	}
	return nil
}

// ListCarts returns every cart; each line shows the product's stock on hand.
func (s *Service) ListCarts(ctx context.Context) ([]models.CartView, error) {
	var views []models.CartView
	err := s.store.View(ctx, func(r store.Repository) error {
		carts, err := r.ListCarts(ctx)
		if err != nil {
			return err
		}
		if len(carts) == 0 {
			return models.ErrNoCarts
		}

		views = make([]models.CartView, 0, len(carts))
		for _, c := range carts {
			views = append(views, models.CartToView(c))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("carts", len(views)).Debug("carts listed")
	return views, nil
}

// GetCart returns the cart identified by both email and id, with each line
// showing the quantity held in the cart.
func (s *Service) GetCart(ctx context.Context, email string, cartID int64) (*models.CartView, error) {
	var view models.CartView
	err := s.store.View(ctx, func(r store.Repository) error {
		cart, err := r.GetCartByEmailAndID(ctx, email, cartID)
		if err != nil {
			return err
		}
		view = models.CartToItemView(*cart)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &view, nil
}
