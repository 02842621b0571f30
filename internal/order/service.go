package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/safar/go-cart-store/internal/cart"
	"github.com/safar/go-cart-store/internal/inventory"
	"github.com/safar/go-cart-store/internal/metrics"
	"github.com/safar/go-cart-store/internal/models"
	"github.com/safar/go-cart-store/internal/store"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PlaceOrderRequest carries the buyer's email, the shipping address and the
// payment gateway's result for the checkout.
type PlaceOrderRequest struct {
	Email             string `json:"email"`
	AddressID         int64  `json:"address_id"`
	PaymentMethod     string `json:"payment_method"`
	PGName            string `json:"pg_name"`
	PGPaymentID       string `json:"pg_payment_id"`
	PGStatus          string `json:"pg_status"`
	PGResponseMessage string `json:"pg_response_message"`
}

type Service struct {
	store   store.Store
	carts   *cart.Service
	log     *log.Entry
	metrics *metrics.Metrics

	now         func() time.Time
	orderNumber func() string
}

func NewService(s store.Store, carts *cart.Service, logger *log.Entry, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		store:       s,
		carts:       carts,
		log:         logger.WithField("component", "order"),
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
		orderNumber: func() string { return "ORD-" + uuid.NewString() },
	}
}

// PlaceOrder converts the buyer's cart into an order. The order, its payment
// and item snapshot, the stock decrements and the emptying of the cart commit
// together or not at all.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (view *models.OrderView, err error) {
	defer func() {
		if err != nil {
			s.metrics.RecordCheckoutFailure(err)
		}
	}()

	if req.Email == "" {
		return nil, models.ErrInvalidRequest.Withf("email is required")
	}

	var placed models.Order
	err = s.store.InTx(ctx, func(r store.Repository) error {
		c, err := r.GetCartByEmail(ctx, req.Email)
		if err != nil {
			return err
		}

		address, err := r.GetAddress(ctx, req.AddressID)
		if err != nil {
			return err
		}

		if len(c.Items) == 0 {
			return models.ErrEmptyCart.Withf("Cart is empty")
		}

		order := models.Order{
			OrderNumber: s.orderNumber(),
			Email:       req.Email,
			AddressID:   address.ID,
			Status:      models.OrderStatusAccepted,
			TotalAmount: c.TotalPrice,
			OrderDate:   s.now(),
			Payment: models.Payment{
				Method:            req.PaymentMethod,
				PGName:            req.PGName,
				PGPaymentID:       req.PGPaymentID,
				PGStatus:          req.PGStatus,
				PGResponseMessage: req.PGResponseMessage,
			},
		}
		if err := r.CreateOrder(ctx, &order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(c.Items))
		for _, line := range c.Items {
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Discount:  line.Discount,
				Subtotal:  line.Line(),
			})
		}
		if err := r.CreateOrderItems(ctx, items); err != nil {
			return err
		}
		order.Items = items

		for _, line := range c.Items {
			if err := inventory.EnsureAvailable(&line.Product, line.Quantity); err != nil {
				return err
			}
			if err := r.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			if _, err := s.carts.RemoveItemWith(ctx, r, c.ID, line.ProductID); err != nil {
				return err
			}
		}

		placed = order
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithField("email", req.Email).Warn("checkout failed")
		return nil, err
	}

	s.metrics.RecordOrderPlaced(placed.TotalAmount.InexactFloat64())
	s.log.WithFields(log.Fields{
		"order_id":     placed.ID,
		"order_number": placed.OrderNumber,
		"email":        placed.Email,
		"total":        placed.TotalAmount.String(),
		"items":        len(placed.Items),
	}).Info("order placed")

	v := models.OrderToView(placed)
	return &v, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*models.OrderView, error) {
	var view models.OrderView
	err := s.store.View(ctx, func(r store.Repository) error {
		order, err := r.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		view = models.OrderToView(*order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListOrders pages through the buyer's orders newest first. An empty cursor
// starts at the newest order.
func (s *Service) ListOrders(ctx context.Context, email, cursor string, limit int) (*store.CursorPage[models.OrderView], error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if _, err := store.DecodeCursor(cursor); err != nil {
		return nil, models.ErrInvalidCursor.Withf("invalid cursor: %v", err)
	}

	var page *store.CursorPage[models.OrderView]
	err := s.store.View(ctx, func(r store.Repository) error {
		orders, err := r.ListOrdersCursor(ctx, email, cursor, limit)
		if err != nil {
			return err
		}

		views := make([]models.OrderView, 0, len(orders.Items))
		for _, o := range orders.Items {
			views = append(views, models.OrderToView(o))
		}
		page = &store.CursorPage[models.OrderView]{
			Items:      views,
			NextCursor: orders.NextCursor,
			HasMore:    orders.HasMore,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}
