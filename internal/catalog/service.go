package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/safar/go-cart-store/internal/models"
	"github.com/safar/go-cart-store/internal/pricing"
	"github.com/safar/go-cart-store/internal/store"
)

type NewProduct struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
}

// ProductUpdate changes only the fields that are set.
type ProductUpdate struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
}

// Service is the product edit entry point. Price or discount edits are
// pushed into every cart holding the product.
type Service struct {
	store      store.Store
	propagator *Propagator
	log        *log.Entry
}

func NewService(s store.Store, propagator *Propagator, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		store:      s,
		propagator: propagator,
		log:        logger.WithField("component", "catalog"),
	}
}

func (s *Service) CreateProduct(ctx context.Context, in NewProduct) (*models.ProductView, error) {
	product := models.Product{
		SKU:         strings.TrimSpace(in.SKU),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Quantity:    in.Quantity,
		Price:       in.Price,
		Discount:    in.Discount,
	}
	if err := validate(&product); err != nil {
		return nil, err
	}

	err := s.store.InTx(ctx, func(r store.Repository) error {
		return r.CreateProduct(ctx, &product)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"product_id": product.ID, "sku": product.SKU}).Info("product created")
	view := models.ProductToView(product)
	return &view, nil
}

// UpdateProduct applies upd and saves the product. When the price or
// discount changed, the new special price is propagated to carts after the
// product is committed; the returned report lists the outcome per cart.
func (s *Service) UpdateProduct(ctx context.Context, id int64, upd ProductUpdate) (*models.ProductView, *Report, error) {
	var (
		product  models.Product
		repriced bool
	)
	err := s.store.InTx(ctx, func(r store.Repository) error {
		current, err := r.GetProduct(ctx, id)
		if err != nil {
			return err
		}

		before := current.SpecialPrice
		beforeDiscount := current.Discount
		apply(current, upd)
		if err := validate(current); err != nil {
			return err
		}
		if err := r.SaveProduct(ctx, current); err != nil {
			return err
		}

		repriced = !before.Equal(current.SpecialPrice) || !beforeDiscount.Equal(current.Discount)
		product = *current
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.WithFields(log.Fields{
		"product_id": id,
		"repriced":   repriced,
		"version":    product.Version,
	}).Info("product updated")

	view := models.ProductToView(product)
	if !repriced || s.propagator == nil {
		return &view, nil, nil
	}

	report, err := s.propagator.ProductPriceChanged(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("product_id", id).Error("price propagation failed")
		return &view, nil, err
	}
	return &view, report, nil
}

func apply(p *models.Product, upd ProductUpdate) {
	if upd.Name != nil {
		p.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Quantity != nil {
		p.Quantity = *upd.Quantity
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Discount != nil {
		p.Discount = *upd.Discount
	}
}

// validate checks p and recomputes its special price.
func validate(p *models.Product) error {
	if p.Name == "" {
		return models.ErrInvalidRequest.Withf("product name is required")
	}
	if p.Quantity < 0 {
		return models.ErrInvalidRequest.Withf("quantity must not be negative, got %d", p.Quantity)
	}
	return pricing.Apply(p)
}
