package pricing

import (
	"github.com/safar/go-cart-store/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SpecialPrice returns price reduced by discountPercent percent.
func SpecialPrice(price, discountPercent decimal.Decimal) (decimal.Decimal, error) {
	if price.IsNegative() {
		return decimal.Zero, models.ErrInvalidPricingInput.Withf("price must not be negative, got %s", price)
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return decimal.Zero, models.ErrInvalidPricingInput.Withf("discount must be within [0, 100], got %s", discountPercent)
	}
	if discountPercent.IsZero() {
		return price, nil
	}

	return price.Sub(price.Mul(discountPercent).Div(hundred)), nil
}

// Apply recomputes p.SpecialPrice from p.Price and p.Discount.
func Apply(p *models.Product) error {
	special, err := SpecialPrice(p.Price, p.Discount)
	if err != nil {
		return err
	}
	p.SpecialPrice = special
	return nil
}
