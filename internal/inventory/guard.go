package inventory

import "github.com/safar/go-cart-store/internal/models"

// EnsureAvailable checks requested against the product's stock on hand.
// Nothing is reserved; stock is only taken by the conditional decrement at
// checkout.
func EnsureAvailable(p *models.Product, requested int) error {
	if p.Quantity <= 0 {
		return models.ErrOutOfStock.Withf("%s is not available", p.Name)
	}
	if p.Quantity < requested {
		return models.ErrInsufficientStock.Withf(
			"Please, make an order of the %s less than or equal to the quantity %d.", p.Name, p.Quantity)
	}
	return nil
}
