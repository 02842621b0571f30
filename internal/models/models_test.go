package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWithMatchesSentinel(t *testing.T) {
	err := ErrCartNotFound.With("email", "a@b.c")

	assert.True(t, errors.Is(err, ErrCartNotFound))
	assert.False(t, errors.Is(err, ErrProductNotFound))
	assert.Equal(t, "Cart not found with email: a@b.c", err.Error())
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestErrorWrappedKeepsKind(t *testing.T) {
	err := fmt.Errorf("add item: %w", ErrDuplicateCartItem.Withf("Product %s already exists in the cart", "Lamp"))

	require.True(t, errors.Is(err, ErrDuplicateCartItem))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestErrorWithDoesNotMutateSentinel(t *testing.T) {
	_ = ErrInsufficientStock.With("productId", 7)

	assert.Equal(t, "insufficient stock", ErrInsufficientStock.Error())
	assert.Empty(t, ErrInsufficientStock.Field)
}

func TestCartLinesTotal(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(90)},
		{ProductID: 2, Quantity: 3, UnitPrice: decimal.RequireFromString("0.1")},
	}}

	assert.True(t, cart.LinesTotal().Equal(decimal.RequireFromString("180.3")))
	assert.Equal(t, 1, cart.ItemFor(2))
	assert.Equal(t, -1, cart.ItemFor(3))
}

func TestCartToItemViewOverlaysQuantity(t *testing.T) {
	cart := Cart{
		ID:         4,
		TotalPrice: decimal.NewFromInt(180),
		Items: []CartItem{{
			ProductID: 1,
			Quantity:  2,
			UnitPrice: decimal.NewFromInt(90),
			Product:   Product{ID: 1, Name: "Lamp", Quantity: 50},
		}},
	}

	stock := CartToView(cart)
	held := CartToItemView(cart)

	assert.Equal(t, 50, stock.Products[0].Quantity)
	assert.Equal(t, 2, held.Products[0].Quantity)
	assert.Equal(t, int64(4), held.CartID)
	assert.Equal(t, "Lamp", held.Products[0].Name)
}

func TestOrderToView(t *testing.T) {
	order := Order{
		ID:          9,
		AddressID:   3,
		Status:      OrderStatusAccepted,
		TotalAmount: decimal.NewFromInt(180),
		Payment:     Payment{ID: 2, Method: "card", PGName: "stripe"},
		Items:       []OrderItem{{ID: 11, ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(90)}},
	}

	view := OrderToView(order)

	assert.Equal(t, int64(3), view.AddressID)
	assert.Equal(t, "stripe", view.Payment.PGName)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Items[0].OrderedProductPrice.Equal(decimal.NewFromInt(90)))
}
