package models

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindInvalidState
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a typed domain failure. Two errors match under errors.Is when
// their codes are equal, so detailed copies still match their sentinel.
type Error struct {
	Kind   Kind
	Code   string
	Entity string
	Field  string
	Key    any
	Msg    string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy of e identifying the offending entity by field and key.
func (e *Error) With(field string, key any) *Error {
	c := *e
	c.Field = field
	c.Key = key
	if e.Kind == KindNotFound {
		c.Msg = fmt.Sprintf("%s not found with %s: %v", e.Entity, field, key)
	} else {
		c.Msg = fmt.Sprintf("%s (%s: %v)", e.Msg, field, key)
	}
	return &c
}

// Withf returns a copy of e with a custom message.
func (e *Error) Withf(format string, args ...any) *Error {
	c := *e
	c.Msg = fmt.Sprintf(format, args...)
	return &c
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func notFound(code, entity string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Entity: entity, Msg: entity + " not found"}
}

var (
	ErrUserNotFound    = notFound("user_not_found", "User")
	ErrProductNotFound = notFound("product_not_found", "Product")
	ErrCartNotFound    = notFound("cart_not_found", "Cart")
	ErrAddressNotFound = notFound("address_not_found", "Address")
	ErrOrderNotFound   = notFound("order_not_found", "Order")
	ErrItemNotInCart   = notFound("item_not_in_cart", "CartItem")
	ErrNoCarts         = &Error{Kind: KindNotFound, Code: "no_carts", Entity: "Cart", Msg: "No carts exist"}

	ErrDuplicateCartItem = &Error{Kind: KindConflict, Code: "duplicate_cart_item", Entity: "CartItem", Msg: "product already exists in the cart"}

	ErrOutOfStock        = &Error{Kind: KindInvalidState, Code: "out_of_stock", Entity: "Product", Msg: "product is not available"}
	ErrInsufficientStock = &Error{Kind: KindInvalidState, Code: "insufficient_stock", Entity: "Product", Msg: "insufficient stock"}
	ErrEmptyCart         = &Error{Kind: KindInvalidState, Code: "empty_cart", Entity: "Cart", Msg: "cart is empty"}
	ErrInvalidQuantity   = &Error{Kind: KindInvalidState, Code: "invalid_quantity", Entity: "CartItem", Msg: "invalid quantity"}

	ErrInvalidPricingInput = &Error{Kind: KindValidation, Code: "invalid_pricing_input", Entity: "Product", Msg: "invalid pricing input"}
	ErrInvalidCursor       = &Error{Kind: KindValidation, Code: "invalid_cursor", Entity: "Order", Msg: "invalid cursor"}
	ErrInvalidRequest      = &Error{Kind: KindValidation, Code: "invalid_request", Msg: "invalid request"}
)
