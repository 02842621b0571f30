package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Address struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Street       string    `json:"street"`
	BuildingName string    `json:"building_name"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Country      string    `json:"country"`
	Pincode      string    `json:"pincode"`
	CreatedAt    time.Time `json:"created_at"`
}

// Product is owned by the catalog. Discount is a percentage in [0, 100] and
// SpecialPrice is always Price reduced by Discount.
type Product struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	SpecialPrice decimal.Decimal `json:"special_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

type Cart struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Email      string          `json:"email"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []CartItem      `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Version    int             `json:"version"`
}

// CartItem snapshots the unit price and discount of its product. Product is
// populated by the store on reads and is never written through the item.
type CartItem struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	CreatedAt time.Time       `json:"created_at"`
	Product   Product         `json:"-"`
}

type Order struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	Email       string          `json:"email"`
	AddressID   int64           `json:"address_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OrderDate   time.Time       `json:"order_date"`
	CreatedAt   time.Time       `json:"created_at"`
	Payment     Payment         `json:"payment"`
	Items       []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

type Payment struct {
	ID                int64     `json:"id"`
	OrderID           int64     `json:"order_id"`
	Method            string    `json:"method"`
	PGName            string    `json:"pg_name"`
	PGPaymentID       string    `json:"pg_payment_id"`
	PGStatus          string    `json:"pg_status"`
	PGResponseMessage string    `json:"pg_response_message"`
	CreatedAt         time.Time `json:"created_at"`
}

const OrderStatusAccepted = "Order accepted"

// Line returns the extension of a cart item: unit price times quantity.
func (i CartItem) Line() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemFor returns the index of the item holding productID, or -1.
func (c *Cart) ItemFor(productID int64) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// LinesTotal sums item extensions in insertion order.
func (c *Cart) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Line())
	}
	return total
}
