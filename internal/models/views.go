package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductView struct {
	ID           int64           `json:"product_id"`
	Name         string          `json:"product_name"`
	Description  string          `json:"description,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	SpecialPrice decimal.Decimal `json:"special_price"`
}

type CartView struct {
	CartID     int64           `json:"cart_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Products   []ProductView   `json:"products"`
}

type OrderItemView struct {
	OrderItemID         int64           `json:"order_item_id"`
	ProductID           int64           `json:"product_id"`
	Quantity            int             `json:"quantity"`
	Discount            decimal.Decimal `json:"discount"`
	OrderedProductPrice decimal.Decimal `json:"ordered_product_price"`
}

type PaymentView struct {
	PaymentID         int64  `json:"payment_id"`
	Method            string `json:"payment_method"`
	PGName            string `json:"pg_name"`
	PGPaymentID       string `json:"pg_payment_id"`
	PGStatus          string `json:"pg_status"`
	PGResponseMessage string `json:"pg_response_message"`
}

type OrderView struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Email       string          `json:"email"`
	OrderDate   time.Time       `json:"order_date"`
	Status      string          `json:"order_status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AddressID   int64           `json:"address_id"`
	Payment     PaymentView     `json:"payment"`
	Items       []OrderItemView `json:"order_items"`
}

func ProductToView(p Product) ProductView {
	return ProductView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Quantity:     p.Quantity,
		Price:        p.Price,
		Discount:     p.Discount,
		SpecialPrice: p.SpecialPrice,
	}
}

// CartToView projects the cart with each line showing the product's stock.
func CartToView(c Cart) CartView {
	products := make([]ProductView, 0, len(c.Items))
	for _, item := range c.Items {
		products = append(products, ProductToView(item.Product))
	}
	return CartView{CartID: c.ID, TotalPrice: c.TotalPrice, Products: products}
}

// CartToItemView is CartToView with each line's quantity replaced by the
// quantity held in the cart.
func CartToItemView(c Cart) CartView {
	view := CartToView(c)
	for i, item := range c.Items {
		view.Products[i].Quantity = item.Quantity
	}
	return view
}

func OrderItemToView(i OrderItem) OrderItemView {
	return OrderItemView{
		OrderItemID:         i.ID,
		ProductID:           i.ProductID,
		Quantity:            i.Quantity,
		Discount:            i.Discount,
		OrderedProductPrice: i.UnitPrice,
	}
}

func PaymentToView(p Payment) PaymentView {
	return PaymentView{
		PaymentID:         p.ID,
		Method:            p.Method,
		PGName:            p.PGName,
		PGPaymentID:       p.PGPaymentID,
		PGStatus:          p.PGStatus,
		PGResponseMessage: p.PGResponseMessage,
	}
}

func OrderToView(o Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemToView(item))
	}
	return OrderView{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Email:       o.Email,
		OrderDate:   o.OrderDate,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		AddressID:   o.AddressID,
		Payment:     PaymentToView(o.Payment),
		Items:       items,
	}
}
