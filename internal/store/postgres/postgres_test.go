package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/safar/go-cart-store/internal/cart"
	"github.com/safar/go-cart-store/internal/catalog"
	"github.com/safar/go-cart-store/internal/database"
	"github.com/safar/go-cart-store/internal/models"
	"github.com/safar/go-cart-store/internal/order"
	"github.com/safar/go-cart-store/internal/store"
	"github.com/safar/go-cart-store/internal/store/postgres"
)

type services struct {
	store   *postgres.Store
	carts   *cart.Service
	orders  *order.Service
	catalog *catalog.Service
}

func setupServices(t *testing.T) *services {
	t.Helper()
	s := postgres.New(setupTestDB(t), 5)
	carts := cart.NewService(s, nil, nil)
	return &services{
		store:   s,
		carts:   carts,
		orders:  order.NewService(s, carts, nil, nil),
		catalog: catalog.NewService(s, catalog.NewPropagator(s, carts, 4, nil, nil), nil),
	}
}

func createBuyer(t *testing.T, s store.Store, email string) (*models.User, *models.Address) {
	t.Helper()
	ctx := context.Background()

	var (
		user    *models.User
		address *models.Address
	)
	err := s.InTx(ctx, func(r store.Repository) error {
		var err error
		user, err = r.CreateUser(ctx, email, "Test User")
		if err != nil {
			return err
		}
		address = &models.Address{UserID: user.ID, Street: "1 Main St", City: "Springfield", Country: "US", Pincode: "12345"}
		return r.CreateAddress(ctx, address)
	})
	if err != nil {
		t.Fatalf("Create buyer: %v", err)
	}
	return user, address
}

func createProduct(t *testing.T, svc *catalog.Service, sku string, stock int, price, discount int64) *models.ProductView {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), catalog.NewProduct{
		SKU:      sku,
		Name:     "Product " + sku,
		Quantity: stock,
		Price:    decimal.NewFromInt(price),
		Discount: decimal.NewFromInt(discount),
	})
	if err != nil {
		t.Fatalf("Create product %s: %v", sku, err)
	}
	return product
}

func getProduct(t *testing.T, s store.Store, id int64) *models.Product {
	t.Helper()
	var product *models.Product
	err := s.View(context.Background(), func(r store.Repository) error {
		var err error
		product, err = r.GetProduct(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	return product
}

func getCart(t *testing.T, s store.Store, userID int64) *models.Cart {
	t.Helper()
	var c *models.Cart
	err := s.View(context.Background(), func(r store.Repository) error {
		var err error
		c, err = r.GetCartByUser(context.Background(), userID)
		return err
	})
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if !c.TotalPrice.Equal(c.LinesTotal()) {
		t.Fatalf("Cart total %s does not match lines %s", c.TotalPrice, c.LinesTotal())
	}
	return c
}

func TestCartLifecycle(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	user, _ := createBuyer(t, svc.store, "cart@example.com")
	lamp := createProduct(t, svc.catalog, "PG-CART-1", 10, 100, 10)
	chair := createProduct(t, svc.catalog, "PG-CART-2", 10, 40, 0)

	view, err := svc.carts.AddItem(ctx, user.ID, lamp.ID, 2)
	if err != nil {
		t.Fatalf("Add lamp: %v", err)
	}
	if !view.TotalPrice.Equal(decimal.NewFromInt(180)) {
		t.Errorf("Expected total 180, got %s", view.TotalPrice)
	}

	if _, err := svc.carts.AddItem(ctx, user.ID, lamp.ID, 1); !errors.Is(err, models.ErrDuplicateCartItem) {
		t.Errorf("Expected duplicate cart item, got: %v", err)
	}

	if _, err := svc.carts.AddItem(ctx, user.ID, chair.ID, 1); err != nil {
		t.Fatalf("Add chair: %v", err)
	}

	view, err = svc.carts.UpdateItem(ctx, user.ID, lamp.ID, 1)
	if err != nil {
		t.Fatalf("Update lamp: %v", err)
	}
	if !view.TotalPrice.Equal(decimal.NewFromInt(310)) {
		t.Errorf("Expected total 310, got %s", view.TotalPrice)
	}

	if _, err := svc.carts.UpdateItem(ctx, user.ID, lamp.ID, 8); !errors.Is(err, models.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock, got: %v", err)
	}

	if _, err := svc.carts.RemoveItem(ctx, view.CartID, chair.ID); err != nil {
		t.Fatalf("Remove chair: %v", err)
	}

	c := getCart(t, svc.store, user.ID)
	if len(c.Items) != 1 || c.Items[0].Quantity != 3 {
		t.Errorf("Expected one lamp line with quantity 3, got %+v", c.Items)
	}

	got, err := svc.carts.GetCart(ctx, user.Email, c.ID)
	if err != nil {
		t.Fatalf("Get cart view: %v", err)
	}
	if got.Products[0].Quantity != 3 {
		t.Errorf("Expected cart quantity 3 in view, got %d", got.Products[0].Quantity)
	}
}

func TestPlaceOrder(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	user, address := createBuyer(t, svc.store, "order@example.com")
	lamp := createProduct(t, svc.catalog, "PG-ORD-1", 10, 100, 10)

	if _, err := svc.carts.AddItem(ctx, user.ID, lamp.ID, 2); err != nil {
		t.Fatalf("Add lamp: %v", err)
	}

	placed, err := svc.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
		Email:         user.Email,
		AddressID:     address.ID,
		PaymentMethod: "card",
		PGName:        "stripe",
		PGPaymentID:   "pi_1",
		PGStatus:      "succeeded",
	})
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	if !placed.TotalAmount.Equal(decimal.NewFromInt(180)) {
		t.Errorf("Expected order total 180, got %s", placed.TotalAmount)
	}
	if placed.Payment.PaymentID == 0 {
		t.Error("Payment ID should not be 0")
	}

	if stock := getProduct(t, svc.store, lamp.ID).Quantity; stock != 8 {
		t.Errorf("Expected stock 8, got %d", stock)
	}

	c := getCart(t, svc.store, user.ID)
	if len(c.Items) != 0 || !c.TotalPrice.IsZero() {
		t.Errorf("Expected empty cart, got %d items totalling %s", len(c.Items), c.TotalPrice)
	}

	fetched, err := svc.orders.GetOrder(ctx, placed.OrderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if len(fetched.Items) != 1 || !fetched.Items[0].OrderedProductPrice.Equal(decimal.NewFromInt(90)) {
		t.Errorf("Unexpected order items: %+v", fetched.Items)
	}
	if fetched.Payment.PGPaymentID != "pi_1" {
		t.Errorf("Expected payment pi_1, got %q", fetched.Payment.PGPaymentID)
	}

	if _, err := svc.orders.PlaceOrder(ctx, order.PlaceOrderRequest{Email: user.Email, AddressID: address.ID}); !errors.Is(err, models.ErrEmptyCart) {
		t.Errorf("Expected empty cart, got: %v", err)
	}
}

func TestConcurrentCheckout(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	product := createProduct(t, svc.catalog, "PG-ORD-2", 10, 50, 0)

	concurrency := 8
	requests := make([]order.PlaceOrderRequest, concurrency)
	for i := range requests {
		user, address := createBuyer(t, svc.store, fmt.Sprintf("buyer%d@example.com", i))
		if _, err := svc.carts.AddItem(ctx, user.ID, product.ID, 2); err != nil {
			t.Fatalf("Add to cart %d: %v", i, err)
		}
		requests[i] = order.PlaceOrderRequest{Email: user.Email, AddressID: address.ID, PaymentMethod: "card"}
	}

	var wg sync.WaitGroup
	results := make(chan error, concurrency)
	for _, req := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.orders.PlaceOrder(ctx, req)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrOutOfStock):
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	if successCount != 5 {
		t.Errorf("Expected 5 successful orders, got %d", successCount)
	}

	if stock := getProduct(t, svc.store, product.ID).Quantity; stock != 10-successCount*2 {
		t.Errorf("Expected final stock %d, got %d", 10-successCount*2, stock)
	}
}

func TestConcurrentFirstAddsShareOneCart(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	user, _ := createBuyer(t, svc.store, "race@example.com")

	concurrency := 4
	products := make([]int64, concurrency)
	for i := range products {
		products[i] = createProduct(t, svc.catalog, fmt.Sprintf("PG-RACE-%d", i), 10, 10, 0).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, concurrency)
	for _, id := range products {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.carts.AddItem(ctx, user.ID, id, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Add item: %v", err)
		}
	}

	c := getCart(t, svc.store, user.ID)
	if len(c.Items) != concurrency {
		t.Errorf("Expected %d lines, got %d", concurrency, len(c.Items))
	}
	if !c.TotalPrice.Equal(decimal.NewFromInt(int64(10 * concurrency))) {
		t.Errorf("Expected total %d, got %s", 10*concurrency, c.TotalPrice)
	}
}

func TestPriceChangePropagates(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	lamp := createProduct(t, svc.catalog, "PG-PROP-1", 20, 100, 10)
	chair := createProduct(t, svc.catalog, "PG-PROP-2", 20, 40, 0)

	var users []*models.User
	for i := 0; i < 3; i++ {
		user, _ := createBuyer(t, svc.store, fmt.Sprintf("prop%d@example.com", i))
		if _, err := svc.carts.AddItem(ctx, user.ID, lamp.ID, 2); err != nil {
			t.Fatalf("Add lamp: %v", err)
		}
		if _, err := svc.carts.AddItem(ctx, user.ID, chair.ID, 1); err != nil {
			t.Fatalf("Add chair: %v", err)
		}
		users = append(users, user)
	}

	discount := decimal.NewFromInt(20)
	_, report, err := svc.catalog.UpdateProduct(ctx, lamp.ID, catalog.ProductUpdate{Discount: &discount})
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}
	if len(report.Resynced) != 3 || report.Err() != nil {
		t.Errorf("Expected 3 resynced carts, got %+v", report)
	}

	for _, user := range users {
		c := getCart(t, svc.store, user.ID)
		if !c.TotalPrice.Equal(decimal.NewFromInt(200)) {
			t.Errorf("Expected total 200 for user %d, got %s", user.ID, c.TotalPrice)
		}
	}
}

func TestSaveProductOptimisticLock(t *testing.T) {
	db := setupTestDB(t)
	s := postgres.New(db, 0)
	ctx := context.Background()

	product := &models.Product{SKU: "PG-LOCK-1", Name: "Lock", Quantity: 5, Price: decimal.NewFromInt(10), SpecialPrice: decimal.NewFromInt(10)}
	if err := s.InTx(ctx, func(r store.Repository) error { return r.CreateProduct(ctx, product) }); err != nil {
		t.Fatalf("Create product: %v", err)
	}

	stale := *product
	product.Quantity = 4
	if err := s.InTx(ctx, func(r store.Repository) error { return r.SaveProduct(ctx, product) }); err != nil {
		t.Fatalf("First save should succeed: %v", err)
	}

	stale.Quantity = 3
	err := s.InTx(ctx, func(r store.Repository) error { return r.SaveProduct(ctx, &stale) })
	if !errors.Is(err, database.ErrOptimisticLockFailed) {
		t.Errorf("Expected optimistic lock failure, got: %v", err)
	}
}

func TestDecrementStockIsConditional(t *testing.T) {
	db := setupTestDB(t)
	s := postgres.New(db, 0)
	ctx := context.Background()

	product := &models.Product{SKU: "PG-DEC-1", Name: "Dec", Quantity: 3, Price: decimal.NewFromInt(10), SpecialPrice: decimal.NewFromInt(10)}
	if err := s.InTx(ctx, func(r store.Repository) error { return r.CreateProduct(ctx, product) }); err != nil {
		t.Fatalf("Create product: %v", err)
	}

	err := s.InTx(ctx, func(r store.Repository) error { return r.DecrementStock(ctx, product.ID, 4) })
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock, got: %v", err)
	}

	err = s.InTx(ctx, func(r store.Repository) error { return r.DecrementStock(ctx, 999999, 1) })
	if !errors.Is(err, models.ErrProductNotFound) {
		t.Errorf("Expected product not found, got: %v", err)
	}

	if err := s.InTx(ctx, func(r store.Repository) error { return r.DecrementStock(ctx, product.ID, 3) }); err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	if stock := getProduct(t, s, product.ID).Quantity; stock != 0 {
		t.Errorf("Expected stock 0, got %d", stock)
	}
}

func TestListOrdersCursor(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	user, address := createBuyer(t, svc.store, "pages@example.com")
	product := createProduct(t, svc.catalog, "PG-PAGE-1", 100, 10, 0)

	for i := 0; i < 15; i++ {
		if _, err := svc.carts.AddItem(ctx, user.ID, product.ID, 1); err != nil {
			t.Fatalf("Add item %d: %v", i, err)
		}
		if _, err := svc.orders.PlaceOrder(ctx, order.PlaceOrderRequest{Email: user.Email, AddressID: address.ID}); err != nil {
			t.Fatalf("Place order %d: %v", i, err)
		}
	}

	page1, err := svc.orders.ListOrders(ctx, user.Email, "", 10)
	if err != nil {
		t.Fatalf("List orders page 1: %v", err)
	}
	if !page1.HasMore || page1.NextCursor == "" {
		t.Error("Page 1 should have more results and a next cursor")
	}
	if len(page1.Items) != 10 {
		t.Errorf("Expected 10 orders on page 1, got %d", len(page1.Items))
	}

	page2, err := svc.orders.ListOrders(ctx, user.Email, page1.NextCursor, 10)
	if err != nil {
		t.Fatalf("List orders page 2: %v", err)
	}
	if page2.HasMore {
		t.Error("Page 2 should not have more results")
	}
	if len(page2.Items) != 5 {
		t.Errorf("Expected 5 orders on page 2, got %d", len(page2.Items))
	}
}
