package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/safar/go-cart-store/internal/cart"
	"github.com/safar/go-cart-store/internal/catalog"
	"github.com/safar/go-cart-store/internal/identity"
	"github.com/safar/go-cart-store/internal/models"
	"github.com/safar/go-cart-store/internal/order"
	"github.com/safar/go-cart-store/internal/store"
)

// userHeader names the caller. An upstream gateway authenticates the request
// and sets it.
const userHeader = "X-User-Email"

type api struct {
	store    store.Store
	identity identity.Provider
	carts    *cart.Service
	orders   *order.Service
	catalog  *catalog.Service
	log      *log.Entry
	metrics  http.Handler
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", a.handleCreateUser)
	mux.Handle("POST /users/addresses", a.authenticate(a.handleCreateAddress))

	mux.HandleFunc("POST /products", a.handleCreateProduct)
	mux.HandleFunc("PUT /products/{id}", a.handleUpdateProduct)

	mux.Handle("POST /carts/items", a.authenticate(a.handleAddItem))
	mux.Handle("PATCH /carts/items", a.authenticate(a.handleUpdateItem))
	mux.HandleFunc("DELETE /carts/{cartId}/items/{productId}", a.handleRemoveItem)
	mux.HandleFunc("GET /carts", a.handleListCarts)
	mux.Handle("GET /carts/{cartId}", a.authenticate(a.handleGetCart))

	mux.Handle("POST /orders", a.authenticate(a.handlePlaceOrder))
	mux.Handle("GET /orders", a.authenticate(a.handleListOrders))
	mux.Handle("GET /orders/{id}", a.authenticate(a.handleGetOrder))

	if a.metrics == nil {
		a.metrics = promhttp.Handler()
	}
	mux.Handle("GET /metrics", a.metrics)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// authenticate resolves the caller named by userHeader and stores it in the
// request context for identity.ContextProvider.
func (a *api) authenticate(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(r.Header.Get(userHeader))
		if email == "" {
			respondError(w, http.StatusUnauthorized, "Missing "+userHeader+" header")
			return
		}

		var user *models.User
		err := a.store.View(r.Context(), func(repo store.Repository) error {
			var err error
			user, err = repo.GetUserByEmail(r.Context(), email)
			return err
		})
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				respondError(w, http.StatusUnauthorized, "Unknown user")
				return
			}
			a.fail(w, r, err)
			return
		}

		next(w, r.WithContext(identity.WithUser(r.Context(), *user)))
	})
}

func (a *api) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	var user *models.User
	err := a.store.InTx(r.Context(), func(repo store.Repository) error {
		var err error
		user, err = repo.CreateUser(r.Context(), strings.TrimSpace(req.Email), req.Name)
		return err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (a *api) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	userID, err := a.identity.CurrentUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var address models.Address
	if !decode(w, r, &address) {
		return
	}
	address.ID = 0
	address.UserID = userID

	err = a.store.InTx(r.Context(), func(repo store.Repository) error {
		return repo.CreateAddress(r.Context(), &address)
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, address)
}

func (a *api) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewProduct
	if !decode(w, r, &req) {
		return
	}

	product, err := a.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (a *api) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req catalog.ProductUpdate
	if !decode(w, r, &req) {
		return
	}

	product, report, err := a.catalog.UpdateProduct(r.Context(), id, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	resp := struct {
		Product      *models.ProductView `json:"product"`
		CartsUpdated int                 `json:"carts_updated"`
		CartsFailed  int                 `json:"carts_failed"`
	}{Product: product}
	if report != nil {
		resp.CartsUpdated = len(report.Resynced)
		resp.CartsFailed = len(report.Failed)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (a *api) handleAddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := a.identity.CurrentUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}

	view, err := a.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

func (a *api) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := a.identity.CurrentUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req struct {
		ProductID int64 `json:"product_id"`
		Delta     int   `json:"delta"`
	}
	if !decode(w, r, &req) {
		return
	}

	view, err := a.carts.UpdateItem(r.Context(), userID, req.ProductID, req.Delta)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (a *api) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "cartId")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}

	msg, err := a.carts.RemoveItem(r.Context(), cartID, productID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (a *api) handleListCarts(w http.ResponseWriter, r *http.Request) {
	carts, err := a.carts.ListCarts(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, carts)
}

func (a *api) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "cartId")
	if !ok {
		return
	}
	email, err := a.identity.CurrentUserEmail(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	view, err := a.carts.GetCart(r.Context(), email, cartID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (a *api) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	email, err := a.identity.CurrentUserEmail(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req order.PlaceOrderRequest
	if !decode(w, r, &req) {
		return
	}
	req.Email = email

	view, err := a.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

func (a *api) handleListOrders(w http.ResponseWriter, r *http.Request) {
	email, err := a.identity.CurrentUserEmail(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, err := a.orders.ListOrders(r.Context(), email, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (a *api) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	email, err := a.identity.CurrentUserEmail(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	view, err := a.orders.GetOrder(r.Context(), id)
	if err == nil && view.Email != email {
		err = models.ErrOrderNotFound.With("orderId", id)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// fail writes err with the status matching its kind. Errors of unknown kind
// are logged and hidden from the client.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	case models.KindInvalidState:
		return http.StatusUnprocessableEntity
	case models.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("encode JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
