package memory

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/safar/go-cart-store/internal/models"
	"github.com/safar/go-cart-store/internal/store"
)

var errReadOnly = errors.New("write in read-only transaction")

// Store is an in-memory store.Store. Transactions are serialized and run
// against a private copy of the data that replaces the committed copy only
// when the transaction function succeeds.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(store.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.st.clone()
	if err := fn(&repo{st: draft}); err != nil {
		return err
	}
	s.st = draft
	return nil
}

func (s *Store) View(ctx context.Context, fn func(store.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&repo{st: s.st, readOnly: true})
}

type state struct {
	seq        int64
	users      map[int64]models.User
	addresses  map[int64]models.Address
	products   map[int64]models.Product
	carts      map[int64]models.Cart
	cartItems  map[int64]models.CartItem
	orders     map[int64]models.Order
	orderItems map[int64]models.OrderItem
}

func newState() *state {
	return &state{
		users:      make(map[int64]models.User),
		addresses:  make(map[int64]models.Address),
		products:   make(map[int64]models.Product),
		carts:      make(map[int64]models.Cart),
		cartItems:  make(map[int64]models.CartItem),
		orders:     make(map[int64]models.Order),
		orderItems: make(map[int64]models.OrderItem),
	}
}

// clone copies every table. Rows are stored by value without nested slices,
// and decimal values are immutable, so a shallow copy per map is enough.
func (s *state) clone() *state {
	return &state{
		seq:        s.seq,
		users:      maps.Clone(s.users),
		addresses:  maps.Clone(s.addresses),
		products:   maps.Clone(s.products),
		carts:      maps.Clone(s.carts),
		cartItems:  maps.Clone(s.cartItems),
		orders:     maps.Clone(s.orders),
		orderItems: maps.Clone(s.orderItems),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func now() time.Time {
	return time.Now().UTC()
}

var _ store.Store = (*Store)(nil)
