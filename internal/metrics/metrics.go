package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/safar/go-cart-store/internal/models"
)

// Metrics holds the collectors of the cart and order services. A nil
// *Metrics records nothing.
type Metrics struct {
	cartOperations      *prometheus.CounterVec
	ordersPlaced        prometheus.Counter
	orderAmount         prometheus.Histogram
	checkoutFailures    *prometheus.CounterVec
	propagationResyncs  *prometheus.CounterVec
	propagationDuration prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		cartOperations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartstore",
			Name:      "cart_operations_total",
			Help:      "Cart mutations by operation and result.",
		}, []string{"operation", "result"})),
		ordersPlaced: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cartstore",
			Name:      "orders_placed_total",
			Help:      "Orders successfully placed.",
		})),
		orderAmount: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cartstore",
			Name:      "order_amount",
			Help:      "Total amount of placed orders.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		})),
		checkoutFailures: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartstore",
			Name:      "checkout_failures_total",
			Help:      "Failed checkouts by error kind.",
		}, []string{"kind"})),
		propagationResyncs: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartstore",
			Name:      "price_propagation_resyncs_total",
			Help:      "Cart line resyncs triggered by product price changes.",
		}, []string{"result"})),
		propagationDuration: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cartstore",
			Name:      "price_propagation_duration_seconds",
			Help:      "Time to propagate one product price change to all carts.",
			Buckets:   prometheus.DefBuckets,
		})),
	}
}

// register registers c, reusing an identical collector that is already
// registered so that several services can share one registry.
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) C {
	if err := registerer.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := already.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", already.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return c
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return models.KindOf(err).String()
}

func (m *Metrics) RecordCartOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.cartOperations.WithLabelValues(operation, result(err)).Inc()
}

func (m *Metrics) RecordOrderPlaced(amount float64) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.orderAmount.Observe(amount)
}

func (m *Metrics) RecordCheckoutFailure(err error) {
	if m == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(models.KindOf(err).String()).Inc()
}

func (m *Metrics) RecordResync(err error) {
	if m == nil {
		return
	}
	m.propagationResyncs.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) RecordPropagationDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.propagationDuration.Observe(d.Seconds())
}
