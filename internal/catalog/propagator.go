package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/safar/go-cart-store/internal/metrics"
	"github.com/safar/go-cart-store/internal/models"
	"github.com/safar/go-cart-store/internal/store"
)

// Resyncer reprices one cart line at its product's current price.
type Resyncer interface {
	ResyncItemPrice(ctx context.Context, cartID, productID int64) error
}

// Report describes one propagation run. Carts that dropped the line between
// lookup and resync are Skipped, not Failed.
type Report struct {
	ProductID int64
	Resynced  []int64
	Skipped   []int64
	Failed    map[int64]error
}

// Err joins the per-cart failures in cart order, or returns nil.
func (r *Report) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Errorf("cart %d: %w", id, r.Failed[id]))
	}
	return errors.Join(errs...)
}

type Propagator struct {
	store    store.Store
	resyncer Resyncer
	workers  int
	log      *log.Entry
	metrics  *metrics.Metrics
}

func NewPropagator(s store.Store, resyncer Resyncer, workers int, logger *log.Entry, m *metrics.Metrics) *Propagator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Propagator{
		store:    s,
		resyncer: resyncer,
		workers:  workers,
		log:      logger.WithField("component", "propagation"),
		metrics:  m,
	}
}

// ProductPriceChanged resyncs productID's line in every cart that holds it.
// Each cart is resynced in its own transaction; a failing cart is recorded
// in the report and does not stop the others. The returned error is non-nil
// only when the affected carts could not be looked up.
func (p *Propagator) ProductPriceChanged(ctx context.Context, productID int64) (*Report, error) {
	start := time.Now()
	defer func() { p.metrics.RecordPropagationDuration(time.Since(start)) }()

	var cartIDs []int64
	err := p.store.View(ctx, func(r store.Repository) error {
		carts, err := r.FindCartsByProduct(ctx, productID)
		if err != nil {
			return err
		}
		for _, c := range carts {
			cartIDs = append(cartIDs, c.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find carts for product %d: %w", productID, err)
	}

	report := &Report{ProductID: productID, Failed: make(map[int64]error)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, cartID := range cartIDs {
		g.Go(func() error {
			err := p.resyncer.ResyncItemPrice(ctx, cartID, productID)
			p.metrics.RecordResync(err)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Resynced = append(report.Resynced, cartID)
			case errors.Is(err, models.ErrItemNotInCart), errors.Is(err, models.ErrCartNotFound):
				report.Skipped = append(report.Skipped, cartID)
			default:
				report.Failed[cartID] = err
				p.log.WithError(err).WithFields(log.Fields{
					"cart_id":    cartID,
					"product_id": productID,
				}).Warn("cart price resync failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(report.Resynced)
	slices.Sort(report.Skipped)

	p.log.WithFields(log.Fields{
		"product_id": productID,
		"carts":      len(cartIDs),
		"resynced":   len(report.Resynced),
		"skipped":    len(report.Skipped),
		"failed":     len(report.Failed),
	}).Info("price change propagated")

	return report, nil
}
