package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safar/go-cart-store/internal/cart"
	"github.com/safar/go-cart-store/internal/catalog"
	"github.com/safar/go-cart-store/internal/config"
	"github.com/safar/go-cart-store/internal/database"
	"github.com/safar/go-cart-store/internal/identity"
	"github.com/safar/go-cart-store/internal/metrics"
	"github.com/safar/go-cart-store/internal/order"
	"github.com/safar/go-cart-store/internal/store"
	"github.com/safar/go-cart-store/internal/store/memory"
	"github.com/safar/go-cart-store/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger := log.StandardLogger()
	if err := cfg.Log.Apply(logger); err != nil {
		log.Fatalf("Configure logging: %v", err)
	}
	entry := log.NewEntry(logger).WithField("service", "cart-store")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closeStore, err := openStore(ctx, cfg, entry)
	if err != nil {
		entry.WithError(err).Fatal("open store")
	}
	defer closeStore()

	m := metrics.New()
	carts := cart.NewService(s, entry, m)
	propagator := catalog.NewPropagator(s, carts, cfg.Propagation.Workers, entry, m)

	a := &api{
		store:    s,
		identity: identity.ContextProvider{},
		carts:    carts,
		orders:   order.NewService(s, carts, entry, m),
		catalog:  catalog.NewService(s, propagator, entry),
		log:      entry.WithField("component", "http"),
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		entry.WithFields(log.Fields{"port": cfg.Server.Port, "store": cfg.Store.Driver}).Info("server starting")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		entry.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			entry.WithError(err).Error("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		entry.WithError(err).Warn("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *log.Entry) (store.Store, func(), error) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database")

	return postgres.New(db, cfg.Database.TxMaxRetries), func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("close database")
		}
	}, nil
}
