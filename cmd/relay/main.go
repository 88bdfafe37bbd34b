// Command relay is a reference Towerman backend: the HTTP team API and the
// per-team event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/towerman/internal/config"
	"github.com/DoyleJ11/towerman/internal/httpapi"
	"github.com/DoyleJ11/towerman/internal/hub"
	"github.com/DoyleJ11/towerman/internal/logging"
	"github.com/DoyleJ11/towerman/internal/metrics"
	"github.com/DoyleJ11/towerman/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "relay:", err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.LoadRelay()
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := openStore(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.New()
	h := hub.NewHub(ctx, hub.Config{Store: st, Logger: log.Named("room"), Metrics: rec})
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(
			httpapi.Deps{Store: st, Hub: h, Tokens: httpapi.NewTokens(), Logger: log.Named("http")},
			httpapi.Options{
				Metrics:        rec,
				OriginPatterns: cfg.OriginPatterns,
				ReadTimeout:    cfg.ReadTimeout,
				WriteTimeout:   cfg.WriteTimeout,
			},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return multierr.Append(srv.Shutdown(sctx), h.Close(sctx))
	})
	return g.Wait()
}

func openStore(dsn string, log *zap.Logger) (store.Store, error) {
	if dsn == "" {
		log.Warn("DATABASE_URL not set, teams are kept in memory")
		return store.NewMemory(), nil
	}
	g, err := store.OpenPostgres(dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return g, nil
}
