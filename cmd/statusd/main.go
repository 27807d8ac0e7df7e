package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"statuspage-sync/internal/bus"
	"statuspage-sync/internal/cachet"
	"statuspage-sync/internal/config"
	"statuspage-sync/internal/directory"
	"statuspage-sync/internal/journal"
	"statuspage-sync/internal/keylock"
	"statuspage-sync/internal/poller"
	"statuspage-sync/internal/probe"
	"statuspage-sync/internal/reconcile"
	"statuspage-sync/internal/webhook"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration incomplete", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cachet.NewClient(cachet.Options{
		BaseURL:            cfg.Store.BaseURL,
		Token:              cfg.Store.Token,
		Timeout:            cfg.Store.Timeout.Duration(),
		RateLimit:          cfg.Store.RateLimit,
		InsecureSkipVerify: cfg.Store.InsecureSkipVerify,
	})
	if err != nil {
		logger.Error("failed to build cachet client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	recorder, err := journal.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		logger.Error("failed to open journal", slog.String("driver", cfg.Journal.Driver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer recorder.Close()

	observer := &reconcile.Observer{Journal: recorder, Logger: logger}
	if cfg.NATSURL != "" {
		publisher, err := bus.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to nats", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer publisher.Close()
		observer.Bus = publisher
	}

	locks := keylock.New()
	router := newRouter(newHandler(cfg, store, recorder, observer, locks, logger))

	var p *poller.Poller
	if cfg.Poll.Enabled {
		prober, err := probe.New(probe.Options{
			BaseURL:            cfg.Probe.BaseURL,
			Username:           cfg.Probe.Username,
			Password:           cfg.Probe.Password,
			Timeout:            cfg.Probe.Timeout.Duration(),
			InsecureSkipVerify: cfg.Probe.InsecureSkipVerify,
		})
		if err != nil {
			logger.Error("failed to build prober", slog.String("error", err.Error()))
			os.Exit(1)
		}
		p = poller.New(store, prober, poller.Options{
			Interval: cfg.Poll.Interval.Duration(),
			Locks:    locks,
			Observer: observer,
			Logger:   logger,
		})
	} else {
		logger.Info("polling disabled")
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", slog.String("addr", cfg.ListenAddr), slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := serve(ctx, newServer(router), ln, p, logger); err != nil {
		logger.Error("statusd stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("statusd stopped")
}

func newHandler(cfg config.Config, store *cachet.Client, recorder journal.Recorder, observer *reconcile.Observer, locks *keylock.Locker, logger *slog.Logger) *webhook.Handler {
	h := &webhook.Handler{
		Reconciler: &webhook.Reconciler{
			Directory: directory.New(store, cfg.Store.PageSize, logger),
			Store:     store,
			Locks:     locks,
			Observer:  observer,
			Aliases:   cfg.Aliases,
			Logger:    logger,
		},
		Timeout: 25 * time.Second,
		Logger:  logger,
	}
	// /history answers 404 unless a journal backend is configured.
	if cfg.Journal.Driver != "" && cfg.Journal.Driver != "none" {
		h.Journal = recorder
	}
	return h
}

func newRouter(h *webhook.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	h.RegisterRoutes(r)
	return r
}

func newServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// serve runs the listener and, when p is set, the poller until ctx is done.
// A clean shutdown returns nil.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, p *poller.Poller, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("webhook listener started", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if p != nil {
		g.Go(func() error {
			if err := p.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
