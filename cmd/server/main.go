package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wavefood-admin/internal/api"
	"wavefood-admin/internal/auth"
	"wavefood-admin/internal/config"
	"wavefood-admin/internal/dashboard"
	"wavefood-admin/internal/delivery"
	"wavefood-admin/internal/earnings"
	"wavefood-admin/internal/ingest"
	"wavefood-admin/internal/lifecycle"
	"wavefood-admin/internal/logger"
	"wavefood-admin/internal/menu"
	"wavefood-admin/internal/notify"
	"wavefood-admin/internal/store"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	st := store.NewMemStore()
	if cfg.StoreSeedFile != "" {
		if err := st.SeedFromFile(cfg.StoreSeedFile); err != nil {
			return err
		}
		logger.L().Info("store seeded", zap.String("file", cfg.StoreSeedFile))
	}

	gateway := notify.NewLogGateway(logger.L())

	pending := ingest.NewService(st, gateway)
	machine := lifecycle.NewMachine(st, gateway, pending)
	deliveries := delivery.NewProjection(st, gateway)
	agg := earnings.NewAggregator(st, gateway)
	dash := dashboard.NewService(st, gateway)
	menuSvc := menu.NewService(st)

	authn := auth.NewAuthenticator(cfg.JWTSecret, cfg.AdminPasswordHash)

	for _, start := range []func(context.Context) error{
		pending.Start, deliveries.Start, agg.Start, dash.Start,
	} {
		if err := start(ctx); err != nil {
			return err
		}
	}
	defer func() {
		pending.Stop()
		deliveries.Stop()
		agg.Stop()
		dash.Stop()
	}()

	srv := api.NewServer(authn, pending, machine, deliveries, agg, dash, menuSvc)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.L().Info("admin server listening", zap.String("port", cfg.AppPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
