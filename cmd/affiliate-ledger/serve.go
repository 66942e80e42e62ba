package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/app/background"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/app/setup"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/handlers"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/mq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP and gRPC servers with background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setup.InitializeDependencies(cfg, log)
	if err != nil {
		return fmt.Errorf("dependencies: %w", err)
	}
	defer deps.Close()

	antifraud, err := setup.InitializeAntiFraud(ctx, deps)
	if err != nil {
		return fmt.Errorf("antifraud: %w", err)
	}
	uc, err := setup.InitializeUseCases(deps, antifraud)
	if err != nil {
		return fmt.Errorf("usecases: %w", err)
	}

	httpHandler := handlers.NewHandler(handlers.Deps{
		Attribution: uc.Attribution,
		Conversion:  uc.Conversion,
		Stats:       uc.Stats,
		Fraud:       uc.Fraud,
		Ledger:      uc.Ledger,
		Payments:    uc.Payments,
		Validator:   uc.Reconciliation,
		Hasher:      uc.Hasher,
		Gatherer:    deps.Registry,
		HealthCheck: deps.Ping,
	}, handlers.Options{
		CookieName:   cfg.Attribution.CookieName,
		CookieDomain: cfg.Attribution.CookieDomain,
		CookieSecure: cfg.Attribution.CookieSecure,
		CookieMaxAge: cfg.Attribution.Window,
		FallbackURL:  cfg.Attribution.FallbackURL,
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
		JWTSecret:    cfg.Auth.JWTSecret,
		JWTIssuer:    cfg.Auth.Issuer,
	}, log)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	grpcServer, healthServer := grpcapi.NewServer(
		grpcapi.NewLedgerReadHandler(uc.Stats, uc.Ledger, uc.Fraud, log),
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		log,
	)
	grpcAddr := net.JoinHostPort(cfg.GRPCServer.Host, cfg.GRPCServer.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen %s: %w", grpcAddr, err)
	}

	// typed nil в интерфейсе ломает проверки в BackgroundTasks
	var relay background.Relay
	if uc.OutboxRelay != nil {
		relay = uc.OutboxRelay
	}
	var consumer background.Consumer
	if deps.Subscriber != nil {
		consumer = mq.NewPaymentConsumer(deps.Subscriber, uc.Payments, cfg.KafkaService.ConsumerGroup, log)
	}
	tasks := background.NewBackgroundTasks(uc.Reconciliation, relay, consumer, background.Options{
		ReconcileInterval: cfg.Reconciliation.Interval,
		ReconcileFix:      cfg.Reconciliation.Fix,
		RelayInterval:     cfg.Outbox.Interval,
	}, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server started", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc server started", zap.String("addr", grpcAddr))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return tasks.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
