package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gatepass/gatepass/internal/app"
	"github.com/gatepass/gatepass/internal/guest"
	"github.com/gatepass/gatepass/internal/identity"
	"github.com/gatepass/gatepass/internal/observability"
	"github.com/gatepass/gatepass/internal/platform/cache"
	"github.com/gatepass/gatepass/internal/platform/db"
	"github.com/gatepass/gatepass/internal/rotation"
	"github.com/gatepass/gatepass/internal/token"
	"github.com/gatepass/gatepass/internal/verifier"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	guestCodec, err := token.New(cfg.GuestTokenSecret)
	if err != nil {
		logger.Error("init guest token codec", slog.Any("error", err))
		os.Exit(1)
	}
	sessionCodec, err := token.New(cfg.VerifierSessionSecret)
	if err != nil {
		logger.Error("init session token codec", slog.Any("error", err))
		os.Exit(1)
	}
	identityVerifier, err := identity.NewVerifier(cfg.IdentityJWTSecret)
	if err != nil {
		logger.Error("init identity verifier", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	guestRepo := guest.NewRepository(dbpool)
	guestService := guest.NewService(guestRepo, guestCodec, cfg.GuestLinkBaseURL)
	guestHandler := guest.NewHandler(logger, guestService, identityVerifier)

	rotationRepo := rotation.NewRepository(dbpool)
	rotationService := rotation.NewService(rotationRepo).WithMetrics(metrics)
	rotationHandler := rotation.NewHandler(logger, rotationService, identityVerifier, guestCodec)

	verifierRepo := verifier.NewRepository(dbpool)
	verifyService := verifier.NewService(verifierRepo, metrics)
	lockout := verifier.NewLockout(redisClient, int64(cfg.UnlockFailLimit), cfg.UnlockFailWindow)
	unlockService := verifier.NewUnlockService(verifierRepo, sessionCodec, lockout, cfg.VerifierSessionTTL)
	verifierHandler := verifier.NewHandler(verifier.HandlerConfig{
		Logger:       logger,
		Verify:       verifyService,
		Unlock:       unlockService,
		Identity:     identityVerifier,
		SessionCodec: sessionCodec,
		Deduper:      verifier.NewDeduper(redisClient, cfg.VerifyDedupTTL),
		MockMode:     cfg.VerifyMockMode,
	})
	if cfg.VerifyMockMode {
		logger.Warn("verification mock mode enabled, checkpoint decisions are simulated")
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		GuestHandler:    guestHandler,
		RotationHandler: rotationHandler,
		VerifierHandler: verifierHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
