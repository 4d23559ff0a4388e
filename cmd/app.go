package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"gorm.io/gorm"
	"pkt.systems/pslog"

	"github.com/Leganyst/docwatch/internal/auth"
	"github.com/Leganyst/docwatch/internal/clock"
	"github.com/Leganyst/docwatch/internal/config"
	"github.com/Leganyst/docwatch/internal/db"
	"github.com/Leganyst/docwatch/internal/events"
	"github.com/Leganyst/docwatch/internal/expiry"
	"github.com/Leganyst/docwatch/internal/grpcserver"
	"github.com/Leganyst/docwatch/internal/httpapi"
	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/notify"
	"github.com/Leganyst/docwatch/internal/payment"
	"github.com/Leganyst/docwatch/internal/repository"
	"github.com/Leganyst/docwatch/internal/service"
	"github.com/Leganyst/docwatch/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

// app is the wired process: storage, services, scheduler and telemetry.
type app struct {
	cfg       config.App
	logger    pslog.Logger
	db        *gorm.DB
	telemetry *telemetry.Bundle
	metrics   *telemetry.Metrics
	publisher events.Publisher

	auth      *service.AuthService
	documents *service.DocumentService
	bookings  *service.BookingService
	payments  *service.PaymentService
	subs      *service.SubscriptionService
	scheduler *notify.Scheduler
}

func bootstrap(ctx context.Context, logger pslog.Logger) (*app, error) {
	// 1. Config from env.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	// 2. Database and migrations.
	a.db, err = db.NewGormDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := model.AutoMigrate(a.db); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	// 3. Telemetry.
	a.telemetry, err = telemetry.Setup(ctx, cfg.OTLP, logger.With("subsys", "telemetry"))
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.metrics = telemetry.NewMetrics(a.telemetry.Meter(), logger)

	// 4. Event broker, optional.
	a.publisher = events.Nop{}
	if cfg.Events.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.publisher = pub
		logger.Info("events.amqp.connected", "exchange", cfg.Events.Exchange)
	}

	clk := clock.Real{}
	policy := expiry.NewPolicy(cfg.SoonDays)
	journal := events.NewJournal(repository.NewGormEventRepository(a.db), a.publisher, clk, logger.With("subsys", "events"))

	// 5. Repositories.
	users := repository.NewGormUserRepository(a.db)
	docs := repository.NewGormDocumentRepository(a.db)
	subs := repository.NewGormSubscriptionRepository(a.db)

	// 6. Services.
	verifiers := map[model.AuthProvider]auth.IdentityVerifier{
		model.AuthProviderFacebook: auth.NewFacebookVerifier(),
	}
	if cfg.Auth.GoogleClient != "" {
		verifiers[model.AuthProviderGoogle] = auth.NewGoogleVerifier(cfg.Auth.GoogleClient)
	}
	a.auth = service.NewAuthService(users, auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL, clk), verifiers, logger.With("subsys", "auth"))
	a.documents = service.NewDocumentService(docs, policy, clk, journal)
	a.bookings = service.NewBookingService(repository.NewGormBookingRepository(a.db), clk, journal)

	var gateway payment.Gateway = payment.Unconfigured{}
	if cfg.Payment.OmiseSecretKey != "" {
		gw, err := payment.NewOmiseGateway(cfg.Payment.OmisePublicKey, cfg.Payment.OmiseSecretKey)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("init payment gateway: %w", err)
		}
		gateway = gw
	} else {
		logger.Warn("payment.gateway.unconfigured")
	}
	a.payments = service.NewPaymentService(service.PaymentDeps{
		Gateway:  gateway,
		Payments: repository.NewGormPaymentRepository(a.db),
		Docs:     docs,
		Policy:   policy,
		Clock:    clk,
		Journal:  journal,
		Observer: a.metrics,
		Logger:   logger.With("subsys", "payment"),
	})
	a.subs = service.NewSubscriptionService(subs, cfg.Push.PublicKey, journal)

	// 7. Notification scheduler.
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Warn("notify.vapid.unconfigured")
	}
	a.scheduler = notify.NewScheduler(docs, subs,
		notify.NewWebPushSender(cfg.Push.PublicKey, cfg.Push.PrivateKey, cfg.Push.Subject),
		notify.Options{
			Interval: cfg.ScanInterval(),
			Policy:   policy,
			Clock:    clk,
			Logger:   logger.With("subsys", "notify"),
			Observer: a.metrics,
		},
	)
	return a, nil
}

func (a *app) ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *app) close(ctx context.Context) {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("events.close.failed", "error", err)
		}
	}
	if a.telemetry != nil {
		_ = a.telemetry.Shutdown(ctx)
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// runServe starts every server and blocks until ctx ends or one of them fails.
func runServe(ctx context.Context, logger pslog.Logger) error {
	a, err := bootstrap(ctx, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	api := httpapi.NewServer(httpapi.Deps{
		Auth:           a.auth,
		Documents:      a.documents,
		Bookings:       a.bookings,
		Payments:       a.payments,
		Subscriptions:  a.subs,
		Logger:         logger.With("subsys", "http"),
		Metrics:        a.metrics,
		MetricsHandler: a.telemetry.Handler(),
		Ping:           a.ping,
		Production:     a.cfg.Production(),
		CORSOrigins:    a.cfg.CORSOrigin,
		Cookie: httpapi.CookieConfig{
			Domain: a.cfg.Auth.CookieDomain,
			Secure: a.cfg.Production(),
			TTL:    a.cfg.Auth.JWTTTL,
		},
		AuthRatePerMinute: a.cfg.Auth.RatePerMinute,
	})
	httpSrv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.GRPCAddr, err)
	}
	grpcSrv := grpcserver.New(grpcserver.Options{Ping: a.ping, Logger: logger.With("subsys", "grpc")})

	errc := make(chan error, 2)
	go func() {
		logger.Info("http.server.listening", "addr", a.cfg.HTTPAddr, "env", a.cfg.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http serve: %w", err)
		}
	}()
	go func() {
		if err := grpcSrv.Serve(grpcLis); err != nil {
			errc <- err
		}
	}()

	if a.cfg.Notify.Enabled {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
		defer a.scheduler.Stop()
	} else {
		logger.Info("notify.scheduler.disabled")
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown.signal")
	case err = <-errc:
		logger.Error("shutdown.server_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	grpcSrv.Stop(shutdownCtx)
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http.shutdown.failed", "error", serr)
	}
	logger.Info("shutdown.complete")
	return err
}
