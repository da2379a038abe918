// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"findam-backend/internal/accounts"
	"findam-backend/internal/bookings"
	"findam-backend/internal/common/auth"
	"findam-backend/internal/common/aws"
	"findam-backend/internal/common/config"
	"findam-backend/internal/common/database"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/common/metrics"
	"findam-backend/internal/common/observability"
	"findam-backend/internal/communications"
	"findam-backend/internal/invoices"
	"findam-backend/internal/payments"
	"findam-backend/internal/platform"
	"findam-backend/internal/properties"
	"findam-backend/internal/reviews"
	"findam-backend/internal/search"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting findam-backend...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("findam-backend")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) with retry ---
	var esClient *database.ElasticsearchClient
	var index search.Index
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			// Search degrades to SQL when the cluster never comes up.
			zapLog.Warn("elasticsearch unavailable, search falls back to SQL", zap.Error(err))
			esClient = nil
		} else {
			index = search.NewElasticIndex(esClient, cfg.Search.PropertyIndex, log)
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Init Notification Channels ---
	var emailSender communications.EmailSender
	var smsSender communications.SMSSender
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("ses client init failed, email disabled", zap.Error(err))
		} else {
			emailSender = sesClient
		}
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("sns client init failed, sms disabled", zap.Error(err))
		} else {
			smsSender = snsClient
		}
	}

	// --- Repositories ---
	db := pg.GetDB()
	accountsRepo := accounts.NewRepository(db)
	propertiesRepo := properties.NewRepository(db)
	bookingsRepo := bookings.NewRepository(db)
	paymentsRepo := payments.NewRepository(db)
	reviewsRepo := reviews.NewRepository(db)
	commsRepo := communications.NewRepository(db)
	platformRepo := platform.NewRepository(db)

	// --- Services ---
	jwtSvc := auth.NewJWTService(cfg.Auth, rdb.GetClient())
	limiter := auth.NewLoginLimiter(cfg.Auth.LoginRatePerMin, cfg.Auth.LoginBurst)
	accountsSvc := accounts.NewService(accountsRepo, jwtSvc, limiter, cfg.Auth.BcryptCost, log)

	propertiesSvc := properties.NewService(propertiesRepo, rdb.GetClient(), index, log)

	platformSvc := platform.NewService(platformRepo, rdb.GetClient(), log)
	serviceFeeRate := platformSvc.FloatValue(ctx, platform.KeyServiceFeeRate, cfg.Payments.ServiceFeeRate)

	bookingsSvc := bookings.NewService(bookingsRepo, propertiesRepo, serviceFeeRate, log)

	gateway := payments.NewNotchPayClient(cfg.Payments.NotchPay)
	paymentsSvc := payments.NewService(payments.ServiceDeps{
		Repo:       paymentsRepo,
		Gateway:    gateway,
		Bookings:   bookingsSvc,
		BookingsDB: bookingsRepo,
		Accounts:   accountsRepo,
		Properties: propertiesRepo,
		HashKey:    cfg.Payments.NotchPay.HashKey,
		Currency:   cfg.Payments.Currency,
		Logger:     log,
	})
	bookingsSvc.SetRefundRecorder(paymentsSvc)

	commsSvc := communications.NewService(commsRepo, propertiesSvc, log)
	notifier := communications.NewNotifier(commsRepo, accountsRepo, propertiesSvc,
		emailSender, smsSender, cfg.Notifications, log)
	bookingsSvc.SetEventNotifier(notifier)

	reviewsSvc := reviews.NewService(reviewsRepo, bookingsRepo, propertiesSvc, log)
	reviewsSvc.SetNotifier(notifier)

	invoicesSvc, err := invoices.NewService(bookingsRepo, propertiesRepo, accountsRepo)
	if err != nil {
		zapLog.Fatal("invoice template failed to parse", zap.Error(err))
	}

	// --- Router ---
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())
	router.Use(obs.Middleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMW := auth.Middleware(jwtSvc)
	api := router.Group("/api/v1")

	accounts.NewHandler(accountsSvc).RegisterRoutes(api, authMW)
	properties.NewHandler(propertiesSvc).RegisterRoutes(api, authMW)
	bookings.NewHandler(bookingsSvc).RegisterRoutes(api, authMW)
	payments.NewHandler(paymentsSvc).RegisterRoutes(api, authMW)
	invoices.NewHandler(invoicesSvc).RegisterRoutes(api, authMW)
	reviews.NewHandler(reviewsSvc).RegisterRoutes(api, authMW)
	communications.NewHandler(commsSvc).RegisterRoutes(api, authMW)
	platform.NewHandler(platformSvc, pg, rdb, esClient).RegisterRoutes(router, api, authMW)

	zapLog.Info("All routes registered successfully")

	// --- Background Maintenance ---
	maintenanceCtx, cancelMaintenance := context.WithCancel(ctx)
	defer cancelMaintenance()
	go runMaintenance(maintenanceCtx, bookingsSvc, accountsRepo, zapLog)

	// --- HTTP Server ---
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}

	zapLog.Info("findam-backend stopped gracefully")
}

// runMaintenance completes past stays and expires overdue owner subscriptions
// on an hourly tick.
func runMaintenance(ctx context.Context, bookingsSvc *bookings.Service, accountsRepo *accounts.Repository, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := bookingsSvc.CompletePastStays(ctx); err != nil {
				log.Error("complete past stays failed", zap.Error(err))
			} else if n > 0 {
				log.Info("stays completed", zap.Int64("count", n))
			}

			if n, err := accountsRepo.ExpireOverdueSubscriptions(ctx, time.Now().UTC()); err != nil {
				log.Error("expire subscriptions failed", zap.Error(err))
			} else if n > 0 {
				log.Info("subscriptions expired", zap.Int64("count", n))
			}
		}
	}
}
