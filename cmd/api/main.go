package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/meltedmeethas/storefront-backend/api/controllers"
	"github.com/meltedmeethas/storefront-backend/api/routes"
	"github.com/meltedmeethas/storefront-backend/internal/account"
	"github.com/meltedmeethas/storefront-backend/internal/auth"
	"github.com/meltedmeethas/storefront-backend/internal/cart"
	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/internal/checkout"
	"github.com/meltedmeethas/storefront-backend/internal/coupons"
	"github.com/meltedmeethas/storefront-backend/internal/feedback"
	"github.com/meltedmeethas/storefront-backend/internal/orders"
	"github.com/meltedmeethas/storefront-backend/internal/otp"
	"github.com/meltedmeethas/storefront-backend/internal/users"
	"github.com/meltedmeethas/storefront-backend/pkg/auth/session"
	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/db"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/mailer"
	"github.com/meltedmeethas/storefront-backend/pkg/metrics"
	"github.com/meltedmeethas/storefront-backend/pkg/migrate"
	"github.com/meltedmeethas/storefront-backend/pkg/mongo"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox"
	"github.com/meltedmeethas/storefront-backend/pkg/razorpay"
	"github.com/meltedmeethas/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	mongoClient, err := mongo.New(bootCtx, cfg.Mongo, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Close(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing mongo", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	mail, err := mailer.New(cfg.Sendgrid, logg)
	if err != nil {
		return err
	}
	gateway, err := razorpay.NewClient(cfg.Razorpay)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	couponRepo := coupons.NewRepository(gormDB)
	products := catalog.NewRepository(mongoClient.Database())
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	otpStore, err := otp.NewRedisStore(redisClient, cfg.OTP.Retention)
	if err != nil {
		return err
	}
	otpService, err := otp.NewService(otp.ServiceParams{
		Store:  otpStore,
		Mailer: mail,
		Logger: logg,
		Config: cfg.OTP,
	})
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}
	passwordService, err := auth.NewPasswordService(auth.PasswordServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		OTP:            otpService,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	catalogService, err := catalog.NewService(products)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cartRepo, products, logg)
	if err != nil {
		return err
	}
	couponService, err := coupons.NewService(couponRepo, cfg.Checkout.CouponFallbackDiscount())
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Gateway:        gateway,
		GatewaySecret:  cfg.Razorpay.KeySecret,
		Tx:             dbClient,
		Orders:         orderRepo,
		Carts:          cartRepo,
		Coupons:        couponRepo,
		Users:          userRepo,
		Products:       products,
		Outbox:         outboxService,
		CouponFallback: cfg.Checkout.CouponFallbackDiscount(),
		Metrics:        checkoutMetrics,
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:     orderRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Users:    userRepo,
		Products: products,
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	accountService, err := account.NewService(account.ServiceParams{
		Users:    userRepo,
		Orders:   orderRepo,
		Cart:     cartService,
		Tx:       dbClient,
		Outbox:   outboxService,
		Sessions: sessionManager,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	feedbackService, err := feedback.NewService(feedback.NewRepository(gormDB))
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		Sessions:    sessionManager,
		Users:       userRepo,
		RateLimits:  redisClient,
		Idempotency: redisClient,
		Readiness: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
			"mongo":    mongoClient,
		},
		Registry: registry,
		Auth:     authService,
		Register: registerService,
		Password: passwordService,
		OTP:      otpService,
		Account:  accountService,
		Catalog:  catalogService,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   orderService,
		Coupons:  couponService,
		Feedback: feedbackService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
