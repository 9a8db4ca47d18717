package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/billing"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/service/geofence"
	loyaltyService "github.com/cmlabs-hris/shopfloor-backend-go/internal/service/loyalty"
	shiftService "github.com/cmlabs-hris/shopfloor-backend-go/internal/service/shift"
	shopService "github.com/cmlabs-hris/shopfloor-backend-go/internal/service/shop"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	})))

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	employeeRepo := postgresql.NewEmployeeRepository(db)
	shopRepo := postgresql.NewShopRepository(db)
	taskRepo := postgresql.NewTaskRepository(db)
	remoteApprovalRepo := postgresql.NewRemoteApprovalRepository(db)
	sessionRepo := postgresql.NewShiftSessionRepository(db)
	customerRepo := postgresql.NewCustomerRepository(db)
	loyaltyTxRepo := postgresql.NewLoyaltyTransactionRepository(db)
	transactor := postgresql.NewTransactor(db)

	// Events go to the supervisor feed and, when configured, to RabbitMQ.
	hub := sse.NewHub()
	publishers := events.Multi{hub}
	if cfg.RabbitMQ.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			slog.Warn("RabbitMQ unavailable, events stay local", "error", err)
		} else {
			defer amqpPublisher.Close()
			publishers = append(publishers, amqpPublisher)
		}
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.StaffExpiration, cfg.JWT.AcceptableSkewInSec)

	evaluator := geofence.NewEvaluator(remoteApprovalRepo, cfg.Clock.DefaultRadiusMeters)
	shiftSvc := shiftService.NewShiftService(
		transactor,
		employeeRepo,
		sessionRepo,
		taskRepo,
		evaluator,
		publishers,
		shiftService.Options{
			EnforceGeofence: cfg.Clock.EnforceGeofence,
			PinHashCost:     cfg.Clock.PinHashCost,
		},
	)
	loyaltySvc := loyaltyService.NewLoyaltyService(transactor, customerRepo, loyaltyTxRepo, publishers, nil)
	shopSvc := shopService.NewShopService(transactor, shopRepo, publishers, cfg.Billing.GracePeriod, nil)

	redisClient := config.NewRedisClient(cfg.Redis)
	if redisClient == nil {
		slog.Warn("Redis unavailable, PIN rate limiting is per instance")
	} else {
		defer redisClient.Close()
	}

	scheduler := cron.NewScheduler()
	if err := cron.NewPinJobs(employeeRepo, nil).RegisterJobs(scheduler, cfg.Clock.PinExpirySweep); err != nil {
		slog.Error("Failed to register cron jobs", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		cfg.App,
		JWTService,
		middleware.NewShopMiddleware(shopSvc),
		middleware.NewRateLimiter(cfg.RateLimit, redisClient),
		appHTTP.NewClockHandler(shiftSvc, JWTService),
		appHTTP.NewLoyaltyHandler(loyaltySvc, cfg.Loyalty.Cooldown),
		appHTTP.NewEventsHandler(hub, JWTService),
		appHTTP.NewBillingHandler(shopSvc, billing.NewWebhookVerifier(cfg.Billing.WebhookToken)),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
