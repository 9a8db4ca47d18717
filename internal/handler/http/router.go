package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/config"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

const appVersion = "v1.0.0"

func NewRouter(
	appConfig config.AppConfig,
	JWTService jwt.Service,
	shopMiddleware *middleware.ShopMiddleware,
	rateLimiter *middleware.RateLimiter,
	clockHandler ClockHandler,
	loyaltyHandler LoyaltyHandler,
	eventsHandler EventsHandler,
	billingHandler BillingHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(appConfig.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "shopfloor"),
		slog.String("version", appVersion),
		slog.String("env", appConfig.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appConfig.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:           300,
	}))

	// PIN rate limiting is keyed by client IP.
	r.Use(chiMiddleware.RealIP)

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/billing", billingHandler.Webhook)

		r.Route("/shops/{shopID}", func(r chi.Router) {
			r.Use(shopMiddleware.LoadShop)

			// Public: tablet PIN screen, self-service balance, supervisor feed (own token).
			r.With(rateLimiter.Limit).Post("/clock/pin", clockHandler.VerifyPin)
			r.With(rateLimiter.Limit).Get("/loyalty/balance", loyaltyHandler.Balance)
			r.Get("/events", eventsHandler.Stream)

			// Requires a staff token for this shop
			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
				r.Use(middleware.StaffRequired(JWTService))

				r.Post("/events/token", eventsHandler.GetStreamToken)

				r.Route("/clock", func(r chi.Router) {
					r.Post("/pin/change", clockHandler.ChangePin)
					r.Post("/signout", clockHandler.SignOut)

					r.Get("/session", clockHandler.GetSession)
					r.Post("/session", clockHandler.OpenSession)
					r.Route("/session/{sessionID}", func(r chi.Router) {
						r.Use(middleware.UUIDParams("sessionID"))
						r.With(middleware.UUIDParams("taskID")).Post("/tasks/{taskID}/toggle", clockHandler.ToggleTask)
						r.Post("/close", clockHandler.CloseSession)
					})
				})

				r.Route("/loyalty/customers", func(r chi.Router) {
					r.Get("/lookup", loyaltyHandler.Lookup)
					r.Post("/", loyaltyHandler.Register)
					r.Route("/{customerID}", func(r chi.Router) {
						r.Use(middleware.UUIDParams("customerID"))
						r.Post("/points", loyaltyHandler.AwardPoint)
						r.Post("/redeem", loyaltyHandler.Redeem)
						r.Get("/transactions", loyaltyHandler.ListTransactions)
					})
				})
			})
		})
	})

	return r
}
