package server

import (
	"time"

	"bazaar/internal/handlers"
	"bazaar/internal/middleware"
	"bazaar/internal/repositories"
	"bazaar/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Options wires the collaborators the HTTP application runs on.
type Options struct {
	DB            *gorm.DB
	JWTSecret     string
	Pricing       services.PricingPolicy
	AllowOversell bool
	Currency      string
	Gateway       services.PaymentGateway // nil disables card refunds through the gateway
	Events        services.EventPublisher // nil disables event publishing
	RequestLog    bool
}

// App is the assembled HTTP application together with its services.
type App struct {
	Fiber *fiber.App
	Auth  *services.AuthService
	Store repositories.Store
}

// New builds the services and registers every route under /api/v1.
func New(opts Options) *App {
	store := repositories.NewGORMStore(opts.DB)

	authService := services.NewAuthService(store, opts.JWTSecret)
	productService := services.NewProductService(store.Products(), opts.AllowOversell)
	couponService := services.NewCouponService(store.Coupons(), store.Products())
	checkoutService := services.NewCheckoutService(store, opts.Pricing, opts.AllowOversell, opts.Gateway, opts.Events)
	orderService := services.NewOrderService(store, opts.Events)
	refundService := services.NewRefundService(store, opts.Gateway, opts.Events)
	settlementService := services.NewSettlementService(store, opts.Events)
	paymentService := services.NewPaymentService(opts.Gateway, opts.Currency)

	app := fiber.New(fiber.Config{
		AppName: "bazaar",
	})

	app.Use(recover.New())
	if opts.RequestLog {
		app.Use(logger.New())
	}

	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(authService)

	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	handlers.NewProductHandler(productService).RegisterRoutes(apiV1, auth)
	handlers.NewCouponHandler(couponService).RegisterRoutes(apiV1, auth)
	handlers.NewOrderHandler(checkoutService, orderService).RegisterRoutes(apiV1, auth)
	handlers.NewRefundHandler(refundService).RegisterRoutes(apiV1, auth)
	handlers.NewWithdrawalHandler(settlementService).RegisterRoutes(apiV1, auth)
	handlers.NewPaymentHandler(paymentService).RegisterRoutes(apiV1, auth)

	app.Get("/health", func(c *fiber.Ctx) error {
		status, health, database := fiber.StatusOK, "healthy", "connected"
		if sqlDB, err := opts.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status, health, database = fiber.StatusServiceUnavailable, "degraded", "unreachable"
		}
		rabbitMQ := "disabled"
		if opts.Events != nil {
			rabbitMQ = "connected"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":   health,
			"time":     time.Now().Format(time.RFC3339),
			"database": database,
			"rabbitMQ": rabbitMQ,
		})
	})

	return &App{
		Fiber: app,
		Auth:  authService,
		Store: store,
	}
}
