package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/streadway/amqp"

	"bazaar/internal/config"
	"bazaar/internal/database"
	"bazaar/internal/server"
	"bazaar/internal/services"
	"bazaar/pkg/payment"
	"bazaar/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// --- Initialize RabbitMQ Client ---
	// Events are best-effort, so the API still starts when the broker is down.
	var events services.EventPublisher
	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange})
	if err != nil {
		log.Printf("Warning: RabbitMQ unavailable, domain events disabled: %v", err)
	} else {
		defer mqClient.Close()
		events = mqClient
		startAuditConsumer(mqClient)
	}

	app := server.New(server.Options{
		DB:            db,
		JWTSecret:     cfg.JWTSecret,
		Pricing:       pricingPolicy(cfg),
		AllowOversell: cfg.AllowOversell,
		Currency:      cfg.PaymentCurrency,
		Gateway:       paymentGateway(cfg),
		Events:        events,
		RequestLog:    true,
	})

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := app.Auth.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("Failed to seed admin account: %v", err)
		}
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Fiber.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server gracefully stopped")
}

func pricingPolicy(cfg *config.Config) services.PricingPolicy {
	return services.PricingPolicy{
		TaxRate:               cfg.TaxRate,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFlatRate:      cfg.ShippingFlatRate,
	}
}

// paymentGateway returns nil when no secret key is configured so card refunds are
// recorded without calling out.
func paymentGateway(cfg *config.Config) services.PaymentGateway {
	if cfg.PaymentSecretKey == "" {
		log.Println("Warning: PAYMENT_SECRET_KEY not set, payment gateway disabled")
		return nil
	}
	return payment.NewClient(payment.Config{
		BaseURL:    cfg.PaymentBaseURL,
		SecretKey:  cfg.PaymentSecretKey,
		Timeout:    cfg.PaymentTimeout,
		MaxRetries: 2,
	})
}

// startAuditConsumer logs every domain event the marketplace publishes.
func startAuditConsumer(client *rabbitmq.Client) {
	go func() {
		log.Println("Starting RabbitMQ consumer for marketplace events...")
		if err := client.Consume("bazaar_audit", "#", auditEvent); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}()
}

func auditEvent(msg amqp.Delivery) error {
	event, err := rabbitmq.DecodeEvent(msg)
	if err != nil {
		return err
	}
	log.Printf("Received %s event (Tag: %d) at %s: %s", event.Type, msg.DeliveryTag, event.OccurredAt, event.Payload)
	return nil
}
