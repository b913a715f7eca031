package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/config"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/database"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/handler"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/middleware"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/payment"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/queue"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/router"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/sweep"
)

func main() {
	// Load .env if present; real deployments inject env vars directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	// Redis is optional: caching, the rate limiter and the reconcile
	// lock all degrade gracefully when it is absent.
	rdb := config.NewRedisClient()

	// Repositories.
	tourists := repository.NewTouristRepo(db)
	wallets := repository.NewWalletRepo(db)
	bookings := repository.NewBookingRepo(db)
	subjects := repository.NewSubjectRepo(db)
	promos := repository.NewPromoRepo(db)
	loyalty := repository.NewLoyaltyRepo(db)
	carts := repository.NewCartRepo(db)
	products := repository.NewProductRepo(db)
	purchases := repository.NewPurchaseRepo(db)
	notifications := repository.NewNotificationRepo(db)

	provider := payment.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey)
	cache := handler.NewWalletCache(rdb)

	// Handlers.
	bookingHandler := handler.NewBookingHandler(bookings, wallets, subjects, tourists, loyalty, promos, cache)
	checkoutHandler := handler.NewCheckoutHandler(carts, products, purchases, wallets, promos, tourists, loyalty,
		provider, cache, cfg.SuccessURL, cfg.CancelURL)
	paymentHandler := handler.NewPaymentHandler(provider, bookings, subjects, tourists, wallets, loyalty, promos,
		carts, products, purchases, checkoutHandler, cache, rdb,
		cfg.WebhookSecret, cfg.ReconcileWindow, cfg.SuccessURL, cfg.CancelURL)
	promoHandler := handler.NewPromoHandler(promos)
	loyaltyHandler := handler.NewLoyaltyHandler(loyalty, wallets, cache)
	walletHandler := handler.NewWalletHandler(wallets, cache)
	notificationHandler := handler.NewNotificationHandler(notifications)

	e := echo.New()

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e, paymentHandler)
	router.RegisterTourist(e, router.TouristHandlers{
		Booking:      bookingHandler,
		Checkout:     checkoutHandler,
		Payment:      paymentHandler,
		Promo:        promoHandler,
		Loyalty:      loyaltyHandler,
		Wallet:       walletHandler,
		Notification: notificationHandler,
	}, cfg.JWTSecret, rateLimit)
	router.RegisterAdmin(e, promoHandler, checkoutHandler, cfg.JWTSecret)

	// Background workers: the notification consumer drains the broker
	// queues into the notifications table, and the reminder sweep
	// publishes deadline reminders.
	go func() {
		if err := queue.StartNotificationConsumer(notifications); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()
	go sweep.NewReminder(bookings, subjects, 0).Run(context.Background())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
