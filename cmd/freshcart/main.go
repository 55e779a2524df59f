package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/krishbavarva/freshcart/internal/cart"
	"github.com/krishbavarva/freshcart/internal/catalog"
	"github.com/krishbavarva/freshcart/internal/catalog/foodapi"
	"github.com/krishbavarva/freshcart/internal/delivery"
	"github.com/krishbavarva/freshcart/internal/geo"
	"github.com/krishbavarva/freshcart/internal/notification"
	"github.com/krishbavarva/freshcart/internal/order"
	"github.com/krishbavarva/freshcart/internal/payment"
	"github.com/krishbavarva/freshcart/internal/shared/auth"
	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/database"
	"github.com/krishbavarva/freshcart/internal/shared/events"
	"github.com/krishbavarva/freshcart/internal/shared/metrics"
	secmiddleware "github.com/krishbavarva/freshcart/internal/shared/middleware"
	"github.com/krishbavarva/freshcart/internal/user"
)

// App holds all application dependencies
type App struct {
	Config    *config.Config
	DB        *database.DB
	Publisher events.Publisher
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Error("database not available", "error", err)
		os.Exit(1)
	}
	app.DB = db
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Event broker is optional: orders work without it, events are skipped.
	if cfg.Broker.Enabled {
		publisher, err := events.NewRabbitPublisher(cfg.Broker)
		if err != nil {
			logger.Warn("broker not available, running without events", "error", err)
		} else {
			app.Publisher = publisher
			defer publisher.Close()
			logger.Info("event publisher connected", "exchange", cfg.Broker.Exchange)
		}
	}

	// Delivery pipeline: geocoder and router behind the resolver, pricing
	// on top.
	geocoder := geo.NewNominatimClient(cfg.Geo, nil)
	router := geo.NewOSRMClient(cfg.Geo, nil)
	resolver := delivery.NewResolver(geocoder, router, cfg.Delivery, logger)
	deliveryService := delivery.NewService(resolver, cfg.Delivery, logger)

	paymentClient := payment.NewClient(cfg.Payment, nil)

	notifier := notification.NewService(notification.NewLogProvider(logger), logger)

	var foodClient *foodapi.Client
	if cfg.FoodAPI.Enabled {
		foodClient = foodapi.NewClient(cfg.FoodAPI, nil)
	}

	userRepo := user.NewRepository(db.Pool)
	catalogRepo := catalog.NewRepository(db.Pool)
	cartRepo := cart.NewRepository(db.Pool)
	orderRepo := order.NewRepository(db.Pool)

	orderService := order.NewService(
		orderRepo, cartRepo, deliveryService, paymentClient,
		app.Publisher, notifier, cfg, logger,
	)

	userHandler := user.NewHandler(userRepo, cfg.Auth)
	catalogHandler := catalog.NewHandler(catalogRepo, foodClient)
	cartHandler := cart.NewHandler(cartRepo)
	deliveryHandler := delivery.NewHandler(deliveryService)
	orderHandler := order.NewHandler(orderService, orderRepo)

	rateLimiter := secmiddleware.NewIPRateLimiter(20, 40)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.MaxBody(1 << 20))
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)
	r.Use(rateLimiter.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	r.Get("/", infoHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", userHandler.PublicRoutes())

		// Catalog browsing is public; management routes inside check roles
		// themselves, so the whole subtree goes behind optional auth.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalMiddleware(cfg.Auth))
			r.Mount("/products", catalogHandler.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth))

			r.Mount("/users", userHandler.Routes())
			r.Mount("/cart", cartHandler.Routes())
			r.Mount("/delivery", deliveryHandler.Routes())
			r.Mount("/orders", orderHandler.Routes())
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		close(done)
	}()

	logger.Info("freshcart started",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"store", cfg.Delivery.StoreAddressText(),
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "FreshCart",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if err := app.DB.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		if app.Publisher != nil {
			if err := app.Publisher.Health(); err != nil {
				checks["broker"] = "not ready: " + err.Error()
			} else {
				checks["broker"] = "ready"
			}
		} else {
			checks["broker"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
