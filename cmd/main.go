package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusbite/internal/auth"
	"campusbite/internal/config"
	"campusbite/internal/database"
	"campusbite/internal/idempotency"
	"campusbite/internal/logger"
	"campusbite/internal/messaging"
	"campusbite/internal/models"
	"campusbite/internal/payment"
	"campusbite/internal/server"
	"campusbite/internal/services/cart"
	"campusbite/internal/services/catalog"
	"campusbite/internal/services/notification"
	"campusbite/internal/services/order"
)

func main() {
	var (
		mode          = flag.String("mode", "", "Service mode: api-server, notification-subscriber")
		port          = flag.Int("port", 3000, "HTTP port for api-server mode")
		maxConcurrent = flag.Int("max-concurrent", 50, "Maximum concurrent checkouts")
		configPath    = flag.String("config", "config.yaml", "Path to configuration file")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintln(os.Stderr, "Usage: campusbite --mode=<api-server|notification-subscriber> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "api-server":
		err = runAPIServer(ctx, cfg, log, *port, *maxConcurrent)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		os.Exit(1)
	}

	if err != nil {
		log.Error("service_failed", "Service exited with error", "shutdown", err, nil)
		os.Exit(1)
	}
}

func runAPIServer(ctx context.Context, cfg *config.Config, log *logger.Logger, port, maxConcurrent int) error {
	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	mqConn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	defer mqConn.Close()
	publisher := messaging.NewPublisher(mqConn, log)

	// checkout works without Redis, just with idempotency keys disabled
	var idemStore order.IdempotencyStore
	if store, err := idempotency.NewStore(ctx, cfg); err != nil {
		log.Error("redis_unavailable", "Idempotency keys disabled", "startup", err, nil)
	} else {
		idemStore = store
		defer store.Close()
	}

	catalogStore := catalog.NewStore(db)
	cartStore := cart.NewStore(db)
	orderStore := order.NewPostgresStore(db)
	tokenStore := notification.NewPostgresTokenStore(db)
	authorizer := payment.NewHTTPAuthorizer(cfg, log)

	orderService := order.NewService(cartStore, catalog.NewResolver(catalogStore, log),
		orderStore, authorizer, idemStore, log, maxConcurrent)

	// status changes fan out over AMQP; delivery failures never block
	// the transition
	orderService.OnTransition(func(ctx context.Context, event models.StatusUpdateEvent) {
		if err := publisher.PublishStatusUpdate(ctx, event); err != nil {
			log.Error("status_publish_failed", "Failed to publish status event", "", err, map[string]interface{}{
				"order_number": event.OrderNumber,
			})
		}
	})

	catalogHandler := catalog.NewHandler(catalogStore, log)
	cartHandler := cart.NewHandler(cartStore, catalogStore, log)
	orderHandler := order.NewHandler(orderService, log)
	notificationHandler := notification.NewHandler(tokenStore, log)

	authMW := auth.NewMiddleware(cfg.Auth.JWTSecret, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", server.Health)

	mux.HandleFunc("GET /menu", authMW.Authenticate(catalogHandler.List))
	mux.HandleFunc("GET /menu/{id}", authMW.Authenticate(catalogHandler.Get))
	mux.HandleFunc("POST /menu", authMW.Authenticate(authMW.RequireStaff(catalogHandler.Create)))
	mux.HandleFunc("PUT /menu/{id}", authMW.Authenticate(authMW.RequireStaff(catalogHandler.Update)))
	mux.HandleFunc("PATCH /menu/{id}/availability", authMW.Authenticate(authMW.RequireStaff(catalogHandler.SetAvailability)))
	mux.HandleFunc("DELETE /menu/{id}", authMW.Authenticate(authMW.RequireStaff(catalogHandler.Delete)))

	mux.HandleFunc("GET /cart", authMW.Authenticate(cartHandler.List))
	mux.HandleFunc("POST /cart", authMW.Authenticate(cartHandler.Add))
	mux.HandleFunc("PUT /cart/{itemID}", authMW.Authenticate(cartHandler.SetQuantity))
	mux.HandleFunc("DELETE /cart/{itemID}", authMW.Authenticate(cartHandler.Remove))

	mux.HandleFunc("POST /checkout", authMW.Authenticate(orderHandler.Checkout))
	mux.HandleFunc("GET /orders", authMW.Authenticate(orderHandler.ListMine))
	mux.HandleFunc("GET /orders/all", authMW.Authenticate(authMW.RequireStaff(orderHandler.ListAll)))
	mux.HandleFunc("GET /orders/{number}", authMW.Authenticate(orderHandler.Get))
	mux.HandleFunc("GET /orders/{number}/history", authMW.Authenticate(orderHandler.History))
	mux.HandleFunc("POST /orders/{number}/status", authMW.Authenticate(authMW.RequireStaff(orderHandler.UpdateStatus)))
	mux.HandleFunc("POST /orders/{number}/confirm-cash", authMW.Authenticate(authMW.RequireStaff(orderHandler.ConfirmCash)))

	mux.HandleFunc("POST /notifications/tokens", authMW.Authenticate(notificationHandler.RegisterToken))

	srv := server.New(port, mux, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	mqConn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	defer mqConn.Close()

	dispatcher := notification.NewDispatcher(
		notification.NewPostgresTokenStore(db),
		notification.NewHTTPPushSender(cfg.Push),
		log,
	)

	subscriber := notification.NewSubscriber(mqConn, dispatcher, log)
	defer subscriber.Close()

	log.Info("subscriber_started", "Notification subscriber running", "startup", nil)

	if err := subscriber.Start(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("subscriber: %w", err)
	}
	return nil
}
