package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"klunkaz/pkg/bikes"
	"klunkaz/pkg/config"
	"klunkaz/pkg/db"
	"klunkaz/pkg/events"
	"klunkaz/pkg/identity"
	"klunkaz/pkg/logging"
	"klunkaz/pkg/metrics"
	"klunkaz/pkg/notify"
	"klunkaz/pkg/registry"
	"klunkaz/pkg/rentals"
	"klunkaz/pkg/reviews"
	"klunkaz/pkg/settlement"
	"klunkaz/pkg/store"
	"klunkaz/pkg/tracing"
	"klunkaz/pkg/transactions"
)

var fundFlag map[string]int64

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.TLS.Validate(); err != nil {
		return fmt.Errorf("TLS settings invalid: %w", err)
	}

	if err := logging.Setup(cfg.Logging); err != nil {
		return err
	}
	defer logging.Close()
	mainLog := logging.New("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	traces, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := traces.Shutdown(shutdownCtx); err != nil {
			mainLog.Warnf("tracing shutdown: %s", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promRegistry)

	book, err := newBook(cfg.SettlementMode, fundFlag)
	if err != nil {
		return err
	}

	eventsLog := logging.New("events")
	hub := events.NewHub(eventsLog)
	defer hub.CloseAll()

	opts := []registry.Option{
		registry.WithDayLength(cfg.DayLength),
		registry.WithSettler(book),
		registry.WithLogger(logging.New("registry")),
		registry.WithRecorder(m),
		registry.WithEventSink(hub),
		registry.WithEventSink(m),
	}

	var alerts *notify.StolenAlerts
	if cfg.Notify.Enabled() {
		email := notify.NewEmailService(cfg.Notify.SendGridAPIKey, cfg.Notify.SenderEmail, cfg.Notify.SenderName)
		alerts = notify.NewStolenAlerts(email, cfg.Notify.AlertEmail, nil, logging.New("notify"))
		opts = append(opts, registry.WithEventSink(alerts))
	} else {
		mainLog.Infof("stolen-bike alerts disabled: SENDGRID_API_KEY or STOLEN_ALERT_EMAIL not set")
	}

	reg, closeStore, err := openRegistry(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	if alerts != nil {
		alerts.SetBikeLookup(reg)
		go alerts.Run(ctx)
	}

	verifier, closeCache, err := newVerifier(ctx, cfg.Auth)
	if err != nil {
		return err
	}
	defer closeCache()

	router := newRouter(cfg, reg, verifier, hub, eventsLog, m, traces)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if !cfg.TLS.Enable {
			log.Printf("Listening on :%s (HTTP)", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("listen (HTTP): %v", err)
			}
			return
		}

		tlsConfig, certFile, keyFile, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			log.Fatalf("TLS setup error: %v", err)
		}
		srv.TLSConfig = tlsConfig

		log.Printf("Listening on :%s (HTTPS)", cfg.Port)
		if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen (TLS): %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exiting")
	return nil
}

func newBook(mode string, funds map[string]int64) (*settlement.Book, error) {
	if mode == config.SettlementUnlimited {
		if len(funds) > 0 {
			return nil, errors.New("--fund needs SETTLEMENT_MODE=book")
		}
		return settlement.NewBook(settlement.Unlimited()), nil
	}

	book := settlement.NewBook()
	for who, amount := range funds {
		if err := book.Deposit(registry.Identity(who), amount); err != nil {
			return nil, fmt.Errorf("fund %s: %w", who, err)
		}
	}
	return book, nil
}

// openRegistry restores the registry from Postgres when DATABASE_URL is set,
// otherwise it starts empty on top of an in-memory store.
func openRegistry(ctx context.Context, cfg config.Config, opts []registry.Option) (*registry.Registry, func(), error) {
	if cfg.Database.URL == "" {
		log.Println("DATABASE_URL not set, keeping the registry in memory")
		return registry.New(append(opts, registry.WithStore(store.NewMemoryStore()))...), func() {}, nil
	}

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	pg := store.NewPostgresStore(pool)
	snap, err := pg.Load(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	reg, err := registry.Restore(snap, append(opts, registry.WithStore(pg))...)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("restore registry: %w", err)
	}
	log.Printf("Restored %d bikes, %d reviews, %d transactions", len(snap.Bikes), len(snap.Reviews), len(snap.Transactions))
	return reg, pool.Close, nil
}

func newVerifier(ctx context.Context, auth config.Auth) (*identity.Verifier, func(), error) {
	var (
		cache   identity.TokenCache
		closeFn = func() {}
	)
	if auth.RedisURL != "" {
		rc, err := identity.NewRedisTokenCache(ctx, auth.RedisURL, logging.New("identity"))
		if err != nil {
			return nil, nil, err
		}
		cache = rc
		closeFn = func() { _ = rc.Close() }
	} else {
		cache = identity.NewMemoryTokenCache(auth.TokenCacheTTL)
	}

	v, err := identity.NewVerifier(auth.JWTSecret, cache, auth.TokenCacheTTL)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return v, closeFn, nil
}

func newRouter(cfg config.Config, reg *registry.Registry, verifier *identity.Verifier, hub *events.Hub, eventsLog registry.Logger, m *metrics.Metrics, traces *tracing.Provider) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.Origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(tracing.Middleware(traces.Tracer()), m.Middleware())

	auth := identity.RequireCaller(verifier)

	bikes.NewBikeHandler(reg, auth).RegisterRoutes(router)
	rentals.NewRentalHandler(reg, auth).RegisterRoutes(router)
	reviews.NewReviewHandler(reg, auth).RegisterRoutes(router)
	transactions.NewTransactionHandler(reg).RegisterRoutes(router)
	events.NewHandler(hub, eventsLog).RegisterRoutes(router)

	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return router
}
