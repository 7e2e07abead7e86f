package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartdine/analytics"
	"smartdine/auth"
	"smartdine/bills"
	"smartdine/catalog"
	"smartdine/config"
	"smartdine/db"
	"smartdine/memstore"
	"smartdine/middleware"
	"smartdine/notify"
	"smartdine/orders"
	"smartdine/ratelim"
	"smartdine/rdx"
	"smartdine/routes"
	"smartdine/tables"
	"smartdine/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// backend is the persistence layer chosen by STORE_DRIVER.
type backend struct {
	Orders interface {
		orders.OrderStore
		analytics.Orders
	}
	Foods interface {
		catalog.Store
		orders.CatalogStore
		analytics.Catalog
	}
	Revenue     analytics.Ledger
	Staff       auth.StaffStore
	Idempotency middleware.IdempotencyStore
	Tx          orders.Transactor

	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using in-memory store; data is lost on exit")
		m := memstore.New()
		noop := func(context.Context) error { return nil }
		return &backend{
			Orders: m.Orders, Foods: m.Foods, Revenue: m.Revenue,
			Staff: m.Staff, Idempotency: m.Idempotency, Tx: m,
			Ping: noop, Close: noop,
		}, nil
	}

	mdb, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTransactions)
	if err != nil {
		return nil, err
	}
	if err := mdb.EnsureIndexes(ctx); err != nil {
		mdb.Close(ctx)
		return nil, err
	}
	log.WithField("database", cfg.MongoDatabase).Info("connected to MongoDB")
	return &backend{
		Orders: mdb.Orders, Foods: mdb.Foods, Revenue: mdb.Revenue,
		Staff: mdb.Staff, Idempotency: mdb.Idempotency, Tx: mdb,
		Ping: mdb.Ping, Close: mdb.Close,
	}, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.SetupLogging()
	return cfg, nil
}

func health(b *backend) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := b.Ping(ctx); err != nil {
			log.WithError(err).Warn("health check failed")
			utils.RespondWithJSON(w, http.StatusServiceUnavailable, utils.M{"status": "unavailable"})
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "ok"})
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, _ := cfg.Location()

	ctx, stop := context.WithCancel(c.Context)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	hub := notify.NewHub()
	go hub.Run()

	var (
		notifier  orders.Notifier = hub
		menuCache catalog.Cache
		rdb       *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb, err = rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Warn("redis unavailable; running single instance without menu cache")
		} else {
			relay := notify.NewRedisRelay(rdb, hub, cfg.RedisEventsChannel)
			go relay.Listen(ctx)
			notifier = relay
			menuCache = rdx.NewCache(rdb, cfg.MenuCacheTTL)
		}
	}

	engine := orders.NewEngine(b.Orders, b.Foods, b.Revenue, b.Tx, notifier)
	menu := catalog.NewService(b.Foods, menuCache)

	router := routes.New(routes.Handlers{
		Orders:    orders.NewHandler(engine),
		Catalog:   catalog.NewHandler(menu, catalog.NewImageStore(cfg.StaticDir, "/static")),
		Analytics: analytics.NewHandler(analytics.NewAggregator(b.Revenue, b.Foods, b.Orders, loc)),
		Auth:      auth.NewHandler(auth.NewService(b.Staff, []byte(cfg.JWTSecret), cfg.TokenTTL)),
		Bills: bills.NewHandler(engine, &bills.Renderer{
			Restaurant: cfg.RestaurantName,
			Currency:   cfg.CurrencySymbol,
			MenuURL:    cfg.PublicMenuURL,
			Location:   loc,
		}),
		Tables:       tables.NewHandler(cfg.PublicMenuURL),
		Hub:          hub,
		Idempotency:  b.Idempotency,
		JWTSecret:    []byte(cfg.JWTSecret),
		OrderLimiter: ratelim.NewRateLimiter(cfg.OrderRatePerMinute, 5),
		LoginLimiter: ratelim.NewRateLimiter(10, 3),
		StaticDir:    cfg.StaticDir,
		Health:       health(b),
	})

	// CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(router)
	handler := middleware.LoggingMiddleware(middleware.SecurityHeaders(corsHandler))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Info("stopping notification hub")
		stop()
		hub.Stop()
	})

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		log.WithError(err).Error("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if rdb != nil {
		rdb.Close()
	}
	if err := b.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("close store")
	}
	log.Info("server stopped")
	return nil
}

func migrateRevenue(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, _ := cfg.Location()

	b, err := openBackend(c.Context, cfg)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	res, err := analytics.NewAggregator(b.Revenue, b.Foods, b.Orders, loc).Migrate(c.Context)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"scanned": res.Scanned,
		"created": res.Created,
		"skipped": res.Skipped,
	}).Info("migration complete")
	return nil
}

func seedStaff(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := openBackend(c.Context, cfg)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	svc := auth.NewService(b.Staff, []byte(cfg.JWTSecret), cfg.TokenTTL)
	_, err = svc.SeedStaff(c.Context, c.String("email"), c.String("password"), c.String("role"))
	return err
}

func main() {
	app := &cli.App{
		Name:   "smartdine",
		Usage:  "restaurant table ordering backend",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP and websocket server",
				Action: serve,
			},
			{
				Name:   "migrate-revenue",
				Usage:  "backfill revenue records for served orders that have none",
				Action: migrateRevenue,
			},
			{
				Name:  "seed-staff",
				Usage: "create or update a staff login",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"SEED_STAFF_PASSWORD"}},
					&cli.StringFlag{Name: "role", Value: "chef", Usage: "chef or admin"},
				},
				Action: seedStaff,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("smartdine failed")
	}
}
