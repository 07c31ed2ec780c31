package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"foodcourt/internal/catalog"
	"foodcourt/internal/config"
	"foodcourt/internal/etcd"
	"foodcourt/internal/eventbus"
	"foodcourt/internal/identity"
	"foodcourt/internal/logger"
	"foodcourt/internal/notify"
	"foodcourt/internal/orders"
	"foodcourt/internal/payments"
	"foodcourt/internal/pubsub"
	"foodcourt/internal/store"
	"foodcourt/internal/transport"
	"foodcourt/internal/workforce"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "foodcourt",
		Usage:   "Foodcourt Control Plane - order, payment and shift ledger",
		Version: "0.1.0",
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the control plane server",
				Flags:  serverFlags(),
				Action: runServer,
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "database",
						Usage:   "Postgres connection string (postgresql://...)",
						Value:   "postgresql://localhost:5432/foodcourt?sslmode=disable",
						EnvVars: []string{"DATABASE_URL"},
					},
				},
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "Server host",
			Value:   "0.0.0.0",
			EnvVars: []string{"HTTP_HOST"},
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Server port",
			Value:   8080,
			EnvVars: []string{"HTTP_PORT"},
		},
		&cli.StringFlag{
			Name:    "database",
			Usage:   "Postgres connection string (postgresql://...)",
			Value:   "postgresql://localhost:5432/foodcourt?sslmode=disable",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:     "session-signing-secret",
			Usage:    "Secret the session-token HMAC key is derived from",
			EnvVars:  []string{"SESSION_SIGNING_SECRET"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "psp-a-secret",
			Usage:   "Card PSP A API secret key",
			EnvVars: []string{"PSP_A_SECRET"},
		},
		&cli.StringFlag{
			Name:    "psp-a-webhook-secret",
			Usage:   "Card PSP A webhook signing secret",
			EnvVars: []string{"PSP_A_WEBHOOK_SECRET"},
		},
		&cli.StringFlag{
			Name:    "psp-b-shop-id",
			Usage:   "Card PSP B shop identifier",
			EnvVars: []string{"PSP_B_SHOP_ID"},
		},
		&cli.StringFlag{
			Name:    "psp-b-secret",
			Usage:   "Card PSP B request-signing secret",
			EnvVars: []string{"PSP_B_SECRET"},
		},
		&cli.StringFlag{
			Name:    "psp-b-base-url",
			Usage:   "Card PSP B API base URL",
			Value:   "https://api.pspb.example",
			EnvVars: []string{"PSP_B_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "public-base-url",
			Usage:   "Public URL callers are redirected back to after a card flow",
			Value:   "http://localhost:8080",
			EnvVars: []string{"PUBLIC_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "timezone-default",
			Usage:   "Default IANA timezone; loaded into the config but not read by any component (a restaurant's timezone comes from its own row)",
			Value:   "UTC",
			EnvVars: []string{"NODE_TIMEZONE_DEFAULT"},
		},
		&cli.IntFlag{
			Name:    "rate-limit-per-minute",
			Usage:   "Per-caller request budget per minute",
			Value:   100,
			EnvVars: []string{"RATE_LIMIT_PER_MINUTE"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for cross-instance event fan-out. If empty, fan-out is in-process only",
			EnvVars: []string{"REDIS_URL"},
		},
		&cli.StringSliceFlag{
			Name:    "etcd-endpoints",
			Usage:   "Etcd endpoints for the outbox dispatcher's singleton lease (comma-separated). If empty, the lease lives in the database",
			EnvVars: []string{"ETCD_ENDPOINTS"},
		},
		&cli.StringFlag{
			Name:    "sendgrid-api-key",
			Usage:   "SendGrid API key for the notification subscriber. If empty, email fan-out is disabled",
			EnvVars: []string{"SENDGRID_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "notify-from-email",
			Usage:   "From address for notification emails",
			EnvVars: []string{"NOTIFY_FROM_EMAIL"},
		},
	}
}

func configFrom(c *cli.Context) config.Config {
	return config.Config{
		DatabaseURL:          c.String("database"),
		SessionSigningSecret: c.String("session-signing-secret"),
		PSPASecret:           c.String("psp-a-secret"),
		PSPAWebhookSecret:    c.String("psp-a-webhook-secret"),
		PSPBShopID:           c.String("psp-b-shop-id"),
		PSPBSecret:           c.String("psp-b-secret"),
		PSPBBaseURL:          c.String("psp-b-base-url"),
		PublicBaseURL:        c.String("public-base-url"),
		NodeTimezoneDefault:  c.String("timezone-default"),
		HTTPHost:             c.String("host"),
		HTTPPort:             c.Int("port"),
		RateLimitPerMinute:   c.Int("rate-limit-per-minute"),
		RedisURL:             c.String("redis-url"),
		EtcdEndpoints:        c.StringSlice("etcd-endpoints"),
		SendgridAPIKey:       c.String("sendgrid-api-key"),
		NotifyFromEmail:      c.String("notify-from-email"),
		NotifyFromName:       "Foodcourt",
	}
}

func runServer(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx, zlog := logger.PrepareLogger(ctx)
	defer zlog.Sync()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		zlog.Info("[SERVER] action=shutdown_signal")
		cancel()
	}()

	cfg := configFrom(c)

	driver, dsn, err := store.ParseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	st, err := store.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	// Cross-instance fan-out: redis when configured, in-process otherwise.
	var ps pubsub.PubSub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		ps = pubsub.NewRedisPubSub(redis.NewClient(opts))
	} else {
		ps = pubsub.NewMemoryPubSub()
	}
	defer ps.Close()

	// Singleton lease for the outbox dispatcher: etcd across replicas,
	// a database row in single-instance mode.
	var leaser eventbus.Leaser
	if len(cfg.EtcdEndpoints) > 0 {
		etcdClient, err := etcd.NewClient(etcd.Config{Endpoints: cfg.EtcdEndpoints})
		if err != nil {
			return fmt.Errorf("connecting to etcd: %w", err)
		}
		defer etcdClient.Close()
		leaser = &eventbus.EtcdLeaser{Client: etcdClient}
		zlog.Info("[SERVER] action=lease_mode mode=etcd", zap.Strings("endpoints", cfg.EtcdEndpoints))
	} else {
		leaser = &eventbus.DBLeaser{Store: st}
		zlog.Info("[SERVER] action=lease_mode mode=database")
	}

	bus := eventbus.NewBus(st)
	oracle := identity.NewOracle(st, cfg.SessionSigningSecret)
	if admin, err := oracle.EnsureSuperadmin(ctx); err != nil {
		return fmt.Errorf("ensuring superadmin: %w", err)
	} else if admin.ID != "" {
		zlog.Info("[SERVER] action=superadmin_bootstrapped", zap.String("principal_id", admin.ID))
	}
	cat := catalog.NewStaticCatalog()

	adapters := []payments.Adapter{payments.Cash{}, payments.Terminal{}}
	if cfg.PSPASecret != "" {
		adapters = append(adapters, payments.NewCardPSPA(cfg.PSPASecret, cfg.PSPAWebhookSecret, cfg.PublicBaseURL+"/payments/return"))
	}
	if cfg.PSPBSecret != "" {
		adapters = append(adapters, payments.NewCardPSPB(cfg.PSPBBaseURL, cfg.PSPBShopID, cfg.PSPBSecret, cfg.PublicBaseURL+"/payments/return"))
	}
	paymentEngine := payments.NewEngine(st, bus, oracle, adapters...)
	orderEngine := orders.NewEngine(st, cat, bus, oracle, paymentEngine)
	workforceEngine := workforce.NewEngine(st, bus, oracle)

	if cfg.SendgridAPIKey != "" {
		bus.Register(notify.NewSubscriber(cfg.SendgridAPIKey, cfg.NotifyFromEmail, cfg.NotifyFromName, "Foodcourt"))
	}

	dispatcher := eventbus.NewDispatcher(bus, st, leaser, ps)
	go dispatcher.Run(ctx)

	sweeper := workforce.NewSweeper(workforceEngine)
	go sweeper.Run(ctx)

	svc := &transport.Services{
		Store:     st,
		Oracle:    oracle,
		Bus:       bus,
		Orders:    orderEngine,
		Payments:  paymentEngine,
		Workforce: workforceEngine,
		PubSub:    ps,
		RateLimit: cfg.RateLimitPerMinute,
	}
	router := transport.NewRouter(svc, "/api")

	addr := fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	zlog.Info("[SERVER] action=start",
		zap.String("addr", addr),
		zap.String("database", driver),
		zap.Bool("psp_a", cfg.PSPASecret != ""),
		zap.Bool("psp_b", cfg.PSPBSecret != ""),
		zap.Bool("redis", cfg.RedisURL != ""))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("[SERVER] action=listen_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	zlog.Info("[SERVER] action=shutdown_begin")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("[SERVER] action=shutdown_error", zap.Error(err))
	}
	zlog.Info("[SERVER] action=shutdown_done")
	return nil
}

func runMigrate(c *cli.Context) error {
	ctx, zlog := logger.PrepareLogger(context.Background())
	defer zlog.Sync()

	driver, dsn, err := store.ParseDatabaseURL(c.String("database"))
	if err != nil {
		return err
	}
	st, err := store.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	zlog.Info("[MIGRATE] action=begin", zap.String("driver", driver))
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	zlog.Info("[MIGRATE] action=done")
	return nil
}
