// Package main provides the entry point for the storefront campaign dispatch service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/storefront-campaigns/app/handlers"
	"github.com/amirphl/storefront-campaigns/app/middleware"
	"github.com/amirphl/storefront-campaigns/app/router"
	"github.com/amirphl/storefront-campaigns/app/services"
	businessflow "github.com/amirphl/storefront-campaigns/business_flow"
	"github.com/amirphl/storefront-campaigns/config"
	"github.com/amirphl/storefront-campaigns/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	logOutput io.Writer
	stopFuncs []func()
	// closers release connections once in-flight requests have finished
	closers []func()
}

func main() {
	log.Println("Starting storefront campaigns service...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logOutput, closeLog := initializeLogging(cfg.Logging)
	defer closeLog()

	app, err := initializeApplication(cfg, logOutput)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s (env=%s, version=%s)", address, cfg.Deployment.Environment, cfg.Deployment.Version)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	for _, fn := range app.closers {
		fn()
	}

	log.Println("Server stopped")
}

// initializeLogging points the standard logger at stdout, a rotating file or both
func initializeLogging(cfg config.LoggingConfig) (io.Writer, func()) {
	var out io.Writer = os.Stdout
	closeFn := func() {}

	if cfg.Output == "file" || cfg.Output == "both" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		closeFn = func() { _ = rotating.Close() }

		out = rotating
		if cfg.Output == "both" {
			out = io.MultiWriter(os.Stdout, rotating)
		}
	}

	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.LUTC)
	return out, closeFn
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	gormCfg := &gorm.Config{}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(log.Default(), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis until the returned function is called
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeTransport picks the WhatsApp transport from configuration
func initializeTransport(cfg *config.WhatsAppConfig) services.WhatsAppService {
	switch cfg.Provider {
	case "mock":
		log.Println("WhatsApp transport: mock (messages are not delivered)")
		return services.NewMockWhatsAppService()
	default:
		return services.NewWhatsAppService(cfg)
	}
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logOutput io.Writer) (*Application, error) {
	var stopFuncs, closers []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopMonitor := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckInterval)
		stopFuncs = append(stopFuncs, stopMonitor)
		closers = append(closers, func() { _ = rc.Close() })
	}

	// Initialize repositories
	campaignRepo := repository.NewCampaignRepository(db)
	campaignLogRepo := repository.NewCampaignLogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	contactRepo := repository.NewContactRepository(db)
	addressRepo := repository.NewBuyerAddressRepository(db)
	preferenceRepo := repository.NewCustomerPreferenceRepository(db)
	businessRepo := repository.NewBusinessRepository(db)

	// Initialize services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	transport := initializeTransport(&cfg.WhatsApp)
	audienceCache := services.NewAudienceCache(cfg.Cache, rc)

	// Initialize flows
	resolver := businessflow.NewSegmentResolver(orderRepo, contactRepo, addressRepo, preferenceRepo, businessRepo, cfg.Campaign)
	dispatchLogger := log.New(logOutput, "dispatch ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	enricher := businessflow.NewRecipientEnricher(orderRepo, cfg.Campaign, dispatchLogger)
	renderer := businessflow.NewMessageRenderer(cfg.Campaign.CurrencySymbol, cfg.Campaign.CurrencyLocale)

	dispatchFlow := businessflow.NewCampaignDispatchFlow(
		campaignRepo,
		campaignLogRepo,
		resolver,
		enricher,
		renderer,
		transport,
		audienceCache,
		db,
		cfg.Campaign,
		dispatchLogger,
	)

	adminCampaignFlow := businessflow.NewAdminCampaignFlow(
		campaignRepo,
		campaignLogRepo,
		resolver,
		audienceCache,
		cfg.Campaign,
	)

	// Initialize handlers
	dispatchHandler := handlers.NewCampaignDispatchHandler(dispatchFlow, cfg.Campaign.DispatchTimeout)
	campaignAdminHandler := handlers.NewCampaignAdminHandler(adminCampaignFlow)

	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	appRouter := router.NewFiberRouter(cfg, dispatchHandler, campaignAdminHandler, authMiddleware)

	closers = append(closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		logOutput: logOutput,
		stopFuncs: stopFuncs,
		closers:   closers,
	}, nil
}
