package main

import (
	"context"
	"log"
	"os"

	v1 "urltracker/api/v1"
	"urltracker/internal/auth"
	"urltracker/internal/cache"
	"urltracker/internal/config"
	"urltracker/internal/db"
	"urltracker/internal/intercept"
	"urltracker/internal/regexcache"
	"urltracker/internal/service"
	"urltracker/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
		os.Exit(1)
	}
	log.Println("✓ Configuration loaded")

	// 2. Initialize MySQL
	if err := db.InitMySQL(cfg.MySQL.DSN); err != nil {
		log.Fatalf("Failed to initialize MySQL: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3. Initialize Redis
	if err := cache.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
		os.Exit(1)
	}
	defer cache.Close()

	// 4. Initialize JWT
	auth.InitJWT(cfg.JWT.Secret)

	// 5. Run migrations when requested
	if cfg.Migrate {
		if err := db.Migrate(db.DB()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
			os.Exit(1)
		}
		if cfg.Tracking.SeedIgnoreList {
			if err := db.SeedIgnoreList(db.DB()); err != nil {
				log.Fatalf("Failed to seed ignore list: %v", err)
				os.Exit(1)
			}
		}
		log.Println("✓ Migrations applied")
	}

	// 6. Wire stores, caches and services
	logger := logrus.NewEntry(logrus.New())

	redirectStore := store.NewGormRedirectStore(db.DB())
	clientErrorStore := store.NewGormClientErrorStore(db.DB())
	nodeStore := store.NewGormContentNodeStore(db.DB())

	ruleCache := regexcache.New(redirectStore, logger)
	registry := service.NewNodeRegistry(nodeStore, logger)
	redirectsSvc := service.NewRedirects(redirectStore, clientErrorStore, ruleCache, cache.PublishInvalidation, logger)
	clientErrorsSvc := service.NewClientErrors(clientErrorStore, logger)
	resolver := service.NewResolver(redirectStore, ruleCache, registry, logger)
	contentEventsSvc := service.NewContentEvents(redirectsSvc, registry, nil, cfg.Tracking.SEOMetadataEnabled, logger)

	recorder := service.NewMissRecorder(clientErrorsSvc, cfg.Tracking.MissBufferSize, logger)
	recorder.Start()
	defer recorder.Stop()

	// React to mutations committed by other instances sharing the database.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cache.SubscribeInvalidation(ctx, ruleCache.Invalidate)

	// 7. Initialize Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// Intercept runs before everything else so matched rules short-circuit.
	r.Use(intercept.Middleware(intercept.Options{
		Disabled:                 cfg.Tracking.Disabled,
		NotFoundTrackingDisabled: cfg.Tracking.NotFoundTrackingDisabled,
		Resolver:                 resolver,
		ClientErrors:             clientErrorsSvc,
		Recorder:                 recorder,
		Logger:                   logger,
	}))

	// Setup API v1 routes
	v1.SetupRouter(r, db.DB(), cfg, v1.Services{
		Redirects:     redirectsSvc,
		ClientErrors:  clientErrorsSvc,
		ContentEvents: contentEventsSvc,
		NodeRegistry:  registry,
	})

	log.Printf("✓ Server starting on %s", cfg.HTTPAddr)

	// Start server
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
