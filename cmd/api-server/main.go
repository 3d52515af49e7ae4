package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"comichub/internal/auth"
	"comichub/internal/catalog"
	"comichub/internal/comics"
	"comichub/internal/ingest"
	"comichub/internal/middleware"
	"comichub/internal/notify"
	"comichub/pkg/database"
	"comichub/pkg/utils"
)

func main() {
	cfg := utils.LoadConfig()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open catalog store: %v", err)
	}

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	if cfg.SecurityEnabled {
		router.Use(middleware.Security(cfg.MaxRequestSize))
	}
	if cfg.RateLimitEnabled {
		router.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	}

	hub := notify.NewHub()
	router.GET("/ws", notify.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "catalog": cfg.CatalogRoot})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"backend":    cfg.StoreBackend,
			"ws_clients": stats.WSClients,
		})
	})

	// Comic images straight off the canonical directories.
	router.Static(cfg.StaticPath, cfg.CatalogRoot)

	query := catalog.NewQuery(store, cfg)
	fetcher := ingest.CommandFetcher{
		Command: cfg.FetchCommand,
		Args:    cfg.FetchArgs,
		Dir:     cfg.FetchDir,
		Timeout: cfg.FetchTimeout,
	}
	pipeline := ingest.NewPipeline(store, fetcher, hub, cfg.FetchDir, cfg.CatalogRoot)

	authService, err := auth.NewService(utils.LoadAuthConfig())
	if err != nil {
		log.Fatalf("auth setup: %v", err)
	}
	authHandler := auth.NewHandler(authService)

	api := router.Group("/api")
	if cfg.CacheEnabled {
		api.Use(middleware.Cache(cfg.CacheTTL))
	}

	authHandler.RegisterRoutes(api.Group("/auth"))

	comicsHandler := comics.NewHandler(query, store, pipeline, hub)
	comicsHandler.RegisterRoutes(api.Group("/comics"))
	comicsHandler.RegisterChapterRoutes(api.Group("/chapters"))

	admin := api.Group("/comics")
	admin.Use(auth.AuthMiddleware(authService.Tokens))
	comicsHandler.RegisterAdminRoutes(admin)

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}

func openStore(cfg utils.Config) (catalog.Store, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return catalog.NewSQLiteStore(db, cfg.CatalogRoot)
	default:
		return catalog.NewJSONStore(cfg.CatalogRoot)
	}
}
