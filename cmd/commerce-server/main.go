package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haopham98/commerce/internal/api/handlers"
	"github.com/haopham98/commerce/internal/config"
	"github.com/haopham98/commerce/internal/infrastructure/leader"
	"github.com/haopham98/commerce/internal/infrastructure/mysql"
	"github.com/haopham98/commerce/internal/infrastructure/redis"
	"github.com/haopham98/commerce/internal/infrastructure/websocket"
	"github.com/haopham98/commerce/internal/services"
	"github.com/haopham98/commerce/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting commerce server")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Initialize stores
	listingStore := mysql.NewMySQLListingStore(db)
	bidStore := mysql.NewMySQLBidStore(db)
	watchlistStore := mysql.NewMySQLWatchlistStore(db)
	commentStore := mysql.NewMySQLCommentStore(db)

	// Initialize Redis based components
	eventPublisher := redis.NewRedisEventPublisher(rdb)
	eventSubscriber := redis.NewRedisEventSubscriber(rdb, log)

	// Initialize leader election
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	// Initialize websocket fan-out
	connManager := websocket.NewConnectionManager(log)
	broadcaster := websocket.NewWebSocketBroadcaster(connManager)

	// Initialize services
	engine := services.NewBiddingEngine(listingStore, bidStore, eventPublisher, log)
	listingService := services.NewListingService(listingStore, bidStore, watchlistStore, commentStore, log)
	sweeper := services.NewDeadlineSweeper(listingStore, eventPublisher, leaderElection, cfg.Instance.ID, log)
	eventListener := services.NewEventListener(connManager, broadcaster, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"X-User-ID",
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Initialize handlers
	listingHandler := handlers.NewListingHandler(listingService, log)
	bidHandler := handlers.NewBidHandler(engine, log)
	wsHandler := handlers.NewWebSocketHandler(listingStore, connManager, log)

	// API routes
	api := e.Group("/api/v1")
	api.POST("/listings", listingHandler.CreateListing)
	api.GET("/listings", listingHandler.ListActive)
	api.GET("/listings/:id", listingHandler.GetListing)
	api.POST("/listings/:id/bids", bidHandler.PlaceBid)
	api.POST("/listings/:id/close", bidHandler.CloseListing)
	api.GET("/listings/:id/winner", bidHandler.GetWinner)
	api.POST("/listings/:id/watch", listingHandler.Watch)
	api.DELETE("/listings/:id/watch", listingHandler.Unwatch)
	api.GET("/watchlist", listingHandler.Watchlist)
	api.POST("/listings/:id/comments", listingHandler.AddComment)

	e.GET("/ws/listings/:id", wsHandler.HandleConnection)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "commerce-server",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
		})
	})

	// Start background services
	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()

	go func() {
		if err := eventListener.Start(listenerCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	go func() {
		if err := sweeper.Start(context.Background()); err != nil {
			log.Error("Failed to start deadline sweeper", "error", err)
		}
	}()

	// Try to become sweeper leader
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became sweeper leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting HTTP server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down commerce server...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopListener()
	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop deadline sweeper", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(ctx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}

	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Commerce server stopped")
}
