package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/database"
	"github.com/givehub/backend/internal/handlers"
	"github.com/givehub/backend/internal/jobs"
	"github.com/givehub/backend/internal/queue"
	"github.com/givehub/backend/internal/routes"
	"github.com/givehub/backend/internal/services/history"
	"github.com/givehub/backend/internal/services/lifecycle"
	"github.com/givehub/backend/internal/services/notification"
	"github.com/givehub/backend/internal/services/project"
	"github.com/givehub/backend/internal/services/ranking"
	"github.com/givehub/backend/internal/services/verification"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	// Initialize database
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Notification transport: Redis queue drained by a bounded worker pool
	notificationQueue := queue.NewQueue(redisClient, cfg.Notification.QueueName)
	dispatcher := notification.NewQueueDispatcher(db, notificationQueue)
	workerPool := notification.NewWorkerPool(notificationQueue, cfg.Notification.Endpoint, cfg.Notification.Workers)
	workerPool.Start()

	// Initialize services
	historyService := history.NewService(db)
	formService := verification.NewService(db, dispatcher)
	lifecycleService := lifecycle.NewService(db, historyService, formService, dispatcher)
	projectService := project.NewService(db, lifecycleService)
	viewRefresher := ranking.NewViewRefresher(db)

	// Schedule the lifecycle sweeps
	scheduler := gocron.NewScheduler(time.UTC)
	revocationSweep := jobs.NewRevocationSweep(db, cfg.Verification, dispatcher, viewRefresher)
	listingSweep := jobs.NewListingSweep(db, cfg.Listing, lifecycleService)
	if err := jobs.ScheduleSweeps(scheduler, revocationSweep, listingSweep, cfg); err != nil {
		log.Fatalf("Failed to schedule sweeps: %v", err)
	}
	scheduler.StartAsync()

	// Initialize handlers
	projectHandler := handlers.NewProjectHandler(projectService, formService)
	adminHandler := handlers.NewAdminProjectHandler(lifecycleService, formService, historyService)

	// Initialize Gin router
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	// Setup routes
	routes.SetupRoutes(router, cfg, projectHandler, adminHandler)

	// Start server
	srv := startServer(router, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop sweeps and notification workers
	scheduler.Stop()
	workerPool.Stop()

	// Create a deadline to wait for
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, port string) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", port)
	return srv
}
