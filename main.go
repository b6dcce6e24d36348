package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"campusfix-be/board"
	"campusfix-be/campusmap"
	"campusfix-be/config"
	"campusfix-be/controllers"
	"campusfix-be/messaging"
	"campusfix-be/middlewares"
	"campusfix-be/models"
	"campusfix-be/repository"
	"campusfix-be/routes"
	"campusfix-be/services"
	"campusfix-be/session"
	"campusfix-be/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
)

const widgetIdleTTL = 2 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	var (
		store repository.Store
		users repository.UserStore
		db    *mongo.Database
	)
	switch cfg.StoreDriver {
	case "memory":
		store = repository.NewMemoryStore()
		users = repository.NewMemoryUserStore()
		log.Println("Using in-memory store")
	case "mongo":
		var err error
		db, err = config.ConnectDB(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer config.DisconnectDB(db)
		if err := models.EnsureIndexes(db); err != nil {
			log.Fatalf("Failed to create indexes: %v", err)
		}
		log.Println("MongoDB connection established successfully!")
		store = repository.NewMongoStore(db)
		users = repository.NewMongoUserStore(db)
	default:
		log.Fatalf("Unknown store driver: %s (supported: mongo, memory)", cfg.StoreDriver)
	}

	redisClient, err := config.ConnectRedis(cfg.RedisAddress, cfg.RedisPassword)
	if err != nil {
		log.Printf("Redis unavailable, rate limiting disabled: %v", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var sessions session.Store = session.NewMemoryStore()
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient)
	}
	adminAuth := session.NewAuthenticator(cfg.AdminID, cfg.AdminPassword, cfg.AdminSessionTTL, sessions)
	if cfg.AdminID == "" || cfg.AdminPassword == "" {
		log.Println("ADMIN_ID/ADMIN_PASSWORD not set, admin login disabled")
	}

	var objects storage.ObjectStore
	switch cfg.StorageDriver {
	case "supabase":
		s, err := storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket)
		if err != nil {
			log.Fatalf("Failed to configure Supabase storage: %v", err)
		}
		objects = s
	case "oss":
		s, err := storage.NewOSSStore(cfg.OSSEndpoint, cfg.OSSAccessKeyID, cfg.OSSAccessKeySecret, cfg.OSSBucket, cfg.OSSPublicBaseURL)
		if err != nil {
			log.Fatalf("Failed to configure OSS storage: %v", err)
		}
		objects = s
	case "none", "":
		log.Println("No object storage configured, image uploads disabled")
	default:
		log.Fatalf("Unknown storage driver: %s (supported: supabase, oss, none)", cfg.StorageDriver)
	}

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		mq, err := messaging.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("RabbitMQ unavailable, events disabled: %v", err)
		} else {
			publisher = mq
		}
	}
	defer publisher.Close()

	repo := repository.NewIssueRepository(store)
	issueBoard := board.New(repo, publisher, board.Policy{AdminCanDelete: cfg.AdminCanDelete})
	proj := campusmap.NewProjection(cfg.CampusCenterLat, cfg.CampusCenterLng, cfg.MapScale)
	registry := campusmap.NewRegistry(proj)
	reports := services.NewReportService(issueBoard, objects, proj, services.ReportConfig{
		ImageMaxBytes:     cfg.ImageMaxBytes,
		ImageMaxDimension: cfg.ImageMaxDimension,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loadCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	if err := issueBoard.Load(loadCtx); err != nil {
		log.Printf("Initial issue load failed, will retry on demand: %v", err)
	}
	cancel()

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := registry.Sweep(widgetIdleTTL); n > 0 {
					log.Printf("map: dropped %d idle widgets", n)
				}
			}
		}
	}()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.AdminHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middlewares.MetricsMiddleware())
	r.Use(middlewares.AdminSession(adminAuth))
	r.Use(middlewares.OptionalAuth(cfg.JWTSecret))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "board_error": issueBoard.Err()})
	})

	routes.AuthRoutes(r, controllers.NewAuthController(users, cfg), cfg.JWTSecret)
	routes.AdminRoutes(r, controllers.NewAdminController(adminAuth, cfg))
	routes.IssueRoutes(r, controllers.NewIssueController(issueBoard, repo, reports, cfg), cfg.JWTSecret, routes.IssueLimits{
		Redis:      redisClient,
		QueueName:  cfg.IssueLimitQueue,
		DailyLimit: cfg.IssueDailyLimit,
	})
	routes.MapRoutes(r, controllers.NewMapController(issueBoard, registry, cfg))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
