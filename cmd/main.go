package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/centralauth/identity-hub/internal/config"
	"github.com/centralauth/identity-hub/internal/handler"
	"github.com/centralauth/identity-hub/internal/handler/middleware"
	"github.com/centralauth/identity-hub/internal/repository/postgres"
	"github.com/centralauth/identity-hub/internal/service"
	"github.com/centralauth/identity-hub/pkg/email"
	"github.com/centralauth/identity-hub/pkg/magiclink"
	"github.com/centralauth/identity-hub/pkg/token"
	"github.com/centralauth/identity-hub/pkg/validator"
	"github.com/centralauth/identity-hub/pkg/vault"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}
	}()
	log.Println("✓ Database connection established")

	// Initialize Redis client
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}()
	log.Println("✓ Redis connection established")

	// Initialize the secret vault
	masterKey, err := cfg.Vault.DecodedMasterKey()
	if err != nil {
		log.Fatalf("Failed to load vault master key: %v", err)
	}
	secretVault, err := vault.New(masterKey)
	if err != nil {
		log.Fatalf("Failed to initialize secret vault: %v", err)
	}
	log.Println("✓ Secret vault initialized")

	// Initialize validator
	validate := validator.New()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	rbacRepo := postgres.NewRbacRepository(db)
	methodRepo := postgres.NewAuthMethodRepository(db)

	// Initialize token issuer and magic-link store
	issuer := token.NewIssuer(cfg.Token.Issuer, cfg.Token.TTL)
	magicLinks := magiclink.NewStore(redisClient, cfg.Auth.MagicLinkTTL)

	// Initialize email sender
	var emailSender email.Sender
	if cfg.Email.Enabled {
		sender, err := email.NewResendSender(&email.Config{
			APIKey:    cfg.Email.APIKey,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize email sender: %v", err)
			log.Println("Email functionality will be disabled")
		} else {
			emailSender = sender
			log.Println("✓ Email sender initialized (Resend)")
		}
	} else {
		log.Println("ℹ Email sender disabled (set EMAIL_ENABLED=true to enable)")
	}

	// Initialize services
	registryService := service.NewRegistryService(serviceRepo, secretVault)
	rbacService := service.NewRbacService(rbacRepo, serviceRepo)
	authMethodService := service.NewAuthMethodService(methodRepo, serviceRepo)
	authorizeService := service.NewAuthorizeService(registryService, rbacRepo, issuer)
	authService := service.NewAuthService(
		userRepo,
		rbacRepo,
		registryService,
		authMethodService,
		issuer,
		magicLinks,
		emailSender,
		cfg,
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, validate)
	serviceHandler := handler.NewServiceHandler(registryService, rbacService, authorizeService, validate)
	rbacHandler := handler.NewRbacHandler(rbacService, validate)
	loginConfigHandler := handler.NewLoginConfigHandler(authMethodService, validate)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Identity Hub v1.0",
		ErrorHandler: customErrorHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	// Setup global middlewares
	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CORSMiddleware())

	// Setup authorization middlewares
	authMiddleware := middleware.AuthMiddleware(authorizeService)
	requireAdmin := middleware.RequireAdmin(userRepo, authorizeService, "hub.manage")

	// Setup routes
	handler.SetupRoutes(
		app,
		authHandler,
		serviceHandler,
		rbacHandler,
		loginConfigHandler,
		healthHandler,
		authMiddleware,
		requireAdmin,
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("🚀 Server starting on http://localhost%s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		if err := app.Listen(addr); err != nil {
			// Don't use log.Fatalf in goroutine, send error to main
			log.Printf("❌ Server failed to start: %v", err)
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("⏳ Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server stopped")
}

// initDB initializes PostgreSQL database connection with retry logic
func initDB(cfg *config.Config) (*sqlx.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sqlx.DB
	var err error

	maxRetries := 5
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Error closing database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.Printf("Error closing Redis after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// customErrorHandler handles Fiber errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Printf("Error handling request [%s %s]: %v", c.Method(), c.Path(), err)

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
