package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos-store/internal/audit"
	"go-pos-store/internal/cache"
	"go-pos-store/internal/client"
	"go-pos-store/internal/config"
	"go-pos-store/internal/handler"
	"go-pos-store/internal/model"
	"go-pos-store/internal/printer"
	"go-pos-store/internal/query"
	"go-pos-store/internal/service"
	"go-pos-store/internal/ws"
	"go-pos-store/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("POS_CONFIG"), "path to a YAML config file")
	flag.Parse()

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Config and logger
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Setup Database
	db := client.New(cfg.Database, logger)
	if err := db.Connect(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 4. Optional Redis cache and Mongo audit log
	var settingsCache cache.Cache = cache.Nop{}
	if cfg.Redis.Enabled {
		rc := cache.NewRedis(&cfg.Redis)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("Redis connection failed, settings are read from the database", zap.Error(err))
		} else {
			logger.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr))
		}
		settingsCache = rc
	}

	var history audit.Reader
	if cfg.MongoDB.Enabled {
		sink, err := audit.NewMongoSink(ctx, &cfg.MongoDB)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer sink.Close(context.Background())
		if err := sink.Ping(ctx); err != nil {
			logger.Warn("MongoDB ping failed, audit writes will be logged as failures", zap.Error(err))
		}
		db.Use(audit.Middleware(sink, logger))
		history = sink
		logger.Info("Audit log enabled", zap.String("collection", cfg.MongoDB.Collection))
	}

	// 5. Setup WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run(ctx)

	// 6. Dependency Injection (Wiring Layers)
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)
	settingsService := service.NewSettingsService(db, settingsCache, logger)
	authService := service.NewAuthService(db, tokens)
	userService := service.NewUserService(db)

	if err := seedDefaults(ctx, db, userService, settingsService, logger); err != nil {
		logger.Fatal("Failed to seed defaults", zap.Error(err))
	}

	services := handler.Services{
		Auth:      authService,
		Users:     userService,
		Catalog:   service.NewCatalogService(db),
		Orders:    service.NewOrderService(db, settingsService, wsHub, printer.Sender{DialTimeout: 3 * time.Second}, logger),
		Settings:  settingsService,
		Dashboard: service.NewDashboardService(db, settingsService),
		Audit:     history,
	}

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.Server.Name,
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS

	// 8. Routes
	handler.Register(app, services, wsHub)

	// 9. Graceful Shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("Starting POS API", zap.String("name", cfg.Server.Name), zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := db.Disconnect(context.Background()); err != nil {
		logger.Error("Failed to disconnect database", zap.Error(err))
	}

	logger.Info("Server exited")
}

// seedDefaults creates the first admin user and the settings rows if they don't exist.
func seedDefaults(ctx context.Context, db *client.Client, users service.UserService, settings service.SettingsService, logger *zap.Logger) error {
	n, err := db.Users.Count(ctx, query.Is("role", model.RoleAdmin))
	if err != nil {
		return err
	}
	if n == 0 {
		email := envOr("POS_ADMIN_EMAIL", "admin@example.com")
		_, err := users.CreateUser(ctx, &service.CreateUserRequest{
			Email:    email,
			Password: envOr("POS_ADMIN_PASSWORD", "admin123"),
			Name:     "Administrator",
			Role:     model.RoleAdmin,
		})
		if err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		logger.Info("Admin user created", zap.String("email", email))
	}

	if _, err := settings.Store(ctx); err != nil {
		return err
	}
	if _, err := settings.General(ctx); err != nil {
		return err
	}
	if _, err := settings.Printer(ctx); err != nil {
		return err
	}
	_, err = settings.Hours(ctx)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
