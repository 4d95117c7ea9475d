package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"flowboard/config"
	"flowboard/internal/handler"
	flowredis "flowboard/internal/redis"
	"flowboard/internal/repository"
	"flowboard/internal/server"
	"flowboard/internal/services"
	"flowboard/internal/websocket"
	"flowboard/pkg/database"
	"flowboard/pkg/logger"

	"github.com/google/uuid"
)

// connectionLimiter adapts the redis rate limiter to the websocket
// handler's handshake throttle. Redis failures fail open.
type connectionLimiter struct {
	limiter *flowredis.RateLimiter
}

func (l *connectionLimiter) Allow(ctx context.Context, userID uuid.UUID) (bool, error) {
	result, err := l.limiter.AllowConnection(ctx, userID.String())
	if err != nil {
		return true, nil
	}
	return result.Allowed, nil
}

func main() {
	cfg := config.LoadConfig()
	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	if cfg.SeedDemoData {
		if result, err := database.Seed(db, nil); err != nil {
			l.Errorf("Demo seeding failed: %v", err)
		} else if result != nil {
			l.Infof("Seeded %d demo users", len(result.Users))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		rateLimiter *flowredis.RateLimiter
		lastSeen    *flowredis.LastSeenStore
	)
	if cfg.RedisEnabled {
		redisClient := flowredis.NewClient(flowredis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := flowredis.Ping(ctx, redisClient); err != nil {
			l.Warnf("Redis unreachable, rate limiting and last-seen disabled: %v", err)
		} else {
			rateLimiter = flowredis.NewRateLimiter(redisClient, flowredis.DefaultRateLimitConfig())
			lastSeen = flowredis.NewLastSeenStore(redisClient, 0)
		}
	}

	convRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	presence := websocket.NewPresenceRegistry()
	hub := websocket.NewHub(presence, l)
	if lastSeen != nil {
		store := lastSeen
		hub.SetPresenceHook(func(userID uuid.UUID, online bool) {
			if online {
				return
			}
			touchCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := store.Touch(touchCtx, userID); err != nil {
				l.Warnf("Failed to record last seen for %s: %v", userID, err)
			}
		})
	}
	go hub.Run(ctx)

	authService := services.NewAuthService(cfg)
	chatService := services.NewChatService(convRepo, messageRepo, userRepo, hub, l)
	projectService := services.NewProjectService(projectRepo)

	wsAuthorizer := websocket.NewChannelAuthorizer(convRepo)
	wsHandler := websocket.NewHandler(authService, hub, wsAuthorizer, l)
	if rateLimiter != nil {
		wsHandler.SetConnectionLimiter(&connectionLimiter{limiter: rateLimiter})
	}

	srv := server.New(cfg, db, l)
	srv.SetupRoutes(&server.Handlers{
		Chat:    handler.NewChatHandler(chatService, presence, lastSeen),
		Project: handler.NewProjectHandler(projectService),
		WS:      wsHandler,
	}, authService, rateLimiter)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case <-ctx.Done():
		l.Infof("Shutdown signal received, draining...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Errorf("Graceful shutdown failed: %v", err)
		}
	}

	l.Infof("Server stopped")
}
