package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"flowboard/config"
	"flowboard/internal/handler"
	"flowboard/internal/middleware"
	"flowboard/internal/redis"
	"flowboard/internal/services"
	"flowboard/internal/transport/httpdto"
	"flowboard/internal/websocket"
	"flowboard/pkg/database"
	"flowboard/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	db         *gorm.DB
	logger     *logger.Logger
}

type Handlers struct {
	Chat    *handler.ChatHandler
	Project *handler.ProjectHandler
	WS      *websocket.Handler
}

func New(cfg *config.Config, db *gorm.DB, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		db:     db,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, rateLimiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(cors.New(s.corsConfig()))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/healthz", func(c *gin.Context) {
		if err := database.HealthCheck(s.db); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	// The websocket endpoint authenticates from the token query parameter
	// itself, before the upgrade, so it sits outside the bearer group.
	s.engine.GET("/ws", handlers.WS.Connect)

	api := s.engine.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	{
		api.GET("/conversations", handlers.Chat.ListConversations)
		api.POST("/conversations/direct", handlers.Chat.CreateDirectConversation)
		api.GET("/conversations/:id/messages", handlers.Chat.GetMessages)
		api.POST("/conversations/:id/messages",
			middleware.MessageRateLimitMiddleware(rateLimiter), handlers.Chat.SendMessage)
		api.POST("/conversations/:id/read", handlers.Chat.MarkAsRead)
		api.POST("/messages/:id/reactions", handlers.Chat.AddReaction)
		api.DELETE("/messages/:id/reactions/:emoji", handlers.Chat.RemoveReaction)
		api.GET("/contacts", handlers.Chat.ListContacts)

		api.POST("/projects", handlers.Project.Create)
		api.GET("/projects", handlers.Project.List)
		api.GET("/projects/:id", handlers.Project.Get)
		api.PUT("/projects/:id", handlers.Project.Update)
		api.DELETE("/projects/:id", handlers.Project.Delete)
		api.POST("/projects/:id/boards", handlers.Project.CreateBoard)
		api.GET("/projects/:id/boards", handlers.Project.ListBoards)
		api.DELETE("/boards/:id", handlers.Project.DeleteBoard)
		api.POST("/boards/:id/cards", handlers.Project.CreateCard)
		api.GET("/boards/:id/cards", handlers.Project.ListCards)
		api.PUT("/cards/:id", handlers.Project.UpdateCard)
		api.DELETE("/cards/:id", handlers.Project.DeleteCard)
		api.POST("/cards/:id/notes", handlers.Project.CreateNote)
		api.GET("/cards/:id/notes", handlers.Project.ListNotes)
	}
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := strings.Split(s.config.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) Start() error {
	s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Engine exposes the underlying router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
