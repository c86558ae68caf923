package api

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
	"github.com/tranvand/feedhub-BE/internal/event"
	"github.com/tranvand/feedhub-BE/internal/token"
	"github.com/tranvand/feedhub-BE/internal/util"
	"github.com/tranvand/feedhub-BE/internal/worker"
)

type Server struct {
	router          *gin.Engine
	dbStore         db.Store
	redisClient     *redis.Client
	tokenMaker      token.Maker
	config          *util.Config
	taskDistributor worker.TaskDistributor
	eventSender     event.EventSender
}

// NewServer creates a new HTTP server and sets up routing.
func NewServer(store db.Store, redisClient *redis.Client, taskDistributor worker.TaskDistributor, config *util.Config, eventSender event.EventSender) (*Server, error) {
	tokenMaker, err := token.NewJWTMaker(config.TokenSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token maker: %w", err)
	}
	log.Info().Msg("Token maker created successfully ✅")

	server := &Server{
		dbStore:         store,
		redisClient:     redisClient,
		tokenMaker:      tokenMaker,
		config:          config,
		taskDistributor: taskDistributor,
		eventSender:     eventSender,
	}

	server.setupRouter()
	return server, nil
}

func (server *Server) setupRouter() {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(ctx *gin.Context) {
		if err := server.dbStore.Ping(ctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, errorResponse(err))
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")

	authRoutes := v1.Group("/").Use(authMiddleware(server.tokenMaker))
	authRoutes.GET("/notifications", server.listNotifications)
	authRoutes.GET("/notifications/unread-count", server.countUnreadNotifications)
	authRoutes.GET("/notifications/stream", server.streamNotifications)
	authRoutes.PATCH("/notifications/read-all", server.markAllNotificationsRead)
	authRoutes.PATCH("/notifications/:id/read", server.markNotificationRead)

	// Ingestion bridge for the entity services: events land on the queue and
	// are processed by the worker with at-least-once semantics.
	internalRoutes := v1.Group("/internal").Use(authMiddleware(server.tokenMaker))
	internalRoutes.POST("/events", server.ingestNotificationEvent)
	internalRoutes.POST("/entity-changes", server.ingestEntityChange)

	server.router = router
}

// Start runs the HTTP server on the given address.
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}
