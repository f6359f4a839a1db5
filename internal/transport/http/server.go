package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pairchat/pairchat/internal/auth"
	"github.com/pairchat/pairchat/internal/config"
	"github.com/pairchat/pairchat/internal/core"
	"github.com/pairchat/pairchat/internal/store"
)

// NewServer builds the HTTP server: REST API, uploaded-media static serving,
// and the real-time WebSocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.Static("/uploads", cfg.UploadDir)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, logger)))

	authHandlers := NewAuthHandlers(authService, logger)
	chatHandlers := NewChatHandlers(st, hub.Presence(), logger)
	mediaHandlers := NewMediaHandlers(cfg, logger)

	api := router.Group("/api")
	api.POST("/auth/register", authHandlers.Register)
	api.POST("/auth/login", authHandlers.Login)
	api.POST("/auth/find-user", authHandlers.FindUser)

	protected := api.Group("", AuthMiddleware(authService, logger))
	protected.GET("/auth/verify/:id", authHandlers.Verify)
	protected.GET("/conversations/:userId", chatHandlers.ListConversations)
	protected.GET("/conversation-history/:userA/:userB", chatHandlers.History)
	protected.POST("/media/upload", mediaHandlers.Upload)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
