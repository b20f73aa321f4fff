package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/audio-resolver/config"
	"github.com/jaki95/audio-resolver/internal/lookup"
	"github.com/jaki95/audio-resolver/internal/queue"
	"github.com/jaki95/audio-resolver/internal/source"
)

// Server is the HTTP front-end over the resolver and the play queue
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	resolver *source.Resolver
	queue    *queue.Queue

	// searcher is the optional search fast path
	searcher lookup.Searcher
}

// New creates a new HTTP server instance. searcher may be nil.
func New(cfg *config.Config, resolver *source.Resolver, q *queue.Queue, searcher lookup.Searcher) *Server {
	router := gin.Default()

	server := &Server{
		cfg:      cfg,
		router:   router,
		resolver: resolver,
		queue:    q,
		searcher: searcher,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	// Add CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1")
	{
		api.POST("/resolve", s.resolve)
		api.POST("/queue", s.enqueue)
		api.GET("/queue", s.listQueue)
		api.DELETE("/queue", s.clearQueue)
		api.GET("/queue/:id", s.nowPlaying)
		api.DELETE("/queue/:id", s.skip)
		api.GET("/queue/:id/stream", s.stream)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(port string) error {
	slog.Info("Starting server", "port", port)
	return s.router.Run(":" + port)
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "audio-resolver",
		"queued":    s.queue.Len(),
	})
}
