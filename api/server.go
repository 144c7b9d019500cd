package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/OldStager01/paas-autoscaler/api/handlers"
	"github.com/OldStager01/paas-autoscaler/api/middleware"
	"github.com/OldStager01/paas-autoscaler/api/websocket"
	"github.com/OldStager01/paas-autoscaler/internal/auth"
	"github.com/OldStager01/paas-autoscaler/pkg/config"
	"github.com/OldStager01/paas-autoscaler/pkg/database"
	"github.com/OldStager01/paas-autoscaler/pkg/database/queries"
	"github.com/OldStager01/paas-autoscaler/pkg/models"
	"github.com/gin-gonic/gin"
)

// EventSource is the narrow event-bus collaborator the server needs to
// feed its websocket hub, independent of how events are produced.
type EventSource interface {
	SubscribeAll() <-chan *models.Event
}

type Server struct {
	router          *gin.Engine
	httpServer      *http.Server
	config          config.APIConfig
	db              *database.DB
	authService     *auth.Service
	wsHub           *websocket.Hub
	wsBridge        *websocket.EventBridge
	apps            handlers.AppSnapshotSource
	endpointLimiter *middleware.EndpointRateLimiter
}

func NewServer(cfg config.APIConfig, db *database.DB, apps handlers.AppSnapshotSource, events EventSource) *Server {
	if cfg.JWTSecret == "" || cfg.JWTSecret == "change-me-in-production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	authService := auth.NewService(cfg.JWTSecret, 24*time.Hour)
	wsHub := websocket.NewHub()

	s := &Server{
		router:          router,
		config:          cfg,
		db:              db,
		authService:     authService,
		wsHub:           wsHub,
		apps:            apps,
		endpointLimiter: middleware.NewEndpointRateLimiter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if events != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, events.SubscribeAll())
		s.wsBridge.Start()
	}

	return s
}

const maxRequestBodyBytes = 1 << 20 // 1 MiB

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBodyBytes))
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())

	rateLimiter := middleware.NewRateLimiter(120, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))

	// Scale-event history endpoints back a dashboard's polling and
	// tolerate a tighter per-route ceiling than the flat default above.
	s.endpointLimiter.AddEndpoint("/apps/:name/events", 20, time.Minute)
	s.endpointLimiter.AddEndpoint("/events/recent", 20, time.Minute)
	s.router.Use(s.endpointLimiter.Middleware())
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.db)
	appHandler := handlers.NewAppHandler(s.apps)

	var userRepo *queries.UserRepository
	var eventsHandler *handlers.ScaleEventsHandler
	if s.db != nil {
		userRepo = queries.NewUserRepository(s.db.DB)
		eventsHandler = handlers.NewScaleEventsHandler(queries.NewScaleEventRepository(s.db.DB))
	} else {
		eventsHandler = handlers.NewScaleEventsHandler(nil)
	}
	authHandler := handlers.NewAuthHandler(userRepo, s.authService)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)
	s.router.POST("/auth/register", middleware.AuthRateLimiter(), authHandler.Register)

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		protected.GET("/apps", appHandler.List)
		protected.GET("/apps/:name", appHandler.Get)
		protected.GET("/apps/:name/events", eventsHandler.GetByApp)
		protected.GET("/events/recent", eventsHandler.GetRecent)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
