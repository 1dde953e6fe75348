package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/OldStager01/traffic-autoscaler/api/handlers"
	"github.com/OldStager01/traffic-autoscaler/api/middleware"
	"github.com/OldStager01/traffic-autoscaler/api/websocket"
	"github.com/OldStager01/traffic-autoscaler/docs"
	"github.com/OldStager01/traffic-autoscaler/internal/metrics"
	"github.com/OldStager01/traffic-autoscaler/internal/orchestrator"
	"github.com/OldStager01/traffic-autoscaler/pkg/config"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// Service is everything the HTTP layer needs from the orchestrator.
type Service interface {
	handlers.HealthChecker
	handlers.TrafficService
	handlers.ForecastService
	handlers.ScalingService
	SubscribeAllEvents() <-chan *models.Event
	Unsubscribe(ch <-chan *models.Event)
	EventHistory() (orchestrator.ScalingEventHistory, bool)
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
	service    Service
	metrics    *metrics.Metrics
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
	events     <-chan *models.Event
}

func NewServer(cfg *config.Config, service Service, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.Get()
	}

	router := gin.New()
	wsHub := websocket.NewHub(&cfg.WebSocket)
	wsHub.OnClientCount(m.SetWebSocketConnections)

	s := &Server{
		router:  router,
		config:  cfg.API,
		service: service,
		metrics: m,
		wsHub:   wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	// Forward orchestrator events to WebSocket clients
	s.events = service.SubscribeAllEvents()
	s.wsBridge = websocket.NewEventBridge(wsHub, s.events)
	s.wsBridge.Start()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(middleware.CORSFromConfig(s.config.CORS)))
	s.router.Use(middleware.RequestSizeLimit(s.config.MaxBodyBytes))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.service)
	trafficHandler := handlers.NewTrafficHandler(s.service, &s.config)
	forecastHandler := handlers.NewForecastHandler(s.service)
	scalingHandler := handlers.NewScalingHandler(s.service)

	s.router.GET("/", healthHandler.Root)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	if s.config.Swagger {
		docs.SwaggerInfo.BasePath = "/"
		s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := s.router.Group("/api")
	{
		apiGroup.GET("/health", healthHandler.Health)

		apiGroup.GET("/current-traffic", trafficHandler.CurrentTraffic)
		apiGroup.GET("/historical-data", trafficHandler.HistoricalData)
		apiGroup.GET("/metrics/summary", trafficHandler.MetricsSummary)

		apiGroup.POST("/forecast", forecastHandler.Forecast)

		apiGroup.POST("/recommend-scaling", scalingHandler.Recommend)
		apiGroup.GET("/autoscaling/config", scalingHandler.GetConfig)
		apiGroup.PUT("/autoscaling/config", scalingHandler.UpdateConfig)
		apiGroup.GET("/cost/summary", scalingHandler.CostSummary)

		if history, ok := s.service.EventHistory(); ok {
			eventsHandler := handlers.NewScalingEventsHandler(history)
			apiGroup.GET("/scaling-events", eventsHandler.List)
			apiGroup.GET("/scaling-events/stats", eventsHandler.Stats)
		}
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	idle := s.config.IdleTimeout
	if idle <= 0 {
		idle = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  idle,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the event bridge first
	s.wsBridge.Stop()
	s.service.Unsubscribe(s.events)
	s.wsHub.Stop()

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
