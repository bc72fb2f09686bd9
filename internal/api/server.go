package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"yoyaku/internal/cache"
	"yoyaku/internal/config"
	"yoyaku/internal/database"
	"yoyaku/internal/external"
	"yoyaku/internal/handlers"
	"yoyaku/internal/logger"
	"yoyaku/internal/messaging"
	"yoyaku/internal/middleware"
	"yoyaku/internal/payment"
	"yoyaku/internal/repository"
	"yoyaku/internal/search"
	"yoyaku/internal/service"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	services *service.Services
	repos    *repository.Repositories
}

// NewServer wires the whole API process. The database is required; NATS,
// Valkey and Elasticsearch degrade to nil and the affected features fall
// back (no events, no cache, database-only search).
func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Get().Warn("NATS unavailable, events disabled", "error", err)
		natsClient = nil
	}

	valkeyClient, err := cache.NewValkeyClient(cfg.Cache)
	if err != nil {
		logger.Get().Warn("Valkey unavailable, caching disabled", "error", err)
		valkeyClient = nil
	}

	esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		logger.Get().Warn("Elasticsearch unavailable, search falls back to database", "error", err)
		esClient = nil
	}

	paymentClient := external.NewPaymentClient(cfg.Payment)
	adapter := payment.NewAdapter(paymentClient, payment.Options{})
	mailerClient := external.NewMailerClient(cfg.Mailer)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, natsClient, adapter, mailerClient, esClient, valkeyClient, cfg.BookingWindowDays)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.db, s.config.SupportEmail, s.config.SupportPhone)

	api := s.router.Group("/api")
	{
		restaurants := api.Group("/restaurants")
		{
			restaurants.GET("", h.ListRestaurants)
			restaurants.GET("/:id", h.GetRestaurant)
		}

		api.GET("/price-plans", h.ListPricePlans)

		reservations := api.Group("/reservations")
		{
			reservations.POST("/checkout", h.Checkout)
			reservations.POST("/checkout/abort", h.AbortCheckout)
			reservations.POST("/fallback", h.Fallback)
			reservations.GET("/:id", h.GetReservation)
			reservations.GET("/:id/qr", h.GetReservationQR)
			reservations.POST("/:id/resend", h.ResendConfirmation)
		}

		payments := api.Group("/payments")
		{
			payments.GET("/success", h.NotifyPaymentCompleted)
			payments.GET("/fail", h.NotifyPaymentFailed)
			payments.POST("/notifications", h.OnPaymentUpdates)
		}

		// Staff dashboard, Basic Auth required
		admin := api.Group("/admin")
		admin.Use(middleware.BasicAuth(s.repos.Users, s.valkey))
		{
			admin.GET("/reservations", h.AdminListReservations)
			admin.GET("/reservations/:id", h.AdminGetReservation)
			admin.GET("/reservations/:id/audit", h.AdminReservationAudit)
			admin.PATCH("/reservations/:id/status", h.AdminUpdateReservationStatus)
		}
	}

	s.router.GET("/health", h.Health)
	s.router.GET("/metrics", middleware.PrometheusHandler())
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			logger.Get().Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
