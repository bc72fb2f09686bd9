package consumers

import (
	"context"
	"log/slog"

	"yoyaku/internal/config"
	"yoyaku/internal/database"
	"yoyaku/internal/external"
	"yoyaku/internal/logger"
	"yoyaku/internal/messaging"
	"yoyaku/internal/repository"
	"yoyaku/internal/search"
	"yoyaku/internal/service"
)

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	esClient *search.ElasticsearchClient
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		logger.Get().Warn("Elasticsearch unavailable, index sync disabled", "error", err)
		esClient = nil
	}

	repos := repository.NewRepositories(db)
	notifications := service.NewNotificationService(external.NewMailerClient(cfg.Mailer))

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		esClient: esClient,
		handlers: NewHandlers(repos, notifications),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	subjects := map[string]func() error{
		"reservation.created": func() error {
			_, err := cs.nats.SubscribeQueue("reservation.created", "consumers", cs.handlers.HandleReservationCreated)
			return err
		},
		"reservation.cancelled": func() error {
			_, err := cs.nats.SubscribeQueue("reservation.cancelled", "consumers", cs.handlers.HandleReservationCancelled)
			return err
		},
		"reservation.status_changed": func() error {
			_, err := cs.nats.SubscribeQueue("reservation.status_changed", "consumers", cs.handlers.HandleStatusChanged)
			return err
		},
		"payment.captured": func() error {
			_, err := cs.nats.SubscribeQueue("payment.captured", "consumers", cs.handlers.HandlePaymentCaptured)
			return err
		},
		"payment.failed": func() error {
			_, err := cs.nats.SubscribeQueue("payment.failed", "consumers", cs.handlers.HandlePaymentFailed)
			return err
		},
		"notification.failed": func() error {
			_, err := cs.nats.SubscribeQueue("notification.failed", "consumers", cs.handlers.HandleNotificationFailed)
			return err
		},
	}

	for subject, subscribe := range subjects {
		if err := subscribe(); err != nil {
			slog.Error("Failed to subscribe", "subject", subject, "error", err)
			return err
		}
	}

	// One-shot catalog sync so the search index never lags a redeploy
	if cs.esClient != nil {
		go cs.syncRestaurantIndex(context.Background())
	}

	slog.Info("All consumers started successfully")
	return nil
}

// syncRestaurantIndex walks the catalog and reindexes every restaurant
func (cs *ConsumerService) syncRestaurantIndex(ctx context.Context) {
	const pageSize = 100
	indexed := 0

	for page := 1; ; page++ {
		restaurants, err := cs.repos.Restaurants.List(ctx, page, pageSize)
		if err != nil {
			slog.Error("Restaurant index sync aborted", "error", err, "page", page)
			return
		}
		if len(restaurants) == 0 {
			break
		}

		for i := range restaurants {
			if err := cs.esClient.IndexRestaurant(ctx, &restaurants[i]); err != nil {
				slog.Error("Failed to index restaurant",
					"error", err, "restaurant_id", restaurants[i].ID)
				continue
			}
			indexed++
		}

		if len(restaurants) < pageSize {
			break
		}
	}

	slog.Info("Restaurant index sync complete", "indexed", indexed)
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
