package service

import (
	"yoyaku/internal/cache"
	"yoyaku/internal/external"
	"yoyaku/internal/messaging"
	"yoyaku/internal/payment"
	"yoyaku/internal/pricing"
	"yoyaku/internal/repository"
	"yoyaku/internal/search"
	"yoyaku/internal/validation"
)

type Services struct {
	Reservations  *ReservationService
	Restaurants   *RestaurantService
	Plans         *PlanService
	Notifications *NotificationService
}

func NewServices(
	repos *repository.Repositories,
	natsClient *messaging.NATSClient,
	adapter *payment.Adapter,
	mailer *external.MailerClient,
	esClient *search.ElasticsearchClient,
	valkey *cache.ValkeyClient,
	bookingWindowDays int,
) *Services {
	planSource := cache.NewCachedPlanSource(valkey, repos.PricePlans)
	resolver := pricing.NewResolver(planSource)
	validator := validation.NewValidator(bookingWindowDays)
	notifications := NewNotificationService(mailer)

	var publisher eventPublisher
	if natsClient != nil {
		publisher = natsClient
	}

	reservationService := NewReservationService(
		repos.Reservations,
		repos.Payments,
		repos.Restaurants,
		repos.AuditLogs,
		adapter,
		resolver,
		notifications,
		publisher,
		validator,
	)

	return &Services{
		Reservations:  reservationService,
		Restaurants:   NewRestaurantService(repos.Restaurants, esClient, valkey),
		Plans:         NewPlanService(planSource),
		Notifications: notifications,
	}
}
