package repository

import (
	"yoyaku/internal/database"
)

type Repositories struct {
	Restaurants  *RestaurantRepository
	Reservations *ReservationRepository
	PricePlans   *PricePlanRepository
	Payments     *PaymentRepository
	AuditLogs    *AuditLogRepository
	Users        *UserRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Restaurants:  NewRestaurantRepository(db),
		Reservations: NewReservationRepository(db),
		PricePlans:   NewPricePlanRepository(db),
		Payments:     NewPaymentRepository(db),
		AuditLogs:    NewAuditLogRepository(db),
		Users:        NewUserRepository(db),
	}
}
