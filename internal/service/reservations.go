package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"yoyaku/internal/apperrors"
	"yoyaku/internal/logger"
	"yoyaku/internal/models"
	"yoyaku/internal/payment"
	"yoyaku/internal/pricing"
	"yoyaku/internal/qr"
	"yoyaku/internal/validation"
)

// Store surfaces the workflow needs. The concrete repository types satisfy
// these; tests substitute in-memory fakes.
type reservationStore interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, id, status string, reason *string, actor string) error
	List(ctx context.Context, q models.AdminReservationsQuery) ([]models.Reservation, error)
}

type paymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	MarkCaptured(ctx context.Context, orderID, paymentID string, capturedAmount int64) error
	UpdateStatus(ctx context.Context, orderID, status string) error
	AttachReservation(ctx context.Context, orderID, reservationID string) error
}

type restaurantStore interface {
	GetByID(ctx context.Context, id int64) (*models.Restaurant, error)
	Create(ctx context.Context, restaurant *models.Restaurant) error
}

type auditStore interface {
	ListByTarget(ctx context.Context, targetID string) ([]models.AuditLog, error)
}

// checkoutGateway is the payment adapter surface. Satisfied by *payment.Adapter.
type checkoutGateway interface {
	SelfTest(ctx context.Context) payment.Reachability
	InitSession(requestID string, amount int64, currency, description, language string) (*payment.Session, error)
	CreateOrder(ctx context.Context, requestID string) (string, error)
	CaptureOrder(ctx context.Context, requestID string) (*payment.CaptureResult, error)
	Cancel(ctx context.Context, requestID string)
}

type notifier interface {
	SendConfirmation(ctx context.Context, reservation *models.Reservation, restaurantName string) (string, error)
	SendFallbackNotice(ctx context.Context, reservation *models.Reservation, restaurantName string) (string, error)
	SendAdminAlert(ctx context.Context, subject string, detail map[string]string) error
}

type eventPublisher interface {
	Publish(subject string, data interface{}) error
}

// ReservationService runs the checkout workflow end to end. Ordering is the
// whole point: nothing is persisted before the charge is captured, and no
// email goes out before the reservation row exists.
type ReservationService struct {
	reservations reservationStore
	payments     paymentStore
	restaurants  restaurantStore
	auditLogs    auditStore
	gateway      checkoutGateway
	resolver     *pricing.Resolver
	notifier     notifier
	publisher    eventPublisher
	validator    *validation.Validator
}

func NewReservationService(
	reservations reservationStore,
	payments paymentStore,
	restaurants restaurantStore,
	auditLogs auditStore,
	gateway checkoutGateway,
	resolver *pricing.Resolver,
	notifications notifier,
	publisher eventPublisher,
	validator *validation.Validator,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		payments:     payments,
		restaurants:  restaurants,
		auditLogs:    auditLogs,
		gateway:      gateway,
		resolver:     resolver,
		notifier:     notifications,
		publisher:    publisher,
		validator:    validator,
	}
}

// Checkout drives one paid reservation attempt: validate, price, charge,
// persist, notify. The request id makes re-submission of the same attempt
// safe at every step.
func (s *ReservationService) Checkout(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if err := s.validator.CheckoutRequest(req); err != nil {
		return nil, err
	}

	restaurant, err := s.resolveRestaurant(ctx, req.RestaurantID, req.RestaurantName)
	if err != nil {
		return nil, err
	}

	locale := models.NormalizeLocale(req.Locale)
	restaurantName := LocalizedName(restaurant, locale)
	fee := s.resolver.ResolveWithSelection(ctx, req.PartySize, req.PlanID)

	if s.gateway.SelfTest(ctx) == payment.Blocked {
		return nil, apperrors.ErrGatewayBlocked
	}

	description := fmt.Sprintf("Reservation fee - %s, party of %d", restaurantName, req.PartySize)
	session, err := s.gateway.InitSession(req.RequestID, fee.Amount, fee.Currency, description, locale)
	if err != nil {
		return nil, err
	}
	orderRef := session.OrderRef

	paymentID, err := s.gateway.CreateOrder(ctx, req.RequestID)
	if err != nil {
		s.publishPaymentFailed(ctx, orderRef, err.Error())
		return nil, err
	}

	// The initiated row must exist before capture: an unrecorded charge is
	// worse than a failed checkout.
	paymentRow := &models.Payment{
		OrderID:   orderRef,
		PaymentID: &paymentID,
		Amount:    fee.Amount,
		Currency:  fee.Currency,
		Status:    models.PaymentInitiated,
	}
	if err := s.payments.Create(ctx, paymentRow); err != nil {
		s.gateway.Cancel(ctx, req.RequestID)
		return nil, &apperrors.StoreError{Op: "payments.create", Err: err}
	}

	result, err := s.gateway.CaptureOrder(ctx, req.RequestID)
	if err != nil {
		if uErr := s.payments.UpdateStatus(ctx, orderRef, models.PaymentFailed); uErr != nil {
			logger.WithContext(ctx).Error("Failed to mark payment attempt failed",
				"error", uErr, "order_id", orderRef)
		}
		s.publishPaymentFailed(ctx, orderRef, err.Error())
		return nil, err
	}

	s.publish(ctx, models.EventPaymentCaptured, models.PaymentCapturedEvent{
		OrderID:       orderRef,
		TransactionID: result.TransactionID,
		Amount:        result.CapturedAmount,
		Currency:      fee.Currency,
		Timestamp:     time.Now(),
	})

	if err := s.payments.MarkCaptured(ctx, orderRef, paymentID, result.CapturedAmount); err != nil {
		// Money is taken; the reconciliation job picks up the stale
		// initiated row, but this still warrants a loud log line.
		logger.WithContext(ctx).Error("Captured payment not recorded on payment row",
			"error", err,
			"order_id", orderRef,
			"transaction_id", result.TransactionID)
	}

	reservation := &models.Reservation{
		RestaurantID:    restaurant.ID,
		ReservationDate: req.ReservationDate,
		ReservationTime: req.ReservationTime,
		PartySize:       req.PartySize,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Locale:          locale,
		Status:          models.ReservationPending,
		PaymentStatus:   models.PaymentStatusCompleted,
		PaymentAmount:   result.CapturedAmount,
		TransactionID:   &result.TransactionID,
	}
	if req.SpecialRequests != "" {
		reservation.SpecialRequests = &req.SpecialRequests
	}

	if err := s.reservations.Create(ctx, reservation); err != nil {
		storeErr := &apperrors.StoreError{
			Op:            "reservations.create",
			TransactionID: result.TransactionID,
			Err:           err,
		}
		logger.WithContext(ctx).Error("Captured payment has no reservation row, manual reconciliation needed",
			"error", err,
			"order_id", orderRef,
			"transaction_id", result.TransactionID,
			"amount", result.CapturedAmount)
		if aErr := s.notifier.SendAdminAlert(ctx, "Captured payment without reservation", map[string]string{
			"order_id":       orderRef,
			"transaction_id": result.TransactionID,
			"amount":         strconv.FormatInt(result.CapturedAmount, 10),
			"guest_email":    req.Email,
			"error":          err.Error(),
		}); aErr != nil {
			logger.WithContext(ctx).Error("Admin alert failed", "error", aErr)
		}
		return nil, storeErr
	}

	if err := s.payments.AttachReservation(ctx, orderRef, reservation.ID); err != nil {
		logger.WithContext(ctx).Warn("Failed to link payment to reservation",
			"error", err, "order_id", orderRef, "reservation_id", reservation.ID)
	}

	s.publish(ctx, models.EventReservationCreated, models.ReservationCreatedEvent{
		ReservationID: reservation.ID,
		RestaurantID:  reservation.RestaurantID,
		PartySize:     reservation.PartySize,
		PaymentStatus: reservation.PaymentStatus,
		Timestamp:     time.Now(),
	})

	resp := &models.CheckoutResponse{
		ReservationID: reservation.ID,
		Status:        reservation.Status,
		PaymentStatus: reservation.PaymentStatus,
		Amount:        result.CapturedAmount,
		Currency:      fee.Currency,
		PlanName:      fee.PlanName,
		TransactionID: result.TransactionID,
		QR:            qr.Payload(reservation, restaurantName),
	}

	// The reservation is already final; the confirmation email is a
	// courtesy that reports its own outcome.
	if _, err := s.notifier.SendConfirmation(ctx, reservation, restaurantName); err != nil {
		logger.WithContext(ctx).Warn("Confirmation email failed",
			"error", err, "reservation_id", reservation.ID)
		resp.EmailError = err.Error()
		s.publish(ctx, models.EventNotificationFailed, models.NotificationFailedEvent{
			ReservationID: reservation.ID,
			Recipient:     reservation.Email,
			Reason:        err.Error(),
			Timestamp:     time.Now(),
		})
	} else {
		resp.EmailSent = true
	}

	return resp, nil
}

// resolveRestaurant looks up the chosen restaurant, or creates one when the
// guest typed a restaurant we do not list yet. The insert is independent of
// the later reservation insert; if that one fails the new restaurant row is
// left in place rather than rolled back.
func (s *ReservationService) resolveRestaurant(ctx context.Context, id int64, name string) (*models.Restaurant, error) {
	if id > 0 {
		restaurant, err := s.restaurants.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get restaurant: %w", err)
		}
		if restaurant == nil {
			return nil, apperrors.ErrNotFound
		}
		return restaurant, nil
	}

	restaurant := &models.Restaurant{Name: strings.TrimSpace(name)}
	if err := s.restaurants.Create(ctx, restaurant); err != nil {
		return nil, &apperrors.StoreError{Op: "restaurants.create", Err: err}
	}
	logger.WithContext(ctx).Info("Created restaurant from direct request",
		"restaurant_id", restaurant.ID, "name", restaurant.Name)
	return restaurant, nil
}

// Fallback records a reservation with no card payment when the gateway is
// unreachable. Staff collects the fee at the restaurant; the payment status
// stays pending_manual and is never reported as completed.
func (s *ReservationService) Fallback(ctx context.Context, req *models.FallbackRequest) (*models.FallbackResponse, error) {
	if err := s.validator.FallbackRequest(req); err != nil {
		return nil, err
	}

	restaurant, err := s.restaurants.GetByID(ctx, req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, apperrors.ErrNotFound
	}

	locale := models.NormalizeLocale(req.Locale)
	restaurantName := LocalizedName(restaurant, locale)
	fee := s.resolver.ResolveFee(ctx, req.PartySize)

	reservation := &models.Reservation{
		RestaurantID:    req.RestaurantID,
		ReservationDate: req.ReservationDate,
		ReservationTime: req.ReservationTime,
		PartySize:       req.PartySize,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Locale:          locale,
		Status:          models.ReservationPending,
		PaymentStatus:   models.PaymentStatusPendingManual,
		PaymentAmount:   fee.Amount,
	}
	if req.SpecialRequests != "" {
		reservation.SpecialRequests = &req.SpecialRequests
	}

	if err := s.reservations.Create(ctx, reservation); err != nil {
		return nil, &apperrors.StoreError{Op: "reservations.create", Err: err}
	}

	s.publish(ctx, models.EventReservationCreated, models.ReservationCreatedEvent{
		ReservationID: reservation.ID,
		RestaurantID:  reservation.RestaurantID,
		PartySize:     reservation.PartySize,
		PaymentStatus: reservation.PaymentStatus,
		Timestamp:     time.Now(),
	})

	resp := &models.FallbackResponse{
		ReservationID: reservation.ID,
		Status:        reservation.Status,
		PaymentStatus: reservation.PaymentStatus,
	}

	if _, err := s.notifier.SendFallbackNotice(ctx, reservation, restaurantName); err != nil {
		logger.WithContext(ctx).Warn("Fallback notice failed",
			"error", err, "reservation_id", reservation.ID)
	} else {
		resp.EmailSent = true
	}

	return resp, nil
}

// GetConfirmation loads a reservation with the display name of its
// restaurant, localized to the reservation's own locale.
func (s *ReservationService) GetConfirmation(ctx context.Context, id string) (*models.Reservation, string, error) {
	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil {
		return nil, "", apperrors.ErrNotFound
	}

	restaurantName := ""
	if restaurant, err := s.restaurants.GetByID(ctx, reservation.RestaurantID); err == nil && restaurant != nil {
		restaurantName = LocalizedName(restaurant, reservation.Locale)
	}

	return reservation, restaurantName, nil
}

// QRCode renders the confirmation QR from the persisted reservation, so it
// always reflects the current status.
func (s *ReservationService) QRCode(ctx context.Context, id string, size int) ([]byte, error) {
	reservation, restaurantName, err := s.GetConfirmation(ctx, id)
	if err != nil {
		return nil, err
	}
	return qr.EncodePNG(qr.Payload(reservation, restaurantName), size)
}

// Resend re-sends the guest email for an existing reservation. The fallback
// wording is kept for reservations that never paid online.
func (s *ReservationService) Resend(ctx context.Context, id string) (*models.ResendResponse, error) {
	reservation, restaurantName, err := s.GetConfirmation(ctx, id)
	if err != nil {
		return nil, err
	}

	send := s.notifier.SendConfirmation
	if reservation.PaymentStatus == models.PaymentStatusPendingManual {
		send = s.notifier.SendFallbackNotice
	}

	if _, err := send(ctx, reservation, restaurantName); err != nil {
		logger.WithContext(ctx).Warn("Manual resend failed",
			"error", err, "reservation_id", reservation.ID)
		return &models.ResendResponse{Sent: false, Error: err.Error()}, nil
	}

	return &models.ResendResponse{Sent: true}, nil
}

// List serves the staff dashboard
func (s *ReservationService) List(ctx context.Context, q models.AdminReservationsQuery) ([]models.Reservation, error) {
	reservations, err := s.reservations.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

var allowedStatuses = map[string]bool{
	models.ReservationPending:   true,
	models.ReservationConfirmed: true,
	models.ReservationCancelled: true,
	models.ReservationCompleted: true,
}

// UpdateStatus applies a staff transition. The row update and its audit
// entry commit together; payment fields are never touched here.
func (s *ReservationService) UpdateStatus(ctx context.Context, id string, req *models.UpdateReservationStatusRequest, actor string) (*models.Reservation, error) {
	if !allowedStatuses[req.Status] {
		return nil, &apperrors.ValidationError{Fields: map[string]string{
			"status": "status must be one of pending, confirmed, cancelled, completed",
		}}
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}

	if err := s.reservations.UpdateStatus(ctx, id, req.Status, reason, actor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}

	s.publish(ctx, models.EventReservationUpdated, models.ReservationStatusChangedEvent{
		ReservationID: id,
		Status:        req.Status,
		Actor:         actor,
		Timestamp:     time.Now(),
	})
	if req.Status == models.ReservationCancelled {
		s.publish(ctx, models.EventReservationCancelled, models.ReservationCancelledEvent{
			ReservationID: id,
			Reason:        req.Reason,
			Timestamp:     time.Now(),
		})
	}

	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload reservation: %w", err)
	}
	return reservation, nil
}

// AuditTrail returns the staff action history for one reservation, oldest
// first.
func (s *ReservationService) AuditTrail(ctx context.Context, id string) ([]models.AuditLog, error) {
	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil {
		return nil, apperrors.ErrNotFound
	}

	entries, err := s.auditLogs.ListByTarget(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// HandlePaymentNotification processes the gateway webhook. It is an
// independent confirmation of the same transaction the synchronous capture
// already reported, so an unknown order or a repeated status is not an error.
func (s *ReservationService) HandlePaymentNotification(ctx context.Context, payload *models.PaymentNotificationPayload) error {
	paymentRow, err := s.payments.GetByOrderID(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("failed to look up payment: %w", err)
	}
	if paymentRow == nil {
		logger.WithContext(ctx).Warn("Webhook for unknown order", "order_id", payload.OrderID)
		return nil
	}

	switch status := strings.ToLower(payload.Status); {
	case payment.IsCapturedStatus(status):
		if paymentRow.Status != models.PaymentInitiated {
			return nil
		}
		if err := s.payments.MarkCaptured(ctx, payload.OrderID, payload.PaymentID, paymentRow.Amount); err != nil {
			return fmt.Errorf("failed to mark payment captured: %w", err)
		}
		s.publish(ctx, models.EventPaymentCaptured, models.PaymentCapturedEvent{
			OrderID:   payload.OrderID,
			Amount:    paymentRow.Amount,
			Currency:  paymentRow.Currency,
			Timestamp: time.Now(),
		})
	case status == "failed" || status == "declined" || status == "expired":
		if paymentRow.Status != models.PaymentInitiated {
			return nil
		}
		if err := s.payments.UpdateStatus(ctx, payload.OrderID, models.PaymentFailed); err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		s.publishPaymentFailed(ctx, payload.OrderID, payload.Status)
	case status == "cancelled":
		if paymentRow.Status != models.PaymentInitiated {
			return nil
		}
		if err := s.payments.UpdateStatus(ctx, payload.OrderID, models.PaymentCancelled); err != nil {
			return fmt.Errorf("failed to mark payment cancelled: %w", err)
		}
	default:
		logger.WithContext(ctx).Warn("Webhook with unhandled status",
			"order_id", payload.OrderID, "status", payload.Status)
	}

	return nil
}

// Abort voids a user-cancelled attempt. Always silent.
func (s *ReservationService) Abort(ctx context.Context, requestID string) {
	s.gateway.Cancel(ctx, requestID)
}

func (s *ReservationService) publish(ctx context.Context, subject string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err, "event_type", subject)
	}
}

func (s *ReservationService) publishPaymentFailed(ctx context.Context, orderID, reason string) {
	s.publish(ctx, models.EventPaymentFailed, models.PaymentFailedEvent{
		OrderID:   orderID,
		Reason:    reason,
		Timestamp: time.Now(),
	})
}
