package service

import (
	"context"
	"fmt"
	"strconv"

	"yoyaku/internal/apperrors"
	"yoyaku/internal/external"
	"yoyaku/internal/models"
)

// MailSender is the provider surface the dispatcher drives. Satisfied by
// external.MailerClient.
type MailSender interface {
	Send(ctx context.Context, req external.SendRequest) (string, error)
	FromAddr() string
	AdminAddr() string
}

// NotificationService renders and sends guest-facing email. Every send is
// best-effort from the workflow's point of view: a failure is reported, never
// allowed to unwind a persisted reservation.
type NotificationService struct {
	mailer MailSender
}

func NewNotificationService(mailer MailSender) *NotificationService {
	return &NotificationService{mailer: mailer}
}

// Guest-facing subjects per locale. The reservation is received, not yet
// staff-confirmed, and the wording reflects that.
var confirmationSubjects = map[string]string{
	models.LocaleEn: "We received your reservation request",
	models.LocaleJa: "ご予約を承りました",
	models.LocaleKo: "예약이 접수되었습니다",
}

var fallbackSubjects = map[string]string{
	models.LocaleEn: "Your reservation request - payment to be arranged",
	models.LocaleJa: "ご予約を承りました（お支払いは当日）",
	models.LocaleKo: "예약이 접수되었습니다 (결제는 추후 안내)",
}

// SendConfirmation emails the guest after a paid checkout. Returns the
// provider message id on success.
func (s *NotificationService) SendConfirmation(ctx context.Context, reservation *models.Reservation, restaurantName string) (string, error) {
	locale := models.NormalizeLocale(reservation.Locale)

	messageID, err := s.mailer.Send(ctx, external.SendRequest{
		To:        reservation.Email,
		From:      s.mailer.FromAddr(),
		Subject:   confirmationSubjects[locale],
		Template:  "reservation_confirmation_" + locale,
		Variables: confirmationVariables(reservation, restaurantName),
	})
	if err != nil {
		return "", &apperrors.NotificationError{Recipient: reservation.Email, Err: err}
	}

	return messageID, nil
}

// SendFallbackNotice emails the guest on the manual-contact path, where no
// payment was collected.
func (s *NotificationService) SendFallbackNotice(ctx context.Context, reservation *models.Reservation, restaurantName string) (string, error) {
	locale := models.NormalizeLocale(reservation.Locale)

	messageID, err := s.mailer.Send(ctx, external.SendRequest{
		To:        reservation.Email,
		From:      s.mailer.FromAddr(),
		Subject:   fallbackSubjects[locale],
		Template:  "reservation_fallback_" + locale,
		Variables: confirmationVariables(reservation, restaurantName),
	})
	if err != nil {
		return "", &apperrors.NotificationError{Recipient: reservation.Email, Err: err}
	}

	return messageID, nil
}

// SendAdminAlert escalates an operational problem to the ops inbox. Used for
// the captured-but-unrecorded case, where a human must reconcile by hand.
func (s *NotificationService) SendAdminAlert(ctx context.Context, subject string, detail map[string]string) error {
	_, err := s.mailer.Send(ctx, external.SendRequest{
		To:        s.mailer.AdminAddr(),
		From:      s.mailer.FromAddr(),
		Subject:   subject,
		Template:  "ops_alert",
		Variables: detail,
	})
	if err != nil {
		return fmt.Errorf("failed to send admin alert: %w", err)
	}
	return nil
}

func confirmationVariables(reservation *models.Reservation, restaurantName string) map[string]string {
	return map[string]string{
		"reservation_id": reservation.ID,
		"guest_name":     reservation.Name,
		"restaurant":     restaurantName,
		"date":           reservation.ReservationDate,
		"time":           reservation.ReservationTime,
		"party_size":     strconv.Itoa(reservation.PartySize),
		"amount":         strconv.FormatInt(reservation.PaymentAmount, 10),
		"payment_status": reservation.PaymentStatus,
	}
}
