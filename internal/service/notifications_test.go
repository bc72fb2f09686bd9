package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yoyaku/internal/apperrors"
	"yoyaku/internal/external"
	"yoyaku/internal/models"
)

type fakeMailer struct {
	sent    []external.SendRequest
	sendErr error
}

func (f *fakeMailer) Send(_ context.Context, req external.SendRequest) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, req)
	return "msg-1", nil
}

func (f *fakeMailer) FromAddr() string  { return "reservations@yoyaku.example" }
func (f *fakeMailer) AdminAddr() string { return "ops@yoyaku.example" }

func TestConfirmationLocalization(t *testing.T) {
	tests := []struct {
		locale       string
		wantSubject  string
		wantTemplate string
	}{
		{"ja", "ご予約を承りました", "reservation_confirmation_ja"},
		{"ko", "예약이 접수되었습니다", "reservation_confirmation_ko"},
		{"en", "We received your reservation request", "reservation_confirmation_en"},
		{"fr", "We received your reservation request", "reservation_confirmation_en"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			mailer := &fakeMailer{}
			svc := NewNotificationService(mailer)

			_, err := svc.SendConfirmation(context.Background(), &models.Reservation{
				ID:     "res-1",
				Email:  "guest@example.com",
				Locale: tt.locale,
			}, "Sakura Garden")
			require.NoError(t, err)

			require.Len(t, mailer.sent, 1)
			assert.Equal(t, tt.wantSubject, mailer.sent[0].Subject)
			assert.Equal(t, tt.wantTemplate, mailer.sent[0].Template)
			assert.Equal(t, "guest@example.com", mailer.sent[0].To)
		})
	}
}

func TestConfirmationVariables(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewNotificationService(mailer)

	_, err := svc.SendConfirmation(context.Background(), &models.Reservation{
		ID:              "res-1",
		Name:            "Tanaka Yuki",
		Email:           "yuki@example.com",
		ReservationDate: "2026-03-20",
		ReservationTime: "18:30",
		PartySize:       4,
		PaymentAmount:   1000,
		PaymentStatus:   models.PaymentStatusCompleted,
	}, "Sakura Garden")
	require.NoError(t, err)

	vars := mailer.sent[0].Variables
	assert.Equal(t, "Sakura Garden", vars["restaurant"])
	assert.Equal(t, "4", vars["party_size"])
	assert.Equal(t, "1000", vars["amount"])
}

func TestSendFailureWrapsNotificationError(t *testing.T) {
	mailer := &fakeMailer{sendErr: errors.New("provider 503")}
	svc := NewNotificationService(mailer)

	_, err := svc.SendConfirmation(context.Background(), &models.Reservation{
		Email: "yuki@example.com",
	}, "Sakura Garden")

	var nErr *apperrors.NotificationError
	require.True(t, errors.As(err, &nErr))
	assert.Equal(t, "yuki@example.com", nErr.Recipient)
}

func TestAdminAlertGoesToOpsInbox(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewNotificationService(mailer)

	err := svc.SendAdminAlert(context.Background(), "Captured payment without reservation", map[string]string{
		"transaction_id": "txn-42",
	})
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ops@yoyaku.example", mailer.sent[0].To)
	assert.Equal(t, "txn-42", mailer.sent[0].Variables["transaction_id"])
}
