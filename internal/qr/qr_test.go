package qr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yoyaku/internal/models"
)

func TestPayloadFromReservation(t *testing.T) {
	reservation := &models.Reservation{
		ID:              "4e6f7a2c-1111-2222-3333-444455556666",
		Name:            "Tanaka Yuki",
		ReservationDate: "2026-03-20",
		ReservationTime: "18:30",
		PartySize:       4,
		Status:          models.ReservationPending,
	}

	payload := Payload(reservation, "Sakura Garden")

	assert.Equal(t, reservation.ID, payload.ID)
	assert.Equal(t, "Sakura Garden", payload.Restaurant)
	assert.Equal(t, "2026-03-20", payload.Date)
	assert.Equal(t, "18:30", payload.Time)
	assert.Equal(t, 4, payload.PartySize)
	assert.Equal(t, models.ReservationPending, payload.Status)
}

func TestPayloadTracksStatusChanges(t *testing.T) {
	reservation := &models.Reservation{
		ID:     "res-1",
		Status: models.ReservationPending,
	}

	before := Payload(reservation, "Sakura Garden")
	reservation.Status = models.ReservationConfirmed
	after := Payload(reservation, "Sakura Garden")

	assert.Equal(t, models.ReservationPending, before.Status)
	assert.Equal(t, models.ReservationConfirmed, after.Status)
}

func TestEncodePNG(t *testing.T) {
	payload := models.QRPayload{
		ID:         "res-1",
		Name:       "Kim Minji",
		Restaurant: "Han River Bistro",
		Date:       "2026-04-01",
		Time:       "19:00",
		PartySize:  2,
		Status:     models.ReservationPending,
	}

	png, err := EncodePNG(payload, 0)
	require.NoError(t, err)

	// PNG magic bytes
	assert.True(t, bytes.HasPrefix(png, []byte{0x89, 'P', 'N', 'G'}))
}
