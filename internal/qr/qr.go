package qr

import (
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"yoyaku/internal/models"
)

// Payload builds the QR document from a persisted reservation. Everything in
// it comes from the stored row, so a re-render after a staff status change
// reflects the current status.
func Payload(reservation *models.Reservation, restaurantName string) models.QRPayload {
	return models.QRPayload{
		ID:         reservation.ID,
		Name:       reservation.Name,
		Restaurant: restaurantName,
		Date:       reservation.ReservationDate,
		Time:       reservation.ReservationTime,
		PartySize:  reservation.PartySize,
		Status:     reservation.Status,
	}
}

// EncodePNG renders the payload as a PNG. Medium recovery matches what
// phone cameras handle comfortably at the 256px default.
func EncodePNG(payload models.QRPayload, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal QR payload: %w", err)
	}

	png, err := qrcode.Encode(string(raw), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return png, nil
}
