package repository

import (
	"context"
	"database/sql"
	"time"

	"yoyaku/internal/database"
	"yoyaku/internal/models"
)

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, order_id, payment_id, reservation_id, amount, currency,
       status, created_at, updated_at`

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, payment_id, reservation_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		payment.OrderID,
		payment.PaymentID,
		payment.ReservationID,
		payment.Amount,
		payment.Currency,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.PaymentID,
		&payment.ReservationID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// MarkCaptured records the provider-confirmed capture and the amount that
// was actually captured.
func (r *PaymentRepository) MarkCaptured(ctx context.Context, orderID, paymentID string, capturedAmount int64) error {
	query := `
		UPDATE payments
		SET status = $1, payment_id = $2, amount = $3, updated_at = NOW()
		WHERE order_id = $4`

	_, err := r.db.ExecContext(ctx, query, models.PaymentCaptured, paymentID, capturedAmount, orderID)
	return err
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE order_id = $2`

	_, err := r.db.ExecContext(ctx, query, status, orderID)
	return err
}

// AttachReservation links a captured payment to the reservation it funded
func (r *PaymentRepository) AttachReservation(ctx context.Context, orderID, reservationID string) error {
	query := `
		UPDATE payments
		SET reservation_id = $1, updated_at = NOW()
		WHERE order_id = $2`

	_, err := r.db.ExecContext(ctx, query, reservationID, orderID)
	return err
}

// GetStale returns payment attempts still marked initiated before the
// cutoff. These either expired provider-side or were captured without a
// reservation row and need reconciliation.
func (r *PaymentRepository) GetStale(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.PaymentInitiated, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var payment models.Payment
		err := rows.Scan(
			&payment.ID,
			&payment.OrderID,
			&payment.PaymentID,
			&payment.ReservationID,
			&payment.Amount,
			&payment.Currency,
			&payment.Status,
			&payment.CreatedAt,
			&payment.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}
