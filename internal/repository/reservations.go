package repository

import (
	"context"
	"database/sql"
	"fmt"

	"yoyaku/internal/database"
	"yoyaku/internal/models"
)

type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, restaurant_id, to_char(reservation_date, 'YYYY-MM-DD'), reservation_time,
       party_size, name, email, phone, special_requests, locale, status,
       payment_status, payment_amount, transaction_id, cancellation_reason,
       created_at, updated_at`

// Create inserts the reservation and reads the generated id back from the
// insert response. A reservation exists only if this returns an id.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	query := `
		INSERT INTO reservations (restaurant_id, reservation_date, reservation_time,
			party_size, name, email, phone, special_requests, locale,
			status, payment_status, payment_amount, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		res.RestaurantID,
		res.ReservationDate,
		res.ReservationTime,
		res.PartySize,
		res.Name,
		res.Email,
		res.Phone,
		res.SpecialRequests,
		res.Locale,
		res.Status,
		res.PaymentStatus,
		res.PaymentAmount,
		res.TransactionID,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)

	return err
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	res := &models.Reservation{}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&res.ID,
		&res.RestaurantID,
		&res.ReservationDate,
		&res.ReservationTime,
		&res.PartySize,
		&res.Name,
		&res.Email,
		&res.Phone,
		&res.SpecialRequests,
		&res.Locale,
		&res.Status,
		&res.PaymentStatus,
		&res.PaymentAmount,
		&res.TransactionID,
		&res.CancellationReason,
		&res.CreatedAt,
		&res.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return res, err
}

// UpdateStatus applies a staff-side transition and writes the paired audit
// row in the same transaction. payment_status is never touched here. Every
// call produces exactly one audit entry, repeats included.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id, status string, reason *string, actor string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, cancellation_reason = $2, updated_at = NOW()
		WHERE id = $3`,
		status, reason, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	detail := "status=" + status
	if reason != nil && *reason != "" {
		detail += " reason=" + *reason
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_logs (actor, action, target_id, detail)
		VALUES ($1, $2, $3, $4)`,
		actor, "reservation.status_update", id, detail)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *ReservationRepository) List(ctx context.Context, q models.AdminReservationsQuery) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	args := []interface{}{}

	if q.Status != "" {
		args = append(args, q.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if q.RestaurantID != 0 {
		args = append(args, q.RestaurantID)
		query += fmt.Sprintf(" AND restaurant_id = $%d", len(args))
	}

	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		var res models.Reservation
		err := rows.Scan(
			&res.ID,
			&res.RestaurantID,
			&res.ReservationDate,
			&res.ReservationTime,
			&res.PartySize,
			&res.Name,
			&res.Email,
			&res.Phone,
			&res.SpecialRequests,
			&res.Locale,
			&res.Status,
			&res.PaymentStatus,
			&res.PaymentAmount,
			&res.TransactionID,
			&res.CancellationReason,
			&res.CreatedAt,
			&res.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}
