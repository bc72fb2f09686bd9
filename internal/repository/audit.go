package repository

import (
	"context"

	"yoyaku/internal/database"
	"yoyaku/internal/models"
)

type AuditLogRepository struct {
	db *database.DB
}

func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (actor, action, target_id, detail)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		entry.Actor,
		entry.Action,
		entry.TargetID,
		entry.Detail,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *AuditLogRepository) ListByTarget(ctx context.Context, targetID string) ([]models.AuditLog, error) {
	query := `
		SELECT id, actor, action, target_id, detail, created_at
		FROM audit_logs
		WHERE target_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditLog
	for rows.Next() {
		var entry models.AuditLog
		err := rows.Scan(
			&entry.ID,
			&entry.Actor,
			&entry.Action,
			&entry.TargetID,
			&entry.Detail,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
