package notify

import (
	"context"
	"database/sql"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

type LogRepository struct {
	db *sql.DB
}

func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Record(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (notification_id, order_id, channel, recipient, notification_type,
			message, status, error, created_at, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, n.ID, n.OrderID, n.Channel, n.Recipient, n.Type, n.Message, n.Status, n.Error, n.CreatedAt, n.SentAt)
	return err
}

// List returns the most recent notifications first.
func (r *LogRepository) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT notification_id, order_id, channel, recipient, notification_type,
			message, status, error, created_at, sent_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	notifications := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		var sentAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Channel, &n.Recipient, &n.Type,
			&n.Message, &n.Status, &n.Error, &n.CreatedAt, &sentAt); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}
