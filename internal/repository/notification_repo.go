package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"freight-backoffice/internal/model"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n model.Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (id, recipient_role, recipient_id, title, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		n.ID, n.RecipientRole, n.RecipientID, n.Title, n.Body, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListForRecipient(ctx context.Context, role string, recipientID string, unreadOnly bool, page int, limit int) ([]model.Notification, model.Meta, error) {
	page, limit = model.NormalizePage(page, limit)

	whereClause := `WHERE recipient_role = $1 AND recipient_id::text = $2`
	if unreadOnly {
		whereClause += ` AND read_at IS NULL`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+whereClause, role, recipientID).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, recipient_role, recipient_id, title, body, read_at, created_at
		 FROM notifications `+whereClause+`
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		role, recipientID, limit, (page-1)*limit)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.RecipientRole, &n.RecipientID, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}

	return items, model.NewMeta(page, limit, total), rows.Err()
}

// MarkRead only touches notifications addressed to the caller; anything else
// reports ErrNotFound.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, role string, recipientID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, $4)
		 WHERE id::text = $1 AND recipient_role = $2 AND recipient_id::text = $3`,
		id, role, recipientID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
