package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freight-backoffice/internal/model"
)

const callColumns = `id, sender_id, recipient_id, title, note, file_name, file_path, size, mime_type, created_at`

const (
	CallBoxInbox  = "inbox"
	CallBoxOutbox = "outbox"
)

func scanCall(row rowScanner) (model.Call, error) {
	var c model.Call
	err := row.Scan(&c.ID, &c.SenderID, &c.RecipientID, &c.Title, &c.Note, &c.FileName, &c.FilePath,
		&c.Size, &c.MimeType, &c.CreatedAt)
	return c, err
}

type CallRepository struct {
	pool *pgxpool.Pool
}

func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

func (r *CallRepository) Create(ctx context.Context, c model.Call) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO calls (id, sender_id, recipient_id, title, note, file_name, file_path, size, mime_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.SenderID, c.RecipientID, c.Title, c.Note, c.FileName, c.FilePath, c.Size, c.MimeType, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create call: %w", err)
	}
	return nil
}

func (r *CallRepository) FindByID(ctx context.Context, id string) (model.Call, error) {
	c, err := scanCall(r.pool.QueryRow(ctx,
		`SELECT `+callColumns+` FROM calls WHERE id::text = $1 AND NOT is_deleted`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Call{}, model.ErrNotFound
	}
	if err != nil {
		return model.Call{}, fmt.Errorf("find call: %w", err)
	}
	return c, nil
}

// List returns the calls the viewer sent or received. AllCalls lifts the
// participant filter.
func (r *CallRepository) List(ctx context.Context, query model.CallQuery) ([]model.Call, model.Meta, error) {
	query.Page, query.Limit = model.NormalizePage(query.Page, query.Limit)

	where := []string{"NOT is_deleted"}
	args := make([]any, 0, 1)

	if !query.AllCalls {
		args = append(args, query.ViewerID)
		switch strings.ToLower(strings.TrimSpace(query.Box)) {
		case CallBoxInbox:
			where = append(where, "recipient_id::text = $1")
		case CallBoxOutbox:
			where = append(where, "sender_id::text = $1")
		default:
			where = append(where, "(sender_id::text = $1 OR recipient_id::text = $1)")
		}
	}
	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM calls `+whereClause, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count calls: %w", err)
	}

	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM calls %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			callColumns, whereClause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	calls := make([]model.Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, c)
	}

	return calls, model.NewMeta(query.Page, query.Limit, total), rows.Err()
}

func (r *CallRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE calls SET is_deleted = true WHERE id::text = $1 AND NOT is_deleted`, id)
	if err != nil {
		return fmt.Errorf("delete call: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
