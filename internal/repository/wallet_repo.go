package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freight-backoffice/internal/database"
	"freight-backoffice/internal/model"
)

const walletColumns = `id, owner_kind, owner_id, direction, amount::float8, reference, note, status, proof_path,
	created_by, reviewed_by, reviewed_at, created_at, updated_at`

func scanTransaction(row rowScanner) (model.WalletTransaction, error) {
	var t model.WalletTransaction
	err := row.Scan(&t.ID, &t.OwnerKind, &t.OwnerID, &t.Direction, &t.Amount, &t.Reference, &t.Note,
		&t.Status, &t.ProofPath, &t.CreatedBy, &t.ReviewedBy, &t.ReviewedAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

type WalletRepository struct {
	pool *pgxpool.Pool
}

func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func (r *WalletRepository) Create(ctx context.Context, t model.WalletTransaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wallet_transactions (id, owner_kind, owner_id, direction, amount, reference, note, status,
		     proof_path, created_by, reviewed_by, reviewed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.OwnerKind, t.OwnerID, t.Direction, t.Amount, t.Reference, t.Note, t.Status,
		t.ProofPath, t.CreatedBy, t.ReviewedBy, t.ReviewedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create wallet transaction: %w", err)
	}
	return nil
}

func (r *WalletRepository) FindByID(ctx context.Context, id string) (model.WalletTransaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallet_transactions WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.WalletTransaction{}, model.ErrNotFound
	}
	if err != nil {
		return model.WalletTransaction{}, fmt.Errorf("find wallet transaction: %w", err)
	}
	return t, nil
}

func walletFilters(query model.WalletQuery) (string, []any) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if kind := strings.TrimSpace(query.OwnerKind); kind != "" {
		args = append(args, strings.ToLower(kind))
		where = append(where, fmt.Sprintf("owner_kind = $%d", len(args)))
	}
	if ownerID := strings.TrimSpace(query.OwnerID); ownerID != "" {
		args = append(args, ownerID)
		where = append(where, fmt.Sprintf("owner_id::text = $%d", len(args)))
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		args = append(args, strings.ToLower(status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func (r *WalletRepository) List(ctx context.Context, query model.WalletQuery) ([]model.WalletTransaction, model.Meta, error) {
	query.Page, query.Limit = model.NormalizePage(query.Page, query.Limit)
	whereClause, args := walletFilters(query)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions `+whereClause, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count wallet transactions: %w", err)
	}

	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM wallet_transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			walletColumns, whereClause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	items := make([]model.WalletTransaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan wallet transaction: %w", err)
		}
		items = append(items, t)
	}

	return items, model.NewMeta(query.Page, query.Limit, total), rows.Err()
}

// Review settles a pending transaction. The row is locked for the duration of
// the check so a transaction is reviewed at most once.
func (r *WalletRepository) Review(ctx context.Context, id string, decision string, reviewerID string, note string) (model.WalletTransaction, error) {
	var reviewed model.WalletTransaction
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanTransaction(tx.QueryRow(ctx,
			`SELECT `+walletColumns+` FROM wallet_transactions WHERE id::text = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock wallet transaction: %w", err)
		}
		if current.Status != model.TxnPending {
			return model.ErrInvalidTransition
		}

		now := time.Now().UTC()
		if note == "" {
			note = current.Note
		}
		if _, err := tx.Exec(ctx,
			`UPDATE wallet_transactions SET status = $2, reviewed_by = $3, reviewed_at = $4, note = $5, updated_at = $4
			 WHERE id::text = $1`,
			id, decision, reviewerID, now, note); err != nil {
			return fmt.Errorf("review wallet transaction: %w", err)
		}

		current.Status = decision
		current.ReviewedBy = reviewerID
		current.ReviewedAt = &now
		current.Note = note
		current.UpdatedAt = now
		reviewed = current
		return nil
	})
	return reviewed, err
}

func (r *WalletRepository) SetProof(ctx context.Context, id string, path string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE wallet_transactions SET proof_path = $2, updated_at = $3 WHERE id::text = $1`,
		id, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set wallet proof: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Balance only counts approved transactions.
func (r *WalletRepository) Balance(ctx context.Context, ownerKind string, ownerID string) (model.WalletBalance, error) {
	balance := model.WalletBalance{OwnerKind: ownerKind, OwnerID: ownerID}
	err := r.pool.QueryRow(ctx,
		`SELECT
		     COALESCE(SUM(amount) FILTER (WHERE status = 'approved' AND direction = 'credit'), 0)::float8,
		     COALESCE(SUM(amount) FILTER (WHERE status = 'approved' AND direction = 'debit'), 0)::float8,
		     COUNT(*) FILTER (WHERE status = 'pending')
		 FROM wallet_transactions WHERE owner_kind = $1 AND owner_id::text = $2`,
		ownerKind, ownerID).Scan(&balance.Credits, &balance.Debits, &balance.Pending)
	if err != nil {
		return model.WalletBalance{}, fmt.Errorf("wallet balance: %w", err)
	}
	balance.Balance = balance.Credits - balance.Debits
	return balance, nil
}
