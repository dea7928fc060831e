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
	"freight-backoffice/pkg/apierror"
)

const loadColumns = `id, reference, customer_id, vendor_id, origin, destination, pickup_date, delivery_date,
	weight_kg::float8, rate::float8, status, notes, created_by, created_at, updated_at`

func scanLoad(row rowScanner) (model.Load, error) {
	var l model.Load
	err := row.Scan(&l.ID, &l.Reference, &l.CustomerID, &l.VendorID, &l.Origin, &l.Destination,
		&l.PickupDate, &l.DeliveryDate, &l.WeightKg, &l.Rate, &l.Status, &l.Notes, &l.CreatedBy,
		&l.CreatedAt, &l.UpdatedAt)
	return l, err
}

type LoadRepository struct {
	pool *pgxpool.Pool
}

func NewLoadRepository(pool *pgxpool.Pool) *LoadRepository {
	return &LoadRepository{pool: pool}
}

func (r *LoadRepository) Create(ctx context.Context, l model.Load) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO loads (id, reference, customer_id, vendor_id, origin, destination, pickup_date, delivery_date,
		     weight_kg, rate, status, notes, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		l.ID, l.Reference, l.CustomerID, l.VendorID, l.Origin, l.Destination, l.PickupDate, l.DeliveryDate,
		l.WeightKg, l.Rate, l.Status, l.Notes, l.CreatedBy, l.CreatedAt, l.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apierror.Conflict("load reference already exists", l.Reference)
	}
	if err != nil {
		return fmt.Errorf("create load: %w", err)
	}
	return nil
}

func (r *LoadRepository) FindByID(ctx context.Context, id string) (model.Load, error) {
	l, err := scanLoad(r.pool.QueryRow(ctx,
		`SELECT `+loadColumns+` FROM loads WHERE id::text = $1 AND NOT is_deleted`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Load{}, model.ErrNotFound
	}
	if err != nil {
		return model.Load{}, fmt.Errorf("find load: %w", err)
	}
	return l, nil
}

func (r *LoadRepository) List(ctx context.Context, query model.LoadQuery) ([]model.Load, model.Meta, error) {
	query.Page, query.Limit = model.NormalizePage(query.Page, query.Limit)

	where := []string{"NOT is_deleted"}
	args := make([]any, 0)

	if customerID := strings.TrimSpace(query.CustomerID); customerID != "" {
		args = append(args, customerID)
		where = append(where, fmt.Sprintf("customer_id::text = $%d", len(args)))
	}
	if vendorID := strings.TrimSpace(query.VendorID); vendorID != "" {
		args = append(args, vendorID)
		where = append(where, fmt.Sprintf("vendor_id::text = $%d", len(args)))
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		args = append(args, strings.ToLower(status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		where = append(where, fmt.Sprintf("(lower(reference) LIKE $%d OR lower(origin) LIKE $%d OR lower(destination) LIKE $%d)",
			len(args), len(args), len(args)))
	}
	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM loads `+whereClause, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count loads: %w", err)
	}

	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM loads %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			loadColumns, whereClause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list loads: %w", err)
	}
	defer rows.Close()

	loads := make([]model.Load, 0)
	for rows.Next() {
		l, err := scanLoad(rows)
		if err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan load: %w", err)
		}
		loads = append(loads, l)
	}

	return loads, model.NewMeta(query.Page, query.Limit, total), rows.Err()
}

// Update writes the editable columns of l as given.
func (r *LoadRepository) Update(ctx context.Context, l model.Load) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE loads SET origin = $2, destination = $3, pickup_date = $4, delivery_date = $5,
		     weight_kg = $6, rate = $7, notes = $8, updated_at = $9
		 WHERE id::text = $1 AND NOT is_deleted`,
		l.ID, l.Origin, l.Destination, l.PickupDate, l.DeliveryDate, l.WeightKg, l.Rate, l.Notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update load: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Transition moves a load from one status to another, optionally setting the
// vendor. It fails with ErrInvalidTransition when the stored status is no
// longer from, so two concurrent transitions cannot both succeed.
func (r *LoadRepository) Transition(ctx context.Context, id string, from string, to string, vendorID *string) (model.Load, error) {
	var updated model.Load
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE loads SET status = $3, vendor_id = CASE WHEN $4::uuid IS NULL AND $3 <> 'pending' THEN vendor_id ELSE $4::uuid END,
			     updated_at = $5
			 WHERE id::text = $1 AND status = $2 AND NOT is_deleted`,
			id, from, to, vendorID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("transition load: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrInvalidTransition
		}

		updated, err = scanLoad(tx.QueryRow(ctx, `SELECT `+loadColumns+` FROM loads WHERE id::text = $1`, id))
		if err != nil {
			return fmt.Errorf("reload load: %w", err)
		}
		return nil
	})
	return updated, err
}

func (r *LoadRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE loads SET is_deleted = true, updated_at = $2 WHERE id::text = $1 AND NOT is_deleted`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete load: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
