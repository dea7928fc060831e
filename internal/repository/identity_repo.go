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

// roleTables is the only source of table names interpolated into SQL.
var roleTables = map[string]string{
	model.RoleSudo:     "sudos",
	model.RoleAdmin:    "admins",
	model.RoleVendor:   "vendors",
	model.RoleCustomer: "customers",
}

func tableFor(role string) (string, error) {
	table, ok := roleTables[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, role)
	}
	return table, nil
}

const identityColumns = `id, username, email, display_name, password_hash, status, permissions, is_deleted, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner, role string, extra ...any) (model.Identity, error) {
	var (
		identity model.Identity
		rawPerms []byte
	)

	dest := []any{
		&identity.ID, &identity.Username, &identity.Email, &identity.DisplayName, &identity.PasswordHash,
		&identity.Status, &rawPerms, &identity.IsDeleted, &identity.CreatedAt, &identity.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Identity{}, err
	}

	perms, err := model.ParsePermissions(rawPerms)
	if err != nil {
		return model.Identity{}, fmt.Errorf("identity %s: %w", identity.ID, err)
	}
	identity.Permissions = perms
	identity.Role = role

	return identity, nil
}

// IdentityRepository reads and writes the columns shared by all four
// identity tables.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// FindByID returns the row even when it is inactive or soft-deleted; callers
// decide what an inactive identity means for them.
func (r *IdentityRepository) FindByID(ctx context.Context, role string, id string) (model.Identity, error) {
	table, err := tableFor(role)
	if err != nil {
		return model.Identity{}, err
	}

	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM `+table+` WHERE id::text = $1`, id)
	identity, err := scanIdentity(row, role)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Identity{}, model.ErrNotFound
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("find %s by id: %w", role, err)
	}
	return identity, nil
}

// FindByLogin matches username or email, case-insensitively.
func (r *IdentityRepository) FindByLogin(ctx context.Context, role string, login string) (model.Identity, error) {
	table, err := tableFor(role)
	if err != nil {
		return model.Identity{}, err
	}

	row := r.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM `+table+`
		 WHERE NOT is_deleted AND (lower(username) = lower($1) OR lower(email) = lower($1))`,
		strings.TrimSpace(login))
	identity, err := scanIdentity(row, role)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Identity{}, model.ErrNotFound
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("find %s by login: %w", role, err)
	}
	return identity, nil
}

// Create inserts a sudo or admin row.
func (r *IdentityRepository) Create(ctx context.Context, identity model.Identity) error {
	table, err := tableFor(identity.Role)
	if err != nil {
		return err
	}

	perms, err := model.EncodePermissions(identity.Permissions)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO `+table+` (id, username, email, display_name, password_hash, status, permissions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		identity.ID, identity.Username, identity.Email, identity.DisplayName, identity.PasswordHash,
		identity.Status, perms, identity.CreatedAt, identity.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apierror.Conflict("username or email already exists", identity.Username)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", identity.Role, err)
	}
	return nil
}

func (r *IdentityRepository) List(ctx context.Context, role string, query model.AccountQuery) ([]model.Identity, model.Meta, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, model.Meta{}, err
	}

	query.Page, query.Limit = model.NormalizePage(query.Page, query.Limit)
	where, args := accountFilters(query, "username", "email", "display_name")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` `+where, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count %s: %w", table, err)
	}

	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			identityColumns, table, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	items := make([]model.Identity, 0)
	for rows.Next() {
		identity, err := scanIdentity(rows, role)
		if err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, identity)
	}

	return items, model.NewMeta(query.Page, query.Limit, total), rows.Err()
}

// UpdateProfile changes email, display name and, when non-empty, the password hash.
func (r *IdentityRepository) UpdateProfile(ctx context.Context, role string, id string, email string, displayName string, passwordHash string) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE `+table+` SET
		    email = COALESCE(NULLIF($2, ''), email),
		    display_name = COALESCE(NULLIF($3, ''), display_name),
		    password_hash = COALESCE(NULLIF($4, ''), password_hash),
		    updated_at = $5
		 WHERE id::text = $1 AND NOT is_deleted`,
		id, email, displayName, passwordHash, time.Now().UTC())
	if database.IsUniqueViolation(err) {
		return apierror.Conflict("email already exists", email)
	}
	if err != nil {
		return fmt.Errorf("update %s profile: %w", role, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdatePermissions replaces the stored permission set. Concurrent edits are
// last-write-wins.
func (r *IdentityRepository) UpdatePermissions(ctx context.Context, role string, id string, perms model.Permissions) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}

	encoded, err := model.EncodePermissions(perms)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE `+table+` SET permissions = $2, updated_at = $3 WHERE id::text = $1 AND NOT is_deleted`,
		id, encoded, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update %s permissions: %w", role, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *IdentityRepository) UpdateStatus(ctx context.Context, role string, id string, status string) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE `+table+` SET status = $2, updated_at = $3 WHERE id::text = $1 AND NOT is_deleted`,
		id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update %s status: %w", role, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// SoftDelete flags the row and flips it inactive so live sessions die on
// their next request.
func (r *IdentityRepository) SoftDelete(ctx context.Context, role string, id string) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE `+table+` SET is_deleted = true, status = $2, updated_at = $3 WHERE id::text = $1 AND NOT is_deleted`,
		id, model.StatusInactive, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete %s: %w", role, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func accountFilters(query model.AccountQuery, searchColumns ...string) (string, []any) {
	where := []string{"NOT is_deleted"}
	args := make([]any, 0, 2)

	if search := strings.TrimSpace(query.Search); search != "" && len(searchColumns) > 0 {
		args = append(args, "%"+strings.ToLower(search)+"%")
		matches := make([]string, 0, len(searchColumns))
		for _, column := range searchColumns {
			matches = append(matches, fmt.Sprintf("lower(%s) LIKE $%d", column, len(args)))
		}
		where = append(where, "("+strings.Join(matches, " OR ")+")")
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		args = append(args, strings.ToLower(status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	return "WHERE " + strings.Join(where, " AND "), args
}
