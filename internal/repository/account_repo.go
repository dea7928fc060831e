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

const accountColumns = identityColumns + `, company_name, contact_name, phone, address, photo_path, kyc_path`

func accountTable(role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != model.RoleVendor && role != model.RoleCustomer {
		return "", fmt.Errorf("%w: %q is not a portal role", model.ErrInvalidInput, role)
	}
	return tableFor(role)
}

func scanAccount(row rowScanner, role string) (model.Account, error) {
	var account model.Account
	identity, err := scanIdentity(row, role,
		&account.CompanyName, &account.ContactName, &account.Phone, &account.Address,
		&account.PhotoPath, &account.KYCPath)
	if err != nil {
		return model.Account{}, err
	}
	account.Identity = identity
	return account, nil
}

// AccountRepository handles the profile columns of vendors and customers.
// Status, permissions and deletion go through IdentityRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(ctx context.Context, account model.Account) error {
	table, err := accountTable(account.Role)
	if err != nil {
		return err
	}

	perms, err := model.EncodePermissions(account.Permissions)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO `+table+` (id, username, email, display_name, password_hash, status, permissions,
		     company_name, contact_name, phone, address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		account.ID, account.Username, account.Email, account.DisplayName, account.PasswordHash,
		account.Status, perms, account.CompanyName, account.ContactName, account.Phone, account.Address,
		account.CreatedAt, account.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apierror.Conflict("username or email already exists", account.Username)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", account.Role, err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, role string, id string) (model.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return model.Account{}, err
	}

	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM `+table+` WHERE id::text = $1 AND NOT is_deleted`, id)
	account, err := scanAccount(row, role)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, model.ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("find %s: %w", role, err)
	}
	return account, nil
}

func (r *AccountRepository) List(ctx context.Context, role string, query model.AccountQuery) ([]model.Account, model.Meta, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, model.Meta{}, err
	}

	query.Page, query.Limit = model.NormalizePage(query.Page, query.Limit)
	where, args := accountFilters(query, "username", "email", "display_name", "company_name")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` `+where, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count %s: %w", table, err)
	}

	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			accountColumns, table, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	items := make([]model.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows, role)
		if err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, account)
	}

	return items, model.NewMeta(query.Page, query.Limit, total), rows.Err()
}

// Update writes the profile columns. Empty strings keep the stored value.
func (r *AccountRepository) Update(ctx context.Context, role string, id string, req model.UpdateAccountRequest) error {
	table, err := accountTable(role)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE `+table+` SET
		    email = COALESCE(NULLIF($2, ''), email),
		    company_name = COALESCE(NULLIF($3, ''), company_name),
		    display_name = COALESCE(NULLIF($3, ''), display_name),
		    contact_name = COALESCE(NULLIF($4, ''), contact_name),
		    phone = COALESCE(NULLIF($5, ''), phone),
		    address = COALESCE(NULLIF($6, ''), address),
		    updated_at = $7
		 WHERE id::text = $1 AND NOT is_deleted`,
		id, strings.TrimSpace(req.Email), strings.TrimSpace(req.CompanyName), strings.TrimSpace(req.ContactName),
		strings.TrimSpace(req.Phone), strings.TrimSpace(req.Address), time.Now().UTC())
	if database.IsUniqueViolation(err) {
		return apierror.Conflict("email already exists", req.Email)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", role, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

var slotColumns = map[string]string{
	model.SlotPhoto: "photo_path",
	model.SlotKYC:   "kyc_path",
}

func (r *AccountRepository) SetDocument(ctx context.Context, role string, id string, slot string, path string) error {
	table, err := accountTable(role)
	if err != nil {
		return err
	}
	column, ok := slotColumns[slot]
	if !ok {
		return fmt.Errorf("%w: unknown document slot %q", model.ErrInvalidInput, slot)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE `+table+` SET `+column+` = $2, updated_at = $3 WHERE id::text = $1 AND NOT is_deleted`,
		id, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set %s %s: %w", role, slot, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
