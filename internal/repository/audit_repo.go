package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freight-backoffice/internal/model"
)

const auditColumns = `action, occurred_at, actor_user_id, actor_username, actor_role, actor_ip,
	status, resource, before_data, after_data, error_text`

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	before, err := snapshotJSON(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal audit before for %s: %w", entry.Resource, err)
	}
	after, err := snapshotJSON(entry.After)
	if err != nil {
		return fmt.Errorf("marshal audit after for %s: %w", entry.Resource, err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_entries (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.Action, entry.OccurredAt,
		entry.Actor.UserID, entry.Actor.Username, entry.Actor.Role, entry.Actor.IP,
		entry.Status, entry.Resource, before, after, entry.Error)
	if err != nil {
		return fmt.Errorf("log audit entry %s: %w", entry.Action, err)
	}
	return nil
}

// Query pages through the trail newest first.
func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	query.Page, query.Limit = model.NormalizePage(query.Page, query.Limit)
	where, args := auditFilter(query)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_entries"+where, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit entries: %w", err)
	}

	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM audit_entries%s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, auditColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, scanAuditEntry)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("scan audit entries: %w", err)
	}
	return entries, model.NewMeta(query.Page, query.Limit, total), nil
}

// auditFilter renders the WHERE clause. Kind and Resource are prefix matches
// on the "<kind>/<id>" resource column, so "loads" never matches
// "loadsheets/..." and "vendors/v1" never matches "vendors/v10".
func auditFilter(query model.AuditQuery) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if action := strings.TrimSpace(query.Action); action != "" {
		if strings.HasSuffix(action, ".") {
			add("action LIKE $%d", likePrefix(strings.ToLower(action)))
		} else {
			add("action = $%d", strings.ToLower(action))
		}
	}
	if actorID := strings.TrimSpace(query.ActorID); actorID != "" {
		add("actor_user_id = $%d", actorID)
	}
	if role := strings.TrimSpace(query.ActorRole); role != "" {
		add("actor_role = $%d", strings.ToLower(role))
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		add("status = $%d", strings.ToLower(status))
	}
	if kind := strings.Trim(strings.TrimSpace(query.Kind), "/"); kind != "" {
		add("resource LIKE $%d", likePrefix(strings.ToLower(kind)+"/"))
	}
	if resource := strings.Trim(strings.TrimSpace(query.Resource), "/"); resource != "" {
		args = append(args, resource, likePrefix(resource+"/"))
		clauses = append(clauses, fmt.Sprintf("(resource = $%d OR resource LIKE $%d)", len(args)-1, len(args)))
	}
	if from := strings.TrimSpace(query.From); from != "" {
		add("occurred_at >= $%d::timestamptz", from)
	}
	if to := strings.TrimSpace(query.To); to != "" {
		add("occurred_at <= $%d::timestamptz", to)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func likePrefix(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return escaped + "%"
}

func snapshotJSON(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

func scanAuditEntry(row pgx.CollectableRow) (model.AuditEntry, error) {
	var e model.AuditEntry
	var occurredAt time.Time
	var before, after []byte

	if err := row.Scan(
		&e.Action, &occurredAt,
		&e.Actor.UserID, &e.Actor.Username, &e.Actor.Role, &e.Actor.IP,
		&e.Status, &e.Resource, &before, &after, &e.Error,
	); err != nil {
		return e, err
	}

	e.OccurredAt = occurredAt.UTC().Format(time.RFC3339Nano)
	if len(before) > 0 {
		_ = json.Unmarshal(before, &e.Before)
	}
	if len(after) > 0 {
		_ = json.Unmarshal(after, &e.After)
	}
	return e, nil
}
