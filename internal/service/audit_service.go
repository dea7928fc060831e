package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"freight-backoffice/internal/model"
	"freight-backoffice/pkg/apierror"
)

type auditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

const (
	auditSuccess = "success"
	auditFailed  = "failed"
)

type AuditService struct {
	store auditStore
}

func NewAuditService(store auditStore) *AuditService {
	return &AuditService{store: store}
}

// Log never fails the calling operation; write errors are only logged.
func (s *AuditService) Log(ctx context.Context, action string, actor model.AuditActor, status string, resource string, before any, after any, errText string) {
	if s == nil || s.store == nil {
		return
	}

	entry := model.AuditEntry{
		Action:     action,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Actor:      actor,
		Status:     status,
		Resource:   resource,
		Before:     before,
		After:      after,
		Error:      errText,
	}

	if err := s.store.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("audit write failed", "action", action, "resource", resource, "error", err)
	}
}

// Record logs the outcome of an operation that returned err.
func (s *AuditService) Record(ctx context.Context, action string, actor model.AuditActor, resource string, before any, after any, err error) {
	if err != nil {
		s.Log(ctx, action, actor, auditFailed, resource, before, nil, err.Error())
		return
	}
	s.Log(ctx, action, actor, auditSuccess, resource, before, after, "")
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	for name, raw := range map[string]string{"from": query.From, "to": query.To} {
		if _, err := parseOptionalAuditTime(raw); err != nil {
			return nil, model.Meta{}, apierror.BadRequest("invalid '"+name+"' datetime format", raw)
		}
	}
	if query.Kind != "" && !model.IsAuditKind(strings.Trim(query.Kind, "/")) {
		return nil, model.Meta{}, apierror.BadRequest("unknown audit kind", query.Kind)
	}

	return s.store.Query(ctx, query)
}

func parseOptionalAuditTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}

	if value, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return value.UTC(), nil
	}
	value, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, err
	}
	return value.UTC(), nil
}
