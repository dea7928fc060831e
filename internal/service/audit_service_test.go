package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freight-backoffice/internal/model"
)

type mockAuditStore struct {
	mock.Mock
}

func (m *mockAuditStore) Log(ctx context.Context, entry model.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockAuditStore) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]model.AuditEntry), args.Get(1).(model.Meta), args.Error(2)
}

func TestAuditServiceRecord(t *testing.T) {
	t.Parallel()

	store := &mockAuditStore{}
	store.On("Log", mock.Anything, mock.MatchedBy(func(e model.AuditEntry) bool {
		return e.Action == "load.delete" && e.Status == auditFailed && e.Error == "boom" && e.After == nil
	})).Return(nil).Once()
	store.On("Log", mock.Anything, mock.MatchedBy(func(e model.AuditEntry) bool {
		return e.Action == "load.create" && e.Status == auditSuccess && e.OccurredAt != ""
	})).Return(errors.New("disk full")).Once()

	service := NewAuditService(store)
	service.Record(context.Background(), "load.delete", staffActor, "loads/l1", nil, map[string]any{"x": 1}, errors.New("boom"))
	service.Record(context.Background(), "load.create", staffActor, "loads/l2", nil, nil, nil)
	store.AssertExpectations(t)

	var nilService *AuditService
	require.NotPanics(t, func() {
		nilService.Record(context.Background(), "load.create", staffActor, "", nil, nil, nil)
	})
}

func TestAuditServiceQueryValidatesRange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &mockAuditStore{}
	valid := model.AuditQuery{From: "2026-01-01", To: "2026-01-31T23:59:59Z"}
	store.On("Query", ctx, valid).Return([]model.AuditEntry{}, model.Meta{Page: 1}, nil).Once()

	service := NewAuditService(store)

	_, _, err := service.Query(ctx, valid)
	require.NoError(t, err)

	_, _, err = service.Query(ctx, model.AuditQuery{From: "last tuesday"})
	require.Error(t, err)

	byKind := model.AuditQuery{Kind: "calls"}
	store.On("Query", ctx, byKind).Return([]model.AuditEntry{}, model.Meta{Page: 1}, nil).Once()
	_, _, err = service.Query(ctx, byKind)
	require.NoError(t, err)

	_, _, err = service.Query(ctx, model.AuditQuery{Kind: "shipments"})
	require.Error(t, err)
	store.AssertExpectations(t)
}
