package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freight-backoffice/internal/event"
	"freight-backoffice/internal/model"
	"freight-backoffice/pkg/apierror"
)

func strPtr(s string) *string {
	return &s
}

func activeAccount(role string, id string) model.Account {
	return model.Account{Identity: model.Identity{ID: id, Role: role, Status: model.StatusActive}}
}

func TestNewReference(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)
	ref, err := newReference(now)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^LD-20260309-[0-9a-f]{6}$`), ref)
}

func TestLoadServiceCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("retries on reference collision", func(t *testing.T) {
		accounts := &mockAccountStore{}
		accounts.On("FindByID", ctx, model.RoleCustomer, "c1").Return(activeAccount(model.RoleCustomer, "c1"), nil)
		loads := &mockLoadStore{}
		loads.On("Create", ctx, mock.Anything).Return(apierror.Conflict("load reference already exists", "")).Once()
		loads.On("Create", ctx, mock.MatchedBy(func(l model.Load) bool {
			return l.Status == model.LoadPending && l.CustomerID == "c1" && l.PickupDate != nil
		})).Return(nil).Once()

		bus := &recordingBus{}
		load, err := NewLoadService(loads, accounts, bus, nil).Create(ctx, staffActor, model.CreateLoadRequest{
			CustomerID: "c1", Origin: "Lagos", Destination: "Abuja", PickupDate: "2026-03-10", DeliveryDate: "2026-03-12",
		})
		require.NoError(t, err)
		require.Equal(t, "admin:admin-1", load.CreatedBy)
		require.Equal(t, []event.Type{event.TypeLoadCreated}, bus.types())
		loads.AssertExpectations(t)
	})

	t.Run("delivery before pickup", func(t *testing.T) {
		accounts := &mockAccountStore{}
		accounts.On("FindByID", ctx, model.RoleCustomer, "c1").Return(activeAccount(model.RoleCustomer, "c1"), nil)

		_, err := NewLoadService(&mockLoadStore{}, accounts, nil, nil).Create(ctx, staffActor, model.CreateLoadRequest{
			CustomerID: "c1", Origin: "A", Destination: "B", PickupDate: "2026-03-10", DeliveryDate: "2026-03-01",
		})
		require.Error(t, err)
	})

	t.Run("inactive customer", func(t *testing.T) {
		accounts := &mockAccountStore{}
		accounts.On("FindByID", ctx, model.RoleCustomer, "c2").
			Return(model.Account{Identity: model.Identity{ID: "c2", Status: model.StatusInactive}}, nil)

		_, err := NewLoadService(&mockLoadStore{}, accounts, nil, nil).Create(ctx, staffActor, model.CreateLoadRequest{
			CustomerID: "c2", Origin: "A", Destination: "B",
		})
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
	})
}

func TestLoadServiceAssign(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pending := model.Load{ID: "l1", Reference: "LD-20260309-abcdef", CustomerID: "c1", Status: model.LoadPending}

	loads := &mockLoadStore{}
	loads.On("FindByID", ctx, "l1").Return(pending, nil)
	loads.On("FindByID", ctx, "l2").Return(model.Load{ID: "l2", Status: model.LoadDelivered}, nil)
	loads.On("Transition", ctx, "l1", model.LoadPending, model.LoadAssigned, strPtr("v1")).
		Return(model.Load{ID: "l1", Reference: pending.Reference, CustomerID: "c1", VendorID: strPtr("v1"), Status: model.LoadAssigned}, nil).Once()

	accounts := &mockAccountStore{}
	accounts.On("FindByID", ctx, model.RoleVendor, "v1").Return(activeAccount(model.RoleVendor, "v1"), nil)

	bus := &recordingBus{}
	service := NewLoadService(loads, accounts, bus, nil)

	load, err := service.Assign(ctx, staffActor, "l1", "v1")
	require.NoError(t, err)
	require.Equal(t, model.LoadAssigned, load.Status)
	require.Equal(t, []event.Type{event.TypeLoadAssigned}, bus.types())

	var payload event.LoadPayload
	require.NoError(t, bus.events[0].Decode(&payload))
	require.Equal(t, "v1", payload.VendorID)
	require.Equal(t, "c1", payload.CustomerID)

	_, err = service.Assign(ctx, staffActor, "l2", "v1")
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	loads.AssertExpectations(t)
}

func TestLoadServiceSetStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assigned := model.Load{ID: "l1", CustomerID: "c1", VendorID: strPtr("v1"), Status: model.LoadAssigned}

	newService := func() (*LoadService, *mockLoadStore, *recordingBus) {
		loads := &mockLoadStore{}
		loads.On("FindByID", ctx, "l1").Return(assigned, nil)
		bus := &recordingBus{}
		return NewLoadService(loads, &mockAccountStore{}, bus, nil), loads, bus
	}

	t.Run("legal move", func(t *testing.T) {
		service, loads, bus := newService()
		loads.On("Transition", ctx, "l1", model.LoadAssigned, model.LoadInTransit, (*string)(nil)).
			Return(model.Load{ID: "l1", Status: model.LoadInTransit}, nil).Once()

		load, err := service.SetStatus(ctx, staffActor, "l1", "IN_TRANSIT")
		require.NoError(t, err)
		require.Equal(t, model.LoadInTransit, load.Status)
		require.Equal(t, []event.Type{event.TypeLoadStatusChanged}, bus.types())
	})

	t.Run("illegal move", func(t *testing.T) {
		service, loads, bus := newService()
		_, err := service.SetStatus(ctx, staffActor, "l1", model.LoadDelivered)
		require.ErrorIs(t, err, model.ErrInvalidTransition)
		require.Empty(t, bus.events)
		loads.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("assigned only through Assign", func(t *testing.T) {
		service, _, _ := newService()
		_, err := service.SetStatus(ctx, staffActor, "l1", model.LoadAssigned)
		require.ErrorIs(t, err, model.ErrInvalidTransition)
	})

	t.Run("vendor moves own load", func(t *testing.T) {
		service, loads, _ := newService()
		loads.On("Transition", ctx, "l1", model.LoadAssigned, model.LoadInTransit, (*string)(nil)).
			Return(model.Load{ID: "l1", Status: model.LoadInTransit}, nil).Once()

		_, err := service.SetStatusAsVendor(ctx, model.AuditActor{UserID: "v1", Role: model.RoleVendor}, "v1", "l1", model.LoadInTransit)
		require.NoError(t, err)
	})

	t.Run("vendor cannot cancel", func(t *testing.T) {
		service, _, _ := newService()
		_, err := service.SetStatusAsVendor(ctx, model.AuditActor{UserID: "v1", Role: model.RoleVendor}, "v1", "l1", model.LoadCancelled)
		require.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("other vendor sees nothing", func(t *testing.T) {
		service, _, _ := newService()
		_, err := service.SetStatusAsVendor(ctx, model.AuditActor{UserID: "v9", Role: model.RoleVendor}, "v9", "l1", model.LoadInTransit)
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestLoadServiceListForAccountScopes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	loads := &mockLoadStore{}
	loads.On("List", ctx, model.LoadQuery{CustomerID: "c1", Status: "pending"}).
		Return([]model.Load{}, model.Meta{}, nil).Once()

	service := NewLoadService(loads, &mockAccountStore{}, nil, nil)
	_, _, err := service.ListForAccount(ctx, model.RoleCustomer, "c1", model.LoadQuery{CustomerID: "c9", VendorID: "v9", Status: "pending"})
	require.NoError(t, err)
	loads.AssertExpectations(t)

	_, _, err = service.ListForAccount(ctx, model.RoleAdmin, "a1", model.LoadQuery{})
	require.ErrorIs(t, err, model.ErrForbidden)
}
