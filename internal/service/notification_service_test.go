package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freight-backoffice/internal/event"
	"freight-backoffice/internal/model"
)

func mustEvent(t *testing.T, eventType event.Type, actorID string, payload any) event.Event {
	t.Helper()
	e, err := event.New(eventType, actorID, payload)
	require.NoError(t, err)
	return e
}

func TestNotificationsFor(t *testing.T) {
	t.Parallel()

	t.Run("assignment notifies vendor and customer", func(t *testing.T) {
		out, err := notificationsFor(mustEvent(t, event.TypeLoadAssigned, "a1",
			event.LoadPayload{LoadID: "l1", Reference: "LD-1", CustomerID: "c1", VendorID: "v1", To: model.LoadAssigned}))
		require.NoError(t, err)
		require.Len(t, out, 2)
		require.Equal(t, model.RoleVendor, out[0].RecipientRole)
		require.Equal(t, "v1", out[0].RecipientID)
		require.Equal(t, model.RoleCustomer, out[1].RecipientRole)
		require.Equal(t, "c1", out[1].RecipientID)
	})

	t.Run("vendor is not told about its own status change", func(t *testing.T) {
		out, err := notificationsFor(mustEvent(t, event.TypeLoadStatusChanged, "v1",
			event.LoadPayload{Reference: "LD-1", CustomerID: "c1", VendorID: "v1", From: "assigned", To: "in_transit"}))
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, "c1", out[0].RecipientID)
		require.Equal(t, "Load LD-1 is in transit", out[0].Title)
	})

	t.Run("wallet review notifies owner", func(t *testing.T) {
		out, err := notificationsFor(mustEvent(t, event.TypeWalletReviewed, "a1",
			event.WalletPayload{OwnerKind: model.RoleCustomer, OwnerID: "c1", Direction: "credit", Amount: 10, Status: "rejected"}))
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, "Your credit of 10.00 was rejected.", out[0].Body)
	})

	t.Run("deactivation is silent", func(t *testing.T) {
		out, err := notificationsFor(mustEvent(t, event.TypeAccountStatusChange, "a1",
			event.AccountPayload{Role: model.RoleVendor, AccountID: "v1", Status: model.StatusInactive}))
		require.NoError(t, err)
		require.Empty(t, out)
	})

	t.Run("unrelated events", func(t *testing.T) {
		out, err := notificationsFor(mustEvent(t, event.TypeLoadCreated, "a1", event.LoadPayload{}))
		require.NoError(t, err)
		require.Empty(t, out)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := notificationsFor(event.Event{Type: event.TypeWalletReviewed, Payload: []byte(`"oops"`)})
		require.Error(t, err)
	})
}

func TestNotificationServiceRunConsumesBus(t *testing.T) {
	t.Parallel()

	store := &mockNotificationStore{}
	done := make(chan struct{})
	var once sync.Once
	store.On("Create", mock.Anything, mock.MatchedBy(func(n model.Notification) bool {
		return n.RecipientRole == model.RoleVendor && n.RecipientID == "v1"
	})).Run(func(mock.Arguments) { once.Do(func() { close(done) }) }).Return(nil)

	bus := event.NewBus()
	service := NewNotificationService(store, &mockIdentityStore{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		service.Run(ctx, bus)
		close(stopped)
	}()

	activated := mustEvent(t, event.TypeAccountStatusChange, "a1",
		event.AccountPayload{Role: model.RoleVendor, AccountID: "v1", Status: model.StatusActive})

	// Run subscribes asynchronously, so keep publishing until one lands.
	require.Eventually(t, func() bool {
		bus.Publish(activated)
		select {
		case <-done:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNotificationServiceCreateChecksRecipient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	identities := &mockIdentityStore{}
	identities.On("FindByID", ctx, model.RoleCustomer, "c1").
		Return(model.Identity{ID: "c1", Role: model.RoleCustomer, Status: model.StatusActive}, nil)
	identities.On("FindByID", ctx, model.RoleCustomer, "c9").Return(model.Identity{}, model.ErrNotFound)

	store := &mockNotificationStore{}
	store.On("Create", ctx, mock.MatchedBy(func(n model.Notification) bool {
		return n.RecipientID == "c1" && n.Title == "Holiday schedule"
	})).Return(nil).Once()

	service := NewNotificationService(store, identities, nil, nil)

	_, err := service.Create(ctx, staffActor, model.CreateNotificationRequest{
		RecipientRole: "customer", RecipientID: "c1", Title: " Holiday schedule ",
	})
	require.NoError(t, err)

	_, err = service.Create(ctx, staffActor, model.CreateNotificationRequest{
		RecipientRole: "customer", RecipientID: "c9", Title: "x",
	})
	require.Error(t, err)
	store.AssertExpectations(t)
}

func TestEventNotificationIDIsStablePerRecipient(t *testing.T) {
	t.Parallel()

	e := mustEvent(t, event.TypeLoadAssigned, "a1",
		event.LoadPayload{LoadID: "l1", Reference: "LD-1", CustomerID: "c1", VendorID: "v1"})
	vendor := model.Notification{RecipientRole: model.RoleVendor, RecipientID: "v1"}
	customer := model.Notification{RecipientRole: model.RoleCustomer, RecipientID: "c1"}

	require.Equal(t, eventNotificationID(e, vendor), eventNotificationID(e, vendor))
	require.NotEqual(t, eventNotificationID(e, vendor), eventNotificationID(e, customer))
}

type fakePusher struct {
	pushed       []model.Notification
	disconnected []string
}

func (p *fakePusher) Push(n model.Notification) {
	p.pushed = append(p.pushed, n)
}

func (p *fakePusher) Disconnect(role string, id string) {
	p.disconnected = append(p.disconnected, role+"/"+id)
}

func TestNotificationServiceDeliversToPusher(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stored event notifications are pushed", func(t *testing.T) {
		store := &mockNotificationStore{}
		store.On("Create", ctx, mock.Anything).Return(nil).Twice()
		pusher := &fakePusher{}
		service := NewNotificationService(store, &mockIdentityStore{}, nil, nil)
		service.SetPusher(pusher)

		service.handle(ctx, mustEvent(t, event.TypeLoadAssigned, "a1",
			event.LoadPayload{LoadID: "l1", Reference: "LD-1", CustomerID: "c1", VendorID: "v1"}))

		require.Len(t, pusher.pushed, 2)
		require.Equal(t, "v1", pusher.pushed[0].RecipientID)
		require.Equal(t, "c1", pusher.pushed[1].RecipientID)
		store.AssertExpectations(t)
	})

	t.Run("store failures are not pushed", func(t *testing.T) {
		store := &mockNotificationStore{}
		store.On("Create", ctx, mock.Anything).Return(errors.New("db down"))
		pusher := &fakePusher{}
		service := NewNotificationService(store, &mockIdentityStore{}, nil, nil)
		service.SetPusher(pusher)

		service.handle(ctx, mustEvent(t, event.TypeAccountStatusChange, "a1",
			event.AccountPayload{Role: model.RoleVendor, AccountID: "v1", Status: model.StatusActive}))

		require.Empty(t, pusher.pushed)
	})

	t.Run("created notifications are pushed without storing again", func(t *testing.T) {
		store := &mockNotificationStore{}
		pusher := &fakePusher{}
		service := NewNotificationService(store, &mockIdentityStore{}, nil, nil)
		service.SetPusher(pusher)

		service.handle(ctx, mustEvent(t, event.TypeNotificationCreated, "a1",
			model.Notification{ID: "n1", RecipientRole: model.RoleCustomer, RecipientID: "c1", Title: "Hi"}))

		require.Len(t, pusher.pushed, 1)
		require.Equal(t, "n1", pusher.pushed[0].ID)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("deactivation drops live connections", func(t *testing.T) {
		pusher := &fakePusher{}
		service := NewNotificationService(&mockNotificationStore{}, &mockIdentityStore{}, nil, nil)
		service.SetPusher(pusher)

		service.handle(ctx, mustEvent(t, event.TypeAccountStatusChange, "a1",
			event.AccountPayload{Role: model.RoleVendor, AccountID: "v1", Status: model.StatusInactive}))

		require.Equal(t, []string{"vendor/v1"}, pusher.disconnected)
		require.Empty(t, pusher.pushed)
	})

	t.Run("staff notifications go through the bus", func(t *testing.T) {
		identities := &mockIdentityStore{}
		identities.On("FindByID", ctx, model.RoleVendor, "v1").
			Return(model.Identity{ID: "v1", Role: model.RoleVendor, Status: model.StatusActive}, nil)
		store := &mockNotificationStore{}
		store.On("Create", ctx, mock.Anything).Return(nil)
		bus := &recordingBus{}
		pusher := &fakePusher{}
		service := NewNotificationService(store, identities, bus, nil)
		service.SetPusher(pusher)

		_, err := service.Create(ctx, staffActor, model.CreateNotificationRequest{
			RecipientRole: "vendor", RecipientID: "v1", Title: "Docs due",
		})
		require.NoError(t, err)
		require.Equal(t, []event.Type{event.TypeNotificationCreated}, bus.types())
		require.Empty(t, pusher.pushed)
	})
}
