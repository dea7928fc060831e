package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-backoffice/internal/event"
	"freight-backoffice/internal/model"
	"freight-backoffice/pkg/apierror"
)

type notificationStore interface {
	Create(ctx context.Context, n model.Notification) error
	ListForRecipient(ctx context.Context, role string, recipientID string, unreadOnly bool, page int, limit int) ([]model.Notification, model.Meta, error)
	MarkRead(ctx context.Context, id string, role string, recipientID string) error
}

// notificationPusher delivers stored notifications to live connections.
type notificationPusher interface {
	Push(n model.Notification)
	Disconnect(role string, id string)
}

type NotificationService struct {
	store      notificationStore
	identities identityFinder
	bus        event.Bus
	audit      *AuditService
	pusher     notificationPusher
}

func NewNotificationService(store notificationStore, identities identityFinder, bus event.Bus, audit *AuditService) *NotificationService {
	return &NotificationService{store: store, identities: identities, bus: bus, audit: audit}
}

// SetPusher must be called before Run.
func (s *NotificationService) SetPusher(p notificationPusher) {
	s.pusher = p
}

// Create sends a staff-written notification to one recipient.
func (s *NotificationService) Create(ctx context.Context, actor model.AuditActor, req model.CreateNotificationRequest) (model.Notification, error) {
	role := strings.ToLower(strings.TrimSpace(req.RecipientRole))
	recipient, err := s.identities.FindByID(ctx, role, req.RecipientID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && recipient.IsDeleted) {
		return model.Notification{}, apierror.BadRequest("unknown recipient", req.RecipientID)
	}
	if err != nil {
		return model.Notification{}, err
	}

	n := newNotification(role, recipient.ID, req.Title, req.Body)
	err = s.store.Create(ctx, n)
	s.audit.Record(ctx, "notification.create", actor, "notifications/"+n.ID, nil,
		map[string]any{"recipient_role": role, "recipient_id": n.RecipientID, "title": n.Title}, err)
	if err != nil {
		return model.Notification{}, err
	}

	// Every instance's subscriber pushes to its own connections.
	if s.bus != nil {
		publish(s.bus, event.TypeNotificationCreated, actor.UserID, n)
	} else {
		s.deliver(n)
	}
	return n, nil
}

func (s *NotificationService) deliver(n model.Notification) {
	if s.pusher != nil {
		s.pusher.Push(n)
	}
}

func newNotification(role string, recipientID string, title string, body string) model.Notification {
	return model.Notification{
		ID:            uuid.NewString(),
		RecipientRole: role,
		RecipientID:   recipientID,
		Title:         strings.TrimSpace(title),
		Body:          strings.TrimSpace(body),
		CreatedAt:     time.Now().UTC(),
	}
}

func (s *NotificationService) ListMine(ctx context.Context, identity model.Identity, unreadOnly bool, page int, limit int) ([]model.Notification, model.Meta, error) {
	return s.store.ListForRecipient(ctx, identity.Role, identity.ID, unreadOnly, page, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, identity model.Identity, id string) error {
	return s.store.MarkRead(ctx, id, identity.Role, identity.ID)
}

// Run turns domain events into notifications until ctx is done or the bus
// closes the subscription.
func (s *NotificationService) Run(ctx context.Context, bus event.Bus) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.handle(ctx, e)
		}
	}
}

func (s *NotificationService) handle(ctx context.Context, e event.Event) {
	switch e.Type {
	case event.TypeNotificationCreated:
		var n model.Notification
		if err := e.Decode(&n); err != nil {
			slog.Warn("skipping event", "id", e.ID, "type", e.Type, "error", err)
			return
		}
		s.deliver(n)
		return
	case event.TypeAccountStatusChange:
		var p event.AccountPayload
		if err := e.Decode(&p); err == nil && p.Status != model.StatusActive && s.pusher != nil {
			s.pusher.Disconnect(p.Role, p.AccountID)
		}
	}

	notifications, err := notificationsFor(e)
	if err != nil {
		slog.Warn("skipping event", "id", e.ID, "type", e.Type, "error", err)
		return
	}

	for _, n := range notifications {
		// Every instance on a shared bus sees the event; a stable id lets
		// the store drop the copies.
		n.ID = eventNotificationID(e, n)
		if err := s.store.Create(ctx, n); err != nil {
			slog.Error("store notification", "event", e.ID, "recipient", n.RecipientID, "error", err)
			continue
		}
		s.deliver(n)
	}
}

func eventNotificationID(e event.Event, n model.Notification) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("event:"+e.ID+"/"+n.RecipientRole+"/"+n.RecipientID)).String()
}

// notificationsFor maps an event to the notifications it produces. Events
// with no portal-facing recipient produce none.
func notificationsFor(e event.Event) ([]model.Notification, error) {
	switch e.Type {
	case event.TypeLoadAssigned:
		var p event.LoadPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		return []model.Notification{
			newNotification(model.RoleVendor, p.VendorID, "New load "+p.Reference,
				"Load "+p.Reference+" has been assigned to you."),
			newNotification(model.RoleCustomer, p.CustomerID, "Load "+p.Reference+" assigned",
				"A carrier has been assigned to load "+p.Reference+"."),
		}, nil

	case event.TypeLoadStatusChanged:
		var p event.LoadPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		title := fmt.Sprintf("Load %s is %s", p.Reference, strings.ReplaceAll(p.To, "_", " "))
		body := fmt.Sprintf("Load %s moved from %s to %s.", p.Reference, p.From, p.To)
		out := []model.Notification{newNotification(model.RoleCustomer, p.CustomerID, title, body)}
		if p.VendorID != "" && e.ActorID != p.VendorID {
			out = append(out, newNotification(model.RoleVendor, p.VendorID, title, body))
		}
		return out, nil

	case event.TypeWalletReviewed:
		var p event.WalletPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		return []model.Notification{
			newNotification(p.OwnerKind, p.OwnerID, "Payment "+p.Status,
				fmt.Sprintf("Your %s of %.2f was %s.", p.Direction, p.Amount, p.Status)),
		}, nil

	case event.TypeAccountStatusChange:
		var p event.AccountPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		if p.Status != model.StatusActive {
			return nil, nil
		}
		return []model.Notification{
			newNotification(p.Role, p.AccountID, "Account activated", "Your account is active. You can now sign in."),
		}, nil

	default:
		return nil, nil
	}
}
