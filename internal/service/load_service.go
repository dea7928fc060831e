package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-backoffice/internal/event"
	"freight-backoffice/internal/model"
	"freight-backoffice/pkg/apierror"
)

type loadStore interface {
	Create(ctx context.Context, l model.Load) error
	FindByID(ctx context.Context, id string) (model.Load, error)
	List(ctx context.Context, query model.LoadQuery) ([]model.Load, model.Meta, error)
	Update(ctx context.Context, l model.Load) error
	Transition(ctx context.Context, id string, from string, to string, vendorID *string) (model.Load, error)
	SoftDelete(ctx context.Context, id string) error
}

type accountFinder interface {
	FindByID(ctx context.Context, role string, id string) (model.Account, error)
}

const referenceAttempts = 3

type LoadService struct {
	loads    loadStore
	accounts accountFinder
	bus      event.Bus
	audit    *AuditService
	now      func() time.Time
}

func NewLoadService(loads loadStore, accounts accountFinder, bus event.Bus, audit *AuditService) *LoadService {
	return &LoadService{loads: loads, accounts: accounts, bus: bus, audit: audit, now: time.Now}
}

// newReference builds LD-YYYYMMDD-xxxxxx with six random hex digits.
func newReference(now time.Time) (string, error) {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate load reference: %w", err)
	}
	return "LD-" + now.UTC().Format("20060102") + "-" + hex.EncodeToString(suffix), nil
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apierror.BadRequest("invalid date, expected YYYY-MM-DD", raw)
	}
	return &parsed, nil
}

func checkDateOrder(pickup *time.Time, delivery *time.Time) error {
	if pickup != nil && delivery != nil && delivery.Before(*pickup) {
		return apierror.BadRequest("delivery_date is before pickup_date", "")
	}
	return nil
}

func (s *LoadService) requireActive(ctx context.Context, role string, id string) error {
	account, err := s.accounts.FindByID(ctx, role, id)
	if errors.Is(err, model.ErrNotFound) {
		return apierror.BadRequest("unknown "+role, id)
	}
	if err != nil {
		return err
	}
	if !account.IsActive() {
		return apierror.BadRequest(role+" is not active", id)
	}
	return nil
}

// Create registers a pending load for req.CustomerID.
func (s *LoadService) Create(ctx context.Context, actor model.AuditActor, req model.CreateLoadRequest) (model.Load, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return model.Load{}, apierror.BadRequest("customer_id is required", "")
	}
	if err := s.requireActive(ctx, model.RoleCustomer, req.CustomerID); err != nil {
		return model.Load{}, err
	}

	pickup, err := parseDate(req.PickupDate)
	if err != nil {
		return model.Load{}, err
	}
	delivery, err := parseDate(req.DeliveryDate)
	if err != nil {
		return model.Load{}, err
	}
	if err := checkDateOrder(pickup, delivery); err != nil {
		return model.Load{}, err
	}

	now := s.now().UTC()
	load := model.Load{
		ID:           uuid.NewString(),
		CustomerID:   req.CustomerID,
		Origin:       strings.TrimSpace(req.Origin),
		Destination:  strings.TrimSpace(req.Destination),
		PickupDate:   pickup,
		DeliveryDate: delivery,
		WeightKg:     req.WeightKg,
		Rate:         req.Rate,
		Status:       model.LoadPending,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedBy:    actor.Role + ":" + actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for attempt := 1; ; attempt++ {
		if load.Reference, err = newReference(now); err != nil {
			return model.Load{}, err
		}
		err = s.loads.Create(ctx, load)
		var apiErr *apierror.APIError
		if err == nil || !errors.As(err, &apiErr) || apiErr.Code != "CONFLICT" || attempt == referenceAttempts {
			break
		}
	}

	s.audit.Record(ctx, "load.create", actor, "loads/"+load.ID, nil,
		map[string]any{"reference": load.Reference, "customer_id": load.CustomerID}, err)
	if err != nil {
		return model.Load{}, err
	}

	publish(s.bus, event.TypeLoadCreated, actor.UserID, event.LoadPayload{
		LoadID: load.ID, Reference: load.Reference, CustomerID: load.CustomerID, To: load.Status,
	})
	return load, nil
}

func (s *LoadService) Get(ctx context.Context, id string) (model.Load, error) {
	return s.loads.FindByID(ctx, id)
}

func (s *LoadService) List(ctx context.Context, query model.LoadQuery) ([]model.Load, model.Meta, error) {
	return s.loads.List(ctx, query)
}

// GetForAccount returns the load only when it belongs to the given customer
// or is assigned to the given vendor.
func (s *LoadService) GetForAccount(ctx context.Context, role string, accountID string, id string) (model.Load, error) {
	load, err := s.loads.FindByID(ctx, id)
	if err != nil {
		return model.Load{}, err
	}
	if !ownsLoad(load, role, accountID) {
		return model.Load{}, model.ErrNotFound
	}
	return load, nil
}

func ownsLoad(load model.Load, role string, accountID string) bool {
	switch role {
	case model.RoleCustomer:
		return load.CustomerID == accountID
	case model.RoleVendor:
		return load.VendorID != nil && *load.VendorID == accountID
	default:
		return false
	}
}

// ListForAccount scopes the query to the caller's own loads.
func (s *LoadService) ListForAccount(ctx context.Context, role string, accountID string, query model.LoadQuery) ([]model.Load, model.Meta, error) {
	query.CustomerID, query.VendorID = "", ""
	switch role {
	case model.RoleCustomer:
		query.CustomerID = accountID
	case model.RoleVendor:
		query.VendorID = accountID
	default:
		return nil, model.Meta{}, model.ErrForbidden
	}
	return s.loads.List(ctx, query)
}

// Update edits a load that has not reached a terminal status.
func (s *LoadService) Update(ctx context.Context, actor model.AuditActor, id string, req model.UpdateLoadRequest) (model.Load, error) {
	load, err := s.loads.FindByID(ctx, id)
	if err != nil {
		return model.Load{}, err
	}
	if load.Status == model.LoadDelivered || load.Status == model.LoadCancelled {
		return model.Load{}, model.ErrInvalidTransition
	}

	before := load
	if v := strings.TrimSpace(req.Origin); v != "" {
		load.Origin = v
	}
	if v := strings.TrimSpace(req.Destination); v != "" {
		load.Destination = v
	}
	if req.PickupDate != "" {
		if load.PickupDate, err = parseDate(req.PickupDate); err != nil {
			return model.Load{}, err
		}
	}
	if req.DeliveryDate != "" {
		if load.DeliveryDate, err = parseDate(req.DeliveryDate); err != nil {
			return model.Load{}, err
		}
	}
	if err := checkDateOrder(load.PickupDate, load.DeliveryDate); err != nil {
		return model.Load{}, err
	}
	if req.WeightKg != nil {
		load.WeightKg = *req.WeightKg
	}
	if req.Rate != nil {
		load.Rate = *req.Rate
	}
	if req.Notes != nil {
		load.Notes = strings.TrimSpace(*req.Notes)
	}

	err = s.loads.Update(ctx, load)
	s.audit.Record(ctx, "load.update", actor, "loads/"+id, before, load, err)
	if err != nil {
		return model.Load{}, err
	}
	load.UpdatedAt = s.now().UTC()
	return load, nil
}

// Assign hands a pending load to an active vendor.
func (s *LoadService) Assign(ctx context.Context, actor model.AuditActor, id string, vendorID string) (model.Load, error) {
	load, err := s.loads.FindByID(ctx, id)
	if err != nil {
		return model.Load{}, err
	}
	if load.Status != model.LoadPending {
		return model.Load{}, model.ErrInvalidTransition
	}
	if err := s.requireActive(ctx, model.RoleVendor, vendorID); err != nil {
		return model.Load{}, err
	}

	updated, err := s.loads.Transition(ctx, id, model.LoadPending, model.LoadAssigned, &vendorID)
	s.audit.Record(ctx, "load.assign", actor, "loads/"+id,
		map[string]any{"status": load.Status}, map[string]any{"status": model.LoadAssigned, "vendor_id": vendorID}, err)
	if err != nil {
		return model.Load{}, err
	}

	publish(s.bus, event.TypeLoadAssigned, actor.UserID, event.LoadPayload{
		LoadID: id, Reference: updated.Reference, CustomerID: updated.CustomerID, VendorID: vendorID,
		From: model.LoadPending, To: model.LoadAssigned,
	})
	return updated, nil
}

// SetStatus applies a staff-driven status change. Moving to "assigned" goes
// through Assign because it needs a vendor.
func (s *LoadService) SetStatus(ctx context.Context, actor model.AuditActor, id string, to string) (model.Load, error) {
	load, err := s.loads.FindByID(ctx, id)
	if err != nil {
		return model.Load{}, err
	}
	return s.transition(ctx, actor, load, strings.ToLower(strings.TrimSpace(to)))
}

// vendorStatuses are the only moves a vendor may make on its own loads.
var vendorStatuses = map[string]bool{
	model.LoadInTransit: true,
	model.LoadDelivered: true,
}

// SetStatusAsVendor lets the assigned vendor report pickup and delivery.
func (s *LoadService) SetStatusAsVendor(ctx context.Context, actor model.AuditActor, vendorID string, id string, to string) (model.Load, error) {
	load, err := s.GetForAccount(ctx, model.RoleVendor, vendorID, id)
	if err != nil {
		return model.Load{}, err
	}
	to = strings.ToLower(strings.TrimSpace(to))
	if !vendorStatuses[to] {
		return model.Load{}, model.ErrForbidden
	}
	return s.transition(ctx, actor, load, to)
}

func (s *LoadService) transition(ctx context.Context, actor model.AuditActor, load model.Load, to string) (model.Load, error) {
	if to == model.LoadAssigned || !model.CanTransitionLoad(load.Status, to) {
		return model.Load{}, model.ErrInvalidTransition
	}

	updated, err := s.loads.Transition(ctx, load.ID, load.Status, to, nil)
	s.audit.Record(ctx, "load.status", actor, "loads/"+load.ID,
		map[string]any{"status": load.Status}, map[string]any{"status": to}, err)
	if err != nil {
		return model.Load{}, err
	}

	payload := event.LoadPayload{
		LoadID: load.ID, Reference: load.Reference, CustomerID: load.CustomerID, From: load.Status, To: to,
	}
	if load.VendorID != nil {
		payload.VendorID = *load.VendorID
	}
	publish(s.bus, event.TypeLoadStatusChanged, actor.UserID, payload)

	return updated, nil
}

func (s *LoadService) Delete(ctx context.Context, actor model.AuditActor, id string) error {
	err := s.loads.SoftDelete(ctx, id)
	s.audit.Record(ctx, "load.delete", actor, "loads/"+id, nil, nil, err)
	return err
}
