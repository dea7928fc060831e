package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-backoffice/internal/authz"
	"freight-backoffice/internal/model"
	"freight-backoffice/pkg/apierror"
)

// identityStore covers the columns shared by every identity table.
type identityStore interface {
	FindByID(ctx context.Context, role string, id string) (model.Identity, error)
	Create(ctx context.Context, identity model.Identity) error
	List(ctx context.Context, role string, query model.AccountQuery) ([]model.Identity, model.Meta, error)
	UpdateProfile(ctx context.Context, role string, id string, email string, displayName string, passwordHash string) error
	UpdatePermissions(ctx context.Context, role string, id string, perms model.Permissions) error
	UpdateStatus(ctx context.Context, role string, id string, status string) error
	SoftDelete(ctx context.Context, role string, id string) error
}

// AdminService manages staff accounts. Only sudo sessions reach it.
type AdminService struct {
	store identityStore
	audit *AuditService
}

func NewAdminService(store identityStore, audit *AuditService) *AdminService {
	return &AdminService{store: store, audit: audit}
}

func (s *AdminService) List(ctx context.Context, query model.AccountQuery) ([]model.Identity, model.Meta, error) {
	return s.store.List(ctx, model.RoleAdmin, query)
}

func (s *AdminService) Get(ctx context.Context, id string) (model.Identity, error) {
	identity, err := s.store.FindByID(ctx, model.RoleAdmin, id)
	if err != nil {
		return model.Identity{}, err
	}
	if identity.IsDeleted {
		return model.Identity{}, model.ErrNotFound
	}
	return identity, nil
}

func (s *AdminService) Create(ctx context.Context, actor model.AuditActor, req model.CreateAdminRequest) (model.Identity, error) {
	perms, err := normalizeFlat(req.Permissions)
	if err != nil {
		return model.Identity{}, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return model.Identity{}, err
	}

	now := time.Now().UTC()
	identity := model.Identity{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Status:       model.StatusActive,
		Permissions:  perms,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.Username
	}

	err = s.store.Create(ctx, identity)
	s.audit.Record(ctx, "admin.create", actor, "admins/"+identity.ID, nil, map[string]any{"username": identity.Username, "permissions": perms}, err)
	if err != nil {
		return model.Identity{}, err
	}
	return identity, nil
}

func (s *AdminService) Update(ctx context.Context, actor model.AuditActor, id string, req model.UpdateAdminRequest) (model.Identity, error) {
	hash := ""
	if req.Password != "" {
		var err error
		if hash, err = HashPassword(req.Password); err != nil {
			return model.Identity{}, err
		}
	}

	err := s.store.UpdateProfile(ctx, model.RoleAdmin, id,
		strings.ToLower(strings.TrimSpace(req.Email)), strings.TrimSpace(req.DisplayName), hash)
	s.audit.Record(ctx, "admin.update", actor, "admins/"+id, nil,
		map[string]any{"email": req.Email, "display_name": req.DisplayName, "password_changed": hash != ""}, err)
	if err != nil {
		return model.Identity{}, err
	}
	return s.Get(ctx, id)
}

// SetPermissions replaces the admin's whole capability list.
func (s *AdminService) SetPermissions(ctx context.Context, actor model.AuditActor, id string, payload model.PermissionsPayload) (model.Identity, error) {
	flat, ok := payload.Value.(model.FlatPermissions)
	if !ok {
		return model.Identity{}, apierror.BadRequest("admin permissions must be a list of resource:action strings", "")
	}
	perms, err := normalizeFlat(flat)
	if err != nil {
		return model.Identity{}, err
	}

	before, err := s.Get(ctx, id)
	if err != nil {
		return model.Identity{}, err
	}

	err = s.store.UpdatePermissions(ctx, model.RoleAdmin, id, perms)
	s.audit.Record(ctx, "admin.permissions", actor, "admins/"+id, before.Permissions, perms, err)
	if err != nil {
		return model.Identity{}, err
	}

	before.Permissions = perms
	return before, nil
}

func (s *AdminService) SetStatus(ctx context.Context, actor model.AuditActor, id string, status string) (model.Identity, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	err := s.store.UpdateStatus(ctx, model.RoleAdmin, id, status)
	s.audit.Record(ctx, "admin.status", actor, "admins/"+id, nil, map[string]any{"status": status}, err)
	if err != nil {
		return model.Identity{}, err
	}
	return s.Get(ctx, id)
}

func (s *AdminService) Delete(ctx context.Context, actor model.AuditActor, id string) error {
	err := s.store.SoftDelete(ctx, model.RoleAdmin, id)
	s.audit.Record(ctx, "admin.delete", actor, "admins/"+id, nil, nil, err)
	return err
}

// normalizeFlat lower-cases and de-duplicates capability strings and rejects
// anything that is not resource:action.
func normalizeFlat(perms model.FlatPermissions) (model.FlatPermissions, error) {
	seen := make(map[string]struct{}, len(perms))
	out := make(model.FlatPermissions, 0, len(perms))
	for _, raw := range perms {
		capability, ok := authz.ParseCapability(raw)
		if !ok {
			return nil, apierror.BadRequest("invalid permission", raw)
		}
		key := capability.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out, nil
}

// normalizeMatrix lower-cases page and action keys and drops false entries.
func normalizeMatrix(perms model.MatrixPermissions) model.MatrixPermissions {
	out := make(model.MatrixPermissions, len(perms))
	for page, actions := range perms {
		page = strings.ToLower(strings.TrimSpace(page))
		if page == "" {
			continue
		}
		for action, allowed := range actions {
			action = strings.ToLower(strings.TrimSpace(action))
			if action == "" || !allowed {
				continue
			}
			if out[page] == nil {
				out[page] = make(map[string]bool)
			}
			out[page][action] = true
		}
	}
	return out
}
