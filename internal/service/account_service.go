package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-backoffice/internal/event"
	"freight-backoffice/internal/model"
	"freight-backoffice/pkg/apierror"
)

type accountStore interface {
	Create(ctx context.Context, account model.Account) error
	FindByID(ctx context.Context, role string, id string) (model.Account, error)
	List(ctx context.Context, role string, query model.AccountQuery) ([]model.Account, model.Meta, error)
	Update(ctx context.Context, role string, id string, req model.UpdateAccountRequest) error
	SetDocument(ctx context.Context, role string, id string, slot string, path string) error
}

// identityWriter is the slice of identityStore that AccountService needs.
type identityWriter interface {
	UpdatePermissions(ctx context.Context, role string, id string, perms model.Permissions) error
	UpdateStatus(ctx context.Context, role string, id string, status string) error
	SoftDelete(ctx context.Context, role string, id string) error
}

// AccountService manages vendors and customers. Every method takes the
// portal role the account belongs to.
type AccountService struct {
	accounts   accountStore
	identities identityWriter
	files      FileStore
	policy     UploadPolicy
	bus        event.Bus
	audit      *AuditService
}

func NewAccountService(accounts accountStore, identities identityWriter, files FileStore, policy UploadPolicy, bus event.Bus, audit *AuditService) *AccountService {
	return &AccountService{accounts: accounts, identities: identities, files: files, policy: policy, bus: bus, audit: audit}
}

func checkPortalRole(role string) error {
	if role != model.RoleVendor && role != model.RoleCustomer {
		return fmt.Errorf("%w: %q is not a portal role", model.ErrInvalidInput, role)
	}
	return nil
}

func accountResource(role string, id string) string {
	return model.AuditResource(role+"s", id)
}

func (s *AccountService) List(ctx context.Context, role string, query model.AccountQuery) ([]model.Account, model.Meta, error) {
	if err := checkPortalRole(role); err != nil {
		return nil, model.Meta{}, err
	}
	return s.accounts.List(ctx, role, query)
}

func (s *AccountService) Get(ctx context.Context, role string, id string) (model.Account, error) {
	if err := checkPortalRole(role); err != nil {
		return model.Account{}, err
	}
	return s.accounts.FindByID(ctx, role, id)
}

// GetActive is Get restricted to accounts that can currently log in.
func (s *AccountService) GetActive(ctx context.Context, role string, id string) (model.Account, error) {
	account, err := s.Get(ctx, role, id)
	if err != nil {
		return model.Account{}, err
	}
	if !account.IsActive() {
		return model.Account{}, apierror.BadRequest(role+" is not active", id)
	}
	return account, nil
}

func (s *AccountService) Create(ctx context.Context, actor model.AuditActor, role string, req model.CreateAccountRequest) (model.Account, error) {
	if err := checkPortalRole(role); err != nil {
		return model.Account{}, err
	}

	perms := model.DefaultPortalPermissions(role)
	if req.Permissions.Value != nil {
		matrix, ok := req.Permissions.Value.(model.MatrixPermissions)
		if !ok {
			return model.Account{}, apierror.BadRequest(role+" permissions must be a page/action matrix", "")
		}
		perms = normalizeMatrix(matrix)
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = model.StatusActive
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return model.Account{}, err
	}

	now := time.Now().UTC()
	account := model.Account{
		Identity: model.Identity{
			ID:           uuid.NewString(),
			Username:     strings.TrimSpace(req.Username),
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			DisplayName:  strings.TrimSpace(req.CompanyName),
			PasswordHash: hash,
			Role:         role,
			Status:       status,
			Permissions:  perms,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		CompanyName: strings.TrimSpace(req.CompanyName),
		ContactName: strings.TrimSpace(req.ContactName),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
	}

	err = s.accounts.Create(ctx, account)
	s.audit.Record(ctx, role+".create", actor, accountResource(role, account.ID), nil,
		map[string]any{"username": account.Username, "company_name": account.CompanyName, "status": status}, err)
	if err != nil {
		return model.Account{}, err
	}
	return account, nil
}

func (s *AccountService) Update(ctx context.Context, actor model.AuditActor, role string, id string, req model.UpdateAccountRequest) (model.Account, error) {
	if err := checkPortalRole(role); err != nil {
		return model.Account{}, err
	}

	err := s.accounts.Update(ctx, role, id, req)
	s.audit.Record(ctx, role+".update", actor, accountResource(role, id), nil, req, err)
	if err != nil {
		return model.Account{}, err
	}
	return s.accounts.FindByID(ctx, role, id)
}

// SetStatus activates or deactivates an account. Deactivation takes effect
// on the account's next request.
func (s *AccountService) SetStatus(ctx context.Context, actor model.AuditActor, role string, id string, status string) (model.Account, error) {
	if err := checkPortalRole(role); err != nil {
		return model.Account{}, err
	}
	status = strings.ToLower(strings.TrimSpace(status))

	before, err := s.accounts.FindByID(ctx, role, id)
	if err != nil {
		return model.Account{}, err
	}

	err = s.identities.UpdateStatus(ctx, role, id, status)
	s.audit.Record(ctx, role+".status", actor, accountResource(role, id),
		map[string]any{"status": before.Status}, map[string]any{"status": status}, err)
	if err != nil {
		return model.Account{}, err
	}

	if !strings.EqualFold(before.Status, status) {
		publish(s.bus, event.TypeAccountStatusChange, actor.UserID, event.AccountPayload{Role: role, AccountID: id, Status: status})
	}

	before.Status = status
	return before, nil
}

func (s *AccountService) SetPermissions(ctx context.Context, actor model.AuditActor, role string, id string, payload model.PermissionsPayload) (model.Account, error) {
	if err := checkPortalRole(role); err != nil {
		return model.Account{}, err
	}
	matrix, ok := payload.Value.(model.MatrixPermissions)
	if !ok {
		return model.Account{}, apierror.BadRequest(role+" permissions must be a page/action matrix", "")
	}
	perms := normalizeMatrix(matrix)

	before, err := s.accounts.FindByID(ctx, role, id)
	if err != nil {
		return model.Account{}, err
	}

	err = s.identities.UpdatePermissions(ctx, role, id, perms)
	s.audit.Record(ctx, role+".permissions", actor, accountResource(role, id), before.Permissions, perms, err)
	if err != nil {
		return model.Account{}, err
	}

	before.Permissions = perms
	return before, nil
}

func (s *AccountService) Delete(ctx context.Context, actor model.AuditActor, role string, id string) error {
	if err := checkPortalRole(role); err != nil {
		return err
	}
	err := s.identities.SoftDelete(ctx, role, id)
	s.audit.Record(ctx, role+".delete", actor, accountResource(role, id), nil, nil, err)
	if err != nil {
		return err
	}

	// A deleted account is also inactive; live sessions must hear about it.
	publish(s.bus, event.TypeAccountStatusChange, actor.UserID, event.AccountPayload{Role: role, AccountID: id, Status: model.StatusInactive})
	return nil
}

// UploadDocument stores a photo or KYC file for the account. The newest
// upload wins; the previous file is removed once the row points elsewhere.
func (s *AccountService) UploadDocument(ctx context.Context, actor model.AuditActor, role string, id string, slot string, upload Upload) (model.Account, error) {
	if err := checkPortalRole(role); err != nil {
		return model.Account{}, err
	}

	if !model.IsDocumentSlot(slot) {
		return model.Account{}, apierror.BadRequest("unknown document slot", slot)
	}

	account, err := s.accounts.FindByID(ctx, role, id)
	if err != nil {
		return model.Account{}, err
	}

	stored, err := saveUpload(s.files, s.policy, fmt.Sprintf("%ss/%s/%s", role, id, slot), upload, uploadOptions{imageOnly: slot == model.SlotPhoto})
	if err != nil {
		return model.Account{}, err
	}

	err = s.accounts.SetDocument(ctx, role, id, slot, stored.Path)
	s.audit.Record(ctx, role+"."+slot+".upload", actor, accountResource(role, id), nil,
		map[string]any{"file": stored.Name, "size": stored.Size, "mime_type": stored.MimeType}, err)
	if err != nil {
		_ = s.files.Remove(stored.Path)
		return model.Account{}, err
	}

	previous := account.DocumentPath(slot)
	if slot == model.SlotKYC {
		account.KYCPath = stored.Path
	} else {
		account.PhotoPath = stored.Path
	}
	if previous != "" && previous != stored.Path {
		_ = s.files.Remove(previous)
	}

	return account, nil
}

func (s *AccountService) OpenDocument(ctx context.Context, role string, id string, slot string) (*os.File, os.FileInfo, error) {
	account, err := s.Get(ctx, role, id)
	if err != nil {
		return nil, nil, err
	}

	return openStored(s.files, account.DocumentPath(slot))
}
