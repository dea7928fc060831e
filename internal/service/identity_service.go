package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"freight-backoffice/internal/model"
)

type identityFinder interface {
	FindByID(ctx context.Context, role string, id string) (model.Identity, error)
}

// IdentityService turns a verified session claim into the current identity
// row. Nothing is cached: status and permissions are read on every call.
type IdentityService struct {
	store identityFinder
}

func NewIdentityService(store identityFinder) *IdentityService {
	return &IdentityService{store: store}
}

// Load resolves claim against the table selected by its role. realm is the
// realm of the cookie the token came from, or empty for bearer tokens; a
// token presented under another realm's cookie is rejected.
func (s *IdentityService) Load(ctx context.Context, realm model.Realm, claim model.SessionClaim) (model.Identity, error) {
	role := strings.ToLower(strings.TrimSpace(claim.Role))
	claimRealm, ok := model.RealmForRole(role)
	if !ok {
		return model.Identity{}, model.ErrInvalidSession
	}
	if realm != "" && realm != claimRealm {
		return model.Identity{}, model.ErrInvalidSession
	}

	identity, err := s.store.FindByID(ctx, role, claim.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Identity{}, model.ErrInvalidSession
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("load identity: %w", err)
	}

	if !strings.EqualFold(identity.Role, role) {
		return model.Identity{}, model.ErrInvalidSession
	}
	if !identity.IsActive() {
		return model.Identity{}, model.ErrInactiveIdentity
	}

	return identity, nil
}
