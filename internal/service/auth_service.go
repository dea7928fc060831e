package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-backoffice/internal/model"
)

type loginFinder interface {
	FindByLogin(ctx context.Context, role string, login string) (model.Identity, error)
}

type accountCreator interface {
	Create(ctx context.Context, account model.Account) error
}

type tokenIssuer interface {
	Issue(userID string, role string) (string, error)
	TTL() time.Duration
}

type AuthService struct {
	identities loginFinder
	accounts   accountCreator
	tokens     tokenIssuer
	audit      *AuditService
}

func NewAuthService(identities loginFinder, accounts accountCreator, tokens tokenIssuer, audit *AuditService) *AuthService {
	return &AuthService{identities: identities, accounts: accounts, tokens: tokens, audit: audit}
}

// Login checks credentials against the table for role and issues a session
// token. Unknown users, wrong passwords and inactive accounts all fail with
// ErrInvalidCredentials or ErrInactiveIdentity.
func (s *AuthService) Login(ctx context.Context, actor model.AuditActor, role string, req model.LoginRequest) (model.SessionToken, model.Realm, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	realm, ok := model.RealmForRole(role)
	if !ok {
		return model.SessionToken{}, "", model.ErrInvalidCredentials
	}
	actor.Username = req.Username
	actor.Role = role

	identity, err := s.identities.FindByLogin(ctx, role, req.Username)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.SessionToken{}, "", fmt.Errorf("login lookup: %w", err)
	}

	if !checkPassword(identity.PasswordHash, req.Password) {
		s.audit.Log(ctx, "auth.login", actor, auditFailed, role, nil, nil, "invalid credentials")
		return model.SessionToken{}, "", model.ErrInvalidCredentials
	}
	actor.UserID = identity.ID

	if !identity.IsActive() {
		s.audit.Log(ctx, "auth.login", actor, auditFailed, role, nil, nil, "inactive")
		return model.SessionToken{}, "", model.ErrInactiveIdentity
	}

	token, err := s.tokens.Issue(identity.ID, identity.Role)
	if err != nil {
		return model.SessionToken{}, "", err
	}

	s.audit.Log(ctx, "auth.login", actor, auditSuccess, role, nil, nil, "")
	return model.SessionToken{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		Identity:  identity,
	}, realm, nil
}

// Register creates a self-service vendor or customer account. New accounts
// are inactive until staff activate them.
func (s *AuthService) Register(ctx context.Context, actor model.AuditActor, role string, req model.RegisterRequest) (model.Account, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != model.RoleVendor && role != model.RoleCustomer {
		return model.Account{}, model.ErrInvalidInput
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
			Status:       model.StatusInactive,
			Permissions:  model.DefaultPortalPermissions(role),
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		CompanyName: strings.TrimSpace(req.CompanyName),
		ContactName: strings.TrimSpace(req.ContactName),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
	}

	err = s.accounts.Create(ctx, account)
	actor.Username = account.Username
	actor.Role = role
	s.audit.Record(ctx, "auth.register", actor, accountResource(role, account.ID), nil, map[string]any{"username": account.Username}, err)
	if err != nil {
		return model.Account{}, err
	}

	return account, nil
}

