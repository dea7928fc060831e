package model

import (
	"strings"
	"time"
)

const (
	RoleSudo     = "sudo"
	RoleAdmin    = "admin"
	RoleVendor   = "vendor"
	RoleCustomer = "customer"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Realm selects which session cookie (and therefore which identity table)
// a credential belongs to.
type Realm string

const (
	RealmSudo  Realm = "sudo"
	RealmAdmin Realm = "admin"
	RealmUser  Realm = "user"
)

// RealmForRole maps a stored role to the realm whose cookie carries it.
func RealmForRole(role string) (Realm, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleSudo:
		return RealmSudo, true
	case RoleAdmin:
		return RealmAdmin, true
	case RoleVendor, RoleCustomer:
		return RealmUser, true
	default:
		return "", false
	}
}

// Identity is the authoritative row for a logged-in principal. Each role
// lives in its own table; Role is derived from the table it was read from.
type Identity struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	DisplayName  string      `json:"display_name"`
	PasswordHash string      `json:"-"`
	Role         string      `json:"role"`
	Status       string      `json:"status"`
	Permissions  Permissions `json:"permissions"`
	IsDeleted    bool        `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (i Identity) IsActive() bool {
	return !i.IsDeleted && strings.EqualFold(i.Status, StatusActive)
}

// Account is a vendor or customer identity together with its profile.
type Account struct {
	Identity
	CompanyName string `json:"company_name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	PhotoPath   string `json:"photo_path,omitempty"`
	KYCPath     string `json:"kyc_path,omitempty"`
}

// Document slots on an account. One file per slot; a new upload replaces
// the old one.
const (
	SlotPhoto = "photo"
	SlotKYC   = "kyc"
)

func IsDocumentSlot(slot string) bool {
	return slot == SlotPhoto || slot == SlotKYC
}

// DocumentPath returns the storage key held in slot, or "" when empty.
func (a Account) DocumentPath(slot string) string {
	switch slot {
	case SlotPhoto:
		return a.PhotoPath
	case SlotKYC:
		return a.KYCPath
	}
	return ""
}

// SessionClaim is what a verified session token asserts. It proves identity
// only; role and status are always re-read from the datastore.
type SessionClaim struct {
	UserID  string `json:"id"`
	Role    string `json:"role"`
	TokenID string `json:"jti"`
}

type SessionToken struct {
	Token     string   `json:"token"`
	TokenType string   `json:"token_type"`
	ExpiresIn int64    `json:"expires_in"`
	Identity  Identity `json:"identity"`
}
