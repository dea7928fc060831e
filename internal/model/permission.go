package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Permissions is the stored capability set of an identity. It is one of
// FlatPermissions or MatrixPermissions.
type Permissions interface {
	isPermissions()
}

// FlatPermissions is a list of "resource:action" strings.
type FlatPermissions []string

// MatrixPermissions maps a page key to the actions allowed on it.
type MatrixPermissions map[string]map[string]bool

func (FlatPermissions) isPermissions()   {}
func (MatrixPermissions) isPermissions() {}

// ParsePermissions decodes the JSONB column: an array becomes
// FlatPermissions, an object becomes MatrixPermissions, null or empty input
// becomes an empty flat list.
func ParsePermissions(raw []byte) (Permissions, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return FlatPermissions{}, nil
	}

	switch trimmed[0] {
	case '[':
		var flat FlatPermissions
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return nil, fmt.Errorf("decode flat permissions: %w", err)
		}
		return flat, nil
	case '{':
		var matrix MatrixPermissions
		if err := json.Unmarshal(trimmed, &matrix); err != nil {
			return nil, fmt.Errorf("decode permission matrix: %w", err)
		}
		return matrix, nil
	default:
		return nil, fmt.Errorf("unsupported permissions shape: %q", string(trimmed[:1]))
	}
}

// EncodePermissions is the inverse of ParsePermissions.
func EncodePermissions(p Permissions) ([]byte, error) {
	switch v := p.(type) {
	case nil:
		return []byte("[]"), nil
	case FlatPermissions:
		if v == nil {
			return []byte("[]"), nil
		}
		return json.Marshal([]string(v))
	case MatrixPermissions:
		if v == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(map[string]map[string]bool(v))
	default:
		return nil, fmt.Errorf("unsupported permissions type %T", p)
	}
}

// PermissionsPayload lets request bodies carry either shape.
type PermissionsPayload struct {
	Value Permissions
}

func (p *PermissionsPayload) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePermissions(data)
	if err != nil {
		return err
	}
	p.Value = parsed
	return nil
}

// DefaultPortalPermissions is the matrix given to a newly registered vendor
// or customer.
func DefaultPortalPermissions(role string) MatrixPermissions {
	perms := MatrixPermissions{
		"profile": {"view": true, "edit": true},
		"loads":   {"view": true},
		"wallet":  {"view": true, "create": true},
	}
	switch role {
	case RoleCustomer:
		perms["loads"]["create"] = true
	case RoleVendor:
		perms["loads"]["edit"] = true
	}
	return perms
}
