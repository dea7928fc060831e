// Package authz decides whether an identity holds a capability.
//
// A capability is a "resource:action" string. Matching is case-insensitive.
// The sudo role is granted everything. Flat permission lists are checked by
// membership; permission matrices are indexed by page (resource) and then by
// action. Evaluation is a pure function of the identity and the capability.
package authz

import (
	"strings"

	"freight-backoffice/internal/model"
)

// actionAliases groups verbs that older permission records used
// interchangeably. Only routes that opt in via AuthorizeAliased consult it.
var actionAliases = [][]string{
	{"create", "upload"},
	{"read", "view", "download", "page_view"},
	{"update", "edit"},
	{"remove", "delete"},
}

var aliasIndex = buildAliasIndex(actionAliases)

func buildAliasIndex(classes [][]string) map[string][]string {
	index := make(map[string][]string)
	for _, class := range classes {
		for _, verb := range class {
			for _, other := range class {
				if other != verb {
					index[verb] = append(index[verb], other)
				}
			}
		}
	}
	return index
}

// Capability is a parsed "resource:action" pair, lower-cased.
type Capability struct {
	Resource string
	Action   string
}

func (c Capability) String() string {
	return c.Resource + ":" + c.Action
}

// ParseCapability splits "resource:action". Both halves must be non-empty.
func ParseCapability(raw string) (Capability, bool) {
	resource, action, found := strings.Cut(strings.TrimSpace(raw), ":")
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if !found || resource == "" || action == "" {
		return Capability{}, false
	}
	return Capability{Resource: resource, Action: action}, true
}

// Authorize reports whether identity holds capability.
func Authorize(identity model.Identity, capability string) bool {
	if isSudo(identity) {
		return true
	}

	parsed, ok := ParseCapability(capability)
	if !ok {
		return false
	}

	return grants(identity.Permissions, parsed)
}

// AuthorizeAliased behaves like Authorize, then retries every alias of the
// requested action before denying.
func AuthorizeAliased(identity model.Identity, capability string) bool {
	if isSudo(identity) {
		return true
	}

	parsed, ok := ParseCapability(capability)
	if !ok {
		return false
	}

	if grants(identity.Permissions, parsed) {
		return true
	}

	for _, alias := range Aliases(parsed.Action) {
		if grants(identity.Permissions, Capability{Resource: parsed.Resource, Action: alias}) {
			return true
		}
	}

	return false
}

// Aliases returns the verbs equivalent to action, excluding action itself.
func Aliases(action string) []string {
	return aliasIndex[strings.ToLower(strings.TrimSpace(action))]
}

func isSudo(identity model.Identity) bool {
	return strings.EqualFold(strings.TrimSpace(identity.Role), model.RoleSudo)
}

func grants(perms model.Permissions, capability Capability) bool {
	switch p := perms.(type) {
	case model.FlatPermissions:
		return flatGrants(p, capability)
	case model.MatrixPermissions:
		return matrixGrants(p, capability)
	default:
		return false
	}
}

func flatGrants(perms model.FlatPermissions, capability Capability) bool {
	for _, held := range perms {
		parsed, ok := ParseCapability(held)
		if ok && parsed == capability {
			return true
		}
	}
	return false
}

func matrixGrants(perms model.MatrixPermissions, capability Capability) bool {
	for page, actions := range perms {
		if !strings.EqualFold(strings.TrimSpace(page), capability.Resource) {
			continue
		}
		for action, allowed := range actions {
			if allowed && strings.EqualFold(strings.TrimSpace(action), capability.Action) {
				return true
			}
		}
	}
	return false
}
