package model

import "strings"

type AuditActor struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type AuditEntry struct {
	Action     string     `json:"action"`
	OccurredAt string     `json:"occurred_at"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	Resource   string     `json:"resource,omitempty"`
	Before     any        `json:"before,omitempty"`
	After      any        `json:"after,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Audit resources are "<kind>/<id>", e.g. "loads/3f2a..." or "wallet/9c1e...".
const (
	AuditKindAdmins        = "admins"
	AuditKindVendors       = "vendors"
	AuditKindCustomers     = "customers"
	AuditKindLoads         = "loads"
	AuditKindWallet        = "wallet"
	AuditKindCalls         = "calls"
	AuditKindNotifications = "notifications"
)

var auditKinds = map[string]bool{
	AuditKindAdmins:        true,
	AuditKindVendors:       true,
	AuditKindCustomers:     true,
	AuditKindLoads:         true,
	AuditKindWallet:        true,
	AuditKindCalls:         true,
	AuditKindNotifications: true,
}

func IsAuditKind(kind string) bool {
	return auditKinds[strings.ToLower(strings.TrimSpace(kind))]
}

// AuditResource joins a kind and an entity id.
func AuditResource(kind string, id string) string {
	return kind + "/" + id
}

// AuditQuery filters the audit trail. Kind selects a whole collection
// ("loads"), Resource a single entity ("loads/<id>").
type AuditQuery struct {
	Action    string
	ActorID   string
	ActorRole string
	Status    string
	Kind      string
	Resource  string
	From      string
	To        string
	Page      int
	Limit     int
}
