package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeLoadCreated         Type = "load.created"
	TypeLoadAssigned        Type = "load.assigned"
	TypeLoadStatusChanged   Type = "load.status_changed"
	TypeWalletSubmitted     Type = "wallet.submitted"
	TypeWalletReviewed      Type = "wallet.reviewed"
	TypeAccountStatusChange Type = "account.status_changed"
	TypeNotificationCreated Type = "notification.created"
)

// Event payloads are carried as raw JSON so that events survive a trip
// through an external broker unchanged.
type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
	ActorID   string          `json:"actor_id,omitempty"`
}

func New(eventType Type, actorID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}, nil
}

func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type LoadPayload struct {
	LoadID     string `json:"load_id"`
	Reference  string `json:"reference"`
	CustomerID string `json:"customer_id"`
	VendorID   string `json:"vendor_id,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to"`
}

type WalletPayload struct {
	TransactionID string  `json:"transaction_id"`
	OwnerKind     string  `json:"owner_kind"`
	OwnerID       string  `json:"owner_id"`
	Direction     string  `json:"direction"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
}

type AccountPayload struct {
	Role      string `json:"role"`
	AccountID string `json:"account_id"`
	Status    string `json:"status"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
