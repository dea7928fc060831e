package model

import "time"

const (
	LoadPending   = "pending"
	LoadAssigned  = "assigned"
	LoadInTransit = "in_transit"
	LoadDelivered = "delivered"
	LoadCancelled = "cancelled"
)

type Load struct {
	ID           string     `json:"id"`
	Reference    string     `json:"reference"`
	CustomerID   string     `json:"customer_id"`
	VendorID     *string    `json:"vendor_id,omitempty"`
	Origin       string     `json:"origin"`
	Destination  string     `json:"destination"`
	PickupDate   *time.Time `json:"pickup_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	WeightKg     float64    `json:"weight_kg"`
	Rate         float64    `json:"rate"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type LoadQuery struct {
	CustomerID string
	VendorID   string
	Status     string
	Search     string
	Page       int
	Limit      int
}

var loadTransitions = map[string][]string{
	LoadPending:   {LoadAssigned, LoadCancelled},
	LoadAssigned:  {LoadInTransit, LoadPending, LoadCancelled},
	LoadInTransit: {LoadDelivered, LoadCancelled},
}

// CanTransitionLoad reports whether a load may move from one status to another.
func CanTransitionLoad(from string, to string) bool {
	for _, next := range loadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
