package model

import "time"

const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"

	TxnPending  = "pending"
	TxnApproved = "approved"
	TxnRejected = "rejected"
)

type WalletTransaction struct {
	ID         string     `json:"id"`
	OwnerKind  string     `json:"owner_kind"`
	OwnerID    string     `json:"owner_id"`
	Direction  string     `json:"direction"`
	Amount     float64    `json:"amount"`
	Reference  string     `json:"reference"`
	Note       string     `json:"note,omitempty"`
	Status     string     `json:"status"`
	ProofPath  string     `json:"proof_path,omitempty"`
	CreatedBy  string     `json:"created_by"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type WalletQuery struct {
	OwnerKind string
	OwnerID   string
	Status    string
	Page      int
	Limit     int
}

type WalletBalance struct {
	OwnerKind string  `json:"owner_kind"`
	OwnerID   string  `json:"owner_id"`
	Credits   float64 `json:"credits"`
	Debits    float64 `json:"debits"`
	Balance   float64 `json:"balance"`
	Pending   int     `json:"pending"`
}
