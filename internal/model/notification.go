package model

import "time"

type Notification struct {
	ID            string     `json:"id"`
	RecipientRole string     `json:"recipient_role"`
	RecipientID   string     `json:"recipient_id"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
