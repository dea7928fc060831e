package model

import "time"

// Call is a file handed from one admin to another.
type Call struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Title       string    `json:"title"`
	Note        string    `json:"note,omitempty"`
	FileName    string    `json:"file_name"`
	FilePath    string    `json:"-"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mime_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type CallQuery struct {
	ViewerID string
	AllCalls bool
	Box      string
	Page     int
	Limit    int
}
