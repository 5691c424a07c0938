package domain

import (
	"time"
)

// Broadcast is the append-only audit record of an admin-initiated mass
// push notification. It is written once after the send completes and is
// never mutated.
type Broadcast struct {
	ID              string         `json:"id"`
	SenderID        string         `json:"sender_id"`
	Title           string         `json:"title"`
	Body            string         `json:"body"`
	Payload         map[string]any `json:"payload,omitempty"`
	RecipientsCount int            `json:"recipients_count"`
	SentAt          time.Time      `json:"sent_at"`
}
