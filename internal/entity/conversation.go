package entity

import "time"

// Conversation logs one inbound message and the reply sent for it.
type Conversation struct {
	ID           string    `json:"id,omitempty"`
	UserID       string    `json:"line_user_id"`
	MessageText  string    `json:"message_text"`
	ResponseText string    `json:"response_text"`
	CreatedAt    time.Time `json:"created_at"`
}
