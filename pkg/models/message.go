package models

import (
	"strings"
	"time"
)

// StampPrefix marks stamp payloads, e.g. "stamp:👍".
const StampPrefix = "stamp:"

// Message is an immutable record of one delivery between two users.
// DeliveredContent is what the receiver sees by default; OriginalContent is
// recoverable through the reveal gesture.
type Message struct {
	ID               string    `json:"id"`
	SenderID         string    `json:"sender_id"`
	ReceiverID       string    `json:"receiver_id"`
	OriginalContent  string    `json:"original_content"`
	DeliveredContent string    `json:"delivered_content"`
	IsStamp          bool      `json:"is_stamp"`
	CreatedAt        time.Time `json:"created_at"`
	// Seq is the store-assigned insertion sequence; it breaks createdAt ties.
	Seq uint64 `json:"seq,omitempty"`
}

// StampToken returns the symbolic token of a stamp payload without its prefix.
func StampToken(content string) string {
	return strings.TrimPrefix(content, StampPrefix)
}

// PageRequest narrows a conversation read without changing its ordering.
type PageRequest struct {
	// After is an exclusive message id cursor; empty starts from the beginning.
	After string `json:"after,omitempty"`
	// Limit caps the number of returned messages; zero means no cap.
	Limit int `json:"limit,omitempty"`
}

// MessageView is a message with the participants' display names.
type MessageView struct {
	Message
	SenderName   string `json:"sender_name"`
	ReceiverName string `json:"receiver_name"`
}
