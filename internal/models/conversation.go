package models

import "time"

// DeliveryStatus of a conversation. Transitions only move forward:
// Sent < Delivered < Read.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "Sent"
	StatusDelivered DeliveryStatus = "Delivered"
	StatusRead      DeliveryStatus = "Read"
)

// Rank orders statuses so the engine can enforce monotonic transitions.
func (s DeliveryStatus) Rank() int {
	switch s {
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	default:
		return 0
	}
}

// MessageKind describes the payload of a conversation.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindAudio MessageKind = "audio"
	KindFile  MessageKind = "file"
)

// Conversation is a single message belonging to a Connection's membership set.
// Sender/receiver/body/kind are immutable after creation; status and the
// per-side delete flags are not.
type Conversation struct {
	ID         string         `db:"id" json:"id"`
	Sender     string         `db:"sender" json:"sender"`
	SenderID   string         `db:"sender_id" json:"sender_id"`
	Receiver   string         `db:"receiver" json:"receiver"`
	ReceiverID string         `db:"receiver_id" json:"receiver_id"`
	Body       string         `db:"body" json:"message"`
	Kind       MessageKind    `db:"kind" json:"kind"`
	Status     DeliveryStatus `db:"status" json:"status"`

	// Attachments are opaque to the engine.
	FileName string `db:"file_name" json:"file_name,omitempty"`
	FileSize string `db:"file_size" json:"file_size,omitempty"`

	Replied          bool   `db:"replied" json:"replied"`
	RepliedBy        string `db:"replied_by" json:"replied_by,omitempty"`
	RepliedMessageID string `db:"replied_message_id" json:"replied_message_id,omitempty"`

	DeletedBySender   bool `db:"deleted_by_sender" json:"deleted_by_sender"`
	DeletedByReceiver bool `db:"deleted_by_receiver" json:"deleted_by_receiver"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DeletedFor reports whether the message is soft-deleted from username's view.
func (c *Conversation) DeletedFor(username string) bool {
	if c.Sender == username {
		return c.DeletedBySender
	}
	if c.Receiver == username {
		return c.DeletedByReceiver
	}
	return false
}

// MarkDeletedFor sets the soft-delete flag on username's role in this message.
func (c *Conversation) MarkDeletedFor(username string) {
	if c.Sender == username {
		c.DeletedBySender = true
	} else if c.Receiver == username {
		c.DeletedByReceiver = true
	}
}

// DeletedForBoth means nothing references the record anymore and it can be
// removed from the store.
func (c *Conversation) DeletedForBoth() bool {
	return c.DeletedBySender && c.DeletedByReceiver
}

// Preview is what the last-message pointer caches for list rendering.
func (c *Conversation) Preview() *LastMessage {
	return &LastMessage{ID: c.ID, Preview: c.Body, Kind: c.Kind, At: c.CreatedAt}
}
