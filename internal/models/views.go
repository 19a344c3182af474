package models

import "time"

// ConnectionView is the per-viewer projection of a Connection. Presence fields
// are pointers: they are nulled entirely when the counterpart has blocked the
// viewer.
type ConnectionView struct {
	ID           string       `json:"id"`
	Counterpart  string       `json:"counterpart"`
	Email        string       `json:"email,omitempty"`
	LoginStatus  *string      `json:"login_status"`
	LastSeen     *time.Time   `json:"last_seen"`
	Picture      *string      `json:"profile_picture"`
	Unread       int          `json:"unread"`
	LastMsg      *LastMessage `json:"last_message,omitempty"`
	LastActivity time.Time    `json:"last_activity"`
	Blocked      bool         `json:"blocked"`
	Deleted      bool         `json:"deleted"`
	ConnectedAt  time.Time    `json:"connected_at"`
}

const (
	ResponseTypeSend    = "Send"
	ResponseTypeReceive = "Receive"
)

// StatusResponse is the fanout payload pushed to a user's private channel
// after a state-mutating operation. Username names the payload recipient's
// counterpart; Connection has already been filtered for the recipient.
type StatusResponse struct {
	Username     string          `json:"username"`
	Conversation *Conversation   `json:"conversation"`
	Connection   *ConnectionView `json:"connection"`
	StatusCode   int             `json:"status_code"`
	Message      string          `json:"message"`
	ResponseType string          `json:"response_type"`
}

// SendResult is the per-message outcome of a batch send. A failed message
// carries its error and does not abort its siblings.
type SendResult struct {
	Conversation *Conversation   `json:"conversation,omitempty"`
	Connection   *ConnectionView `json:"connection,omitempty"`
	StatusCode   int             `json:"status_code"`
	Error        string          `json:"error,omitempty"`
}
