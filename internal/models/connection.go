package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// LastMessage is the denormalized "most recent conversation visible to this
// side" pointer cached on each Connection side.
type LastMessage struct {
	ID      string      `json:"id"`
	Preview string      `json:"preview"`
	Kind    MessageKind `json:"kind"`
	At      time.Time   `json:"at"`
}

// Side holds one participant's view of the pair. Index 0 always belongs to the
// lexicographically smaller username, matching the pair key order.
type Side struct {
	UserID    string       `json:"user_id"`
	Username  string       `json:"username"`
	LastMsg   *LastMessage `json:"last_message,omitempty"`
	Blocked   bool         `json:"blocked"`
	Deleted   bool         `json:"deleted"`
	ChatOpen  bool         `json:"chat_open"`
	ClearedAt *time.Time   `json:"cleared_at,omitempty"`
}

// Sides is stored as a single JSONB column.
type Sides [2]Side

func (s Sides) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *Sides) Scan(src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, s)
	case string:
		return json.Unmarshal([]byte(data), s)
	default:
		return fmt.Errorf("unsupported sides column type %T", src)
	}
}

// Connection is the single persistent record for an unordered user pair.
type Connection struct {
	ID              string         `db:"id" json:"id"`
	Participants    string         `db:"participants" json:"participants"`
	Sides           Sides          `db:"sides" json:"sides"`
	ConversationIDs pq.StringArray `db:"conversation_ids" json:"conversation_ids"`
	ConnectedAt     time.Time      `db:"connected_at" json:"connected_at"`
}

// SideOf resolves which side index belongs to username, or -1 when the user is
// not a participant. Every mutation resolves the side through here before
// writing, so the per-side fields can never drift.
func (c *Connection) SideOf(username string) int {
	for i := range c.Sides {
		if c.Sides[i].Username == username {
			return i
		}
	}
	return -1
}

// Side returns the mutable side view for username, or nil.
func (c *Connection) Side(username string) *Side {
	if i := c.SideOf(username); i >= 0 {
		return &c.Sides[i]
	}
	return nil
}

// OtherSide returns the counterpart's side view for username, or nil.
func (c *Connection) OtherSide(username string) *Side {
	if i := c.SideOf(username); i >= 0 {
		return &c.Sides[1-i]
	}
	return nil
}

// Counterpart returns the other participant's username.
func (c *Connection) Counterpart(username string) string {
	if other := c.OtherSide(username); other != nil {
		return other.Username
	}
	return ""
}

func (c *Connection) HasConversation(id string) bool {
	for _, existing := range c.ConversationIDs {
		if existing == id {
			return true
		}
	}
	return false
}

func (c *Connection) AddConversation(id string) {
	if !c.HasConversation(id) {
		c.ConversationIDs = append(c.ConversationIDs, id)
	}
}

func (c *Connection) RemoveConversations(ids map[string]struct{}) {
	kept := c.ConversationIDs[:0]
	for _, id := range c.ConversationIDs {
		if _, gone := ids[id]; !gone {
			kept = append(kept, id)
		}
	}
	c.ConversationIDs = kept
}

// LastActivity is the newer of the two side pointers, used to order a user's
// connection list. Falls back to ConnectedAt when both pointers are null.
func (c *Connection) LastActivity() time.Time {
	latest := c.ConnectedAt
	for i := range c.Sides {
		if lm := c.Sides[i].LastMsg; lm != nil && lm.At.After(latest) {
			latest = lm.At
		}
	}
	return latest
}
