package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairConnection() Connection {
	return Connection{
		ID:           "conn-1",
		Participants: "alice~bob",
		Sides: Sides{
			{UserID: "u1", Username: "alice"},
			{UserID: "u2", Username: "bob"},
		},
		ConnectedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSideResolution(t *testing.T) {
	conn := pairConnection()

	assert.Equal(t, 0, conn.SideOf("alice"))
	assert.Equal(t, 1, conn.SideOf("bob"))
	assert.Equal(t, -1, conn.SideOf("mallory"))

	assert.Equal(t, "bob", conn.Counterpart("alice"))
	assert.Equal(t, "alice", conn.Counterpart("bob"))
	assert.Nil(t, conn.Side("mallory"))
	assert.Nil(t, conn.OtherSide("mallory"))
}

func TestSideMutationsLandOnResolvedSide(t *testing.T) {
	conn := pairConnection()

	conn.Side("bob").Blocked = true
	assert.False(t, conn.Sides[0].Blocked)
	assert.True(t, conn.Sides[1].Blocked)

	conn.OtherSide("bob").ChatOpen = true
	assert.True(t, conn.Sides[0].ChatOpen)
}

func TestConversationMembership(t *testing.T) {
	conn := pairConnection()

	conn.AddConversation("m1")
	conn.AddConversation("m2")
	conn.AddConversation("m1")
	assert.Equal(t, []string{"m1", "m2"}, []string(conn.ConversationIDs))

	conn.RemoveConversations(map[string]struct{}{"m1": {}})
	assert.Equal(t, []string{"m2"}, []string(conn.ConversationIDs))
}

func TestLastActivityPrefersNewestPointer(t *testing.T) {
	conn := pairConnection()
	assert.Equal(t, conn.ConnectedAt, conn.LastActivity())

	older := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	conn.Sides[0].LastMsg = &LastMessage{ID: "m1", At: older}
	conn.Sides[1].LastMsg = &LastMessage{ID: "m2", At: newer}

	assert.Equal(t, newer, conn.LastActivity())
}

func TestSidesRoundTripThroughColumn(t *testing.T) {
	conn := pairConnection()
	cleared := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	conn.Sides[1].Blocked = true
	conn.Sides[1].ClearedAt = &cleared
	conn.Sides[0].LastMsg = &LastMessage{ID: "m1", Preview: "hi", Kind: KindText, At: cleared}

	value, err := conn.Sides.Value()
	require.NoError(t, err)

	var decoded Sides
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, conn.Sides, decoded)
}

func TestDeletedForRoles(t *testing.T) {
	conv := Conversation{Sender: "alice", Receiver: "bob"}

	conv.MarkDeletedFor("bob")
	assert.True(t, conv.DeletedFor("bob"))
	assert.False(t, conv.DeletedFor("alice"))
	assert.False(t, conv.DeletedForBoth())

	conv.MarkDeletedFor("alice")
	assert.True(t, conv.DeletedForBoth())

	assert.False(t, conv.DeletedFor("mallory"))
}
