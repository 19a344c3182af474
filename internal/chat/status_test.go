package chat

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/models"
)

func newTestService(t *testing.T) (*Service, *memStore, *recordingNotifier) {
	t.Helper()
	store := newMemStore()
	notifier := newRecordingNotifier()
	svc := NewService(store, notifier, zap.NewNop())

	counter := 0
	svc.newID = func() string {
		counter++
		return fmt.Sprintf("id-%03d", counter)
	}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc, store, notifier
}

func addUser(t *testing.T, store *memStore, username, status string) {
	t.Helper()
	err := store.Users().Save(context.Background(), &models.User{
		ID:       "uid-" + username,
		Username: username,
		Email:    username + "@example.com",
		Status:   status,
	})
	require.NoError(t, err)
}

func sendText(t *testing.T, svc *Service, sender, receiver, body string) models.Conversation {
	t.Helper()
	results, err := svc.SendMessages(context.Background(), []models.Conversation{
		{Sender: sender, Receiver: receiver, Body: body, Kind: models.KindText},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Error)
	require.NotNil(t, results[0].Conversation)
	return *results[0].Conversation
}

func TestSendToOfflineReceiverCreatesConnection(t *testing.T) {
	svc, store, notifier := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOffline)

	conv := sendText(t, svc, "alice", "bob", "hi")
	assert.Equal(t, models.StatusSent, conv.Status)

	conn, err := store.Connections().GetByParticipants(context.Background(), "alice~bob")
	require.NoError(t, err)
	assert.Equal(t, []string{conv.ID}, []string(conn.ConversationIDs))
	require.NotNil(t, conn.Side("alice").LastMsg)
	require.NotNil(t, conn.Side("bob").LastMsg)
	assert.Equal(t, conv.ID, conn.Side("alice").LastMsg.ID)
	assert.Equal(t, conv.ID, conn.Side("bob").LastMsg.ID)

	alicePushes := notifier.forUser("alice")
	require.Len(t, alicePushes, 1)
	assert.Equal(t, models.ResponseTypeSend, alicePushes[0].ResponseType)
	assert.Equal(t, http.StatusCreated, alicePushes[0].StatusCode)

	bobPushes := notifier.forUser("bob")
	require.Len(t, bobPushes, 1)
	assert.Equal(t, models.ResponseTypeReceive, bobPushes[0].ResponseType)
	assert.Equal(t, "alice", bobPushes[0].Username)
}

func TestSendDeliveredWhenReceiverOnline(t *testing.T) {
	svc, store, _ := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOnline)

	conv := sendText(t, svc, "alice", "bob", "hi")
	assert.Equal(t, models.StatusDelivered, conv.Status)
}

func TestSendReadWhenReceiverHasChatOpen(t *testing.T) {
	svc, store, _ := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOnline)

	sendText(t, svc, "bob", "alice", "warmup")
	require.NoError(t, svc.SetChatOpen(context.Background(), "bob", "alice", ""))

	conv := sendText(t, svc, "alice", "bob", "hi")
	assert.Equal(t, models.StatusRead, conv.Status)
}

func TestSendToBlockingReceiverPinnedAtSent(t *testing.T) {
	svc, store, notifier := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOnline)

	sendText(t, svc, "alice", "bob", "before block")
	require.NoError(t, svc.SetBlocked(context.Background(), "bob", "alice", true))
	notifier.reset()

	conv := sendText(t, svc, "alice", "bob", "into the void")
	assert.Equal(t, models.StatusSent, conv.Status)
	assert.True(t, conv.DeletedByReceiver)

	// The blocked receiver gets no push and their preview stays put.
	assert.Empty(t, notifier.forUser("bob"))
	conn, err := store.Connections().GetByParticipants(context.Background(), "alice~bob")
	require.NoError(t, err)
	assert.NotEqual(t, conv.ID, conn.Side("bob").LastMsg.ID)
	assert.Equal(t, conv.ID, conn.Side("alice").LastMsg.ID)
}

func TestReconnectUpgradesPendingToDelivered(t *testing.T) {
	svc, store, _ := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOffline)

	conv := sendText(t, svc, "alice", "bob", "while you were away")
	require.Equal(t, models.StatusSent, conv.Status)

	require.NoError(t, svc.OnPresenceChanged(context.Background(), "bob", true))

	stored, err := store.Conversations().Get(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, stored.Status)

	user, err := store.Users().GetByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOnline, user.Status)
}

func TestReconnectLeavesBlockedMessagesAtSent(t *testing.T) {
	svc, store, _ := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOffline)

	sendText(t, svc, "alice", "bob", "before block")
	require.NoError(t, svc.SetBlocked(context.Background(), "bob", "alice", true))
	blocked := sendText(t, svc, "alice", "bob", "blocked")

	require.NoError(t, svc.OnPresenceChanged(context.Background(), "bob", true))

	stored, err := store.Conversations().Get(context.Background(), blocked.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, stored.Status)
}

func TestOpenChatMarksInboundRead(t *testing.T) {
	svc, store, notifier := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOnline)

	first := sendText(t, svc, "alice", "bob", "one")
	second := sendText(t, svc, "alice", "bob", "two")
	notifier.reset()

	require.NoError(t, svc.SetChatOpen(context.Background(), "bob", "alice", ""))

	for _, id := range []string{first.ID, second.ID} {
		stored, err := store.Conversations().Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRead, stored.Status)
	}

	alicePushes := notifier.forUser("alice")
	require.Len(t, alicePushes, 1)
	assert.Equal(t, models.ResponseTypeReceive, alicePushes[0].ResponseType)
	assert.Equal(t, "messages read", alicePushes[0].Message)
}

func TestOpenChatRejectedWhenCounterpartBlocks(t *testing.T) {
	svc, store, _ := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOnline)

	sendText(t, svc, "bob", "alice", "hi")
	require.NoError(t, svc.SetBlocked(context.Background(), "alice", "bob", true))

	err := svc.SetChatOpen(context.Background(), "bob", "alice", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
}

func TestBatchSendIsolatesFailures(t *testing.T) {
	svc, store, _ := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOnline)

	results, err := svc.SendMessages(context.Background(), []models.Conversation{
		{Sender: "alice", Receiver: "ghost", Body: "anyone there", Kind: models.KindText},
		{Sender: "alice", Receiver: "bob", Body: "still works", Kind: models.KindText},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, http.StatusNotFound, results[0].StatusCode)

	assert.Empty(t, results[1].Error)
	require.NotNil(t, results[1].Conversation)
	assert.Equal(t, models.StatusDelivered, results[1].Conversation.Status)
}

func TestSendEmptyBatchRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SendMessages(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalid))
}

func TestDisconnectClosesOpenChat(t *testing.T) {
	svc, store, _ := newTestService(t)
	addUser(t, store, "alice", models.PresenceOnline)
	addUser(t, store, "bob", models.PresenceOnline)

	sendText(t, svc, "alice", "bob", "hi")
	require.NoError(t, svc.SetChatOpen(context.Background(), "bob", "alice", ""))

	require.NoError(t, svc.OnPresenceChanged(context.Background(), "bob", false))

	conn, err := store.Connections().GetByParticipants(context.Background(), "alice~bob")
	require.NoError(t, err)
	assert.False(t, conn.Side("bob").ChatOpen)

	user, err := store.Users().GetByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, models.PresenceOffline, user.Status)
}
