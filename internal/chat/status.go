package chat

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/observability"
	"chat-sync-service/internal/repositories"
)

// SendMessages runs the send pipeline for an ordered batch. Failures are
// isolated per message: a failed message yields a failure result and
// notification without aborting its siblings.
func (s *Service) SendMessages(ctx context.Context, batch []models.Conversation) ([]models.SendResult, error) {
	if len(batch) == 0 {
		return nil, apperrors.Invalid("empty message batch")
	}

	results := make([]models.SendResult, 0, len(batch))
	for i := range batch {
		results = append(results, s.sendOne(ctx, batch[i]))
	}
	return results, nil
}

type sendOutcome struct {
	conv     models.Conversation
	conn     models.Connection
	sender   models.User
	receiver models.User
	blocked  bool
	created  bool
}

func (s *Service) sendOne(ctx context.Context, msg models.Conversation) models.SendResult {
	outcome, err := s.persistSend(ctx, msg)
	if err != nil {
		observability.IncMessageSent("failed")
		s.logger.Warn("send failed",
			zap.String("sender", msg.Sender),
			zap.String("receiver", msg.Receiver),
			zap.Error(err))
		code := apperrors.HTTPStatus(err)
		s.notify(msg.Sender, sendPayload(msg.Receiver, nil, nil, code, "message sending failed"))
		return models.SendResult{StatusCode: code, Error: err.Error()}
	}

	observability.IncMessageSent(string(outcome.conv.Status))
	code := http.StatusOK
	if outcome.created {
		code = http.StatusCreated
	}

	senderView := buildView(&outcome.conn, outcome.conv.Sender, &outcome.receiver, 0)
	s.notify(outcome.conv.Sender, sendPayload(outcome.conv.Receiver, &outcome.conv, senderView, code, "message sent"))

	if !outcome.blocked {
		receiverView := buildView(&outcome.conn, outcome.conv.Receiver, &outcome.sender, 0)
		s.notify(outcome.conv.Receiver, receivePayload(outcome.conv.Sender, &outcome.conv, receiverView, code, "message sent"))
	}

	return models.SendResult{Conversation: &outcome.conv, Connection: senderView, StatusCode: code}
}

// persistSend is the pair-locked critical section of a send: resolve or create
// the connection, decide the delivery status, store the conversation, update
// membership and previews, and persist everything in one atomic unit.
func (s *Service) persistSend(ctx context.Context, msg models.Conversation) (sendOutcome, error) {
	pairKey, err := models.PairKey(msg.Sender, msg.Receiver)
	if err != nil {
		return sendOutcome{}, err
	}
	if msg.Body == "" && msg.FileName == "" {
		return sendOutcome{}, apperrors.Invalid("message body is empty")
	}
	if msg.Kind == "" {
		msg.Kind = models.KindText
	}

	sender, err := s.store.Users().GetByUsername(ctx, msg.Sender)
	if err != nil {
		return sendOutcome{}, err
	}
	receiver, err := s.store.Users().GetByUsername(ctx, msg.Receiver)
	if err != nil {
		return sendOutcome{}, err
	}

	unlock := s.locks.Lock(pairKey)
	defer unlock()

	created := false
	conn, err := s.store.Connections().GetByParticipants(ctx, pairKey)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		conn = s.newConnection(pairKey, sender, receiver)
		created = true
	} else if err != nil {
		return sendOutcome{}, err
	}

	receiverSide := conn.Side(msg.Receiver)
	blocked := receiverSide.Blocked

	switch {
	case blocked:
		// Stored for the sender only: fixed at Sent, hidden from the
		// receiver forever.
		msg.Status = models.StatusSent
		msg.DeletedByReceiver = true
	case receiver.Online() && receiverSide.ChatOpen:
		msg.Status = models.StatusRead
	case receiver.Online():
		msg.Status = models.StatusDelivered
	default:
		msg.Status = models.StatusSent
	}

	msg.ID = s.newID()
	msg.SenderID = sender.ID
	msg.ReceiverID = receiver.ID
	msg.CreatedAt = s.now()

	conn.AddConversation(msg.ID)
	applySendPreviews(&conn, &msg, blocked)

	err = s.store.Atomic(ctx, func(st repositories.Store) error {
		if err := st.Conversations().Save(ctx, &msg); err != nil {
			return err
		}
		return st.Connections().Save(ctx, &conn)
	})
	if err != nil {
		return sendOutcome{}, err
	}

	return sendOutcome{conv: msg, conn: conn, sender: sender, receiver: receiver, blocked: blocked, created: created}, nil
}

func (s *Service) newConnection(pairKey string, a, b models.User) models.Connection {
	// Side 0 belongs to the lexicographically smaller username, matching the
	// pair key order.
	if a.Username > b.Username {
		a, b = b, a
	}
	return models.Connection{
		ID:           s.newID(),
		Participants: pairKey,
		Sides: models.Sides{
			{UserID: a.ID, Username: a.Username},
			{UserID: b.ID, Username: b.Username},
		},
		ConnectedAt: s.now(),
	}
}

// openAndMarkRead is the pair-locked critical section of SetChatOpen: flips
// the viewer's open flag and marks the counterpart's inbound messages Read,
// scanning newest-first and stopping at the first already-Read message. Read
// is monotonic, so nothing older can still be unread.
func (s *Service) openAndMarkRead(ctx context.Context, pairKey, viewer, counterpart string) (*models.Connection, bool, error) {
	conn, err := s.store.Connections().GetByParticipants(ctx, pairKey)
	if err != nil {
		return nil, false, err
	}

	if conn.Side(counterpart).Blocked {
		return nil, false, apperrors.Conflict("chat is blocked by the counterpart")
	}

	viewerSide := conn.Side(viewer)
	viewerSide.ChatOpen = true

	convs, err := s.store.Conversations().GetMany(ctx, conn.ConversationIDs)
	if err != nil {
		return nil, false, err
	}

	var changed []models.Conversation
	for i := range convs {
		conv := &convs[i]
		if conv.Sender != counterpart || conv.DeletedFor(viewer) {
			continue
		}
		if conv.Status == models.StatusRead {
			break
		}
		conv.Status = models.StatusRead
		changed = append(changed, *conv)
	}

	err = s.store.Atomic(ctx, func(st repositories.Store) error {
		if len(changed) > 0 {
			if err := st.Conversations().SaveAll(ctx, changed); err != nil {
				return err
			}
		}
		return st.Connections().Save(ctx, &conn)
	})
	if err != nil {
		return nil, false, err
	}

	notifyCounterpart := len(changed) > 0 && !viewerSide.Blocked
	return &conn, notifyCounterpart, nil
}

// OnPresenceChanged is invoked by the presence transport on connect and
// disconnect. Coming online upgrades the user's pending inbound Sent messages
// to Delivered; going offline never downgrades anything. Open-chat flags are
// cleared either way: a fresh session starts with no thread focused.
func (s *Service) OnPresenceChanged(ctx context.Context, username string, online bool) error {
	user, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	if online {
		user.Status = models.PresenceOnline
	} else {
		user.Status = models.PresenceOffline
	}
	user.LastSeen = s.now()
	if err := s.store.Users().Save(ctx, &user); err != nil {
		return err
	}
	observability.IncPresenceTransition(user.Status)

	conns, err := s.store.Connections().ListByUsername(ctx, username)
	if err != nil {
		return err
	}

	for i := range conns {
		pairKey := conns[i].Participants
		conn, notifyTo, err := s.applyPresenceToPair(ctx, pairKey, username, online)
		if err != nil {
			s.logger.Error("presence update failed",
				zap.String("user", username),
				zap.String("pair", pairKey),
				zap.Error(err))
			continue
		}
		if notifyTo != "" {
			view := buildView(conn, notifyTo, &user, 0)
			s.notify(notifyTo, receivePayload(username, nil, view, http.StatusOK, "presence changed"))
		}
	}
	return nil
}

func (s *Service) applyPresenceToPair(ctx context.Context, pairKey, username string, online bool) (*models.Connection, string, error) {
	unlock := s.locks.Lock(pairKey)
	defer unlock()

	// Reload under the lock; the listing snapshot may be stale.
	conn, err := s.store.Connections().GetByParticipants(ctx, pairKey)
	if err != nil {
		return nil, "", err
	}

	mySide := conn.Side(username)
	mySide.ChatOpen = false

	var changed []models.Conversation
	if online {
		convs, err := s.store.Conversations().GetMany(ctx, conn.ConversationIDs)
		if err != nil {
			return nil, "", err
		}
		for i := range convs {
			conv := &convs[i]
			// Soft-deleted inbound messages stay at Sent forever; this is
			// what pins a blocked sender's messages.
			if conv.Receiver == username && conv.Status == models.StatusSent && !conv.DeletedFor(username) {
				conv.Status = models.StatusDelivered
				changed = append(changed, *conv)
			}
		}
	}

	err = s.store.Atomic(ctx, func(st repositories.Store) error {
		if len(changed) > 0 {
			if err := st.Conversations().SaveAll(ctx, changed); err != nil {
				return err
			}
		}
		return st.Connections().Save(ctx, &conn)
	})
	if err != nil {
		return nil, "", err
	}

	// Presence is pushed only to a counterpart currently looking at this
	// thread, and never across a block in either direction.
	counterpartSide := conn.OtherSide(username)
	if counterpartSide.ChatOpen && !mySide.Blocked && !counterpartSide.Blocked {
		return &conn, counterpartSide.Username, nil
	}
	return &conn, "", nil
}
