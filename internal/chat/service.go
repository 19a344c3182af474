package chat

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
)

// Service is the pairwise state-synchronization engine. Every mutating
// operation serializes on the pair key, persists inside one atomic store unit,
// and fans out per-recipient payloads after the lock is released.
type Service struct {
	store    repositories.Store
	notifier Notifier
	logger   *zap.Logger
	locks    *pairLocks

	now   func() time.Time
	newID func() string
}

// NewService wires the engine.
func NewService(store repositories.Store, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   logger,
		locks:    newPairLocks(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ListConnections returns the viewer's connections ordered newest-activity-
// first, each projected through the visibility rules for that viewer.
func (s *Service) ListConnections(ctx context.Context, viewer string) ([]models.ConnectionView, error) {
	if err := models.ValidateUsername(viewer); err != nil {
		return nil, err
	}

	conns, err := s.store.Connections().ListByUsername(ctx, viewer)
	if err != nil {
		return nil, err
	}

	views := make([]models.ConnectionView, 0, len(conns))
	for i := range conns {
		conn := &conns[i]
		counterpartName := conn.Counterpart(viewer)

		counterpart, err := s.store.Users().GetByUsername(ctx, counterpartName)
		if err != nil {
			return nil, err
		}

		convs, err := s.store.Conversations().GetMany(ctx, conn.ConversationIDs)
		if err != nil {
			return nil, err
		}

		view := buildView(conn, viewer, &counterpart, countUnread(convs, viewer))
		if view != nil {
			views = append(views, *view)
		}
	}

	sort.Slice(views, func(i, j int) bool {
		if !views[i].LastActivity.Equal(views[j].LastActivity) {
			return views[i].LastActivity.After(views[j].LastActivity)
		}
		return views[i].ID < views[j].ID
	})
	return views, nil
}

// ListMessages returns the viewer's chronological thread with the counterpart,
// soft-deletes and the clear fence applied.
func (s *Service) ListMessages(ctx context.Context, viewer, counterpart string) ([]models.Conversation, error) {
	pairKey, err := models.PairKey(viewer, counterpart)
	if err != nil {
		return nil, err
	}

	conn, err := s.store.Connections().GetByParticipants(ctx, pairKey)
	if err != nil {
		return nil, err
	}

	convs, err := s.store.Conversations().GetMany(ctx, conn.ConversationIDs)
	if err != nil {
		return nil, err
	}

	return filterForViewer(convs, viewer, conn.Side(viewer)), nil
}

// SetChatOpen marks the viewer as looking at the counterpart's thread, closing
// the previously open thread first when one is supplied, and marks the inbound
// messages read.
func (s *Service) SetChatOpen(ctx context.Context, viewer, counterpart, previous string) error {
	if previous != "" && previous != counterpart {
		if err := s.CloseChat(ctx, viewer, previous); err != nil && !apperrors.Is(err, apperrors.CodeNotFound) {
			return err
		}
	}

	pairKey, err := models.PairKey(viewer, counterpart)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(pairKey)
	conn, notifyCounterpart, err := s.openAndMarkRead(ctx, pairKey, viewer, counterpart)
	unlock()
	if err != nil {
		return err
	}

	counterpartUser, err := s.store.Users().GetByUsername(ctx, counterpart)
	if err != nil {
		return err
	}
	s.notify(viewer, sendPayload(counterpart, nil, buildView(conn, viewer, &counterpartUser, 0), http.StatusOK, "chat opened"))

	if notifyCounterpart {
		viewerUser, err := s.store.Users().GetByUsername(ctx, viewer)
		if err != nil {
			return err
		}
		s.notify(counterpart, receivePayload(viewer, nil, buildView(conn, counterpart, &viewerUser, 0), http.StatusOK, "messages read"))
	}
	return nil
}

// CloseChat clears the viewer's chat-opened flag. No status changes.
func (s *Service) CloseChat(ctx context.Context, viewer, counterpart string) error {
	pairKey, err := models.PairKey(viewer, counterpart)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(pairKey)
	defer unlock()

	conn, err := s.store.Connections().GetByParticipants(ctx, pairKey)
	if err != nil {
		return err
	}
	conn.Side(viewer).ChatOpen = false
	return s.store.Connections().Save(ctx, &conn)
}

// SetBlocked toggles the viewer's block on the counterpart. Only the actor is
// notified; announcing a block to the blocked party would leak the state the
// block is meant to hide.
func (s *Service) SetBlocked(ctx context.Context, viewer, counterpart string, blocked bool) error {
	pairKey, err := models.PairKey(viewer, counterpart)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(pairKey)
	conn, err := s.store.Connections().GetByParticipants(ctx, pairKey)
	if err != nil {
		unlock()
		return err
	}
	conn.Side(viewer).Blocked = blocked
	err = s.store.Connections().Save(ctx, &conn)
	unlock()
	if err != nil {
		return err
	}

	counterpartUser, err := s.store.Users().GetByUsername(ctx, counterpart)
	if err != nil {
		return err
	}
	s.notify(viewer, sendPayload(counterpart, nil, buildView(&conn, viewer, &counterpartUser, 0), http.StatusOK, "block state changed"))
	return nil
}

// ClearChat sets the viewer's clear fence to now and nulls their preview
// pointer. Messages stay in place for the counterpart.
func (s *Service) ClearChat(ctx context.Context, viewer, counterpart string) error {
	pairKey, err := models.PairKey(viewer, counterpart)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(pairKey)
	conn, err := s.store.Connections().GetByParticipants(ctx, pairKey)
	if err != nil {
		unlock()
		return err
	}
	now := s.now()
	side := conn.Side(viewer)
	side.ClearedAt = &now
	side.LastMsg = nil
	err = s.store.Connections().Save(ctx, &conn)
	unlock()
	if err != nil {
		return err
	}

	counterpartUser, err := s.store.Users().GetByUsername(ctx, counterpart)
	if err != nil {
		return err
	}
	s.notify(viewer, sendPayload(counterpart, nil, buildView(&conn, viewer, &counterpartUser, 0), http.StatusOK, "chat cleared"))
	return nil
}

// DeleteConnection hides the pair from the viewer's side: deleted flag, clear
// fence, preview nulled, with an optional simultaneous block. The record
// itself is never removed.
func (s *Service) DeleteConnection(ctx context.Context, viewer, counterpart string, block bool) error {
	pairKey, err := models.PairKey(viewer, counterpart)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(pairKey)
	conn, err := s.store.Connections().GetByParticipants(ctx, pairKey)
	if err != nil {
		unlock()
		return err
	}
	now := s.now()
	side := conn.Side(viewer)
	side.Deleted = true
	side.Blocked = block
	side.ClearedAt = &now
	side.LastMsg = nil
	counterpartOpen := conn.OtherSide(viewer).ChatOpen
	err = s.store.Connections().Save(ctx, &conn)
	unlock()
	if err != nil {
		return err
	}

	counterpartUser, err := s.store.Users().GetByUsername(ctx, counterpart)
	if err != nil {
		return err
	}
	s.notify(viewer, sendPayload(counterpart, nil, buildView(&conn, viewer, &counterpartUser, 0), http.StatusOK, "connection deleted"))

	if block && counterpartOpen {
		viewerUser, err := s.store.Users().GetByUsername(ctx, viewer)
		if err != nil {
			return err
		}
		s.notify(counterpart, receivePayload(viewer, nil, buildView(&conn, counterpart, &viewerUser, 0), http.StatusOK, "connection updated"))
	}
	return nil
}

// SearchUsers finds users by username or email substring, excluding the caller.
func (s *Service) SearchUsers(ctx context.Context, query, viewer string) ([]models.UserSummary, error) {
	if query == "" {
		return nil, apperrors.Invalid("search query is empty")
	}
	return s.store.Users().Search(ctx, query, viewer)
}
